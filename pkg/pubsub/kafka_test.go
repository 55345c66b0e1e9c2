package pubsub

import "testing"

func TestChannelToTopicAndKey(t *testing.T) {
	tests := []struct {
		channel string
		topic   string
		key     string
		wantErr bool
	}{
		{channel: "social:post:p1", topic: "social-post", key: "p1"},
		{channel: "social:user:u1", topic: "social-user", key: "u1"},
		{channel: "social:post", wantErr: true},
		{channel: "other:post:p1", wantErr: true},
		{channel: "", wantErr: true},
	}

	for _, tt := range tests {
		topic, key, err := channelToTopicAndKey(tt.channel)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.channel)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tt.channel, err)
			continue
		}
		if topic != tt.topic || key != tt.key {
			t.Errorf("%q: got (%s, %s), want (%s, %s)", tt.channel, topic, key, tt.topic, tt.key)
		}
	}
}

func TestPatternToTopic(t *testing.T) {
	topic, err := patternToTopic("social:post:*")
	if err != nil {
		t.Fatalf("patternToTopic: %v", err)
	}
	if topic != "social-post" {
		t.Errorf("topic = %q, want social-post", topic)
	}
}

func TestChannelHelpers(t *testing.T) {
	if got := PostChannel("p1"); got != "social:post:p1" {
		t.Errorf("PostChannel = %q", got)
	}
	if got := UserChannel("u1"); got != "social:user:u1" {
		t.Errorf("UserChannel = %q", got)
	}
}

func TestEventPayloadRoundTrip(t *testing.T) {
	event, err := NewEvent(EventPostLiked, "p1", LikePayload{PostID: "p1", LikerID: "u1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	var payload LikePayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if payload.LikerID != "u1" {
		t.Errorf("payload = %+v", payload)
	}
}
