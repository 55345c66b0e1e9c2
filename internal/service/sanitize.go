package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// textPolicy strips all HTML from user-supplied text fields. Captions, bios
// and comments are rendered back to browsers, so markup never survives intake.
var textPolicy = bluemonday.StrictPolicy()

// sanitizeText removes HTML and trims surrounding whitespace.
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
