package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richText  = bluemonday.UGCPolicy()
	plainText = bluemonday.StrictPolicy()
)

// Sanitize cleans descriptive fields that may carry basic formatting.
func Sanitize(input string) string {
	return richText.Sanitize(input)
}

// SanitizeText strips all markup from single-line fields such as names and
// titles and trims the result.
func SanitizeText(input string) string {
	return strings.TrimSpace(plainText.Sanitize(input))
}
