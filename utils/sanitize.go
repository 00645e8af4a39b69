package utils

import "github.com/microcosm-cc/bluemonday"

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks while keeping common
// user-generated markup. Used for post and comment bodies.
func Sanitize(input string) string {
	return ugcPolicy.Sanitize(input)
}

// SanitizeText strips all markup. Used for titles and tag names.
func SanitizeText(input string) string {
	return strictPolicy.Sanitize(input)
}
