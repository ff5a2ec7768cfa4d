package utils

import "github.com/microcosm-cc/bluemonday"

// sanitizer keeps the user-generated-content allow-list: common formatting
// tags and safe link attributes survive, scripts and styles never do.
var sanitizer = bluemonday.UGCPolicy()

// titleSanitizer strips all markup; titles are plain text.
var titleSanitizer = bluemonday.StrictPolicy()

// Sanitize cleans HTML content against the UGC allow-list to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// SanitizeTitle removes every tag from a post title.
func SanitizeTitle(input string) string {
	return titleSanitizer.Sanitize(input)
}
