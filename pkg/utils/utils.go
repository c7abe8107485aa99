package utils

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CapitalizeWords capitalizes the first letter of each word in a string.
func CapitalizeWords(s string) string {
	// Using golang.org/x/text/cases for robust capitalization, as strings.Title is deprecated.
	return cases.Title(language.Und, cases.NoLower).String(s)
}

// TruncateString truncates a string to a specified maximum length,
// appending "..." if truncation occurs.
func TruncateString(s string, maxLength int) string {
	if maxLength < 0 {
		return ""
	}
	if len(s) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return s[:maxLength]
	}
	return s[:maxLength-3] + "..."
}
