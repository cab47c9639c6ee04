package utils

import "strings"

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldKey lowercases and collapses whitespace for case-insensitive matching.
func FoldKey(s string) string {
	return strings.ToLower(NormalizeSpace(s))
}
