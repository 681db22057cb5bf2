package domain

import "strings"

// AppCardPrefix marks a native mini-program deep link. Such links are
// passed through untouched instead of being wrapped in a redirect.
const AppCardPrefix = "#小程序://"

// IsLinkName reports whether a template placeholder name carries a link.
// The convention is purely name based.
func IsLinkName(name string) bool {
	return strings.Contains(name, "link") ||
		strings.Contains(name, "Link") ||
		strings.Contains(name, "url")
}

// TrimLinkMarkers strips surrounding whitespace and a leading/trailing
// backtick from a configured link value, e.g. " `https://x` " -> "https://x".
func TrimLinkMarkers(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")
	return strings.TrimSpace(s)
}
