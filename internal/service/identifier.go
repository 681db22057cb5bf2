package service

import "regexp"

var poiidPattern = regexp.MustCompile(`poiid=(\d+)`)

// ExtractPOIID returns the digits of the first poiid=<digits> parameter in
// a card page path.
func ExtractPOIID(pagePath string) (string, bool) {
	m := poiidPattern.FindStringSubmatch(pagePath)
	if m == nil {
		return "", false
	}
	return m[1], true
}
