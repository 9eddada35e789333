package model

import "net/url"

// ValidLink reports whether s is an absolute URL with a scheme and a host,
// e.g. "https://leetcode.com/problems/two-sum/".
func ValidLink(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
