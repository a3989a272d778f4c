package recorder

import "net/url"

// RedactResource removes credentials, query and fragment from a URL
// reference. Anything that does not parse as an absolute URL is returned
// unchanged.
//
// Example: "https://user:pw@host/ext.js?token=x" -> "https://host/ext.js"
func RedactResource(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ref
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// TruncateString truncates s to maxLen bytes, ending in "..." when cut.
// A non-positive maxLen disables truncation.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
