package tool

import "strings"

// MaxNameLength is the longest function name accepted by the major providers.
const MaxNameLength = 64

// SanitizeName maps s onto the function name alphabet [a-zA-Z0-9_-]. Runs of
// other characters collapse into a single underscore and the result is cut to
// MaxNameLength. An input without usable characters yields "tool".
func SanitizeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.TrimRight(b.String(), "_")
	if len(name) > MaxNameLength {
		name = strings.TrimRight(name[:MaxNameLength], "_")
	}
	if name == "" {
		return "tool"
	}
	return name
}
