package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slug converts value into a lowercase filesystem-safe token. Accents are
// folded onto their base letters, letters and digits are kept, and every other
// run of characters becomes a single underscore. Hyphens survive. Returns ""
// when nothing usable remains.
func Slug(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range norm.NFD.String(strings.TrimSpace(value)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}
	return strings.Trim(b.String(), "-")
}
