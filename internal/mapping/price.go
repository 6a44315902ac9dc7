package mapping

import "strings"

// CleanPrice reduces a raw price to its integer part. Everything except
// digits, commas and periods is dropped, then the value is cut at the first
// comma (or, failing that, the first period). It never rounds.
//
//	"1 234,50 UAH" -> "1234"
//	"99.99"        -> "99"
//	""             -> "0"
func CleanPrice(value string) string {
	if value == "" {
		return "0"
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			return r
		}
		return -1
	}, value)

	if i := strings.IndexByte(cleaned, ','); i >= 0 {
		cleaned = cleaned[:i]
	} else if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		cleaned = cleaned[:i]
	}

	if cleaned == "" {
		return "0"
	}
	return cleaned
}
