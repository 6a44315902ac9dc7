// Package mapping turns raw spreadsheet rows into feed products.
package mapping

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ColumnIndex resolves a column letter ("A".."Z", any case) to a 0-based
// index. ok is false for anything that is not a single ASCII letter.
func ColumnIndex(column string) (int, bool) {
	column = strings.TrimSpace(column)
	if len(column) != 1 {
		return 0, false
	}

	c := column[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

// MapValue returns the trimmed cell at the given column letter, or def when
// the mapping is absent or invalid, the row is too short, or the cell is blank.
func MapValue(row []string, column string, def string) string {
	idx, ok := ColumnIndex(column)
	if !ok || idx >= len(row) {
		return def
	}

	value := strings.TrimSpace(row[idx])
	if value == "" {
		return def
	}
	return norm.NFC.String(value)
}
