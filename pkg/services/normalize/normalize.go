// Package normalize holds the text clean-up shared by every reader: vendor
// header punctuation, cell artifacts, case-insensitive names, dates and
// counts.
package normalize

import (
	"strings"
	"unicode"
)

// CleanCell removes common spreadsheet/CSV artifacts from a cell value:
//   - surrounding whitespace, including non-breaking spaces
//   - Excel formula prefix (="...")
//   - surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimFunc(s, unicode.IsSpace)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimFunc(s, unicode.IsSpace)
}

// HeaderKey reduces a header or label cell to a comparable key: quotes,
// trailing colons and whitespace are stripped, inner whitespace collapsed
// and the result lower-cased.
func HeaderKey(s string) string {
	s = CleanCell(s)
	s = strings.TrimRight(s, ": \t")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// EqualName compares two names case-insensitively, ignoring the punctuation
// HeaderKey strips.
func EqualName(a, b string) bool {
	return HeaderKey(a) == HeaderKey(b)
}

// LookupFold returns the value of the first key in m matching name
// case-insensitively.
func LookupFold[V any](m map[string]V, name string) (V, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// IsTotalRow reports whether a first cell labels an aggregate row.
func IsTotalRow(cell string) bool {
	return strings.HasPrefix(HeaderKey(cell), "total for all")
}

// IsBlankRow reports whether every cell of row is empty after cleaning.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if CleanCell(cell) != "" {
			return false
		}
	}
	return true
}

// Cell returns the cleaned cell i of row, or "" when the row is shorter.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}
