package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

type Format string

const (
	FormatUnknown Format = ""
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatXLSX    Format = "xlsx"
	FormatSushi4  Format = "sushi4"
	FormatSushi5  Format = "sushi5"
)

var formatAliases = map[string]Format{
	"csv":    FormatCSV,
	"tsv":    FormatTSV,
	"tab":    FormatTSV,
	"xlsx":   FormatXLSX,
	"xls":    FormatXLSX,
	"excel":  FormatXLSX,
	"sushi4": FormatSushi4,
	"sushi":  FormatSushi4,
	"xml":    FormatSushi4,
	"sushi5": FormatSushi5,
	"json":   FormatSushi5,
	"c5":     FormatSushi5,
}

// ParseFormat resolves a user supplied format hint. An empty hint means the
// format is sniffed from content.
func ParseFormat(hint string) (Format, error) {
	hint = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hint), "."))
	if hint == "" {
		return FormatUnknown, nil
	}
	f, ok := formatAliases[hint]
	if !ok {
		return FormatUnknown, fmt.Errorf("unknown format %q: %w", hint, domain.ErrUnsupportedFormat)
	}
	return f, nil
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatUnknown
	}
	return f
}

const sniffLines = 10

var (
	zipMagic = []byte("PK\x03\x04")
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Sniff detects the format of a payload from its first bytes. text must be
// the payload decoded to UTF-8 when it is not a zip archive.
func Sniff(raw, text []byte) (Format, error) {
	if bytes.HasPrefix(raw, zipMagic) {
		return FormatXLSX, nil
	}

	text = bytes.TrimPrefix(text, utf8BOM)
	trimmed := bytes.TrimSpace(text)
	switch {
	case len(trimmed) == 0:
		return FormatUnknown, fmt.Errorf("empty payload: %w", domain.ErrUnsupportedFormat)
	case trimmed[0] == '<':
		return FormatSushi4, nil
	case trimmed[0] == '{' || trimmed[0] == '[':
		return FormatSushi5, nil
	}

	var tabs, commas int
	for i, line := range bytes.SplitN(text, []byte("\n"), sniffLines+1) {
		if i == sniffLines {
			break
		}
		tabs += bytes.Count(line, []byte("\t"))
		commas += bytes.Count(line, []byte(","))
	}
	switch {
	case tabs == 0 && commas == 0:
		return FormatUnknown, domain.ErrUnsupportedFormat
	case tabs >= commas:
		return FormatTSV, nil
	default:
		return FormatCSV, nil
	}
}
