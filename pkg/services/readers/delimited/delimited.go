// Package delimited reads COUNTER reports exported as CSV or TSV.
package delimited

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/readers/tabular"
)

const (
	Comma = ','
	Tab   = '\t'
)

type Reader struct {
	comma  rune
	source string
}

// New returns a reader splitting cells on comma. source names the input in
// errors.
func New(comma rune, source string) *Reader {
	return &Reader{comma: comma, source: source}
}

func (r *Reader) Parse(ctx context.Context, in io.Reader) (*domain.Report, error) {
	rows, err := ReadRows(ctx, in, r.comma, r.source)
	if err != nil {
		return nil, err
	}
	return tabular.Parse(ctx, rows, r.source)
}

// ReadRows decodes in to UTF-8 and splits it into rows, one per line. Rows
// may have different widths. A quoted cell never continues past its line, so
// a stray quote cannot swallow the rows after it.
func ReadRows(ctx context.Context, in io.Reader, comma rune, source string) ([][]string, error) {
	data, err := Decode(ctx, in)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Msg: "read failed", Err: err}
	}

	cr := csv.NewReader(strings.NewReader(repairLines(string(data), comma)))
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return nil, &domain.ParseError{Source: source, Line: pe.Line, Column: pe.Column, Msg: "malformed row", Err: pe.Err}
		}
		return nil, &domain.ParseError{Source: source, Msg: "malformed input", Err: err}
	}
	return rows, nil
}

// repairLines prepares text for encoding/csv. Empty lines become a single
// empty field, since the header block is positional and encoding/csv would
// otherwise drop them. Lines holding quotes are requoted cell by cell.
func repairLines(data string, comma rune) string {
	sep := string(comma)
	lines := strings.Split(data, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "" && i < len(lines)-1:
			lines[i] = `""`
		case strings.Contains(line, `"`):
			lines[i] = requote(line, sep)
		default:
			lines[i] = line
		}
	}
	return strings.Join(lines, "\n")
}

// requote rewrites the quoted cells of line so that each one is closed on
// the line. A cell whose opening quote is never closed runs to the next
// separator and keeps its inner quotes literally.
func requote(line, sep string) string {
	var cells []string
	rest := line
	for {
		if !strings.HasPrefix(rest, `"`) {
			cell, tail, found := strings.Cut(rest, sep)
			cells = append(cells, cell)
			if !found {
				break
			}
			rest = tail
			continue
		}

		end := closingQuote(rest, sep)
		if end < 0 {
			cell, tail, found := strings.Cut(rest[1:], sep)
			cells = append(cells, quote(cell))
			if !found {
				break
			}
			rest = tail
			continue
		}
		cells = append(cells, quote(strings.ReplaceAll(rest[1:end], `""`, `"`)))
		rest = rest[end+1:]
		if rest == "" {
			break
		}
		rest = rest[len(sep):]
	}
	return strings.Join(cells, sep)
}

// closingQuote returns the index of the quote closing the cell opened at
// s[0], or -1. A closing quote is followed by the separator or the end of
// the line; doubled quotes are escapes.
func closingQuote(s, sep string) int {
	for k := 1; k < len(s); k++ {
		if s[k] != '"' {
			continue
		}
		if k+1 == len(s) || strings.HasPrefix(s[k+1:], sep) {
			return k
		}
		if s[k+1] == '"' {
			k++
		}
	}
	return -1
}

func quote(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// Decode reads all of in and returns it as UTF-8. A UTF-8 or UTF-16 byte
// order mark selects the encoding and is dropped; text without one that is
// not valid UTF-8 is taken as Windows-1252.
func Decode(ctx context.Context, in io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	if hasBOM(raw) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		if err != nil {
			return nil, fmt.Errorf("decode unicode: %w", err)
		}
		return out, nil
	}
	if utf8.Valid(raw) {
		return raw, nil
	}

	zerolog.Ctx(ctx).Debug().Msg("input is not UTF-8, decoding as Windows-1252")
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return out, nil
}

func hasBOM(b []byte) bool {
	return bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(b, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(b, []byte{0xFE, 0xFF})
}
