package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/generic"
)

const (
	FormatTSV = "tsv"
	FormatCSV = "csv"
)

// Writer writes generic report rows as delimited text with "\n" line endings.
type Writer struct {
	out   io.Writer
	comma rune
}

func NewWriter(out io.Writer, format string) (*Writer, error) {
	comma, err := delimiter(format)
	if err != nil {
		return nil, err
	}
	return &Writer{out: out, comma: comma}, nil
}

func delimiter(format string) (rune, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case FormatTSV, "tab", "":
		return '\t', nil
	case FormatCSV:
		return ',', nil
	default:
		return 0, fmt.Errorf("unsupported output format %q", format)
	}
}

func (w *Writer) WriteRows(rows [][]string) error {
	cw := csv.NewWriter(w.out)
	cw.Comma = w.comma
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteReport serializes report through the generic layout.
func (w *Writer) WriteReport(report *domain.Report) error {
	rows, err := generic.AsGeneric(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	return w.WriteRows(rows)
}

func (w *Writer) Handle(report *domain.Report) error {
	return w.WriteReport(report)
}

// WriteFile writes report to path, choosing the delimiter from the file
// extension: ".csv" is comma separated, anything else tab separated.
func WriteFile(path string, report *domain.Report) (err error) {
	format := FormatTSV
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		format = FormatCSV
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w, err := NewWriter(f, format)
	if err != nil {
		return err
	}
	return w.WriteReport(report)
}
