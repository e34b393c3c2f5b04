// Package spreadsheet reads COUNTER reports from the first sheet of an XLSX
// workbook.
package spreadsheet

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/readers/tabular"
)

type Reader struct {
	source string
}

func New(source string) *Reader {
	return &Reader{source: source}
}

func (r *Reader) Parse(ctx context.Context, in io.Reader) (*domain.Report, error) {
	rows, err := ReadRows(ctx, in, r.source)
	if err != nil {
		return nil, err
	}
	return tabular.Parse(ctx, rows, r.source)
}

// ReadRows returns the raw cell values of the first sheet. Dates come back as
// serial numbers, which the tabular parser understands.
func ReadRows(ctx context.Context, in io.Reader, source string) ([][]string, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Msg: "not a readable workbook", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("source", source).Msg("failed to close workbook")
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ParseError{Source: source, Msg: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &domain.ParseError{Source: source, Msg: "read sheet " + sheets[0], Err: err}
	}
	zerolog.Ctx(ctx).Debug().
		Str("source", source).
		Str("sheet", sheets[0]).
		Int("rows", len(rows)).
		Msg("read workbook")
	return rows, nil
}
