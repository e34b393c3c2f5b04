// Package tabular parses the COUNTER 4 tabular layout shared by delimited
// text files and spreadsheets: a seven line header block, a column header
// row, optional aggregate rows and one row per item.
package tabular

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
	"github.com/de-tools/counter-atlas/pkg/services/normalize"
	"github.com/de-tools/counter-atlas/pkg/services/reconcile"
)

// Header block line indexes (0-based).
const (
	lineTitle       = 0
	lineCustomer    = 1
	lineInstitution = 2
	linePeriod      = 4
	lineDateRun     = 6
	lineColumns     = 7
	firstDataLine   = 8
)

var titlePattern = regexp.MustCompile(`^(.*?)\s*\(R(\d+)\)\s*$`)

var fieldIdentifiers = map[registry.Field]domain.IdentifierType{
	registry.FieldDOI:           domain.IdentDOI,
	registry.FieldProprietaryID: domain.IdentProprietaryID,
	registry.FieldISSN:          domain.IdentISSN,
	registry.FieldEISSN:         domain.IdentEISSN,
	registry.FieldISBN:          domain.IdentISBN,
}

type monthColumn struct {
	index int
	month time.Time
}

type layout struct {
	fields map[registry.Field]int
	months []monthColumn
}

// Parse builds a report from rows already split into cells. source names the
// input in error messages.
func Parse(ctx context.Context, rows [][]string, source string) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", source).Logger()

	if len(rows) == 0 || normalize.IsBlankRow(rows[lineTitle]) {
		return nil, &domain.ParseError{Source: source, Line: 1, Msg: "missing report title"}
	}

	rt, version, err := reportType(normalize.Cell(rows[lineTitle], 0))
	if err != nil {
		return nil, err
	}
	if len(rows) <= lineColumns {
		return nil, &domain.ParseError{
			Source: source,
			Line:   len(rows),
			Msg:    fmt.Sprintf("header block truncated after %d lines", len(rows)),
		}
	}

	report := &domain.Report{
		ReportType:              rt.Code,
		ReportVersion:           version,
		Customer:                normalize.Cell(rows[lineCustomer], 0),
		InstitutionalIdentifier: normalize.Cell(rows[lineInstitution], 0),
		Metric:                  rt.Metric,
	}
	if rt.Code == "BR2" {
		report.SectionType = normalize.Cell(rows[lineInstitution], 1)
	}

	declared, err := declaredPeriod(rows, source)
	if err != nil {
		return nil, err
	}

	dateRun := normalize.Cell(rows[lineDateRun], 0)
	if dateRun == "" {
		report.DateRun = time.Now().UTC()
	} else if report.DateRun, err = normalize.ParseDate(dateRun); err != nil {
		return nil, &domain.ParseError{Source: source, Line: lineDateRun + 1, Column: 1, Msg: "invalid date run", Err: err}
	}

	cols, err := locateColumns(rt, rows[lineColumns], source)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for i := firstDataLine; i < len(rows); i++ {
		row := rows[i]
		if normalize.IsBlankRow(row) {
			continue
		}
		if normalize.IsTotalRow(normalize.Cell(row, 0)) {
			skipped++
			continue
		}
		pub, err := parseRow(rt, cols, row, source, i+1)
		if err != nil {
			return nil, err
		}
		report.Pubs = append(report.Pubs, pub)
	}
	logger.Debug().
		Str("report_type", rt.Code).
		Int("publications", len(report.Pubs)).
		Int("aggregate_rows", skipped).
		Msg("parsed tabular report")

	observed := make([]time.Time, len(cols.months))
	for i, mc := range cols.months {
		observed[i] = mc.month
	}
	if err := reconcile.Apply(logger.WithContext(ctx), report, declared, observed); err != nil {
		return nil, err
	}
	return report, nil
}

func reportType(title string) (registry.ReportType, int, error) {
	name, version := title, 4
	if m := titlePattern.FindStringSubmatch(title); m != nil {
		name = m[1]
		version, _ = strconv.Atoi(m[2])
	}
	rt, ok := registry.ByName(name)
	if !ok {
		return registry.ReportType{}, 0, &domain.UnknownReportTypeError{ReportType: title}
	}
	return rt, version, nil
}

func declaredPeriod(rows [][]string, source string) (*domain.Period, error) {
	text := normalize.Cell(rows[linePeriod], 0)
	if text == "" {
		// Some vendors put the period next to its label.
		text = normalize.Cell(rows[linePeriod-1], 1)
	}
	if text == "" {
		return nil, nil
	}
	p, err := normalize.ParsePeriod(text)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Line: linePeriod + 1, Column: 1, Msg: "invalid reporting period", Err: err}
	}
	return &p, nil
}

func locateColumns(rt registry.ReportType, header []string, source string) (layout, error) {
	cols := layout{fields: map[registry.Field]int{registry.FieldTitle: 0}}
	claimed := map[int]bool{0: true}

	for i := 1; i < len(header); i++ {
		if m, ok := normalize.ParseMonth(header[i]); ok {
			cols.months = append(cols.months, monthColumn{index: i, month: m})
			claimed[i] = true
			continue
		}
		f, ok := registry.FieldForHeader(normalize.HeaderKey(header[i]))
		if !ok || !rt.HasField(f) {
			continue
		}
		if _, dup := cols.fields[f]; !dup {
			cols.fields[f] = i
			claimed[i] = true
		}
	}

	// Positional fallback for headers vendors renamed.
	for j, c := range rt.Columns {
		if _, ok := cols.fields[c.Field]; ok || j >= len(header) || claimed[j] {
			continue
		}
		if _, known := registry.FieldForHeader(normalize.HeaderKey(header[j])); known {
			continue
		}
		cols.fields[c.Field] = j
		claimed[j] = true
	}

	if _, ok := cols.fields[registry.FieldMetric]; rt.MultiMetric() && !ok {
		return layout{}, &domain.ParseError{
			Source: source,
			Line:   lineColumns + 1,
			Msg:    fmt.Sprintf("%s report has no metric column", rt.Code),
		}
	}
	return cols, nil
}

func parseRow(rt registry.ReportType, cols layout, row []string, source string, line int) (*domain.Publication, error) {
	cell := func(f registry.Field) string {
		i, ok := cols.fields[f]
		if !ok {
			return ""
		}
		return normalize.Cell(row, i)
	}

	pub := &domain.Publication{
		Kind:      rt.Kind,
		Title:     cell(registry.FieldTitle),
		Publisher: cell(registry.FieldPublisher),
		Platform:  cell(registry.FieldPlatform),
		Metric:    rt.Metric,
	}
	if rt.Kind == domain.KindPlatform {
		pub.Platform = pub.Title
	}
	for f, ident := range fieldIdentifiers {
		if v := cell(f); v != "" {
			pub.SetIdentifier(ident, v)
		}
	}

	if rt.MultiMetric() {
		metric := cell(registry.FieldMetric)
		if metric == "" {
			return nil, &domain.ParseError{
				Source: source,
				Line:   line,
				Column: cols.fields[registry.FieldMetric] + 1,
				Msg:    "missing metric",
			}
		}
		pub.Metric = canonicalMetric(rt, metric)
	}

	count := func(i int) (int, bool, error) {
		n, ok, err := normalize.ParseCount(normalize.Cell(row, i))
		if err != nil {
			return 0, false, &domain.ParseError{Source: source, Line: line, Column: i + 1, Msg: "invalid count", Err: err}
		}
		return n, ok, nil
	}

	var months []domain.MonthCount
	for _, mc := range cols.months {
		n, ok, err := count(mc.index)
		if err != nil {
			return nil, err
		}
		if ok {
			months = append(months, domain.MonthCount{Month: mc.month, Count: n})
		}
	}
	pub.SetMonths(months)

	for f, dst := range map[registry.Field]*int{registry.FieldHTML: &pub.HTMLTotal, registry.FieldPDF: &pub.PDFTotal} {
		i, ok := cols.fields[f]
		if !ok {
			continue
		}
		n, _, err := count(i)
		if err != nil {
			return nil, err
		}
		*dst = n
	}
	return pub, nil
}

func canonicalMetric(rt registry.ReportType, metric string) string {
	if i := rt.MetricOrder(metric); i >= 0 {
		return rt.Metrics[i]
	}
	for _, m := range rt.Metrics {
		if strings.EqualFold(normalize.HeaderKey(m), normalize.HeaderKey(metric)) {
			return m
		}
	}
	return metric
}
