// Package generic renders a report as the rows of a COUNTER 4 style table,
// ready to be written as TSV or CSV.
package generic

import (
	"errors"
	"strconv"
	"time"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
	"github.com/de-tools/counter-atlas/pkg/services/reconcile"
)

const (
	monthLayout = "Jan-2006"
	dateLayout  = "2006-01-02"
)

var ErrNoPeriod = errors.New("report has no reporting period")

var fieldIdentifiers = map[registry.Field]domain.IdentifierType{
	registry.FieldDOI:           domain.IdentDOI,
	registry.FieldProprietaryID: domain.IdentProprietaryID,
	registry.FieldISSN:          domain.IdentISSN,
	registry.FieldEISSN:         domain.IdentEISSN,
	registry.FieldISBN:          domain.IdentISBN,
}

// AsGeneric returns the header block, the column header row, the aggregate
// rows and one row per publication. Publications missing a metric the report
// type requires are completed on the report first.
func AsGeneric(report *domain.Report) ([][]string, error) {
	rt, ok := registry.Lookup(report.ReportType)
	if !ok {
		return nil, &domain.UnknownReportTypeError{ReportType: report.ReportType}
	}
	if report.Period.IsZero() {
		return nil, ErrNoPeriod
	}

	reconcile.Materialize(report)
	months := report.Period.Months()

	rows := Header(rt, report)

	columns := rt.Headers()
	for _, m := range months {
		columns = append(columns, m.Format(monthLayout))
	}
	rows = append(rows, columns)

	if rt.TotalLabel != "" {
		metrics := report.Metrics()
		if len(metrics) == 0 && rt.Metric != "" {
			metrics = []string{rt.Metric}
		}
		for _, metric := range metrics {
			rows = append(rows, totalsRow(rt, report, metric, months))
		}
	}

	for _, pub := range report.Pubs {
		rows = append(rows, pubRow(rt, pub, months))
	}
	return rows, nil
}

// Header returns the seven line header block.
func Header(rt registry.ReportType, report *domain.Report) [][]string {
	institution := []string{report.InstitutionalIdentifier}
	if rt.Code == "BR2" {
		institution = append(institution, report.SectionType)
	}
	return [][]string{
		{rt.Title(), rt.Description},
		{report.Customer},
		institution,
		{"Period covered by Report:"},
		{report.Period.String()},
		{"Date run:"},
		{report.DateRun.Format(dateLayout)},
	}
}

// totalsRow sums every publication reporting metric. Publisher and platform
// are shown only when all of those publications share them.
func totalsRow(rt registry.ReportType, report *domain.Report, metric string, months []time.Time) []string {
	var (
		publisher, platform string
		total, html, pdf    int
		seen                bool
	)
	monthly := make([]int, len(months))
	for _, pub := range report.Pubs {
		if pub.Metric != metric {
			continue
		}
		if !seen {
			publisher, platform = pub.Publisher, pub.Platform
			seen = true
		}
		if pub.Publisher != publisher {
			publisher = ""
		}
		if pub.Platform != platform {
			platform = ""
		}
		html += pub.HTMLTotal
		pdf += pub.PDFTotal

		for i, m := range months {
			n := pub.Count(m)
			monthly[i] += n
			total += n
		}
	}
	if rt.BlankTotalsPublisher {
		publisher = ""
	}

	row := make([]string, 0, len(rt.Columns)+len(months))
	for _, c := range rt.Columns {
		var cell string
		switch c.Field {
		case registry.FieldTitle:
			cell = rt.TotalLabel
		case registry.FieldPublisher:
			cell = publisher
		case registry.FieldPlatform:
			cell = platform
		case registry.FieldMetric:
			cell = metric
		case registry.FieldTotal:
			cell = strconv.Itoa(total)
		case registry.FieldHTML:
			cell = strconv.Itoa(html)
		case registry.FieldPDF:
			cell = strconv.Itoa(pdf)
		}
		row = append(row, cell)
	}
	for _, n := range monthly {
		row = append(row, strconv.Itoa(n))
	}
	return row
}

func pubRow(rt registry.ReportType, pub *domain.Publication, months []time.Time) []string {
	counts := make([]string, len(months))
	total := 0
	for i, m := range months {
		n := pub.Count(m)
		counts[i] = strconv.Itoa(n)
		total += n
	}

	row := make([]string, 0, len(rt.Columns)+len(months))
	for _, c := range rt.Columns {
		var cell string
		switch c.Field {
		case registry.FieldTitle:
			cell = pub.Title
		case registry.FieldPublisher:
			cell = pub.Publisher
		case registry.FieldPlatform:
			cell = pub.Platform
		case registry.FieldMetric:
			cell = pub.Metric
		case registry.FieldTotal:
			cell = strconv.Itoa(total)
		case registry.FieldHTML:
			cell = strconv.Itoa(pub.HTMLTotal)
		case registry.FieldPDF:
			cell = strconv.Itoa(pub.PDFTotal)
		default:
			cell, _ = pub.Identifier(fieldIdentifiers[c.Field])
		}
		row = append(row, cell)
	}
	return append(row, counts...)
}
