package terminal

import (
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
)

// Reporter outputs reports to the console in a formatted text form
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

type metricSummary struct {
	Name  string
	Rows  int
	Total int
	HTML  int
	PDF   int
}

type summary struct {
	Title        string
	Customer     string
	Institution  string
	SectionType  string
	Period       domain.Period
	Months       int
	DateRun      time.Time
	Publications int
	Metrics      []*metricSummary
}

func summarize(report *domain.Report) summary {
	s := summary{
		Title:        report.ReportType,
		Customer:     report.Customer,
		Institution:  report.InstitutionalIdentifier,
		SectionType:  report.SectionType,
		Period:       report.Period,
		Months:       report.Period.Len(),
		DateRun:      report.DateRun,
		Publications: len(report.Pubs),
	}
	if rt, ok := registry.Lookup(report.ReportType); ok {
		s.Title = rt.Title()
	}

	byMetric := make(map[string]*metricSummary)
	for pub := range report.All() {
		m, ok := byMetric[pub.Metric]
		if !ok {
			m = &metricSummary{Name: pub.Metric}
			byMetric[pub.Metric] = m
			s.Metrics = append(s.Metrics, m)
		}
		m.Rows++
		m.Total += pub.Total()
		m.HTML += pub.HTMLTotal
		m.PDF += pub.PDFTotal
	}
	return s
}

func (c *Reporter) Handle(report *domain.Report) error {
	tmpl := `
{{.Title}}
Customer: {{.Customer}}{{if .Institution}} ({{.Institution}}){{end}}
{{if .SectionType}}Section type: {{.SectionType}}
{{end}}Period: {{.Period}} ({{.Months}} months)
Date run: {{.DateRun.Format "2006-01-02"}}
Publications: {{.Publications}}
{{range .Metrics}}
=== {{.Name}} ===
Rows: {{.Rows}}
Total: {{.Total}}{{if .HTML}}  HTML: {{.HTML}}{{end}}{{if .PDF}}  PDF: {{.PDF}}{{end}}
{{end}}`
	t, err := template.New("report").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, summarize(report))
}
