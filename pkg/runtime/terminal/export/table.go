package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

type TableConfig struct {
	TitleWidth  int
	MetricWidth int
	CountWidth  int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		TitleWidth:  48,
		MetricWidth: 36,
		CountWidth:  10,
	}
}

// TableReporter prints one table line per publication.
type TableReporter struct {
	writer io.Writer
	config TableConfig
}

func NewTableReporter(writer io.Writer) *TableReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &TableReporter{
		writer: writer,
		config: DefaultTableConfig(),
	}
}

func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

func (c *TableReporter) Handle(report *domain.Report) error {
	funcMap := template.FuncMap{
		"formatRow": func(title, metric string, total, html, pdf any) string {
			return fmt.Sprintf("| %-*s | %-*s | %*v | %*v | %*v |",
				c.config.TitleWidth, clip(title, c.config.TitleWidth),
				c.config.MetricWidth, clip(metric, c.config.MetricWidth),
				c.config.CountWidth, total,
				c.config.CountWidth, html,
				c.config.CountWidth, pdf)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+%s+%s+",
				strings.Repeat("-", c.config.TitleWidth+2),
				strings.Repeat("-", c.config.MetricWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.CountWidth+2),
				strings.Repeat("-", c.config.CountWidth+2))
		},
	}

	tmpl := `{{.ReportType}} {{.Period}}
{{separator}}
{{formatRow "Title" "Metric" "Total" "HTML" "PDF"}}
{{separator}}
{{range .Pubs}}{{formatRow .Title .Metric .Total .HTMLTotal .PDFTotal}}
{{end}}{{separator}}
`

	t, err := template.New("table").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	return t.Execute(c.writer, report)
}
