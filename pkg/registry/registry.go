// Package registry describes every supported COUNTER report type: its
// metrics, column layout and the labels used in the generic tabular form.
// The table is built at init and never mutated, so it is safe for
// concurrent use.
package registry

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

// Field identifies the publication attribute a column carries.
type Field int

const (
	FieldTitle Field = iota
	FieldPublisher
	FieldPlatform
	FieldDOI
	FieldProprietaryID
	FieldISSN
	FieldEISSN
	FieldISBN
	FieldMetric
	FieldTotal
	FieldHTML
	FieldPDF
)

type Column struct {
	Header string
	Field  Field
}

// ReportType is the static description of one report code.
type ReportType struct {
	Code        string // "JR1", "TR_J1"
	Name        string // "Journal Report 1"
	Description string
	Release     int
	Kind        domain.Kind

	// Metric is the metric shared by all rows; empty for multi-metric types.
	Metric  string
	Metrics []string

	Columns []Column

	// TotalLabel starts the aggregate rows; empty when the layout has none.
	TotalLabel           string
	BlankTotalsPublisher bool

	// RequiredMetrics must exist for every item, in this order.
	RequiredMetrics []string
}

// Title is the first cell of the generic header block, e.g. "Journal Report 1 (R4)".
func (rt ReportType) Title() string {
	return rt.Name + " (R" + strconv.Itoa(rt.Release) + ")"
}

func (rt ReportType) MultiMetric() bool {
	return rt.Metric == ""
}

func (rt ReportType) HasField(f Field) bool {
	return slices.ContainsFunc(rt.Columns, func(c Column) bool { return c.Field == f })
}

func (rt ReportType) Headers() []string {
	headers := make([]string, len(rt.Columns))
	for i, c := range rt.Columns {
		headers[i] = c.Header
	}
	return headers
}

var (
	byCode = make(map[string]ReportType)
	byName = make(map[string]string)
)

func register(rt ReportType) {
	if _, exists := byCode[rt.Code]; exists {
		panic("report type already registered: " + rt.Code)
	}
	if rt.Metric != "" && len(rt.Metrics) == 0 {
		rt.Metrics = []string{rt.Metric}
	}
	byCode[rt.Code] = rt
	byName[nameKey(rt.Name)] = rt.Code
}

// Lookup returns the report type registered under code.
func Lookup(code string) (ReportType, bool) {
	rt, ok := byCode[code]
	return rt, ok
}

// ByName resolves a report name such as "Journal Report 1" ignoring case and
// repeated whitespace.
func ByName(name string) (ReportType, bool) {
	code, ok := byName[nameKey(name)]
	if !ok {
		return ReportType{}, false
	}
	return byCode[code], true
}

// All returns every registered report type sorted by code.
func All() []ReportType {
	result := make([]ReportType, 0, len(byCode))
	for _, rt := range byCode {
		result = append(result, rt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Code < result[j].Code
	})
	return result
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
