package registry

import "strings"

// SUSHI 4 metric type codes.
const (
	CodeFTTotal     = "ft_total"
	CodeFTHTML      = "ft_html"
	CodeFTPDF       = "ft_pdf"
	CodeTurnaway    = "turnaway"
	CodeNoLicense   = "no_license"
	CodeSearchReg   = "search_reg"
	CodeSearchFed   = "search_fed"
	CodeResultClick = "result_click"
	CodeRecordView  = "record_view"
)

var metricCodes = map[string]string{
	CodeTurnaway:    MetricTurnawayLimit,
	CodeNoLicense:   MetricNotLicensed,
	CodeSearchReg:   MetricRegularSearches,
	CodeSearchFed:   MetricFederatedSearches,
	CodeResultClick: MetricResultClicks,
	CodeRecordView:  MetricRecordViews,
}

// MetricForCode maps a SUSHI 4 metric type code to the row metric of rt.
// ft_total maps to the report's own metric; format breakdown codes
// (ft_html, ft_pdf) and unknown codes return false.
func (rt ReportType) MetricForCode(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == CodeFTTotal {
		if rt.Metric == "" {
			return "", false
		}
		return rt.Metric, true
	}
	metric, ok := metricCodes[code]
	return metric, ok
}

// MetricOrder returns the canonical position of metric within rt, or -1.
func (rt ReportType) MetricOrder(metric string) int {
	for i, m := range rt.Metrics {
		if strings.EqualFold(m, metric) {
			return i
		}
	}
	return -1
}

var headerFields = map[string]Field{
	"publisher":              FieldPublisher,
	"content provider":       FieldPublisher,
	"platform":               FieldPlatform,
	"journal doi":            FieldDOI,
	"book doi":               FieldDOI,
	"doi":                    FieldDOI,
	"proprietary identifier": FieldProprietaryID,
	"proprietary id":         FieldProprietaryID,
	"proprietary_id":         FieldProprietaryID,
	"print issn":             FieldISSN,
	"print_issn":             FieldISSN,
	"issn":                   FieldISSN,
	"online issn":            FieldEISSN,
	"online_issn":            FieldEISSN,
	"eissn":                  FieldEISSN,
	"isbn":                   FieldISBN,
	"access denied category": FieldMetric,
	"user activity":          FieldMetric,
	"metric_type":            FieldMetric,
	"metric type":            FieldMetric,
	"category":               FieldMetric,
	"reporting period total": FieldTotal,
	"reporting_period_total": FieldTotal,
	"total":                  FieldTotal,
	"reporting period html":  FieldHTML,
	"reporting period pdf":   FieldPDF,
	"reporting_period_html":  FieldHTML,
	"reporting_period_pdf":   FieldPDF,
}

// FieldForHeader resolves a normalised (lower-case, trimmed) column header.
func FieldForHeader(key string) (Field, bool) {
	f, ok := headerFields[key]
	return f, ok
}
