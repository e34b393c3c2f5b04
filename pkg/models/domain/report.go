package domain

import (
	"iter"
	"slices"
	"time"
)

// Report is a COUNTER usage report normalised away from its wire format.
type Report struct {
	Period        Period
	ReportType    string
	ReportVersion int

	Customer                string
	InstitutionalIdentifier string
	SectionType             string // BR2 only
	DateRun                 time.Time

	// Metric is set when every row reports the same metric and empty when
	// metrics are mixed within the report.
	Metric string

	Pubs []*Publication
}

// Year is the first calendar year the report covers.
func (r *Report) Year() int {
	return r.Period.Start.Year()
}

// All yields publications in parse order.
func (r *Report) All() iter.Seq[*Publication] {
	return slices.Values(r.Pubs)
}

// Metrics returns distinct row metrics in order of first appearance.
func (r *Report) Metrics() []string {
	var metrics []string
	for _, pub := range r.Pubs {
		if !slices.Contains(metrics, pub.Metric) {
			metrics = append(metrics, pub.Metric)
		}
	}
	return metrics
}
