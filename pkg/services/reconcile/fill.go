package reconcile

import (
	"slices"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
)

type itemKey struct {
	title     string
	platform  string
	publisher string
}

// FillRequiredMetrics returns the publications of report with every metric
// the report type requires present for each item. Items keep their order of
// first appearance, their rows are put in canonical metric order and missing
// metrics are added with zero counts for every month of the period. Rows with
// metrics outside the required set follow the required ones unchanged.
//
// The report is not modified; for report types without required metrics the
// original slice is returned.
func FillRequiredMetrics(report *domain.Report) []*domain.Publication {
	rt, ok := registry.Lookup(report.ReportType)
	if !ok || len(rt.RequiredMetrics) == 0 {
		return report.Pubs
	}

	var order []itemKey
	groups := make(map[itemKey][]*domain.Publication)
	for _, pub := range report.Pubs {
		key := itemKey{title: pub.Title, platform: pub.Platform, publisher: pub.Publisher}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], pub)
	}

	out := make([]*domain.Publication, 0, len(order)*len(rt.RequiredMetrics))
	for _, key := range order {
		rows := groups[key]
		for _, metric := range rt.RequiredMetrics {
			found := false
			for _, pub := range rows {
				if pub.Metric == metric {
					out = append(out, pub)
					found = true
				}
			}
			if !found {
				out = append(out, zeroRow(rows[0], metric, report.Period))
			}
		}
		for _, pub := range rows {
			if !slices.Contains(rt.RequiredMetrics, pub.Metric) {
				out = append(out, pub)
			}
		}
	}
	return out
}

// Materialize stores the completed publication list on the report. Calling it
// again is a no-op.
func Materialize(report *domain.Report) {
	report.Pubs = FillRequiredMetrics(report)
}

func zeroRow(like *domain.Publication, metric string, period domain.Period) *domain.Publication {
	pub := &domain.Publication{
		Kind:          like.Kind,
		Title:         like.Title,
		Platform:      like.Platform,
		Publisher:     like.Publisher,
		DOI:           like.DOI,
		ProprietaryID: like.ProprietaryID,
		Metric:        metric,
		Period:        period,
	}
	months := period.Months()
	pub.Months = make([]domain.MonthCount, len(months))
	for i, m := range months {
		pub.Months[i] = domain.MonthCount{Month: m}
	}
	return pub
}
