// Package reconcile settles the reporting period of a parsed report from the
// period its header declares and the months its data actually carries, and
// completes multi-metric layouts that require every metric per item.
package reconcile

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

// Resolve picks the authoritative period.
//
// Without observed months the declared period stands. When one range covers
// the other the observed months win: a declared range wider than the data is
// narrowed, a narrower one widened. Ranges that only partly overlap, or not at
// all, are a conflict.
func Resolve(declared *domain.Period, observed []time.Time) (domain.Period, error) {
	if len(observed) == 0 {
		if declared == nil || declared.IsZero() {
			return domain.Period{}, &domain.ParseError{Msg: "report has neither a declared period nor usage months"}
		}
		return *declared, nil
	}

	first, last := observed[0], observed[0]
	for _, m := range observed[1:] {
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
	}
	seen := domain.MonthPeriod(first, last)

	if declared == nil || declared.IsZero() {
		return seen, nil
	}
	if declared.Covers(seen) || seen.Covers(*declared) {
		return seen, nil
	}
	return domain.Period{}, &domain.PeriodConflictError{Declared: *declared, Observed: seen}
}

// ObservedMonths collects the distinct months carried by pubs, sorted.
func ObservedMonths(pubs []*domain.Publication) []time.Time {
	var months []time.Time
	for _, pub := range pubs {
		for _, mc := range pub.Months {
			months = append(months, domain.MonthStart(mc.Month))
		}
	}
	slices.SortFunc(months, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(months, func(a, b time.Time) bool { return a.Equal(b) })
}

// Widen returns requested extended to cover every observed month. Months of
// requested without usage are kept.
func Widen(requested domain.Period, observed []time.Time) domain.Period {
	period := requested
	for _, m := range observed {
		if m.Before(period.Start) {
			period.Start = domain.MonthStart(m)
		}
		if m.After(period.End) {
			period.End = domain.MonthEnd(m)
		}
	}
	return period
}

// Apply resolves the period and assigns it to the report and all of its
// publications. observed may be nil, in which case months are collected from
// the publications.
func Apply(ctx context.Context, report *domain.Report, declared *domain.Period, observed []time.Time) error {
	if observed == nil {
		observed = ObservedMonths(report.Pubs)
	}

	period, err := Resolve(declared, observed)
	if err != nil {
		return err
	}
	if declared != nil && !declared.IsZero() && !declared.Equal(period) {
		logDiff(ctx, report, *declared, period)
	}
	assign(report, period)
	return nil
}

// ApplyRequested keeps the period a report was requested for, widened when
// usage falls outside it.
func ApplyRequested(ctx context.Context, report *domain.Report, requested domain.Period) {
	period := Widen(requested, ObservedMonths(report.Pubs))
	if !requested.Equal(period) {
		logDiff(ctx, report, requested, period)
	}
	assign(report, period)
}

func logDiff(ctx context.Context, report *domain.Report, declared, resolved domain.Period) {
	zerolog.Ctx(ctx).Debug().
		Str("report_type", report.ReportType).
		Stringer("declared", declared).
		Stringer("resolved", resolved).
		Msg("declared period differs from usage data")
}

func assign(report *domain.Report, period domain.Period) {
	report.Period = period
	for _, pub := range report.Pubs {
		pub.Period = period
		pub.Months = slices.DeleteFunc(pub.Months, func(mc domain.MonthCount) bool {
			return !period.Contains(mc.Month)
		})
	}
}
