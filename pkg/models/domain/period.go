package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Period is a month-aligned reporting range. Start is the first day of a month,
// End the last day of a month.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthStart returns midnight UTC of the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns midnight UTC of the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, -1)
}

// NewPeriod aligns start and end to month boundaries.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: MonthStart(start), End: MonthEnd(end)}
	if p.End.Before(p.Start) {
		return Period{}, fmt.Errorf("period start %s is after end %s",
			start.Format(dateLayout), end.Format(dateLayout))
	}
	return p, nil
}

// MonthPeriod returns the period spanning the months of first and last.
func MonthPeriod(first, last time.Time) Period {
	return Period{Start: MonthStart(first), End: MonthEnd(last)}
}

func (p Period) IsZero() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Months returns the first day of every month in the period, in order.
func (p Period) Months() []time.Time {
	if p.IsZero() {
		return nil
	}
	var months []time.Time
	for m := MonthStart(p.Start); !m.After(p.End); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// Len is the number of calendar months in the period.
func (p Period) Len() int {
	if p.IsZero() {
		return 0
	}
	return (p.End.Year()-p.Start.Year())*12 + int(p.End.Month()) - int(p.Start.Month()) + 1
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Covers reports whether o lies entirely inside p.
func (p Period) Covers(o Period) bool {
	return !o.Start.Before(p.Start) && !o.End.After(p.End)
}

// Overlaps reports whether p and o share at least one month.
func (p Period) Overlaps(o Period) bool {
	return !o.End.Before(p.Start) && !o.Start.After(p.End)
}

func (p Period) SingleYear() bool {
	return p.Start.Year() == p.End.Year()
}

func (p Period) Equal(o Period) bool {
	return p.Start.Equal(o.Start) && p.End.Equal(o.End)
}

func (p Period) String() string {
	return fmt.Sprintf("%s to %s", p.Start.Format(dateLayout), p.End.Format(dateLayout))
}
