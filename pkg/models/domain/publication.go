package domain

import (
	"iter"
	"slices"
	"time"
)

// Kind tags the resource category a Publication describes.
type Kind int

const (
	KindJournal Kind = iota
	KindBook
	KindDatabase
	KindMultimedia
	KindPlatform
)

func (k Kind) String() string {
	switch k {
	case KindJournal:
		return "journal"
	case KindBook:
		return "book"
	case KindDatabase:
		return "database"
	case KindMultimedia:
		return "multimedia"
	case KindPlatform:
		return "platform"
	default:
		return "unknown"
	}
}

type IdentifierType string

const (
	IdentISSN          IdentifierType = "Print_ISSN"
	IdentEISSN         IdentifierType = "Online_ISSN"
	IdentISBN          IdentifierType = "ISBN"
	IdentDOI           IdentifierType = "DOI"
	IdentProprietaryID IdentifierType = "Proprietary_ID"
)

var kindIdentifiers = map[Kind][]IdentifierType{
	KindJournal:    {IdentDOI, IdentProprietaryID, IdentISSN, IdentEISSN},
	KindBook:       {IdentDOI, IdentProprietaryID, IdentISBN, IdentISSN},
	KindDatabase:   {IdentDOI, IdentProprietaryID},
	KindMultimedia: {IdentDOI, IdentProprietaryID},
	KindPlatform:   {IdentDOI, IdentProprietaryID},
}

// MonthCount is the usage recorded for a single month.
type MonthCount struct {
	Month time.Time
	Count int
}

// Usage is one element of the canonical per-month time series.
type Usage struct {
	Month  time.Time
	Metric string
	Count  int
}

// Publication is one row of usage: a resource reported under a single metric.
type Publication struct {
	Kind      Kind
	Title     string
	Platform  string
	Publisher string

	ISSN          string
	EISSN         string
	ISBN          string
	DOI           string
	ProprietaryID string

	Metric string
	Period Period

	// Months is sparse: months of Period missing here count as zero.
	Months []MonthCount

	// Format breakdown, journals only.
	HTMLTotal int
	PDFTotal  int
}

// Identifier returns the identifier of type t and whether t applies to the
// publication's kind.
func (p *Publication) Identifier(t IdentifierType) (string, bool) {
	if !slices.Contains(kindIdentifiers[p.Kind], t) {
		return "", false
	}
	switch t {
	case IdentISSN:
		return p.ISSN, true
	case IdentEISSN:
		return p.EISSN, true
	case IdentISBN:
		return p.ISBN, true
	case IdentDOI:
		return p.DOI, true
	case IdentProprietaryID:
		return p.ProprietaryID, true
	}
	return "", false
}

// SetIdentifier stores v when t applies to the publication's kind.
func (p *Publication) SetIdentifier(t IdentifierType, v string) bool {
	if !slices.Contains(kindIdentifiers[p.Kind], t) {
		return false
	}
	switch t {
	case IdentISSN:
		p.ISSN = v
	case IdentEISSN:
		p.EISSN = v
	case IdentISBN:
		p.ISBN = v
	case IdentDOI:
		p.DOI = v
	case IdentProprietaryID:
		p.ProprietaryID = v
	}
	return true
}

// SetMonths replaces the month data, aligning dates to month starts, sorting
// them and summing duplicates.
func (p *Publication) SetMonths(months []MonthCount) {
	byMonth := make(map[time.Time]int, len(months))
	for _, mc := range months {
		byMonth[MonthStart(mc.Month)] += mc.Count
	}
	out := make([]MonthCount, 0, len(byMonth))
	for m, c := range byMonth {
		out = append(out, MonthCount{Month: m, Count: c})
	}
	slices.SortFunc(out, func(a, b MonthCount) int { return a.Month.Compare(b.Month) })
	p.Months = out
}

// Count returns the usage for month, zero when absent.
func (p *Publication) Count(month time.Time) int {
	month = MonthStart(month)
	i, found := slices.BinarySearchFunc(p.Months, month, func(mc MonthCount, t time.Time) int {
		return mc.Month.Compare(t)
	})
	if !found {
		return 0
	}
	return p.Months[i].Count
}

// All yields one Usage per month of the period in chronological order,
// zero-filling months without data. Without a period only stored months are
// yielded.
func (p *Publication) All() iter.Seq[Usage] {
	return func(yield func(Usage) bool) {
		if p.Period.IsZero() {
			for _, mc := range p.Months {
				if !yield(Usage{Month: mc.Month, Metric: p.Metric, Count: mc.Count}) {
					return
				}
			}
			return
		}
		next := 0
		for _, month := range p.Period.Months() {
			for next < len(p.Months) && p.Months[next].Month.Before(month) {
				next++
			}
			count := 0
			if next < len(p.Months) && p.Months[next].Month.Equal(month) {
				count = p.Months[next].Count
			}
			if !yield(Usage{Month: month, Metric: p.Metric, Count: count}) {
				return
			}
		}
	}
}

func (p *Publication) Usage() []Usage {
	return slices.Collect(p.All())
}

// Total sums usage over the period.
func (p *Publication) Total() int {
	total := 0
	for u := range p.All() {
		total += u.Count
	}
	return total
}

// MonthData returns the legacy January..December view. It is only meaningful
// when the period lies within a single calendar year.
func (p *Publication) MonthData() ([12]int, error) {
	var data [12]int
	if !p.Period.IsZero() && !p.Period.SingleYear() {
		return data, ErrMultiYear
	}
	for u := range p.All() {
		data[u.Month.Month()-1] = u.Count
	}
	return data, nil
}
