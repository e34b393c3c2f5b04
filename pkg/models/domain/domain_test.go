package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestNewPeriod(t *testing.T) {
	p, err := NewPeriod(time.Date(2019, 1, 15, 10, 0, 0, 0, time.UTC), time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2019-01-01 to 2019-03-31", p.String())
	assert.Equal(t, 3, p.Len())
	assert.True(t, p.SingleYear())
	assert.Equal(t, []time.Time{month(2019, 1), month(2019, 2), month(2019, 3)}, p.Months())

	_, err = NewPeriod(month(2019, 5), month(2019, 4))
	assert.Error(t, err)

	assert.Equal(t, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), MonthEnd(month(2020, 2)))
}

func TestPeriod_Relations(t *testing.T) {
	year := MonthPeriod(month(2020, 1), month(2021, 12))
	assert.Equal(t, 24, year.Len())
	assert.False(t, year.SingleYear())

	inner := MonthPeriod(month(2021, 1), month(2021, 12))
	assert.True(t, year.Covers(inner))
	assert.False(t, inner.Covers(year))
	assert.True(t, year.Overlaps(inner))

	later := MonthPeriod(month(2022, 1), month(2022, 2))
	assert.False(t, year.Overlaps(later))
	assert.True(t, later.Contains(time.Date(2022, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.False(t, later.Contains(month(2022, 3)))

	assert.True(t, Period{}.IsZero())
	assert.Zero(t, Period{}.Len())
	assert.Nil(t, Period{}.Months())
}

func TestPublication_AllZeroFills(t *testing.T) {
	pub := &Publication{
		Kind:   KindJournal,
		Metric: "FT Article Requests",
		Period: MonthPeriod(month(2011, 1), month(2011, 4)),
	}
	pub.SetMonths([]MonthCount{
		{Month: time.Date(2011, 3, 31, 0, 0, 0, 0, time.UTC), Count: 2},
		{Month: month(2011, 1), Count: 5},
		{Month: month(2011, 3), Count: 1},
	})

	assert.Equal(t, []Usage{
		{Month: month(2011, 1), Metric: "FT Article Requests", Count: 5},
		{Month: month(2011, 2), Metric: "FT Article Requests", Count: 0},
		{Month: month(2011, 3), Metric: "FT Article Requests", Count: 3},
		{Month: month(2011, 4), Metric: "FT Article Requests", Count: 0},
	}, pub.Usage())
	assert.Equal(t, 8, pub.Total())
	assert.Equal(t, 3, pub.Count(time.Date(2011, 3, 9, 0, 0, 0, 0, time.UTC)))
	assert.Zero(t, pub.Count(month(2012, 1)))

	data, err := pub.MonthData()
	require.NoError(t, err)
	assert.Equal(t, [12]int{5, 0, 3}, data)

	pub.Period = MonthPeriod(month(2011, 12), month(2012, 1))
	_, err = pub.MonthData()
	assert.ErrorIs(t, err, ErrMultiYear)
}

func TestPublication_Identifiers(t *testing.T) {
	book := &Publication{Kind: KindBook}
	assert.True(t, book.SetIdentifier(IdentISBN, "978-0-00-000000-0"))
	assert.False(t, book.SetIdentifier(IdentEISSN, "1234-5678"))

	isbn, ok := book.Identifier(IdentISBN)
	assert.True(t, ok)
	assert.Equal(t, "978-0-00-000000-0", isbn)
	_, ok = book.Identifier(IdentEISSN)
	assert.False(t, ok)

	db := &Publication{Kind: KindDatabase}
	_, ok = db.Identifier(IdentISSN)
	assert.False(t, ok)
	assert.Equal(t, "database", db.Kind.String())
}

func TestReport_Metrics(t *testing.T) {
	r := &Report{
		Period: MonthPeriod(month(2013, 1), month(2013, 12)),
		Pubs: []*Publication{
			{Title: "A", Metric: "Regular Searches"},
			{Title: "A", Metric: "Record Views"},
			{Title: "B", Metric: "Regular Searches"},
		},
	}
	assert.Equal(t, 2013, r.Year())
	assert.Equal(t, []string{"Regular Searches", "Record Views"}, r.Metrics())

	var titles []string
	for pub := range r.All() {
		titles = append(titles, pub.Title)
	}
	assert.Equal(t, []string{"A", "A", "B"}, titles)
}

func TestErrors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
	}{
		{"parse", &ParseError{Source: "jr1.tsv", Line: 3, Msg: "bad count", Err: cause}},
		{"unknown type", &UnknownReportTypeError{ReportType: "JR9"}},
		{"sushi", &SushiError{Code: CodeNotAuthorized, Severity: "Error", Message: "denied"}},
		{"conflict", &PeriodConflictError{}},
		{"ingest", &IngestError{Op: "open", Source: "s3://b/k", Err: cause}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("wrapped: %w", tt.err)
			assert.ErrorIs(t, wrapped, ErrCounter)
		})
	}

	pe := &ParseError{Source: "jr1.tsv", Line: 3, Column: 2, Msg: "bad count", Err: cause}
	assert.Equal(t, "parse error in jr1.tsv at line 3, column 2: bad count: boom", pe.Error())
	assert.ErrorIs(t, pe, cause)
}

func TestSushiError_Classification(t *testing.T) {
	queued := &SushiError{Code: CodeReportQueued, Severity: "Warning"}
	assert.True(t, queued.Retryable())
	assert.False(t, queued.Fatal())
	assert.ErrorIs(t, queued, ErrReportQueued)
	assert.True(t, IsRetryable(fmt.Errorf("fetch: %w", queued)))

	denied := &SushiError{Code: CodeNotAuthorized, Severity: "Error"}
	assert.False(t, denied.Retryable())
	assert.True(t, denied.Fatal())
	assert.NotErrorIs(t, denied, ErrReportQueued)
	assert.False(t, IsRetryable(denied))

	info := &SushiError{Code: 3030, Severity: "Info"}
	assert.False(t, info.Fatal())
	assert.False(t, IsRetryable(errors.New("plain")))
}
