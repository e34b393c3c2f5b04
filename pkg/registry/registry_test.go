package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

func TestLookup(t *testing.T) {
	codes := []string{"JR1", "JR1 GOA", "JR1a", "JR2", "BR1", "BR2", "BR3", "DB1", "DB2", "PR1", "MR1",
		"TR_J1", "TR_J2", "TR_B1", "TR_B2", "TR_B3"}
	for _, code := range codes {
		rt, ok := Lookup(code)
		require.True(t, ok, code)
		assert.Equal(t, code, rt.Code)
		assert.NotEmpty(t, rt.Columns, code)
		assert.Equal(t, FieldTitle, rt.Columns[0].Field, code)
	}

	_, ok := Lookup("JR9")
	assert.False(t, ok)
	assert.Len(t, All(), len(codes))
}

func TestByName(t *testing.T) {
	rt, ok := ByName("  journal   REPORT 1 ")
	require.True(t, ok)
	assert.Equal(t, "JR1", rt.Code)
	assert.Equal(t, "Journal Report 1 (R4)", rt.Title())
	assert.Equal(t, domain.KindJournal, rt.Kind)

	_, ok = ByName("Journal Report 9")
	assert.False(t, ok)
}

func TestAll_SortedByCode(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Code, all[i].Code)
	}
}

func TestReportType_Metrics(t *testing.T) {
	jr1, _ := Lookup("JR1")
	assert.False(t, jr1.MultiMetric())
	assert.Equal(t, []string{"FT Article Requests"}, jr1.Metrics)
	assert.True(t, jr1.HasField(FieldHTML))
	assert.Equal(t, "Total for all journals", jr1.TotalLabel)

	db1, _ := Lookup("DB1")
	assert.True(t, db1.MultiMetric())
	assert.Equal(t, databaseMetrics, db1.RequiredMetrics)
	assert.Equal(t, 2, db1.MetricOrder("result clicks"))
	assert.Equal(t, -1, db1.MetricOrder("Downloads"))
	assert.Empty(t, db1.TotalLabel)
	assert.False(t, db1.HasField(FieldHTML))

	mr1, _ := Lookup("MR1")
	assert.True(t, mr1.BlankTotalsPublisher)
	assert.Equal(t, []string{"Collection", "Content Provider", "Platform", "Reporting Period Total"}, mr1.Headers())
}

func TestMetricForCode(t *testing.T) {
	jr1, _ := Lookup("JR1")
	db2, _ := Lookup("DB2")

	tests := []struct {
		name   string
		rt     ReportType
		code   string
		want   string
		wantOK bool
	}{
		{"total maps to report metric", jr1, "ft_total", "FT Article Requests", true},
		{"case and space insensitive", jr1, " FT_TOTAL ", "FT Article Requests", true},
		{"format breakdown is not a row metric", jr1, "ft_html", "", false},
		{"total on multi metric type", db2, "ft_total", "", false},
		{"turnaway", db2, "turnaway", MetricTurnawayLimit, true},
		{"no license", db2, "no_license", MetricNotLicensed, true},
		{"unknown", db2, "sectioned_html", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rt.MetricForCode(tt.code)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTurnawayLabels(t *testing.T) {
	br3, _ := Lookup("BR3")
	assert.Equal(t, []string{
		"Access denied: concurrent/simultaneous user license limit exceeded",
		"Access denied: content item not licensed",
	}, br3.Metrics)
}

func TestFieldForHeader(t *testing.T) {
	f, ok := FieldForHeader("online issn")
	require.True(t, ok)
	assert.Equal(t, FieldEISSN, f)

	f, ok = FieldForHeader("access denied category")
	require.True(t, ok)
	assert.Equal(t, FieldMetric, f)

	_, ok = FieldForHeader("Online ISSN")
	assert.False(t, ok, "keys are expected normalised")
}
