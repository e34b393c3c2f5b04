package delimited

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

const mr1TSV = "Multimedia Report 1 (R4)\tNumber of Successful Multimedia Full Content Unit Requests by Month and Collection\n" +
	"MyAccountName\n" +
	"11111\n" +
	"Period covered by Report:\n" +
	"2018-01-01 to 2018-12-31\n" +
	"Date run:\n" +
	"2020-11-10\n" +
	"Collection\tContent Provider\tPlatform\tReporting Period Total\tJan-2018\tFeb-2018\tMar-2018\tApr-2018\tMay-2018\tJun-2018\tJul-2018\tAug-2018\tSep-2018\tOct-2018\tNov-2018\tDec-2018\n" +
	"Total for all collections\t\tMyPlatform\t15\t0\t3\t0\t1\t10\t0\t0\t0\t0\t0\t0\t1\n" +
	"ItemName1\tMyPublisher\tMyPlatform\t11\t0\t0\t0\t1\t10\t0\t0\t0\t0\t0\t0\t0\n" +
	"ItemName2\tMyPublisher\tMyPlatform\t4\t0\t3\t0\t0\t0\t0\t0\t0\t0\t0\t0\t1\n"

const jr1CSV = `Journal Report 1 (R4),Number of Successful Full-Text Article Requests by Month and Journal
"Université de Maximegalon"
1234
Period covered by Report:
2011-01-01 to 2011-02-28
Date run:
2012-02-21
Journal,Publisher,Platform,Journal DOI,Proprietary Identifier,Print ISSN,Online ISSN,Reporting Period Total,Reporting Period HTML,Reporting Period PDF,Jan-2011,Feb-2011
"Journal of ""fake"" data",Maximegalon,ExamplePlatform,,,0000-0000,,"1,003",3,1000,3,"1,000"
`

func TestParse_TSV(t *testing.T) {
	report, err := New(Tab, "mr1.tsv").Parse(context.Background(), strings.NewReader(mr1TSV))
	require.NoError(t, err)

	assert.Equal(t, "MR1", report.ReportType)
	assert.Equal(t, "Multimedia Full Content Unit Requests", report.Metric)
	assert.Equal(t, "MyAccountName", report.Customer)
	assert.Equal(t, "11111", report.InstitutionalIdentifier)
	assert.Equal(t, "2018-01-01 to 2018-12-31", report.Period.String())
	require.Len(t, report.Pubs, 2)
	assert.Equal(t, "ItemName1", report.Pubs[0].Title)
	assert.Equal(t, 11, report.Pubs[0].Total())
	assert.Equal(t, 4, report.Pubs[1].Total())
}

func TestParse_CSVWithBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, jr1CSV...)

	report, err := New(Comma, "jr1.csv").Parse(context.Background(), bytes.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "JR1", report.ReportType)
	assert.Equal(t, "Université de Maximegalon", report.Customer)
	require.Len(t, report.Pubs, 1)
	pub := report.Pubs[0]
	assert.Equal(t, `Journal of "fake" data`, pub.Title)
	assert.Equal(t, 1003, pub.Total())
	assert.Equal(t, 1000, pub.PDFTotal)
}

func TestDecode(t *testing.T) {
	t.Run("utf-16 with bom", func(t *testing.T) {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		in, _, err := transform.Bytes(enc, []byte("Journal Report 1\tÄ"))
		require.NoError(t, err)

		out, err := Decode(context.Background(), bytes.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, "Journal Report 1\tÄ", string(out))
	})

	t.Run("windows-1252", func(t *testing.T) {
		out, err := Decode(context.Background(), bytes.NewReader([]byte("Universit\xe9")))
		require.NoError(t, err)
		assert.Equal(t, "Université", string(out))
	})

	t.Run("plain utf-8 untouched", func(t *testing.T) {
		out, err := Decode(context.Background(), strings.NewReader("a,b"))
		require.NoError(t, err)
		assert.Equal(t, "a,b", string(out))
	})
}

func TestReadRows_VariableWidth(t *testing.T) {
	rows, err := ReadRows(context.Background(), strings.NewReader("a\nb,c,d\n\"e\"x,f\n"), Comma, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b", "c", "d"}, {"e\"x", "f"}}, rows)
}

func TestReadRows_StrayQuotes(t *testing.T) {
	tests := []struct {
		name  string
		comma rune
		in    string
		want  [][]string
	}{
		{
			"later rows survive an unclosed quote",
			Comma,
			"\"Journal \"A\" of things,P,3\nJournal B,P,4\nJournal C,P,5\n",
			[][]string{{"Journal \"A\" of things", "P", "3"}, {"Journal B", "P", "4"}, {"Journal C", "P", "5"}},
		},
		{
			"quoted separator and escaped quotes",
			Comma,
			"\"Smith, J\",\"say \"\"hi\"\"\",\"\"\r\nx,y\"z,\n",
			[][]string{{"Smith, J", "say \"hi\"", ""}, {"x", "y\"z", ""}},
		},
		{
			"tab separated",
			Tab,
			"\"e\"x\tf\ng\th\n",
			[][]string{{"e\"x", "f"}, {"g", "h"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ReadRows(context.Background(), strings.NewReader(tt.in), tt.comma, "x.csv")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows)
		})
	}
}

func TestReadRows_KeepsBlankLines(t *testing.T) {
	rows, err := ReadRows(context.Background(), strings.NewReader("a\r\n\r\nb\n"), Comma, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {""}, {"b"}}, rows)
}

func TestParse_UnknownType(t *testing.T) {
	_, err := New(Comma, "bogus.csv").Parse(context.Background(), strings.NewReader("Bogus Report 7 (R4)\n"))
	assert.ErrorIs(t, err, domain.ErrCounter)
}
