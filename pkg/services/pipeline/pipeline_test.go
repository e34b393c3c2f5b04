package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
)

const jr1TSV = "Journal Report 1 (R4)\tNumber of Successful Full-Text Article Requests by Month and Journal\n" +
	"Example Library\n" +
	"1234\n" +
	"Period covered by Report:\n" +
	"2011-01-01 to 2011-01-31\n" +
	"Date run:\n" +
	"2011-02-02\n" +
	"Journal\tPublisher\tPlatform\tJournal DOI\tProprietary Identifier\tPrint ISSN\tOnline ISSN\tReporting Period Total\tReporting Period HTML\tReporting Period PDF\tJan-2011\n" +
	"Total for all journals\tP\tX\t\t\t\t\t5\t2\t3\t5\n" +
	"Journal of fake data\tP\tX\t\t\t0000-0000\t\t5\t2\t3\t5\n"

const trJ1JSON = `{"Report_Header": {"Report_ID": "TR_J1", "Release": "5", "Customer_ID": "lib",
  "Report_Filters": [{"Name": "Begin_Date", "Value": "2019-01-01"}, {"Name": "End_Date", "Value": "2019-01-31"}]},
 "Report_Items": [{"Title": "J", "Item_ID": [], "Platform": "P", "Publisher": "Pub",
  "Performance": [{"Period": {"Begin_Date": "2019-01-01", "End_Date": "2019-01-31"},
   "Instance": [{"Metric_Type": "Total_Item_Requests", "Count": 3}]}]}]}`

const db2XML = `<?xml version="1.0"?>
<ReportResponse Created="2013-02-01T00:00:00Z">
<CustomerReference><ID>lib</ID></CustomerReference>
<ReportDefinition Name="DB2" Release="4"><Filters><UsageDateRange><Begin>2013-01-01</Begin><End>2013-01-31</End></UsageDateRange></Filters></ReportDefinition>
<Report><Report Name="DB2"><Customer><ReportItems><ItemName>DB</ItemName><ItemPlatform>P</ItemPlatform>
<ItemPerformance><Period><Begin>2013-01-01</Begin></Period><Instance><MetricType>turnaway</MetricType><Count>4</Count></Instance></ItemPerformance>
</ReportItems></Customer></Report></Report>
</ReportResponse>`

func xlsxPayload(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, line := range strings.Split(strings.TrimSuffix(jr1TSV, "\n"), "\n") {
		cells := strings.Split(line, "\t")
		row := make([]any, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Format
		wantErr bool
	}{
		{"zip", "PK\x03\x04rest", FormatXLSX, false},
		{"xml", "  <?xml version='1.0'?><a/>", FormatSushi4, false},
		{"json object", "\n{\"Report_Header\": {}}", FormatSushi5, false},
		{"json array", "[{\"Code\": 1}]", FormatSushi5, false},
		{"bom then json", "\xef\xbb\xbf{}", FormatSushi5, false},
		{"tsv", jr1TSV, FormatTSV, false},
		{"csv", "Journal Report 1 (R4),desc\nlib\n", FormatCSV, false},
		{"plain text", "hello there\nworld\n", FormatUnknown, true},
		{"empty", "   ", FormatUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff([]byte(tt.raw), []byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	for hint, want := range map[string]Format{
		"":      FormatUnknown,
		"CSV":   FormatCSV,
		".tsv":  FormatTSV,
		"xml":   FormatSushi4,
		"sushi": FormatSushi4,
		"json":  FormatSushi5,
		"c5":    FormatSushi5,
		"xls":   FormatXLSX,
	} {
		got, err := ParseFormat(hint)
		require.NoError(t, err, hint)
		assert.Equal(t, want, got, hint)
	}

	_, err := ParseFormat("qsx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.Equal(t, FormatXLSX, FormatForPath("/data/br1.XLSX"))
	assert.Equal(t, FormatUnknown, FormatForPath("/data/report"))
}

func TestPipeline_ParseSniffsEveryFormat(t *testing.T) {
	tests := []struct {
		name       string
		payload    []byte
		reportType string
	}{
		{"tsv", []byte(jr1TSV), "JR1"},
		{"csv", []byte(strings.ReplaceAll(jr1TSV, "\t", ",")), "JR1"},
		{"xlsx", xlsxPayload(t), "JR1"},
		{"sushi4", []byte(db2XML), "DB2"},
		{"sushi5", []byte(trJ1JSON), "TR_J1"},
		{"sushi5 with bom", append([]byte{0xEF, 0xBB, 0xBF}, trJ1JSON...), "TR_J1"},
	}
	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := p.Parse(context.Background(), strings.NewReader(string(tt.payload)), "")
			require.NoError(t, err)
			assert.Equal(t, tt.reportType, report.ReportType)
			require.NotEmpty(t, report.Pubs)
		})
	}
}

func TestPipeline_HintOverridesSniffing(t *testing.T) {
	_, err := New().Parse(context.Background(), strings.NewReader(jr1TSV), "json")

	var pe *domain.ParseError
	require.ErrorAs(t, err, &pe)
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func TestPipeline_ParseSourceClosesHandle(t *testing.T) {
	good := &trackingCloser{Reader: strings.NewReader(jr1TSV)}
	bad := &trackingCloser{Reader: strings.NewReader("Bogus Report 7 (R4)\tx\n")}

	opener := new(mockOpener)
	opener.On("Open", mock.Anything, "s3://bucket/jr1.tsv").Return(good, nil)
	opener.On("Open", mock.Anything, "s3://bucket/bogus.tsv").Return(bad, nil)
	opener.On("Open", mock.Anything, "s3://bucket/missing.tsv").Return(nil, errors.New("NoSuchKey"))

	p := New(WithOpener(opener))

	report, err := p.ParseSource(context.Background(), "s3://bucket/jr1.tsv", "")
	require.NoError(t, err)
	assert.Equal(t, "JR1", report.ReportType)
	assert.True(t, good.closed)

	_, err = p.ParseSource(context.Background(), "s3://bucket/bogus.tsv", "tsv")
	var unknown *domain.UnknownReportTypeError
	require.ErrorAs(t, err, &unknown)
	assert.True(t, bad.closed, "handle is released on failure")

	_, err = p.ParseSource(context.Background(), "s3://bucket/missing.tsv", "")
	var ingest *domain.IngestError
	require.ErrorAs(t, err, &ingest)
	assert.Equal(t, "open", ingest.Op)
	assert.ErrorIs(t, err, domain.ErrCounter)

	opener.AssertExpectations(t)
}

func TestPipeline_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jr1.tsv")
	require.NoError(t, os.WriteFile(path, []byte(jr1TSV), 0o644))

	report, err := New().ParseFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, "2011-01-01 to 2011-01-31", report.Period.String())
	assert.Equal(t, 2, report.Pubs[0].HTMLTotal)

	t.Run("bogus file type", func(t *testing.T) {
		_, err := New().ParseFile(context.Background(), "no_such_file", "qsx")

		var ingest *domain.IngestError
		require.ErrorAs(t, err, &ingest)
		assert.ErrorIs(t, err, domain.ErrCounter)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := New().ParseFile(context.Background(), filepath.Join(dir, "nope.tsv"), "")

		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.ErrorIs(t, err, domain.ErrCounter)
	})

	t.Run("unsupported content", func(t *testing.T) {
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("just some notes\n"), 0o644))

		_, err := New().ParseFile(context.Background(), path, "")

		assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	factory := func(string) Reader { return nil }

	require.NoError(t, r.Register(FormatCSV, factory))
	assert.Error(t, r.Register(FormatCSV, factory))
	assert.Error(t, r.Register(FormatUnknown, factory))
	assert.Error(t, r.Register(FormatTSV, nil))

	_, err := r.Create(FormatTSV, "x")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.Equal(t, []Format{FormatCSV}, r.ListFormats())
	assert.Equal(t, []Format{FormatCSV, FormatSushi4, FormatSushi5, FormatTSV, FormatXLSX}, New().Formats())
}
