package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/de-tools/counter-atlas/pkg/models/api"
	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/pipeline"
)

const mr1TSV = "Multimedia Report 1 (R4)\tNumber of Successful Multimedia Full Content Unit Requests by Month and Collection\n" +
	"MyAccountName\n" +
	"11111\n" +
	"Period covered by Report:\n" +
	"2018-01-01 to 2018-02-28\n" +
	"Date run:\n" +
	"2020-11-10\n" +
	"Collection\tContent Provider\tPlatform\tReporting Period Total\tJan-2018\tFeb-2018\n" +
	"Total for all collections\t\tMyPlatform\t5\t2\t3\n" +
	"ItemName1\tMyPublisher\tMyPlatform\t5\t2\t3\n"

type mockParser struct {
	mock.Mock
}

func (m *mockParser) Parse(ctx context.Context, in io.Reader, hint string) (*domain.Report, error) {
	args := m.Called(ctx, in, hint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) ReportParsed(reportType string) { m.Called(reportType) }
func (m *mockRecorder) ReportFailed(kind string)       { m.Called(kind) }

func newRouter(p Parser, maxUpload int64, rec Recorder) http.Handler {
	h := NewHandler(p, maxUpload, rec)
	r := chi.NewRouter()
	r.Post("/reports/parse", h.ParseReport)
	r.Get("/report-types", h.ListReportTypes)
	r.Get("/report-types/{code}", h.GetReportType)
	return r
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestParseReport_RawBody(t *testing.T) {
	recorder := new(mockRecorder)
	recorder.On("ReportParsed", "MR1").Once()
	router := newRouter(pipeline.New(), 0, recorder)

	req := httptest.NewRequest(http.MethodPost, "/reports/parse", strings.NewReader(mr1TSV))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recorder.AssertExpectations(t)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	report := decode[api.Report](t, rec)
	assert.Equal(t, "MR1", report.ReportType)
	assert.Equal(t, "Multimedia Report 1 (R4)", report.Title)
	assert.Equal(t, 2, report.Period.Months)
	require.Len(t, report.Publications, 1)
	assert.Equal(t, 5, report.Publications[0].Total)
	assert.Equal(t, []api.MonthCount{{Month: "2018-01", Count: 2}, {Month: "2018-02", Count: 3}},
		report.Publications[0].Months)
}

func TestParseReport_MultipartToTSV(t *testing.T) {
	router := newRouter(pipeline.New(), 0, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "mr1.tsv")
	require.NoError(t, err)
	_, err = part.Write([]byte(mr1TSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/reports/parse?output=tsv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "tab-separated-values")
	assert.Equal(t, mr1TSV, rec.Body.String())
}

func TestParseReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		setup  func(p *mockParser)
		status int
		kind   string
	}{
		{
			name:   "unknown report type",
			target: "/reports/parse",
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, mock.Anything, "").
					Return(nil, &domain.UnknownReportTypeError{ReportType: "Bogus Report 7"}).Once()
			},
			status: http.StatusUnprocessableEntity,
			kind:   "unknown_report_type",
		},
		{
			name:   "hint is passed through",
			target: "/reports/parse?format=qsx",
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, mock.Anything, "qsx").
					Return(nil, &domain.IngestError{Op: "parse", Err: domain.ErrUnsupportedFormat}).Once()
			},
			status: http.StatusUnsupportedMediaType,
			kind:   "unsupported_format",
		},
		{
			name:   "queued sushi report",
			target: "/reports/parse",
			setup: func(p *mockParser) {
				p.On("Parse", mock.Anything, mock.Anything, "").
					Return(nil, &domain.SushiError{Release: 5, Code: domain.CodeReportQueued}).Once()
			},
			status: http.StatusServiceUnavailable,
			kind:   "sushi",
		},
		{
			name:   "bad output",
			target: "/reports/parse?output=pdf",
			setup:  func(*mockParser) {},
			status: http.StatusBadRequest,
			kind:   "request",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parser := new(mockParser)
			tc.setup(parser)
			recorder := new(mockRecorder)
			if tc.kind != "request" {
				recorder.On("ReportFailed", tc.kind).Once()
			}

			req := httptest.NewRequest(http.MethodPost, tc.target, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			newRouter(parser, 0, recorder).ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, decode[api.Error](t, rec).Kind)
			parser.AssertExpectations(t)
			recorder.AssertExpectations(t)
		})
	}
}

func TestParseReport_TooLarge(t *testing.T) {
	router := newRouter(pipeline.New(), 16, nil)

	req := httptest.NewRequest(http.MethodPost, "/reports/parse", strings.NewReader(mr1TSV))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReportTypes(t *testing.T) {
	router := newRouter(new(mockParser), 0, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report-types?release=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]api.ReportType](t, rec)
	require.NotEmpty(t, types)
	for _, rt := range types {
		assert.Equal(t, 5, rt.Release, rt.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report-types?release=five", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report-types/jr1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Journal Report 1", decode[api.ReportType](t, rec).Name)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report-types/XX9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
