package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/adapters"
	"github.com/de-tools/counter-atlas/pkg/models/api"
	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
	"github.com/de-tools/counter-atlas/pkg/runtime/terminal/export"
)

const defaultMaxUpload = 32 << 20

// Parser turns an uploaded payload into a report.
type Parser interface {
	Parse(ctx context.Context, in io.Reader, hint string) (*domain.Report, error)
}

// Recorder is told about every parse outcome.
type Recorder interface {
	ReportParsed(reportType string)
	ReportFailed(kind string)
}

type nopRecorder struct{}

func (nopRecorder) ReportParsed(string) {}
func (nopRecorder) ReportFailed(string) {}

type Handler struct {
	parser    Parser
	maxUpload int64
	recorder  Recorder
}

func NewHandler(parser Parser, maxUpload int64, recorder Recorder) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Handler{
		parser:    parser,
		maxUpload: maxUpload,
		recorder:  recorder,
	}
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := adapters.MapErrorToAPI(err)
	h.recorder.ReportFailed(body.Kind)
	logger := zerolog.Ctx(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		logger.Warn().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(ctx, w, status, body)
}

// upload returns the request payload and a format hint. Multipart requests
// carry the report in the "file" field; anything else is the raw body.
func (h *Handler) upload(r *http.Request) (io.ReadCloser, string, error) {
	hint := r.URL.Query().Get("format")

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, hint, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", &domain.IngestError{Op: "read", Source: "upload", Err: err}
	}
	if hint == "" {
		hint = strings.TrimPrefix(filepath.Ext(header.Filename), ".")
	}
	return file, hint, nil
}

// ParseReport handles POST /reports/parse. The optional "output" query
// parameter selects json (default), tsv or csv.
func (h *Handler) ParseReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	output := strings.ToLower(r.URL.Query().Get("output"))
	var writer *export.Writer
	if output != "" && output != "json" {
		var err error
		if writer, err = export.NewWriter(w, output); err != nil {
			writeJSON(ctx, w, http.StatusBadRequest, api.Error{Error: err.Error(), Kind: "request"})
			return
		}
	}

	in, hint, err := h.upload(r)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	defer func() {
		if err := in.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close upload")
		}
	}()

	report, err := h.parser.Parse(ctx, in, hint)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.recorder.ReportFailed("too_large")
			writeJSON(ctx, w, http.StatusRequestEntityTooLarge, api.Error{Error: err.Error(), Kind: "request"})
			return
		}
		h.writeError(ctx, w, err)
		return
	}

	h.recorder.ReportParsed(report.ReportType)
	if writer == nil {
		writeJSON(ctx, w, http.StatusOK, adapters.MapDomainReportToAPI(report))
		return
	}

	if output == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	}
	if err := writer.WriteReport(report); err != nil {
		// Headers are not sent until the first row is written.
		h.writeError(ctx, w, err)
	}
}

// ListReportTypes handles GET /report-types, optionally filtered by ?release=.
func (h *Handler) ListReportTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	release := 0
	if v := r.URL.Query().Get("release"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(ctx, w, http.StatusBadRequest, api.Error{
				Error: "invalid 'release', expected 4 or 5",
				Kind:  "request",
			})
			return
		}
		release = n
	}

	response := []api.ReportType{}
	for _, rt := range registry.All() {
		if release == 0 || rt.Release == release {
			response = append(response, adapters.MapRegistryReportTypeToAPI(rt))
		}
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

// GetReportType handles GET /report-types/{code}.
func (h *Handler) GetReportType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := strings.ToUpper(chi.URLParam(r, "code"))

	rt, ok := registry.Lookup(code)
	if !ok {
		writeJSON(ctx, w, http.StatusNotFound, api.Error{
			Error: (&domain.UnknownReportTypeError{ReportType: code}).Error(),
			Kind:  "unknown_report_type",
		})
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapRegistryReportTypeToAPI(rt))
}
