// Package sushi5 reads COUNTER 5 reports delivered as SUSHI JSON.
package sushi5

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
	"github.com/de-tools/counter-atlas/pkg/services/normalize"
	"github.com/de-tools/counter-atlas/pkg/services/reconcile"
)

// number accepts JSON numbers and numeric strings.
type number int

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, ok, err := normalize.ParseCount(s)
	if err != nil {
		return err
	}
	if ok {
		*n = number(v)
	}
	return nil
}

type Exception struct {
	Code     number `json:"Code"`
	Severity string `json:"Severity"`
	Message  string `json:"Message"`
	Data     string `json:"Data"`
}

func (e Exception) err() *domain.SushiError {
	return &domain.SushiError{
		Release:  5,
		Code:     int(e.Code),
		Severity: e.Severity,
		Message:  e.Message,
		Data:     e.Data,
	}
}

type filter struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type Header struct {
	Created         string      `json:"Created"`
	CreatedBy       string      `json:"Created_By"`
	CustomerID      string      `json:"Customer_ID"`
	ReportID        string      `json:"Report_ID"`
	Release         number      `json:"Release"`
	ReportName      string      `json:"Report_Name"`
	InstitutionName string      `json:"Institution_Name"`
	Filters         []filter    `json:"Report_Filters"`
	Exceptions      []Exception `json:"Exceptions"`
}

type instance struct {
	MetricType string `json:"Metric_Type"`
	Count      number `json:"Count"`
}

type item struct {
	Title     string `json:"Title"`
	Platform  string `json:"Platform"`
	Publisher string `json:"Publisher"`
	ItemID    []struct {
		Type  string `json:"Type"`
		Value string `json:"Value"`
	} `json:"Item_ID"`
	Performance []struct {
		Period struct {
			BeginDate string `json:"Begin_Date"`
			EndDate   string `json:"End_Date"`
		} `json:"Period"`
		Instance []instance `json:"Instance"`
	} `json:"Performance"`
}

// Raw is a COUNTER 5 report as decoded from JSON.
type Raw struct {
	Header  *Header `json:"Report_Header"`
	Release number  `json:"Release"`
	Items   []item  `json:"Report_Items"`

	// Some services answer with a bare exception object.
	Exception
}

var identifierTypes = map[string]domain.IdentifierType{
	"print_issn":     domain.IdentISSN,
	"online_issn":    domain.IdentEISSN,
	"isbn":           domain.IdentISBN,
	"doi":            domain.IdentDOI,
	"proprietary_id": domain.IdentProprietaryID,
	"proprietary":    domain.IdentProprietaryID,
}

type Reader struct {
	source string
}

func New(source string) *Reader {
	return &Reader{source: source}
}

func (r *Reader) Parse(ctx context.Context, in io.Reader) (*domain.Report, error) {
	raw, err := Decode(in, r.source)
	if err != nil {
		return nil, err
	}
	return r.Convert(ctx, raw)
}

// Decode reads a SUSHI 5 payload. The first exception it carries, whatever
// its severity, is returned as *domain.SushiError; use Fatal and Retryable
// to classify it.
func Decode(in io.Reader, source string) (*Raw, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, &domain.ParseError{Source: source, Msg: "read failed", Err: err}
	}
	data = bytes.TrimSpace(data)

	if bytes.HasPrefix(data, []byte("[")) {
		var exceptions []Exception
		if err := json.Unmarshal(data, &exceptions); err != nil {
			return nil, jsonError(source, data, err)
		}
		if len(exceptions) == 0 {
			return nil, &domain.ParseError{Source: source, Msg: "empty response"}
		}
		return nil, exceptions[0].err()
	}

	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, jsonError(source, data, err)
	}
	if raw.Header == nil {
		if raw.Message != "" || raw.Code != 0 {
			return nil, raw.Exception.err()
		}
		return nil, &domain.ParseError{Source: source, Msg: "missing Report_Header"}
	}
	if len(raw.Header.Exceptions) > 0 {
		return nil, raw.Header.Exceptions[0].err()
	}
	return &raw, nil
}

func jsonError(source string, data []byte, err error) error {
	pe := &domain.ParseError{Source: source, Msg: "malformed JSON", Err: err}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		pe.Line = bytes.Count(data[:se.Offset], []byte("\n")) + 1
	}
	return pe
}

// Convert turns a decoded payload into a report.
func (r *Reader) Convert(ctx context.Context, raw *Raw) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", r.source).Logger()
	header := raw.Header

	rt, ok := registry.Lookup(strings.TrimSpace(header.ReportID))
	if !ok || rt.Release != 5 {
		return nil, &domain.UnknownReportTypeError{ReportType: header.ReportID}
	}

	requested, err := r.period(header.Filters)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		ReportType:              rt.Code,
		ReportVersion:           5,
		Customer:                header.InstitutionName,
		InstitutionalIdentifier: header.CustomerID,
		Metric:                  rt.Metric,
		DateRun:                 time.Now().UTC(),
	}
	switch {
	case header.Release != 0:
		report.ReportVersion = int(header.Release)
	case raw.Release != 0:
		report.ReportVersion = int(raw.Release)
	}
	if header.Created != "" {
		if report.DateRun, err = normalize.ParseDate(header.Created); err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: "invalid Created timestamp", Err: err}
		}
	}

	for _, it := range raw.Items {
		pubs, err := r.publications(rt, it)
		if err != nil {
			return nil, err
		}
		report.Pubs = append(report.Pubs, pubs...)
	}
	logger.Debug().
		Str("report_type", rt.Code).
		Int("publications", len(report.Pubs)).
		Msg("parsed SUSHI 5 report")

	reconcile.ApplyRequested(logger.WithContext(ctx), report, requested)
	return report, nil
}

func (r *Reader) period(filters []filter) (domain.Period, error) {
	values := make(map[string]string, len(filters))
	for _, f := range filters {
		values[f.Name] = f.Value
	}

	var bounds [2]time.Time
	for i, name := range []string{"Begin_Date", "End_Date"} {
		v, ok := normalize.LookupFold(values, name)
		if !ok {
			return domain.Period{}, &domain.ParseError{Source: r.source, Msg: "report filters must include Begin_Date and End_Date"}
		}
		t, err := normalize.ParseDate(v)
		if err != nil {
			if m, ok := normalize.ParseMonth(v); ok {
				t = m
			} else {
				return domain.Period{}, &domain.ParseError{Source: r.source, Msg: "invalid " + name, Err: err}
			}
		}
		bounds[i] = t
	}

	p, err := domain.NewPeriod(bounds[0], bounds[1])
	if err != nil {
		return domain.Period{}, &domain.ParseError{Source: r.source, Msg: "invalid report period", Err: err}
	}
	return p, nil
}

func (r *Reader) publications(rt registry.ReportType, it item) ([]*domain.Publication, error) {
	base := domain.Publication{
		Kind:      rt.Kind,
		Title:     it.Title,
		Platform:  it.Platform,
		Publisher: it.Publisher,
	}
	for _, id := range it.ItemID {
		if t, ok := identifierTypes[strings.ToLower(id.Type)]; ok {
			base.SetIdentifier(t, id.Value)
		}
	}

	var order []string
	months := make(map[string][]domain.MonthCount)
	for _, perf := range it.Performance {
		begin, err := normalize.ParseDate(perf.Period.BeginDate)
		if err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: fmt.Sprintf("item %q: invalid Begin_Date", it.Title), Err: err}
		}
		for _, inst := range perf.Instance {
			if _, seen := months[inst.MetricType]; !seen {
				order = append(order, inst.MetricType)
			}
			months[inst.MetricType] = append(months[inst.MetricType], domain.MonthCount{Month: begin, Count: int(inst.Count)})
		}
	}

	if !rt.MultiMetric() {
		pub := base
		pub.Metric = rt.Metric
		pub.SetMonths(months[rt.Metric])
		return []*domain.Publication{&pub}, nil
	}

	pubs := make([]*domain.Publication, 0, len(order))
	for _, metric := range order {
		pub := base
		pub.Metric = metric
		pub.SetMonths(months[metric])
		pubs = append(pubs, &pub)
	}
	return pubs, nil
}
