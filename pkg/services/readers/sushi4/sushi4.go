// Package sushi4 reads COUNTER 4 reports delivered as SUSHI XML responses.
package sushi4

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
	"github.com/de-tools/counter-atlas/pkg/services/normalize"
	"github.com/de-tools/counter-atlas/pkg/services/reconcile"
)

// Namespace is the SUSHI schema namespace.
const Namespace = "http://www.niso.org/schemas/sushi"

type reportResponse struct {
	Created           string `xml:"Created,attr"`
	CustomerReference struct {
		ID   string `xml:"ID"`
		Name string `xml:"Name"`
	} `xml:"CustomerReference"`
	Definition struct {
		Name    string `xml:"Name,attr"`
		Release string `xml:"Release,attr"`
		Begin   string `xml:"Filters>UsageDateRange>Begin"`
		End     string `xml:"Filters>UsageDateRange>End"`
	} `xml:"ReportDefinition"`
	Exceptions []exception     `xml:"Exception"`
	Reports    []counterReport `xml:"Report>Report"`
}

type exception struct {
	Number   string `xml:"Number"`
	Severity string `xml:"Severity"`
	Message  string `xml:"Message"`
	Data     string `xml:"Data"`
}

type counterReport struct {
	Created   string     `xml:"Created,attr"`
	Name      string     `xml:"Name,attr"`
	Version   string     `xml:"Version,attr"`
	Customers []customer `xml:"Customer"`
}

type customer struct {
	Name  string `xml:"Name"`
	ID    string `xml:"ID"`
	Items []item `xml:"ReportItems"`
}

type item struct {
	Identifiers []struct {
		Type  string `xml:"Type"`
		Value string `xml:"Value"`
	} `xml:"ItemIdentifier"`
	Platform     string        `xml:"ItemPlatform"`
	Publisher    string        `xml:"ItemPublisher"`
	Name         string        `xml:"ItemName"`
	Performances []performance `xml:"ItemPerformance"`
}

type performance struct {
	Begin     string `xml:"Period>Begin"`
	Instances []struct {
		MetricType string `xml:"MetricType"`
		Count      string `xml:"Count"`
	} `xml:"Instance"`
}

var identifierTypes = map[string]domain.IdentifierType{
	"print_issn":     domain.IdentISSN,
	"online_issn":    domain.IdentEISSN,
	"isbn":           domain.IdentISBN,
	"doi":            domain.IdentDOI,
	"proprietary":    domain.IdentProprietaryID,
	"proprietary_id": domain.IdentProprietaryID,
}

type Reader struct {
	source string
}

func New(source string) *Reader {
	return &Reader{source: source}
}

func (r *Reader) Parse(ctx context.Context, in io.Reader) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("source", r.source).Logger()

	resp, err := r.decode(in)
	if err != nil {
		return nil, err
	}
	if err := checkExceptions(&logger, resp.Exceptions); err != nil {
		return nil, err
	}

	code := resp.Definition.Name
	if code == "" && len(resp.Reports) > 0 {
		code = resp.Reports[0].Name
	}
	rt, ok := registry.Lookup(strings.TrimSpace(code))
	if !ok {
		return nil, &domain.UnknownReportTypeError{ReportType: code}
	}

	report := &domain.Report{
		ReportType:              rt.Code,
		ReportVersion:           4,
		InstitutionalIdentifier: strings.TrimSpace(resp.CustomerReference.ID),
		Customer:                strings.TrimSpace(resp.CustomerReference.Name),
		Metric:                  rt.Metric,
	}
	if v, err := strconv.Atoi(strings.TrimSpace(resp.Definition.Release)); err == nil {
		report.ReportVersion = v
	}

	created := resp.Created
	if created == "" && len(resp.Reports) > 0 {
		created = resp.Reports[0].Created
	}
	report.DateRun = time.Now().UTC()
	if created != "" {
		if report.DateRun, err = normalize.ParseDate(created); err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: "invalid Created timestamp", Err: err}
		}
	}

	var declared *domain.Period
	if resp.Definition.Begin != "" && resp.Definition.End != "" {
		begin, err := normalize.ParseDate(resp.Definition.Begin)
		if err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: "invalid UsageDateRange", Err: err}
		}
		end, err := normalize.ParseDate(resp.Definition.End)
		if err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: "invalid UsageDateRange", Err: err}
		}
		p, err := domain.NewPeriod(begin, end)
		if err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: "invalid UsageDateRange", Err: err}
		}
		declared = &p
	}

	for _, cr := range resp.Reports {
		for _, c := range cr.Customers {
			if report.Customer == "" {
				report.Customer = strings.TrimSpace(c.Name)
			}
			for _, it := range c.Items {
				pubs, err := r.publications(&logger, rt, it)
				if err != nil {
					return nil, err
				}
				report.Pubs = append(report.Pubs, pubs...)
			}
		}
	}
	logger.Debug().
		Str("report_type", rt.Code).
		Int("publications", len(report.Pubs)).
		Msg("parsed SUSHI 4 report")

	if err := reconcile.Apply(logger.WithContext(ctx), report, declared, nil); err != nil {
		return nil, err
	}
	return report, nil
}

// decode finds the ReportResponse element whether or not it is wrapped in a
// SOAP envelope.
func (r *Reader) decode(in io.Reader) (*reportResponse, error) {
	dec := xml.NewDecoder(in)
	dec.CharsetReader = charsetReader
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, &domain.ParseError{Source: r.source, Msg: "no SUSHI ReportResponse element"}
		}
		if err != nil {
			return nil, r.syntaxError(dec, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "ReportResponse" {
			continue
		}
		var resp reportResponse
		if err := dec.DecodeElement(&resp, &start); err != nil {
			return nil, r.syntaxError(dec, err)
		}
		return &resp, nil
	}
}

// charsetReader supports the encodings a declaration may name, such as
// ISO-8859-1 or windows-1252.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported XML encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

func (r *Reader) syntaxError(dec *xml.Decoder, err error) error {
	line, col := dec.InputPos()
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		line = se.Line
	}
	return &domain.ParseError{Source: r.source, Line: line, Column: col, Msg: "malformed XML", Err: err}
}

func checkExceptions(logger *zerolog.Logger, exceptions []exception) error {
	for _, ex := range exceptions {
		code, _ := strconv.Atoi(strings.TrimSpace(ex.Number))
		se := &domain.SushiError{
			Release:  4,
			Code:     code,
			Severity: strings.TrimSpace(ex.Severity),
			Message:  strings.TrimSpace(ex.Message),
			Data:     strings.TrimSpace(ex.Data),
		}
		if se.Queued() || se.Fatal() || se.Retryable() {
			return se
		}
		logger.Warn().
			Int("code", se.Code).
			Str("severity", se.Severity).
			Msg(se.Message)
	}
	return nil
}

func (r *Reader) publications(logger *zerolog.Logger, rt registry.ReportType, it item) ([]*domain.Publication, error) {
	base := domain.Publication{
		Kind:      rt.Kind,
		Title:     strings.TrimSpace(it.Name),
		Platform:  strings.TrimSpace(it.Platform),
		Publisher: strings.TrimSpace(it.Publisher),
	}
	for _, id := range it.Identifiers {
		if t, ok := identifierTypes[strings.ToLower(strings.TrimSpace(id.Type))]; ok {
			base.SetIdentifier(t, strings.TrimSpace(id.Value))
		}
	}

	var order []string
	months := make(map[string][]domain.MonthCount)
	for _, perf := range it.Performances {
		begin, err := normalize.ParseDate(perf.Begin)
		if err != nil {
			return nil, &domain.ParseError{Source: r.source, Msg: fmt.Sprintf("item %q: invalid period", base.Title), Err: err}
		}
		for _, inst := range perf.Instances {
			n, _, err := normalize.ParseCount(inst.Count)
			if err != nil {
				return nil, &domain.ParseError{Source: r.source, Msg: fmt.Sprintf("item %q: invalid count", base.Title), Err: err}
			}
			switch code := strings.ToLower(strings.TrimSpace(inst.MetricType)); code {
			case registry.CodeFTHTML:
				base.HTMLTotal += n
				continue
			case registry.CodeFTPDF:
				base.PDFTotal += n
				continue
			}
			metric, ok := rt.MetricForCode(inst.MetricType)
			if !ok {
				logger.Debug().Str("metric_type", inst.MetricType).Str("item", base.Title).Msg("skipping metric")
				continue
			}
			if _, seen := months[metric]; !seen {
				order = append(order, metric)
			}
			months[metric] = append(months[metric], domain.MonthCount{Month: begin, Count: n})
		}
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
