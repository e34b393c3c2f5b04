package adapters

import (
	"errors"
	"net/http"

	"github.com/de-tools/counter-atlas/pkg/models/api"
	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/registry"
)

const monthLayout = "2006-01"

var identifierTypes = []domain.IdentifierType{
	domain.IdentISSN,
	domain.IdentEISSN,
	domain.IdentISBN,
	domain.IdentDOI,
	domain.IdentProprietaryID,
}

func MapDomainPublicationToAPI(pub *domain.Publication) api.Publication {
	result := api.Publication{
		Kind:      pub.Kind.String(),
		Title:     pub.Title,
		Platform:  pub.Platform,
		Publisher: pub.Publisher,
		Metric:    pub.Metric,
		Total:     pub.Total(),
		HTMLTotal: pub.HTMLTotal,
		PDFTotal:  pub.PDFTotal,
		Months:    []api.MonthCount{},
	}
	for _, t := range identifierTypes {
		if v, ok := pub.Identifier(t); ok && v != "" {
			if result.Identifiers == nil {
				result.Identifiers = make(map[string]string)
			}
			result.Identifiers[string(t)] = v
		}
	}
	for u := range pub.All() {
		result.Months = append(result.Months, api.MonthCount{
			Month: u.Month.Format(monthLayout),
			Count: u.Count,
		})
	}
	return result
}

func MapDomainReportToAPI(report *domain.Report) api.Report {
	result := api.Report{
		ReportType:              report.ReportType,
		Release:                 report.ReportVersion,
		Title:                   report.ReportType,
		Customer:                report.Customer,
		InstitutionalIdentifier: report.InstitutionalIdentifier,
		SectionType:             report.SectionType,
		Period: api.TimePeriod{
			Start:  report.Period.Start,
			End:    report.Period.End,
			Months: report.Period.Len(),
		},
		DateRun:      report.DateRun,
		Metric:       report.Metric,
		Publications: make([]api.Publication, 0, len(report.Pubs)),
	}
	if rt, ok := registry.Lookup(report.ReportType); ok {
		result.Title = rt.Title()
	}
	for pub := range report.All() {
		result.Publications = append(result.Publications, MapDomainPublicationToAPI(pub))
	}
	return result
}

func MapRegistryReportTypeToAPI(rt registry.ReportType) api.ReportType {
	return api.ReportType{
		Code:        rt.Code,
		Name:        rt.Name,
		Description: rt.Description,
		Release:     rt.Release,
		Kind:        rt.Kind.String(),
		Metrics:     append([]string{}, rt.Metrics...),
		Columns:     rt.Headers(),
	}
}

// MapErrorToAPI returns the HTTP status and body describing an ingestion
// failure.
func MapErrorToAPI(err error) (int, api.Error) {
	body := api.Error{Error: err.Error(), Kind: "internal"}

	var (
		parseErr    *domain.ParseError
		unknownErr  *domain.UnknownReportTypeError
		sushiErr    *domain.SushiError
		conflictErr *domain.PeriodConflictError
		ingestErr   *domain.IngestError
	)
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		body.Kind = "unsupported_format"
		return http.StatusUnsupportedMediaType, body
	case errors.As(err, &parseErr):
		body.Kind = "parse"
		body.Line = parseErr.Line
		body.Column = parseErr.Column
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &unknownErr):
		body.Kind = "unknown_report_type"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &conflictErr):
		body.Kind = "period_conflict"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &sushiErr):
		body.Kind = "sushi"
		body.Code = sushiErr.Code
		if sushiErr.Retryable() {
			return http.StatusServiceUnavailable, body
		}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ingestErr):
		body.Kind = "ingest"
		return http.StatusBadRequest, body
	}
	return http.StatusInternalServerError, body
}
