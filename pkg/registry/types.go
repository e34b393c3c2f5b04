package registry

import "github.com/de-tools/counter-atlas/pkg/models/domain"

const (
	MetricRegularSearches   = "Regular Searches"
	MetricFederatedSearches = "Searches-federated and automated"
	MetricResultClicks      = "Result Clicks"
	MetricRecordViews       = "Record Views"

	MetricTurnawayLimit = "Access denied: concurrent/simultaneous user license limit exceeded"
	MetricNotLicensed   = "Access denied: content item not licensed"

	MetricTotalItemRequests  = "Total_Item_Requests"
	MetricUniqueItemRequests = "Unique_Item_Requests"
)

var databaseMetrics = []string{
	MetricRegularSearches,
	MetricFederatedSearches,
	MetricResultClicks,
	MetricRecordViews,
}

var turnawayMetrics = []string{
	MetricTurnawayLimit,
	MetricNotLicensed,
}

var (
	journalColumns = []Column{
		{"Journal", FieldTitle},
		{"Publisher", FieldPublisher},
		{"Platform", FieldPlatform},
		{"Journal DOI", FieldDOI},
		{"Proprietary Identifier", FieldProprietaryID},
		{"Print ISSN", FieldISSN},
		{"Online ISSN", FieldEISSN},
	}
	bookColumns = []Column{
		{"", FieldTitle},
		{"Publisher", FieldPublisher},
		{"Platform", FieldPlatform},
		{"Book DOI", FieldDOI},
		{"Proprietary Identifier", FieldProprietaryID},
		{"ISBN", FieldISBN},
		{"ISSN", FieldISSN},
	}
	titleJournalColumns = []Column{
		{"Title", FieldTitle},
		{"Publisher", FieldPublisher},
		{"Platform", FieldPlatform},
		{"DOI", FieldDOI},
		{"Proprietary_ID", FieldProprietaryID},
		{"Print_ISSN", FieldISSN},
		{"Online_ISSN", FieldEISSN},
	}
	titleBookColumns = []Column{
		{"Title", FieldTitle},
		{"Publisher", FieldPublisher},
		{"Platform", FieldPlatform},
		{"DOI", FieldDOI},
		{"Proprietary_ID", FieldProprietaryID},
		{"ISBN", FieldISBN},
		{"Print_ISSN", FieldISSN},
	}
)

func with(base []Column, extra ...Column) []Column {
	cols := make([]Column, 0, len(base)+len(extra))
	cols = append(cols, base...)
	return append(cols, extra...)
}

func init() {
	jr1Columns := with(journalColumns,
		Column{"Reporting Period Total", FieldTotal},
		Column{"Reporting Period HTML", FieldHTML},
		Column{"Reporting Period PDF", FieldPDF},
	)

	register(ReportType{
		Code:        "JR1",
		Name:        "Journal Report 1",
		Description: "Number of Successful Full-Text Article Requests by Month and Journal",
		Release:     4,
		Kind:        domain.KindJournal,
		Metric:      "FT Article Requests",
		Columns:     jr1Columns,
		TotalLabel:  "Total for all journals",
	})
	register(ReportType{
		Code:        "JR1 GOA",
		Name:        "Journal Report 1 GOA",
		Description: "Number of Successful Gold Open Access Full-Text Article Requests by Month and Journal",
		Release:     4,
		Kind:        domain.KindJournal,
		Metric:      "Gold Open Access Article Requests",
		Columns:     jr1Columns,
		TotalLabel:  "Total for all journals",
	})
	register(ReportType{
		Code:        "JR1a",
		Name:        "Journal Report 1a",
		Description: "Number of Successful Full-Text Article Requests from an Archive by Month and Journal",
		Release:     4,
		Kind:        domain.KindJournal,
		Metric:      "Archive Article Requests",
		Columns:     jr1Columns,
		TotalLabel:  "Total for all journals",
	})
	register(ReportType{
		Code:        "JR2",
		Name:        "Journal Report 2",
		Description: "Access Denied to Full-Text Articles by Month, Journal and Category",
		Release:     4,
		Kind:        domain.KindJournal,
		Metrics:     turnawayMetrics,
		Columns: with(journalColumns,
			Column{"Access Denied Category", FieldMetric},
			Column{"Reporting Period Total", FieldTotal},
		),
		TotalLabel: "Total for all journals",
	})
	register(ReportType{
		Code:        "BR1",
		Name:        "Book Report 1",
		Description: "Number of Successful Title Requests by Month and Title",
		Release:     4,
		Kind:        domain.KindBook,
		Metric:      "Book Title Requests",
		Columns:     with(bookColumns, Column{"Reporting Period Total", FieldTotal}),
		TotalLabel:  "Total for all titles",
	})
	register(ReportType{
		Code:        "BR2",
		Name:        "Book Report 2",
		Description: "Number of Successful Section Requests by Month and Title",
		Release:     4,
		Kind:        domain.KindBook,
		Metric:      "Book Section Requests",
		Columns:     with(bookColumns, Column{"Reporting Period Total", FieldTotal}),
		TotalLabel:  "Total for all titles",
	})
	register(ReportType{
		Code:        "BR3",
		Name:        "Book Report 3",
		Description: "Access Denied to Content Items by Month, Title and Category",
		Release:     4,
		Kind:        domain.KindBook,
		Metrics:     turnawayMetrics,
		Columns: with(bookColumns,
			Column{"Access Denied Category", FieldMetric},
			Column{"Reporting Period Total", FieldTotal},
		),
		TotalLabel: "Total for all titles",
	})
	register(ReportType{
		Code:        "DB1",
		Name:        "Database Report 1",
		Description: "Total Searches, Result Clicks and Record Views by Month and Database",
		Release:     4,
		Kind:        domain.KindDatabase,
		Metrics:     databaseMetrics,
		Columns: []Column{
			{"Database", FieldTitle},
			{"Publisher", FieldPublisher},
			{"Platform", FieldPlatform},
			{"User Activity", FieldMetric},
			{"Reporting Period Total", FieldTotal},
		},
		RequiredMetrics: databaseMetrics,
	})
	register(ReportType{
		Code:        "DB2",
		Name:        "Database Report 2",
		Description: "Access Denied by Month, Database and Category",
		Release:     4,
		Kind:        domain.KindDatabase,
		Metrics:     turnawayMetrics,
		Columns: []Column{
			{"Database", FieldTitle},
			{"Publisher", FieldPublisher},
			{"Platform", FieldPlatform},
			{"Access denied category", FieldMetric},
			{"Reporting Period Total", FieldTotal},
		},
		TotalLabel: "Total for all databases",
	})
	register(ReportType{
		Code:        "PR1",
		Name:        "Platform Report 1",
		Description: "Total Searches, Result Clicks and Record Views by Month and Platform",
		Release:     4,
		Kind:        domain.KindPlatform,
		Metrics:     databaseMetrics,
		Columns: []Column{
			{"Platform", FieldTitle},
			{"Publisher", FieldPublisher},
			{"User Activity", FieldMetric},
			{"Reporting Period Total", FieldTotal},
		},
	})
	register(ReportType{
		Code:        "MR1",
		Name:        "Multimedia Report 1",
		Description: "Number of Successful Multimedia Full Content Unit Requests by Month and Collection",
		Release:     4,
		Kind:        domain.KindMultimedia,
		Metric:      "Multimedia Full Content Unit Requests",
		Columns: []Column{
			{"Collection", FieldTitle},
			{"Content Provider", FieldPublisher},
			{"Platform", FieldPlatform},
			{"Reporting Period Total", FieldTotal},
		},
		TotalLabel:           "Total for all collections",
		BlankTotalsPublisher: true,
	})

	register(ReportType{
		Code:        "TR_J1",
		Name:        "Journal Requests (Excluding OA_Gold)",
		Description: "TR_J1",
		Release:     5,
		Kind:        domain.KindJournal,
		Metric:      MetricTotalItemRequests,
		Columns:     with(titleJournalColumns, Column{"Reporting_Period_Total", FieldTotal}),
	})
	register(ReportType{
		Code:        "TR_J2",
		Name:        "Journal Access Denied",
		Description: "TR_J2",
		Release:     5,
		Kind:        domain.KindJournal,
		Metrics:     []string{"Limit_Exceeded", "No_License"},
		Columns: with(titleJournalColumns,
			Column{"Metric_Type", FieldMetric},
			Column{"Reporting_Period_Total", FieldTotal},
		),
	})
	for _, tr := range []struct{ code, name string }{
		{"TR_B1", "Book Requests (Excluding OA_Gold)"},
		{"TR_B2", "Book Access Denied"},
		{"TR_B3", "Book Usage by Access Type"},
	} {
		register(ReportType{
			Code:        tr.code,
			Name:        tr.name,
			Description: tr.code,
			Release:     5,
			Kind:        domain.KindBook,
			Columns: with(titleBookColumns,
				Column{"Metric_Type", FieldMetric},
				Column{"Reporting_Period_Total", FieldTotal},
			),
		})
	}
}
