package api

import "time"

type TimePeriod struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Months int       `json:"months"`
}

type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type Publication struct {
	Kind        string            `json:"kind"`
	Title       string            `json:"title"`
	Platform    string            `json:"platform,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	Identifiers map[string]string `json:"identifiers,omitempty"`
	Metric      string            `json:"metric"`
	Total       int               `json:"total"`
	HTMLTotal   int               `json:"html_total,omitempty"`
	PDFTotal    int               `json:"pdf_total,omitempty"`
	Months      []MonthCount      `json:"months"`
}

type Report struct {
	ReportType              string        `json:"report_type"`
	Release                 int           `json:"release"`
	Title                   string        `json:"title"`
	Customer                string        `json:"customer"`
	InstitutionalIdentifier string        `json:"institutional_identifier,omitempty"`
	SectionType             string        `json:"section_type,omitempty"`
	Period                  TimePeriod    `json:"period"`
	DateRun                 time.Time     `json:"date_run"`
	Metric                  string        `json:"metric,omitempty"`
	Publications            []Publication `json:"publications"`
}

type ReportType struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Release     int      `json:"release"`
	Kind        string   `json:"kind"`
	Metrics     []string `json:"metrics"`
	Columns     []string `json:"columns"`
}

type Error struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Code   int    `json:"code,omitempty"`
}
