package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCounter is matched by every ingestion failure, so callers can catch
// them all with errors.Is(err, ErrCounter).
var ErrCounter = errors.New("counter report ingestion failed")

var (
	ErrUnsupportedFormat = errors.New("unsupported report format")
	ErrReportQueued      = errors.New("report queued for processing")
	ErrMultiYear         = errors.New("flat monthly data is not available for reports spanning several years")
)

// SUSHI exception numbers with special handling.
const (
	CodeServiceNotAvailable = 1000
	CodeServiceBusy         = 1010
	CodeReportQueued        = 1011
	CodeNotAuthorized       = 2000
)

// ParseError reports malformed or unrecognisable input.
type ParseError struct {
	Source string
	Line   int // 1-based, 0 when unknown
	Column int // 1-based, 0 when unknown
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Source != "" {
		b.WriteString(" in ")
		b.WriteString(e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrCounter }

// UnknownReportTypeError is returned when a report is recognised but its type
// code is not registered.
type UnknownReportTypeError struct {
	ReportType string
}

func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("unknown report type %q", e.ReportType)
}

func (e *UnknownReportTypeError) Is(target error) bool { return target == ErrCounter }

// SushiError carries an exception reported by a SUSHI service.
type SushiError struct {
	Release  int
	Code     int
	Severity string
	Message  string
	Data     string
}

func (e *SushiError) Error() string {
	msg := fmt.Sprintf("sushi exception %d (%s): %s", e.Code, e.Severity, e.Message)
	if e.Data != "" {
		msg += ": " + e.Data
	}
	return msg
}

func (e *SushiError) Is(target error) bool {
	if target == ErrCounter {
		return true
	}
	return target == ErrReportQueued && e.Queued()
}

func (e *SushiError) Queued() bool {
	return e.Code == CodeReportQueued
}

// Retryable reports whether the service asked the caller to try again later.
func (e *SushiError) Retryable() bool {
	switch e.Code {
	case CodeServiceNotAvailable, CodeServiceBusy, CodeReportQueued:
		return true
	}
	return false
}

// Fatal reports whether the exception aborts the request.
func (e *SushiError) Fatal() bool {
	if e.Retryable() {
		return false
	}
	switch strings.ToLower(e.Severity) {
	case "info", "warning", "debug":
		return false
	}
	return true
}

// PeriodConflictError is returned when the declared header period and the
// months observed in the data neither contain one another.
type PeriodConflictError struct {
	Declared Period
	Observed Period
}

func (e *PeriodConflictError) Error() string {
	return fmt.Sprintf("declared period %s conflicts with observed data %s", e.Declared, e.Observed)
}

func (e *PeriodConflictError) Is(target error) bool { return target == ErrCounter }

// IngestError wraps I/O and format detection failures at the ingestion
// boundary.
type IngestError struct {
	Op     string
	Source string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

func (e *IngestError) Is(target error) bool { return target == ErrCounter }

// IsRetryable reports whether err is a SUSHI exception the transport should
// retry after a delay.
func IsRetryable(err error) bool {
	var se *SushiError
	return errors.As(err, &se) && se.Retryable()
}
