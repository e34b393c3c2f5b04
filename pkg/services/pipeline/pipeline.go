// Package pipeline is the ingestion entry point: it opens a source, detects
// its format and hands it to the matching reader.
package pipeline

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/readers/delimited"
	"github.com/de-tools/counter-atlas/pkg/store/source"
)

type Pipeline struct {
	readers Registry
	opener  source.Opener
}

type Option func(*Pipeline)

func WithRegistry(r Registry) Option {
	return func(p *Pipeline) { p.readers = r }
}

func WithOpener(o source.Opener) Option {
	return func(p *Pipeline) { p.opener = o }
}

// New returns a pipeline with the built-in readers, opening local files
// unless another opener is given.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		readers: DefaultRegistry(),
		opener:  source.NewMux(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Formats lists the formats the pipeline can read.
func (p *Pipeline) Formats() []Format {
	return p.readers.ListFormats()
}

// Parse reads a payload from in. hint may be empty to sniff the format.
func (p *Pipeline) Parse(ctx context.Context, in io.Reader, hint string) (*domain.Report, error) {
	return p.parse(ctx, in, hint, "input")
}

// ParseSource opens uri, parses it and releases the handle.
func (p *Pipeline) ParseSource(ctx context.Context, uri, hint string) (*domain.Report, error) {
	if _, err := ParseFormat(hint); err != nil {
		return nil, &domain.IngestError{Op: "parse", Source: uri, Err: err}
	}

	rc, err := p.opener.Open(ctx, uri)
	if err != nil {
		return nil, &domain.IngestError{Op: "open", Source: uri, Err: err}
	}
	defer func() {
		if err := rc.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("source", uri).Msg("failed to close source")
		}
	}()

	return p.parse(ctx, rc, hint, uri)
}

// ParseFile parses a local file, guessing the format from its extension when
// no hint is given.
func (p *Pipeline) ParseFile(ctx context.Context, path, hint string) (*domain.Report, error) {
	if hint == "" {
		hint = string(FormatForPath(path))
	}
	return p.ParseSource(ctx, path, hint)
}

func (p *Pipeline) parse(ctx context.Context, in io.Reader, hint, name string) (*domain.Report, error) {
	logger := zerolog.Ctx(ctx)

	format, err := ParseFormat(hint)
	if err != nil {
		return nil, &domain.IngestError{Op: "parse", Source: name, Err: err}
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, &domain.IngestError{Op: "read", Source: name, Err: err}
	}

	// Text payloads are handed to readers as BOM-free UTF-8.
	payload := data
	if format != FormatXLSX && !bytes.HasPrefix(data, zipMagic) {
		if payload, err = delimited.Decode(ctx, bytes.NewReader(data)); err != nil {
			return nil, &domain.IngestError{Op: "read", Source: name, Err: err}
		}
	}

	if format == FormatUnknown {
		if format, err = Sniff(data, payload); err != nil {
			return nil, &domain.IngestError{Op: "sniff", Source: name, Err: err}
		}
		logger.Debug().Str("source", name).Str("format", string(format)).Msg("detected format")
	}
	if format == FormatSushi4 {
		// XML declares its own encoding.
		payload = bytes.TrimPrefix(data, utf8BOM)
	}

	reader, err := p.readers.Create(format, name)
	if err != nil {
		return nil, &domain.IngestError{Op: "parse", Source: name, Err: err}
	}

	report, err := reader.Parse(ctx, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("source", name).
		Str("format", string(format)).
		Str("report_type", report.ReportType).
		Stringer("period", report.Period).
		Int("publications", len(report.Pubs)).
		Msg("report parsed")
	return report, nil
}
