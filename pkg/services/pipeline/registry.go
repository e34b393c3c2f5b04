package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/readers/delimited"
	"github.com/de-tools/counter-atlas/pkg/services/readers/spreadsheet"
	"github.com/de-tools/counter-atlas/pkg/services/readers/sushi4"
	"github.com/de-tools/counter-atlas/pkg/services/readers/sushi5"
)

// Reader parses one payload into a report.
type Reader interface {
	Parse(ctx context.Context, in io.Reader) (*domain.Report, error)
}

// ReaderFactory creates a Reader for the input named source.
type ReaderFactory func(source string) Reader

// Registry manages reader factories by format
type Registry interface {
	// Register adds a new reader factory
	Register(format Format, factory ReaderFactory) error
	// Create instantiates a reader for the specified format
	Create(format Format, source string) (Reader, error)
	// ListFormats returns the registered formats, sorted
	ListFormats() []Format
}

type registry struct {
	mu        sync.RWMutex
	factories map[Format]ReaderFactory
}

// NewRegistry creates an empty reader registry
func NewRegistry() Registry {
	return &registry{
		factories: make(map[Format]ReaderFactory),
	}
}

// DefaultRegistry returns a registry with every built-in reader.
func DefaultRegistry() Registry {
	r := NewRegistry()
	for format, factory := range map[Format]ReaderFactory{
		FormatCSV:    func(source string) Reader { return delimited.New(delimited.Comma, source) },
		FormatTSV:    func(source string) Reader { return delimited.New(delimited.Tab, source) },
		FormatXLSX:   func(source string) Reader { return spreadsheet.New(source) },
		FormatSushi4: func(source string) Reader { return sushi4.New(source) },
		FormatSushi5: func(source string) Reader { return sushi5.New(source) },
	} {
		if err := r.Register(format, factory); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *registry) Register(format Format, factory ReaderFactory) error {
	if format == FormatUnknown {
		return fmt.Errorf("format cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[format]; exists {
		return fmt.Errorf("format %q is already registered", format)
	}

	r.factories[format] = factory
	return nil
}

func (r *registry) Create(format Format, source string) (Reader, error) {
	r.mu.RLock()
	factory, exists := r.factories[format]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("format %q is not registered: %w", format, domain.ErrUnsupportedFormat)
	}

	return factory(source), nil
}

func (r *registry) ListFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.factories))
	for format := range r.factories {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
