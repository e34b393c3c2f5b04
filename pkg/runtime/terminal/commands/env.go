package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/de-tools/counter-atlas/pkg/models/domain"
	"github.com/de-tools/counter-atlas/pkg/services/config"
	"github.com/de-tools/counter-atlas/pkg/services/pipeline"
)

// ReportHandler renders or stores a parsed report.
type ReportHandler interface {
	Handle(report *domain.Report) error
}

// HandlerFactory returns the handler for an output format writing to w.
type HandlerFactory func(output string, w io.Writer) (ReportHandler, error)

// Env is shared by every command. It is filled in before a command runs.
type Env struct {
	Settings *config.Settings
	Pipeline *pipeline.Pipeline
	Handlers HandlerFactory
}

// emit sends report to the handler for output, writing to path when set.
func (e *Env) emit(stdout io.Writer, output, path string, report *domain.Report) (err error) {
	w := stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
		}()
		w = f
	}

	handler, err := e.Handlers(output, w)
	if err != nil {
		return err
	}
	return handler.Handle(report)
}
