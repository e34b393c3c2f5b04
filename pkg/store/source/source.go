// Package source opens raw report payloads by URI: local paths, file:// and
// s3:// locations.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Opener returns a handle on the payload at uri. Callers must close it.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

type fileOpener struct{}

// NewFileOpener opens local paths and file:// URIs.
func NewFileOpener() Opener {
	return fileOpener{}
}

func (fileOpener) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path := uri
	if strings.HasPrefix(uri, "file://") {
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("invalid file URI %q: %w", uri, err)
		}
		path = u.Path
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Mux dispatches to an Opener by URI scheme. URIs without a scheme go to the
// "file" opener.
type Mux struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

func NewMux() *Mux {
	return &Mux{openers: map[string]Opener{"file": NewFileOpener()}}
}

// Handle registers o for scheme, replacing any previous opener.
func (m *Mux) Handle(scheme string, o Opener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openers[strings.ToLower(scheme)] = o
}

func (m *Mux) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	scheme := Scheme(uri)

	m.mu.RLock()
	o, ok := m.openers[scheme]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no opener for scheme %q", scheme)
	}
	return o.Open(ctx, uri)
}

// Scheme returns the lower-cased URI scheme, "file" for plain paths.
// Windows drive letters are not mistaken for schemes.
func Scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 1 {
		return "file"
	}
	return strings.ToLower(uri[:i])
}
