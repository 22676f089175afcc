package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"kbase/internal/domain"
)

// Loader turns one file into documents ready for the knowledge base. Every
// document returned for a file shares the file's source key.
type Loader interface {
	// Kind names the loader in batch reports.
	Kind() string
	Extensions() []string
	Load(ctx context.Context, path string) ([]domain.Document, error)
}

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Registry maps file extensions to loaders.
type Registry struct {
	byExt map[string]Loader
}

// NewRegistry registers the loaders. A later loader wins an extension
// claimed by an earlier one.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{byExt: make(map[string]Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			r.byExt[strings.ToLower(ext)] = l
		}
	}
	return r
}

// DefaultRegistry returns the PDF, CSV and text loaders restricted to the
// given extensions. An empty list keeps every extension.
func DefaultRegistry(pdftotext string, extensions []string) *Registry {
	r := NewRegistry(NewPDFLoader(ExecRunner{}, pdftotext), CSVLoader{}, TextLoader{})
	if len(extensions) == 0 {
		return r
	}
	keep := make(map[string]Loader)
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if l, ok := r.byExt[ext]; ok {
			keep[ext] = l
		}
	}
	r.byExt = keep
	return r
}

// For returns the loader handling path.
func (r *Registry) For(path string) (Loader, error) {
	l, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedType)
	}
	return l, nil
}

// Supports reports whether some loader handles path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// SourceKey normalizes a path into the source key stored with its chunks.
func SourceKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.ToSlash(filepath.Clean(path))
}
