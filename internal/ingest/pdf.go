package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"kbase/internal/domain"
)

const (
	CategoryPaper = "academic_paper"
	CategoryDocs  = "documentation"
)

// PDFLoader extracts text with pdftotext.
type PDFLoader struct {
	runner CommandRunner
	binary string
}

func NewPDFLoader(runner CommandRunner, binary string) *PDFLoader {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PDFLoader{runner: runner, binary: binary}
}

func (l *PDFLoader) Kind() string         { return "pdf" }
func (l *PDFLoader) Extensions() []string { return []string{".pdf"} }

func (l *PDFLoader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	out, err := l.runner.Run(ctx, l.binary, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed on %s: %w", path, err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyInput)
	}
	source := SourceKey(path)
	return []domain.Document{{
		Text: text,
		Metadata: map[string]any{
			domain.KeySource:   source,
			domain.KeyType:     "pdf",
			domain.KeyFilename: filepath.Base(path),
			domain.KeyCategory: pdfCategory(source),
		},
	}}, nil
}

func pdfCategory(source string) string {
	if strings.Contains(strings.ToLower(source), "repository") {
		return CategoryPaper
	}
	return CategoryDocs
}
