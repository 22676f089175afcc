package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kbase/internal/domain"
)

// TextLoader reads plain text and Markdown files whole.
type TextLoader struct{}

func (TextLoader) Kind() string         { return "text" }
func (TextLoader) Extensions() []string { return []string{".txt", ".md"} }

func (TextLoader) Load(_ context.Context, path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyInput)
	}
	return []domain.Document{{
		Text: text,
		Metadata: map[string]any{
			domain.KeySource:   SourceKey(path),
			domain.KeyType:     "text",
			domain.KeyFilename: filepath.Base(path),
			domain.KeyCategory: CategoryDocs,
		},
	}}, nil
}
