package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/domain"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name, m.args = name, args
	return m.output, m.err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPDFLoader(t *testing.T) {
	runner := &mockRunner{output: []byte("  Attention Is All You Need\n\nabstract text\n")}
	l := NewPDFLoader(runner, "")
	path := filepath.Join(t.TempDir(), "repository", "paper.pdf")

	docs, err := l.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", path, "-"}, runner.args)
	assert.Equal(t, "Attention Is All You Need\n\nabstract text", docs[0].Text)
	md := docs[0].Metadata
	assert.Equal(t, SourceKey(path), md[domain.KeySource])
	assert.Equal(t, "pdf", md[domain.KeyType])
	assert.Equal(t, "paper.pdf", md[domain.KeyFilename])
	assert.Equal(t, CategoryPaper, md[domain.KeyCategory])
}

func TestPDFLoader_Category(t *testing.T) {
	assert.Equal(t, CategoryPaper, pdfCategory("/data/Repository/x.pdf"))
	assert.Equal(t, CategoryDocs, pdfCategory("/data/manuals/x.pdf"))
}

func TestPDFLoader_RunnerError(t *testing.T) {
	l := NewPDFLoader(&mockRunner{err: errors.New("pdftotext crashed")}, "/opt/bin/pdftotext")

	_, err := l.Load(context.Background(), "/tmp/x.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPDFLoader_EmptyOutput(t *testing.T) {
	l := NewPDFLoader(&mockRunner{output: []byte(" \n\f")}, "")

	_, err := l.Load(context.Background(), "/tmp/scan.pdf")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestCSVLoader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "people.csv",
		"\ufeffname,age,score,source\nada,36,9.5,lab\nbob,,7,\n")

	docs, err := CSVLoader{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Record 1:\nname: ada\nage: 36\nscore: 9.5\nsource: lab\n", docs[0].Text)
	assert.Equal(t, "Record 2:\nname: bob\nscore: 7\n", docs[1].Text)

	md := docs[0].Metadata
	assert.Equal(t, SourceKey(path), md[domain.KeySource])
	assert.Equal(t, TypeCSV, md[domain.KeyType])
	assert.Equal(t, 0, md["row_index"])
	assert.Equal(t, "name, age, score, source", md["columns"])
	assert.Equal(t, "ada", md["name"])
	assert.Equal(t, int64(36), md["age"])
	assert.Equal(t, 9.5, md["score"])
	assert.Equal(t, "lab", md["col_source"])

	assert.Equal(t, 1, docs[1].Metadata["row_index"])
	assert.NotContains(t, docs[1].Metadata, "age")
	assert.Equal(t, docs[0].Metadata[domain.KeySource], docs[1].Metadata[domain.KeySource])
}

func TestCSVLoader_Empty(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"none.csv": "", "header.csv": "a,b\n"} {
		_, err := CSVLoader{}.Load(context.Background(), writeFile(t, dir, name, content))
		assert.ErrorIs(t, err, domain.ErrEmptyInput, name)
	}
}

func TestTextLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.md", "# Title\n\nbody")

	docs, err := TextLoader{}.Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "# Title\n\nbody", docs[0].Text)
	assert.Equal(t, "text", docs[0].Metadata[domain.KeyType])
	assert.Equal(t, "notes.md", docs[0].Metadata[domain.KeyFilename])

	_, err = TextLoader{}.Load(context.Background(), writeFile(t, dir, "blank.txt", "\n\n  "))
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	_, err = TextLoader{}.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry("pdftotext", nil)
	assert.Equal(t, []string{".csv", ".md", ".pdf", ".txt"}, r.Extensions())

	l, err := r.For("/x/REPORT.PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf", l.Kind())

	_, err = r.For("/x/image.png")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.False(t, r.Supports("archive.zip"))

	limited := DefaultRegistry("pdftotext", []string{".TXT", ".csv", ".docx"})
	assert.Equal(t, []string{".csv", ".txt"}, limited.Extensions())
	assert.False(t, limited.Supports("readme.md"))
}

func TestSourceKey(t *testing.T) {
	abs := SourceKey("a/../b/file.txt")
	assert.True(t, filepath.IsAbs(filepath.FromSlash(abs)))
	assert.Equal(t, "file.txt", filepath.Base(abs))
	assert.Equal(t, abs, SourceKey("b/./file.txt"))
}
