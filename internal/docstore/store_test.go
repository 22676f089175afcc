package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbase/internal/domain"
	"kbase/internal/index"
	"kbase/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, files storage.FileStore) *Store {
	t.Helper()
	s, err := Open(files, Options{Index: index.DefaultOptions(), Logger: quietLogger()})
	require.NoError(t, err)
	return s
}

func localFiles(t *testing.T, dir string) *storage.Local {
	t.Helper()
	files, err := storage.NewLocal(dir)
	require.NoError(t, err)
	return files
}

func docChunks(source string, texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		out[i] = domain.Chunk{
			ID:   fmt.Sprintf("%s#%d", source, i),
			Text: text,
			Metadata: domain.Metadata{
				domain.KeySource:        source,
				domain.KeyType:          "pdf",
				domain.KeyProcessedTime: "2024-05-01T12:00:00Z",
			},
		}
	}
	return out
}

type failingFiles struct {
	*storage.Local
	failWrites  bool
	failDeletes bool
}

func (f *failingFiles) Write(ctx context.Context, path string) (storage.Writer, error) {
	if f.failWrites {
		return nil, errors.New("disk full")
	}
	return f.Local.Write(ctx, path)
}

func (f *failingFiles) Delete(ctx context.Context, path string) error {
	if f.failDeletes {
		return errors.New("permission denied")
	}
	return f.Local.Delete(ctx, path)
}

func TestOpen_Empty(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))

	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.ExistingSources())
	assert.Equal(t, index.Untrained, s.IndexState())
	assert.Empty(t, s.Search("anything", 5))
}

func TestOpen_InvalidIndexOptions(t *testing.T) {
	_, err := Open(localFiles(t, t.TempDir()), Options{Index: index.Options{Vector: true}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestAdd_StoresAndIndexes(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))

	res, err := s.Add(docChunks("/papers/tone.pdf", "tone sandhi in mandarin", "register tone systems"))
	require.NoError(t, err)
	assert.Equal(t, domain.AddResult{Added: 2}, res)
	assert.Equal(t, 2, s.Count())
	assert.True(t, s.SourceExists("/papers/tone.pdf"))
	assert.False(t, s.SourceExists("tone.pdf"))
	assert.Equal(t, index.Trained, s.IndexState())
	assert.Equal(t, index.StrategyVector, s.Strategy())

	results := s.Search("mandarin tone sandhi", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "tone sandhi in mandarin", results[0].Content)
	assert.Equal(t, "/papers/tone.pdf", results[0].Metadata.Source())
}

func TestAdd_DuplicateSourceIsSkipped(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	chunks := docChunks("/papers/case.pdf", "ergative case", "absolutive case", "split ergativity")

	_, err := s.Add(chunks)
	require.NoError(t, err)
	require.Equal(t, 3, s.Count())

	res, err := s.Add(chunks)
	require.NoError(t, err)
	assert.Equal(t, domain.AddResult{Added: 0, Skipped: len(chunks)}, res)
	assert.Equal(t, 3, s.Count())
}

func TestAdd_MixedBatch(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	_, err := s.Add(docChunks("a.txt", "alpha one"))
	require.NoError(t, err)

	batch := append(docChunks("a.txt", "alpha two", "alpha three"), docChunks("b.txt", "beta one", "beta two")...)
	res, err := s.Add(batch)
	require.NoError(t, err)
	assert.Equal(t, domain.AddResult{Added: 2, Skipped: 2}, res)
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, map[string]struct{}{"a.txt": {}, "b.txt": {}}, s.ExistingSources())
}

func TestAdd_ChunksWithoutSourceAreNeverDeduplicated(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	chunk := []domain.Chunk{{ID: "x", Text: "free floating note", Metadata: domain.Metadata{"type": "note"}}}

	_, err := s.Add(chunk)
	require.NoError(t, err)
	_, err = s.Add(chunk)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count())
	assert.Empty(t, s.ExistingSources())
}

func TestAdd_SanitizesMetadata(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	_, err := s.Add([]domain.Chunk{{
		Text: "record with columns",
		Metadata: domain.Metadata{
			"source":  "data.csv",
			"columns": []string{"name", "family"},
			"row":     7,
		},
	}})
	require.NoError(t, err)

	chunks := s.Chunks()
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].ID)
	assert.Equal(t, `["name","family"]`, chunks[0].Metadata["columns"])
	assert.Equal(t, int64(7), chunks[0].Metadata["row"])
}

func TestAdd_DropsBlankChunksWithoutWriting(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, localFiles(t, dir))

	res, err := s.Add(docChunks("blank.txt", "   ", "\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.AddResult{}, res)
	assert.Equal(t, 0, s.Count())
	assert.NoFileExists(t, filepath.Join(dir, ChunksFile))
}

func TestCountUniqueSources_CollapsesSameBasename(t *testing.T) {
	// Existence checks use the full path while unique counts use the base
	// name, so two same-named files in different directories count once.
	s := openStore(t, localFiles(t, t.TempDir()))
	_, err := s.Add(docChunks("/repo/a/paper.pdf", "first copy"))
	require.NoError(t, err)
	_, err = s.Add(docChunks("/repo/b/paper.pdf", "second copy"))
	require.NoError(t, err)

	assert.True(t, s.SourceExists("/repo/a/paper.pdf"))
	assert.True(t, s.SourceExists("/repo/b/paper.pdf"))
	assert.Len(t, s.ExistingSources(), 2)
	assert.Equal(t, 1, s.CountUniqueSources())

	info := s.SourceFilesInfo()
	require.Contains(t, info, "paper.pdf")
	assert.Equal(t, 2, info["paper.pdf"].ChunkCount)
}

func TestSourceFilesInfo(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	_, err := s.Add(docChunks("/repo/tone.pdf", "one", "two", "three"))
	require.NoError(t, err)
	_, err = s.Add([]domain.Chunk{{Text: "row", Metadata: domain.Metadata{"source": "features.csv"}}})
	require.NoError(t, err)

	info := s.SourceFilesInfo()
	assert.Equal(t, map[string]domain.SourceInfo{
		"tone.pdf": {Filename: "tone.pdf", ChunkCount: 3, FileType: "pdf", FirstAdded: "2024-05-01T12:00:00Z"},
		"features.csv": {Filename: "features.csv", ChunkCount: 1, FileType: "unknown", FirstAdded: "unknown"},
	}, info)
	assert.Equal(t, 2, s.CountUniqueSources())
}

func TestPersistence_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, localFiles(t, dir))
	_, err := s.Add(docChunks("/repo/tone.pdf", "tone sandhi in mandarin", "vowel harmony in turkish"))
	require.NoError(t, err)
	before := s.Search("vowel harmony", 2)

	reopened := openStore(t, localFiles(t, dir))
	assert.Equal(t, 2, reopened.Count())
	assert.True(t, reopened.SourceExists("/repo/tone.pdf"))
	assert.Equal(t, index.Trained, reopened.IndexState())
	assert.Equal(t, before, reopened.Search("vowel harmony", 2))
	assert.Equal(t, s.Chunks(), reopened.Chunks())
}

func TestPersistence_CorruptIndexCacheIsRebuilt(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, localFiles(t, dir))
	_, err := s.Add(docChunks("/repo/tone.pdf", "tone sandhi in mandarin"))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, IndexFile))

	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("not msgpack at all"), 0o644))

	reopened := openStore(t, localFiles(t, dir))
	assert.Equal(t, index.Trained, reopened.IndexState())
	assert.Len(t, reopened.Search("mandarin", 5), 1)
}

func TestPersistence_MismatchedArtifactsAreTruncated(t *testing.T) {
	dir := t.TempDir()
	files := localFiles(t, dir)
	ctx := context.Background()
	require.NoError(t, writeArtifact(ctx, files, ChunksFile, []chunkRecord{{ID: "1", Text: "first"}, {ID: "2", Text: "second"}}))
	require.NoError(t, writeArtifact(ctx, files, MetadataFile, []domain.Metadata{{"source": "one.txt"}}))

	s := openStore(t, files)
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.SourceExists("one.txt"))
}

func TestDeleteAll(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, localFiles(t, dir))
	_, err := s.Add(docChunks("/repo/tone.pdf", "tone sandhi in mandarin"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll())
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.ExistingSources())
	assert.Empty(t, s.Search("mandarin", 5))
	assert.Equal(t, index.Untrained, s.IndexState())
	for _, name := range []string{ChunksFile, MetadataFile, IndexFile} {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}

	reopened := openStore(t, localFiles(t, dir))
	assert.Equal(t, 0, reopened.Count())

	_, err = s.Add(docChunks("/repo/tone.pdf", "tone sandhi in mandarin"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestAdd_StorageFailureKeepsMemoryState(t *testing.T) {
	files := &failingFiles{Local: localFiles(t, t.TempDir()), failWrites: true}
	s := openStore(t, files)

	res, err := s.Add(docChunks("/repo/tone.pdf", "tone sandhi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, s.Count())
}

func TestDeleteAll_StorageFailure(t *testing.T) {
	files := &failingFiles{Local: localFiles(t, t.TempDir())}
	s := openStore(t, files)
	_, err := s.Add(docChunks("/repo/tone.pdf", "tone sandhi"))
	require.NoError(t, err)

	files.failDeletes = true
	err = s.DeleteAll()
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, s.Count())
}

func TestConcurrentSearchDuringAdds(t *testing.T) {
	s := openStore(t, localFiles(t, t.TempDir()))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				for _, r := range s.Search("chunk text", 3) {
					assert.NotEmpty(t, r.Content)
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		_, err := s.Add(docChunks(fmt.Sprintf("doc-%d.txt", i), fmt.Sprintf("chunk text number %d", i)))
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, 20, s.Count())
}

func TestBasename(t *testing.T) {
	assert.Equal(t, "paper.pdf", Basename("/repo/a/paper.pdf"))
	assert.Equal(t, "paper.pdf", Basename("paper.pdf"))
	assert.Equal(t, "", Basename("/repo/"))
}
