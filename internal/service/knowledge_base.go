package service

import (
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"kbase/internal/chunker"
	"kbase/internal/docstore"
	"kbase/internal/domain"
	"kbase/internal/metadata"
)

// DefaultTopK is used when a query asks for fewer than one result.
const DefaultTopK = 5

// KnowledgeBase orchestrates chunking, metadata sanitation, storage and
// retrieval. It is constructed explicitly and shared by its callers.
type KnowledgeBase struct {
	chunker domain.Chunker
	store   *docstore.Store
	topK    int
	log     *slog.Logger
	now     func() time.Time
}

func NewKnowledgeBase(ch domain.Chunker, store *docstore.Store, defaultTopK int, log *slog.Logger) *KnowledgeBase {
	if defaultTopK < 1 {
		defaultTopK = DefaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &KnowledgeBase{chunker: ch, store: store, topK: defaultTopK, log: log, now: time.Now}
}

// Ingest chunks the documents and stores them in a single add call, so all
// documents sharing a new source are accepted together. Documents without
// text are logged and skipped. Only storage failures are returned.
func (kb *KnowledgeBase) Ingest(docs ...domain.Document) (domain.AddResult, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, kb.chunk(doc)...)
	}
	if len(chunks) == 0 {
		kb.log.Warn("no chunks to add", "documents", len(docs))
		return domain.AddResult{}, nil
	}
	res, err := kb.store.Add(chunks)
	if err != nil {
		return res, fmt.Errorf("ingest %d documents: %w", len(docs), err)
	}
	for _, doc := range docs {
		kb.log.Debug("document processed", "source", doc.Metadata[domain.KeySource], "type", doc.Metadata[domain.KeyType])
	}
	return res, nil
}

func (kb *KnowledgeBase) chunk(doc domain.Document) []domain.Chunk {
	base := metadata.Sanitize(doc.Metadata)
	if strings.TrimSpace(doc.Text) == "" {
		kb.log.Warn("skipping document with empty content", "source", base.Source())
		return nil
	}
	pieces := kb.chunker.Split(doc.Text)
	if len(pieces) == 0 {
		kb.log.Warn("document produced no chunks", "source", base.Source())
		return nil
	}
	if _, ok := base[domain.KeyProcessedTime]; !ok {
		base[domain.KeyProcessedTime] = kb.now().UTC().Format(time.RFC3339)
	}
	prefix := "doc_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	chunks := make([]domain.Chunk, len(pieces))
	for i, text := range pieces {
		md := maps.Clone(base)
		md[domain.KeyChunkIndex] = int64(i)
		md[domain.KeyTotalChunks] = int64(len(pieces))
		md[domain.KeyChunkSize] = int64(chunker.Len(text))
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("%s_%d", prefix, i), Text: text, Metadata: md}
	}
	return chunks
}

// Query returns up to k results ordered best first. Fewer results than k
// are returned when the corpus has fewer matches; a blank query matches
// nothing.
func (kb *KnowledgeBase) Query(text string, k int) []domain.SearchResult {
	if k < 1 {
		k = kb.topK
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	results := kb.store.Search(text, k)
	kb.log.Debug("query answered", "query", text, "k", k, "results", len(results), "strategy", kb.store.Strategy())
	return results
}

// Stats summarizes the collection.
func (kb *KnowledgeBase) Stats() domain.Stats {
	st := domain.Stats{
		ChunkCount:        kb.store.Count(),
		UniqueSourceCount: kb.store.CountUniqueSources(),
		Sources:           kb.store.SourceFilesInfo(),
		StoragePath:       kb.store.Path(),
		Strategy:          kb.store.Strategy(),
	}
	kb.log.Debug("collection stats", "chunks", st.ChunkCount, "sources", st.UniqueSourceCount, "path", st.StoragePath)
	return st
}

// Clear removes every stored chunk and resets the index.
func (kb *KnowledgeBase) Clear() error {
	if err := kb.store.DeleteAll(); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}
	return nil
}

// SourceExists reports whether a document with this source is stored.
func (kb *KnowledgeBase) SourceExists(source string) bool {
	return kb.store.SourceExists(source)
}

// ExistingSources returns all stored source keys.
func (kb *KnowledgeBase) ExistingSources() map[string]struct{} {
	return kb.store.ExistingSources()
}
