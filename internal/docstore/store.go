// Package docstore owns the authoritative chunk list of a knowledge base:
// source-level deduplication, persistence of the chunk and metadata
// artifacts, and the similarity index derived from them.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kbase/internal/domain"
	"kbase/internal/index"
	"kbase/internal/metadata"
	"kbase/internal/storage"
)

// Artifact names inside the store root. Entries are kept in ordinal order
// so that metadata[i] always describes chunks[i].
const (
	ChunksFile   = "chunks.msgpack"
	MetadataFile = "metadata.msgpack"
	IndexFile    = "index.msgpack"
)

// Options configures a Store.
type Options struct {
	Index  index.Options
	Logger *slog.Logger
}

// Store is the document store. Add and DeleteAll are serialized with each
// other and with the index rebuild they trigger; Search and the read
// accessors may run concurrently and observe either the state before or
// after a mutation.
type Store struct {
	mu       sync.RWMutex
	files    storage.FileStore
	index    *index.Active
	log      *slog.Logger
	chunks   []chunkRecord
	metadata []domain.Metadata
}

type chunkRecord struct {
	ID   string `msgpack:"id"`
	Text string `msgpack:"text"`
}

// Open loads the persisted artifacts from files and prepares the index,
// reusing the cached vector model when it matches the stored chunks.
// Unreadable artifacts are logged and treated as empty.
func Open(files storage.FileStore, opts Options) (*Store, error) {
	if err := opts.Index.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		files: files,
		index: index.NewActive(opts.Index, log),
		log:   log,
	}
	ctx := context.Background()

	if _, err := readArtifact(ctx, files, ChunksFile, &s.chunks); err != nil {
		log.Warn("failed to load chunks, starting empty", "file", ChunksFile, "error", err)
		s.chunks = nil
	}
	if _, err := readArtifact(ctx, files, MetadataFile, &s.metadata); err != nil {
		log.Warn("failed to load metadata, starting empty", "file", MetadataFile, "error", err)
		s.metadata = nil
	}
	if len(s.chunks) != len(s.metadata) {
		n := min(len(s.chunks), len(s.metadata))
		log.Warn("chunk and metadata artifacts disagree, truncating",
			"chunks", len(s.chunks), "metadata", len(s.metadata), "kept", n)
		s.chunks = s.chunks[:n]
		s.metadata = s.metadata[:n]
	}
	for i, md := range s.metadata {
		s.metadata[i] = metadata.Sanitize(md)
	}

	corpus := s.corpusLocked()
	var snap index.Snapshot
	ok, err := readArtifact(ctx, files, IndexFile, &snap)
	if err != nil {
		log.Warn("failed to load index cache", "file", IndexFile, "error", err)
	}
	if ok && err == nil && s.index.Restore(snap, corpus) {
		log.Debug("index restored from cache", "chunks", len(corpus))
	} else {
		s.index.Rebuild(corpus)
	}
	log.Info("document store opened", "path", files.Root(), "chunks", len(s.chunks), "strategy", s.index.Name())
	return s, nil
}

// SourceExists reports whether any stored chunk has the given source.
func (s *Store) SourceExists(source string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, md := range s.metadata {
		if md.Source() == source {
			return true
		}
	}
	return false
}

// ExistingSources returns every distinct source key currently stored.
func (s *Store) ExistingSources() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sourcesLocked()
}

func (s *Store) sourcesLocked() map[string]struct{} {
	sources := make(map[string]struct{})
	for _, md := range s.metadata {
		if src := md.Source(); src != "" {
			sources[src] = struct{}{}
		}
	}
	return sources
}

// Add appends chunks whose source is not already stored. Sources are
// checked against the state before the call, so every chunk of a known
// source is skipped while all chunks of a new source are accepted. After any
// addition the index is rebuilt and all artifacts are rewritten. A storage
// failure is returned wrapped in domain.ErrStorage; the in-memory state keeps
// the additions.
func (s *Store) Add(chunks []domain.Chunk) (domain.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res domain.AddResult
	existing := s.sourcesLocked()
	reported := make(map[string]struct{})
	newChunks := make([]chunkRecord, 0, len(chunks))
	newMeta := make([]domain.Metadata, 0, len(chunks))
	for _, c := range chunks {
		md := metadata.Sanitize(c.Metadata)
		if src := md.Source(); src != "" {
			if _, ok := existing[src]; ok {
				res.Skipped++
				if _, seen := reported[src]; !seen {
					reported[src] = struct{}{}
					s.log.Info("document already stored, skipping", "source", src)
				}
				continue
			}
		}
		if strings.TrimSpace(c.Text) == "" {
			s.log.Warn("dropping empty chunk", "id", c.ID, "source", md.Source())
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		newChunks = append(newChunks, chunkRecord{ID: id, Text: c.Text})
		newMeta = append(newMeta, md)
	}
	if len(newChunks) == 0 {
		s.log.Info("nothing to add", "skipped", res.Skipped)
		return res, nil
	}

	s.chunks = append(s.chunks, newChunks...)
	s.metadata = append(s.metadata, newMeta...)
	res.Added = len(newChunks)
	s.index.Rebuild(s.corpusLocked())

	if err := s.persistLocked(); err != nil {
		s.log.Error("failed to persist document store", "path", s.files.Root(), "error", err)
		return res, err
	}
	s.log.Info("chunks added", "added", res.Added, "skipped", res.Skipped, "total", len(s.chunks))
	return res, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// CountUniqueSources counts distinct source file names. Only the base name
// is compared, so same-named files from different directories count once.
func (s *Store) CountUniqueSources() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]struct{})
	for _, md := range s.metadata {
		if src := md.Source(); src != "" {
			names[Basename(src)] = struct{}{}
		}
	}
	return len(names)
}

// SourceFilesInfo returns a per-document rollup keyed by file name.
func (s *Store) SourceFilesInfo() map[string]domain.SourceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := make(map[string]domain.SourceInfo)
	for _, md := range s.metadata {
		src := md.Source()
		if src == "" {
			continue
		}
		name := Basename(src)
		si, ok := info[name]
		if !ok {
			si = domain.SourceInfo{
				Filename:   name,
				FileType:   stringOr(md[domain.KeyType], "unknown"),
				FirstAdded: stringOr(md[domain.KeyProcessedTime], "unknown"),
			}
		}
		si.ChunkCount++
		info[name] = si
	}
	return info
}

// Search answers a top-k query against the current index.
func (s *Store) Search(text string, k int) []domain.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := s.index.Query(text, k)
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			Content:  s.chunks[h.Position].Text,
			Metadata: maps.Clone(s.metadata[h.Position]),
			Distance: h.Distance,
		})
	}
	return results
}

// Chunks returns a copy of all stored chunks in insertion order.
func (s *Store) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chunk, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = domain.Chunk{ID: c.ID, Text: c.Text, Metadata: maps.Clone(s.metadata[i])}
	}
	return out
}

// DeleteAll irreversibly removes every chunk, its metadata and the index
// state, on disk and in memory.
func (s *Store) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.Background()
	for _, name := range []string{ChunksFile, MetadataFile, IndexFile} {
		if err := s.files.Delete(ctx, name); err != nil {
			s.log.Error("failed to delete collection", "file", name, "error", err)
			return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, name, err)
		}
	}
	s.chunks = nil
	s.metadata = nil
	s.index.Reset()
	s.log.Info("collection deleted", "path", s.files.Root())
	return nil
}

// IndexState reports whether a vector model is fitted.
func (s *Store) IndexState() index.State { return s.index.State() }

// Strategy names the similarity strategy serving queries.
func (s *Store) Strategy() string { return s.index.Name() }

// Path describes where the artifacts are stored.
func (s *Store) Path() string { return s.files.Root() }

func (s *Store) corpusLocked() []string {
	corpus := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		corpus[i] = c.Text
	}
	return corpus
}

// Basename returns the part of a source path after the last slash.
func Basename(source string) string {
	if i := strings.LastIndex(source, "/"); i >= 0 {
		return source[i+1:]
	}
	return source
}

func stringOr(v any, fallback string) string {
	switch x := v.(type) {
	case nil:
		return fallback
	case string:
		if x == "" {
			return fallback
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}
