package domain

// Metadata holds primitive-only document attributes. Values are string,
// int64, float64, bool or nil once they have passed through the sanitizer.
type Metadata map[string]any

// Source returns the originating document key, or "" when absent.
func (m Metadata) Source() string {
	if s, ok := m[KeySource].(string); ok {
		return s
	}
	return ""
}

// Well-known metadata keys.
const (
	KeySource        = "source"
	KeyType          = "type"
	KeyFilename      = "filename"
	KeyCategory      = "category"
	KeyProcessedTime = "processed_time"
	KeyChunkIndex    = "chunk_index"
	KeyTotalChunks   = "total_chunks"
	KeyChunkSize     = "chunk_size"
)

// Document is a raw text document handed to the knowledge base for ingest.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Chunk is one indexed unit of text derived from a document.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
}

// SearchResult represents a matching chunk. Lower distance is better.
type SearchResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// AddResult reports how many chunks an add call stored or skipped.
type AddResult struct {
	Added   int
	Skipped int
}

// SourceInfo is the per-document rollup reported by stats.
type SourceInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
	FileType   string `json:"file_type"`
	FirstAdded string `json:"first_added"`
}

// Stats summarizes a knowledge base collection.
type Stats struct {
	ChunkCount        int                   `json:"chunk_count"`
	UniqueSourceCount int                   `json:"unique_source_count"`
	Sources           map[string]SourceInfo `json:"per_source_rollup"`
	StoragePath       string                `json:"storage_path"`
	Strategy          string                `json:"strategy"`
}

// Chunker splits text into overlapping chunks suitable for indexing.
type Chunker interface {
	Split(text string) []string
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
