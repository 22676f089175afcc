package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"kbase/internal/domain"
)

// Default window parameters, measured in runes.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// WindowChunker splits text into fixed-size rune windows. Each window starts
// overlap runes before the end of the previous one.
type WindowChunker struct {
	size    int
	overlap int
}

var _ domain.Chunker = (*WindowChunker)(nil)

// NewWindowChunker validates the window parameters. The overlap must be
// strictly smaller than the size, otherwise the splitter could not advance.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d: %w", overlap, domain.ErrInvalidConfig)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d: %w", overlap, size, domain.ErrInvalidConfig)
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Size returns the target chunk length in runes.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive chunks.
func (c *WindowChunker) Overlap() int { return c.overlap }

// Split returns the chunks of text. Windows that contain only whitespace are
// dropped, so blank input yields no chunks.
func (c *WindowChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	n := len(runes)
	if n <= c.size {
		return []string{text}
	}
	step := c.size - c.overlap
	chunks := make([]string, 0, (n-c.overlap+step-1)/step)
	start := 0
	for {
		end := start + c.size
		if end > n {
			end = n
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
		if end == n {
			break
		}
		start = end - c.overlap
	}
	return chunks
}

// Len reports the length of s in the unit used for chunk sizes.
func Len(s string) int { return utf8.RuneCountInString(s) }
