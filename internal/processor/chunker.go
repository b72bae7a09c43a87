package processor

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in runes
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is how many runes consecutive chunks share
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping chunks
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Non-positive size falls back to the
// default; overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks of roughly the configured size,
// preferring to break at paragraph and line boundaries. Empty input
// yields no chunks.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		end = c.breakPoint(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// breakPoint searches backwards from end for a natural boundary within
// the last half of the window.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	limit := end - c.size/2
	if limit < start+1 {
		limit = start + 1
	}

	// prefer paragraph break, then newline, then space
	for _, sep := range []string{"\n\n", "\n", " "} {
		sepLen := utf8.RuneCountInString(sep)
		for i := end - sepLen; i >= limit; i-- {
			if string(runes[i:i+sepLen]) == sep {
				return i + sepLen
			}
		}
	}
	return end
}
