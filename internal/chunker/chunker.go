// Package chunker splits extracted page text into overlapping,
// boundary-aware chunks for embedding and retrieval.
package chunker

import "strings"

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500
	// DefaultOverlap is the character overlap between consecutive chunks.
	DefaultOverlap = 100
)

// Chunk is a slice of page text. Offsets are character (rune) positions
// into the page text the chunk was cut from, before whitespace trimming.
type Chunk struct {
	Content     string
	PageNumber  int
	StartOffset int
	EndOffset   int
}

// Chunker produces overlapping chunks from raw text. It is stateless;
// Split is a pure function of its input.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. Non-positive chunkSize falls back to
// DefaultChunkSize; overlap is clamped into [0, chunkSize).
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split scans text left to right producing windows of at most chunkSize
// characters. A window that does not reach the end of the text is
// shortened to end at the last sentence terminator in its second half,
// or failing that the last whitespace there, so chunks break at natural
// boundaries when possible. Windows are measured in runes, never bytes,
// so multi-byte text is never cut mid-character. Empty (all-whitespace)
// windows are dropped. Text with no extractable content yields zero
// chunks.
func (c *Chunker) Split(text string, pageNumber int) []Chunk {
	runes := []rune(text)
	var chunks []Chunk
	start := 0

	for start < len(runes) {
		end := start + c.chunkSize
		final := end >= len(runes)
		if final {
			end = len(runes)
		} else {
			// Prefer a sentence boundary, then a word boundary, but only
			// within the second half of the window so chunks stay near
			// their target size.
			half := start + c.chunkSize/2
			if dot := lastRune(runes[start:end], '.'); dot >= 0 && start+dot > half {
				end = start + dot + 1
			} else if sp := lastWhitespace(runes[start:end]); sp >= 0 && start+sp > half {
				end = start + sp
			}
		}

		if content := strings.TrimSpace(string(runes[start:end])); content != "" {
			chunks = append(chunks, Chunk{
				Content:     content,
				PageNumber:  pageNumber,
				StartOffset: start,
				EndOffset:   end,
			})
		}

		// The final window consumed the rest of the text; stepping back
		// by the overlap would only re-emit its tail.
		if final {
			break
		}

		// Overlap with the previous chunk, but always move forward.
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

func lastRune(rs []rune, target rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == target {
			return i
		}
	}
	return -1
}

func lastWhitespace(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		switch rs[i] {
		case ' ', '\t', '\n', '\r':
			return i
		}
	}
	return -1
}
