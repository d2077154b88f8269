package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSplit_Empty tests that empty and whitespace-only text yield no chunks.
func TestSplit_Empty(t *testing.T) {
	c := New(500, 100)

	if chunks := c.Split("", 1); len(chunks) != 0 {
		t.Errorf("Empty text: expected 0 chunks, got %d", len(chunks))
	}
	if chunks := c.Split("   \n\t  ", 1); len(chunks) != 0 {
		t.Errorf("Whitespace text: expected 0 chunks, got %d", len(chunks))
	}
}

// TestSplit_ShortText tests that text shorter than the chunk size
// produces a single trimmed chunk.
func TestSplit_ShortText(t *testing.T) {
	c := New(500, 100)

	chunks := c.Split("  Hello world.  ", 3)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "Hello world." {
		t.Errorf("Content: expected %q, got %q", "Hello world.", chunks[0].Content)
	}
	if chunks[0].PageNumber != 3 {
		t.Errorf("PageNumber: expected 3, got %d", chunks[0].PageNumber)
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("StartOffset: expected 0, got %d", chunks[0].StartOffset)
	}
}

// TestSplit_SentenceBoundary tests that a window breaks at the last
// sentence terminator in its second half.
func TestSplit_SentenceBoundary(t *testing.T) {
	// A period at offset 80, inside the second half of a 100-char window.
	text := strings.Repeat("a", 80) + ". " + strings.Repeat("b", 118)
	c := New(100, 20)

	chunks := c.Split(text, 1)
	if len(chunks) < 2 {
		t.Fatalf("Expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, ".") {
		t.Errorf("Chunk 0 should end at the sentence terminator, got %q", chunks[0].Content)
	}
	if chunks[0].EndOffset != 81 {
		t.Errorf("Chunk 0 EndOffset: expected 81, got %d", chunks[0].EndOffset)
	}
	// Next window starts overlap characters before the previous end.
	if chunks[1].StartOffset != 61 {
		t.Errorf("Chunk 1 StartOffset: expected 61, got %d", chunks[1].StartOffset)
	}
}

// TestSplit_WordBoundary tests the whitespace fallback when no sentence
// terminator lands in the second half of the window.
func TestSplit_WordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 40) // 200 chars, no periods
	c := New(100, 0)

	chunks := c.Split(text, 1)
	if len(chunks) == 0 {
		t.Fatal("Expected chunks, got none")
	}
	if strings.HasSuffix(chunks[0].Content, "wor") || strings.Contains(chunks[0].Content, "  ") {
		t.Errorf("Chunk 0 should break at a word boundary, got %q", chunks[0].Content)
	}
	if chunks[0].EndOffset != 99 {
		t.Errorf("Chunk 0 EndOffset: expected 99, got %d", chunks[0].EndOffset)
	}
}

// TestSplit_NoBoundaries tests chunking of unbroken text: fixed-size
// windows, strictly increasing starts, full coverage.
func TestSplit_NoBoundaries(t *testing.T) {
	text := strings.Repeat("x", 1200)
	c := New(500, 100)

	chunks := c.Split(text, 1)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	wantStarts := []int{0, 400, 800}
	for i, chunk := range chunks {
		if chunk.StartOffset != wantStarts[i] {
			t.Errorf("Chunk %d StartOffset: expected %d, got %d", i, wantStarts[i], chunk.StartOffset)
		}
		if i > 0 && chunk.StartOffset <= chunks[i-1].StartOffset {
			t.Errorf("Chunk %d start %d not after chunk %d start %d",
				i, chunk.StartOffset, i-1, chunks[i-1].StartOffset)
		}
		// Consecutive chunks overlap so no text falls in a gap.
		if i > 0 && chunk.StartOffset > chunks[i-1].EndOffset {
			t.Errorf("Gap between chunk %d (end %d) and chunk %d (start %d)",
				i-1, chunks[i-1].EndOffset, i, chunk.StartOffset)
		}
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != len(text) {
		t.Errorf("Last chunk EndOffset: expected %d, got %d", len(text), last.EndOffset)
	}
}

// TestSplit_OverlapCarriesText tests that the overlap region repeats
// across consecutive chunks.
func TestSplit_OverlapCarriesText(t *testing.T) {
	text := strings.Repeat("0123456789", 100) // 1000 chars
	c := New(300, 50)

	chunks := c.Split(text, 1)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		overlap := chunks[i-1].EndOffset - chunks[i].StartOffset
		if overlap != 50 {
			t.Errorf("Chunk %d overlap: expected 50, got %d", i, overlap)
		}
	}
}

// TestSplit_MultiByteRunes tests that windows are measured in characters,
// not bytes, so multi-byte text never gets cut mid-character.
func TestSplit_MultiByteRunes(t *testing.T) {
	// 1200 three-byte CJK characters: byte-based windows would slice
	// inside a character at every window edge.
	text := strings.Repeat("日", 1200)
	c := New(500, 100)

	chunks := c.Split(text, 1)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	wantStarts := []int{0, 400, 800}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk.Content) {
			t.Errorf("Chunk %d is not valid UTF-8: %q", i, chunk.Content[:12])
		}
		if strings.ContainsRune(chunk.Content, utf8.RuneError) {
			t.Errorf("Chunk %d contains replacement characters", i)
		}
		if chunk.StartOffset != wantStarts[i] {
			t.Errorf("Chunk %d StartOffset: expected %d, got %d", i, wantStarts[i], chunk.StartOffset)
		}
	}
	if n := utf8.RuneCountInString(chunks[0].Content); n != 500 {
		t.Errorf("Chunk 0 length: expected 500 characters, got %d", n)
	}
	if last := chunks[len(chunks)-1]; last.EndOffset != 1200 {
		t.Errorf("Last chunk EndOffset: expected 1200, got %d", last.EndOffset)
	}
}

// TestSplit_MultiByteSentenceBoundary tests that sentence breaks and
// offsets stay character-based for accented text.
func TestSplit_MultiByteSentenceBoundary(t *testing.T) {
	// Two-byte "é" throughout; period at character offset 80.
	text := strings.Repeat("é", 80) + ". " + strings.Repeat("è", 118)
	c := New(100, 20)

	chunks := c.Split(text, 1)
	if len(chunks) < 2 {
		t.Fatalf("Expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0].Content, ".") {
		t.Errorf("Chunk 0 should end at the sentence terminator, got %q", chunks[0].Content)
	}
	if chunks[0].EndOffset != 81 {
		t.Errorf("Chunk 0 EndOffset: expected 81, got %d", chunks[0].EndOffset)
	}
	if chunks[1].StartOffset != 61 {
		t.Errorf("Chunk 1 StartOffset: expected 61, got %d", chunks[1].StartOffset)
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk.Content) {
			t.Errorf("Chunk %d is not valid UTF-8", i)
		}
	}
}

// TestNew_Clamping tests constructor defaults for degenerate parameters.
func TestNew_Clamping(t *testing.T) {
	c := New(0, -5)
	if c.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize: expected %d, got %d", DefaultChunkSize, c.chunkSize)
	}
	if c.overlap != 0 {
		t.Errorf("overlap: expected 0, got %d", c.overlap)
	}

	c = New(100, 100)
	if c.overlap != 99 {
		t.Errorf("overlap: expected 99 (clamped below chunk size), got %d", c.overlap)
	}
}
