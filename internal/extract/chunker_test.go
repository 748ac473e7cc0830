package extract

import (
	"strings"
	"testing"
)

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	chunks := ChunkText("a short sms", 1000, 100)
	if len(chunks) != 1 || chunks[0] != "a short sms" {
		t.Errorf("short text should come back whole, got %v", chunks)
	}
}

func TestChunkTextZeroBudgetSingleChunk(t *testing.T) {
	chunks := ChunkText("anything at all", 0, 0)
	if len(chunks) != 1 {
		t.Errorf("maxChars 0 disables chunking, got %d chunks", len(chunks))
	}
}

func TestChunkTextSplitsOnParagraphs(t *testing.T) {
	para := strings.Repeat("alpha bravo charlie ", 10) // ~200 chars
	text := para + "\n\n" + para + "\n\n" + para
	chunks := ChunkText(text, 250, 40)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 250 {
			t.Errorf("chunk %d exceeds budget: %d chars", i, len(c))
		}
	}
}

func TestChunkTextOverlapCarriesTail(t *testing.T) {
	para := strings.Repeat("word ", 50)
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	chunks := ChunkText(text, 260, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	// The second chunk starts with the tail of the first.
	tail := chunks[0][len(chunks[0])-20:]
	if !strings.Contains(chunks[1], strings.TrimSpace(tail)) {
		t.Errorf("second chunk does not carry overlap from first:\n%q\nvs\n%q", tail, chunks[1][:60])
	}
}

func TestChunkTextSentenceFallbackForGiantParagraph(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString("This sentence pads out one very long paragraph with no blank lines. ")
	}
	chunks := ChunkText(b.String(), 300, 50)
	if len(chunks) < 2 {
		t.Fatalf("oversized paragraph should split on sentences, got %d chunks", len(chunks))
	}
	// Chunks may run slightly over budget by the carried overlap.
	for i, c := range chunks {
		if len(c) > 300+50+2 {
			t.Errorf("chunk %d exceeds budget plus overlap: %d chars", i, len(c))
		}
	}
}

func TestChunkTextClampsOversizedOverlap(t *testing.T) {
	para := strings.Repeat("steady ", 40)
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	// overlap >= maxChars would otherwise never terminate.
	chunks := ChunkText(text, 200, 500)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}
