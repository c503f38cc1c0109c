package chunker

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

func TestChunkOutline_SmallSectionFitsOneChunk(t *testing.T) {
	roots := []*doctree.OutlineNode{
		{
			Text:    "Section",
			Level:   doctree.Level1,
			Page:    2,
			PageEnd: 3,
			Body:    strings.Repeat("word ", 200), // ~266 tokens, above MinChunk
		},
	}

	cfg := Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 50}
	chunks := ChunkOutline("", roots, cfg)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].PageStart != 2 || chunks[0].PageEnd != 3 {
		t.Errorf("expected pages 2-3, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
	if !strings.Contains(chunks[0].Text, "word") {
		t.Errorf("expected chunk text to contain 'word', got %q", chunks[0].Text)
	}
}

func TestChunkOutline_LargeSectionRequiresSplitting(t *testing.T) {
	// ~3000 words -> ~3990 tokens, one block per line.
	body := strings.TrimSpace(strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 300))
	roots := []*doctree.OutlineNode{{Text: "Big Section", Level: doctree.Level1, Page: 1, Body: body}}

	cfg := Config{ChunkSize: 500, ChunkOverlap: 50, MinChunk: 10}
	chunks := ChunkOutline("", roots, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for large text, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		// Paragraph and sentence boundaries allow slight overflow.
		if tokens := EstimateTokens(c.Text); tokens > cfg.ChunkSize*2 {
			t.Errorf("chunk %d: %d tokens exceeds 2x target %d", i, tokens, cfg.ChunkSize)
		}
	}
}

func TestChunkOutline_BreadcrumbPropagation(t *testing.T) {
	roots := []*doctree.OutlineNode{
		{
			Text:  "Chapter 1",
			Level: doctree.Level1,
			Page:  1,
			Children: []*doctree.OutlineNode{
				{Text: "Section 1.1", Level: doctree.Level2, Page: 1, Body: strings.Repeat("content ", 200)},
			},
		},
	}

	chunks := ChunkOutline("", roots, Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	want := []string{"Chapter 1", "Section 1.1"}
	bc := chunks[0].Breadcrumb
	if len(bc) != len(want) {
		t.Fatalf("expected breadcrumb %v, got %v", want, bc)
	}
	for i := range want {
		if bc[i] != want[i] {
			t.Errorf("breadcrumb[%d]: expected %q, got %q", i, want[i], bc[i])
		}
	}
}

func TestChunkOutline_BreadcrumbIsolation(t *testing.T) {
	roots := []*doctree.OutlineNode{
		{Text: "A", Level: doctree.Level1, Page: 1, Body: strings.Repeat("alpha ", 200)},
		{Text: "B", Level: doctree.Level1, Page: 2, Body: strings.Repeat("beta ", 200)},
	}
	chunks := ChunkOutline("", roots, Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Breadcrumb) != 1 || chunks[0].Breadcrumb[0] != "A" {
		t.Errorf("chunk 0 breadcrumb: expected [A], got %v", chunks[0].Breadcrumb)
	}
	if len(chunks[1].Breadcrumb) != 1 || chunks[1].Breadcrumb[0] != "B" {
		t.Errorf("chunk 1 breadcrumb: expected [B], got %v", chunks[1].Breadcrumb)
	}
}

func TestChunkOutline_PreambleComesFirst(t *testing.T) {
	roots := []*doctree.OutlineNode{{Text: "A", Level: doctree.Level1, Page: 2, Body: strings.Repeat("alpha ", 100)}}
	chunks := ChunkOutline(strings.Repeat("intro ", 100), roots, Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Breadcrumb != nil {
		t.Errorf("expected no breadcrumb for preamble, got %v", chunks[0].Breadcrumb)
	}
	if chunks[0].PageStart != 1 {
		t.Errorf("expected preamble on page 1, got %d", chunks[0].PageStart)
	}
	if chunks[1].Index != 1 {
		t.Errorf("expected section chunk index 1, got %d", chunks[1].Index)
	}
}

func TestChunkOutline_MinChunkFiltering(t *testing.T) {
	roots := []*doctree.OutlineNode{{Text: "Short", Level: doctree.Level1, Page: 1, Body: "Hi"}}
	chunks := ChunkOutline("", roots, Config{ChunkSize: 1500, ChunkOverlap: 200, MinChunk: 100})
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks (below MinChunk), got %d", len(chunks))
	}
}

func TestChunkOutline_Empty(t *testing.T) {
	if chunks := ChunkOutline("", nil, DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestChunkOutline_DefaultConfigFallback(t *testing.T) {
	roots := []*doctree.OutlineNode{{Text: "Doc", Level: doctree.Level1, Page: 1, Body: strings.Repeat("word ", 200)}}
	if chunks := ChunkOutline("", roots, Config{}); len(chunks) < 1 {
		t.Errorf("expected at least 1 chunk with zero config, got %d", len(chunks))
	}
}

func TestChunkOutline_HeadingWithoutBody(t *testing.T) {
	roots := []*doctree.OutlineNode{
		{
			Text:  "Container",
			Level: doctree.Level1,
			Page:  1,
			Children: []*doctree.OutlineNode{
				{Text: "Leaf", Level: doctree.Level2, Page: 1, Body: strings.Repeat("leaf content ", 100)},
			},
		},
	}
	chunks := ChunkOutline("", roots, Config{ChunkSize: 2000, ChunkOverlap: 100, MinChunk: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if bc := chunks[0].Breadcrumb; len(bc) != 2 || bc[0] != "Container" || bc[1] != "Leaf" {
		t.Errorf("expected breadcrumb [Container Leaf], got %v", bc)
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Error("expected 0 tokens for empty text")
	}
	if got := EstimateTokens("one two three"); got != 3 {
		t.Errorf("expected 3 tokens, got %d", got)
	}
	if got := EstimateTokens("x"); got != 1 {
		t.Errorf("expected at least 1 token, got %d", got)
	}
}

func TestSplitText_LongLineSplitsBySentence(t *testing.T) {
	line := strings.TrimSpace(strings.Repeat("Revenue grew in every region this year. ", 100))
	parts := splitText("Short lead line.\n"+line, 100, 20)
	if len(parts) < 3 {
		t.Fatalf("expected the long line to split into several parts, got %d", len(parts))
	}
	if parts[0] != "Short lead line." {
		t.Errorf("expected lead line to be flushed on its own, got %q", parts[0])
	}
	for i, p := range parts[1:] {
		if !strings.HasSuffix(p, ".") {
			t.Errorf("part %d: expected to end on a sentence boundary, got %q", i+1, p)
		}
	}
}

func TestPack_CarriesOverlap(t *testing.T) {
	units := []string{"alpha beta gamma delta", "epsilon zeta eta theta"}
	parts := pack(units, "\n", 6, 3)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d: %q", len(parts), parts)
	}
	if !strings.HasPrefix(parts[1], "gamma delta") {
		t.Errorf("expected second part to start with overlap, got %q", parts[1])
	}
}

func TestSentences(t *testing.T) {
	got := sentences("One. Two! Three? Four")
	want := []string{"One.", "Two!", "Three?", "Four"}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
