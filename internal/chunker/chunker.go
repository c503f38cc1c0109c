// Package chunker turns an outline tree into sized section chunks with heading
// breadcrumbs, the input of the persona ranking stage.
package chunker

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Minimum chunk size to emit.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

// ChunkOutline walks the outline tree and produces section chunks. Body text
// that precedes the first heading becomes an unlabeled chunk on page 1.
func ChunkOutline(preamble string, roots []*doctree.OutlineNode, cfg Config) []doctree.Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1500
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = 200
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 100
	}

	var chunks []doctree.Chunk
	index := emit(preamble, nil, 1, 1, cfg, &chunks, 0)
	for _, root := range roots {
		index = walkNode(root, nil, cfg, &chunks, index)
	}
	return chunks
}

// walkNode visits a heading, chunks its body, then its children.
func walkNode(node *doctree.OutlineNode, breadcrumb []string, cfg Config, chunks *[]doctree.Chunk, index int) int {
	bc := make([]string, 0, len(breadcrumb)+1)
	bc = append(bc, breadcrumb...)
	if node.Text != "" {
		bc = append(bc, node.Text)
	}

	index = emit(node.Body, bc, node.Page, max(node.PageEnd, node.Page), cfg, chunks, index)
	for _, child := range node.Children {
		index = walkNode(child, bc, cfg, chunks, index)
	}
	return index
}

// emit appends the chunks of one section body and returns the next index.
func emit(text string, bc []string, pageStart, pageEnd int, cfg Config, chunks *[]doctree.Chunk, index int) int {
	if strings.TrimSpace(text) == "" {
		return index
	}
	parts := []string{text}
	if EstimateTokens(text) > cfg.ChunkSize {
		parts = splitText(text, cfg.ChunkSize, cfg.ChunkOverlap)
	}
	for _, part := range parts {
		if EstimateTokens(part) < cfg.MinChunk {
			continue
		}
		*chunks = append(*chunks, doctree.Chunk{
			Text:       part,
			Index:      index,
			Breadcrumb: copyBreadcrumb(bc),
			PageStart:  pageStart,
			PageEnd:    pageEnd,
		})
		index++
	}
	return index
}

// splitText breaks a section body into pieces of about targetTokens. Lines
// are packed whole; a line longer than the target is packed by sentence.
func splitText(text string, targetTokens, overlapTokens int) []string {
	var result, pending []string
	for _, line := range bodyLines(text) {
		if EstimateTokens(line) <= targetTokens {
			pending = append(pending, line)
			continue
		}
		result = append(result, pack(pending, "\n", targetTokens, overlapTokens)...)
		pending = nil
		result = append(result, pack(sentences(line), " ", targetTokens, overlapTokens)...)
	}
	return append(result, pack(pending, "\n", targetTokens, overlapTokens)...)
}

// pack joins units with sep into pieces no larger than targetTokens unless a
// single unit already is. Each new piece starts with the trailing
// overlapTokens of the previous one.
func pack(units []string, sep string, targetTokens, overlapTokens int) []string {
	var (
		out    []string
		cur    strings.Builder
		tokens int
	)
	for _, u := range units {
		n := EstimateTokens(u)
		if tokens > 0 && tokens+n > targetTokens {
			prev := cur.String()
			out = append(out, prev)
			cur.Reset()
			tokens = 0
			if tail := overlapTail(prev, overlapTokens); tail != "" {
				cur.WriteString(tail)
				tokens = EstimateTokens(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(u)
		tokens += n
	}
	if tokens > 0 {
		out = append(out, cur.String())
	}
	return out
}

// bodyLines returns the non-blank lines of a section body; bodies hold one
// text block per line.
func bodyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// sentences splits on terminal punctuation followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// overlapTail returns the last overlapTokens worth of words of text, or ""
// when text is not longer than that.
func overlapTail(text string, overlapTokens int) string {
	words := strings.Fields(text)
	n := int(float64(overlapTokens) / tokensPerWord)
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	return append([]string(nil), bc...)
}
