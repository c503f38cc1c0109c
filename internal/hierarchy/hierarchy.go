// Package hierarchy turns scored candidates into the outline tree and title.
package hierarchy

import (
	"strings"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// Result is the built tree with its title.
type Result struct {
	Title string
	// TitleIndex is the block index used as title, -1 when none.
	TitleIndex int
	Roots      []*doctree.OutlineNode
	// Preamble is body text that precedes the first heading.
	Preamble string
	// LevelSkips counts nodes attached more than one level below their parent.
	LevelSkips int
}

// Build consumes candidates in reading order. It never fails: documents
// without headings produce no roots.
func Build(cands []doctree.Candidate) Result {
	res := Result{TitleIndex: -1}
	if idx := selectTitle(cands); idx >= 0 {
		res.TitleIndex = idx
		res.Title = cands[idx].Block.Text
	}

	var stack []*doctree.OutlineNode
	var preamble strings.Builder
	var current *doctree.OutlineNode
	bodies := make(map[*doctree.OutlineNode]*strings.Builder)

	for i, c := range cands {
		if i == res.TitleIndex {
			continue
		}
		page := c.Block.Page + 1
		if !c.IsHeading() {
			if current != nil {
				appendText(bodies[current], c.Block.Text)
				current.PageEnd = max(current.PageEnd, page)
			} else {
				appendText(&preamble, c.Block.Text)
			}
			continue
		}

		node := &doctree.OutlineNode{
			Text:    c.Block.Text,
			Level:   c.Level,
			Page:    page,
			PageEnd: page,
		}
		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}
		parentLevel := doctree.LevelNone
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, node)
			parentLevel = parent.Level
		} else {
			res.Roots = append(res.Roots, node)
		}
		if node.Level-parentLevel > 1 {
			node.Skip = true
			res.LevelSkips++
		}
		stack = append(stack, node)
		current = node
		bodies[node] = &strings.Builder{}
	}
	for n, b := range bodies {
		n.Body = b.String()
	}
	res.Preamble = preamble.String()
	return res
}

// selectTitle returns the highest-confidence level-1 candidate on page 1,
// else the largest-font block on page 1. Ties keep the earliest block. A
// document whose first page has no text gets no title.
func selectTitle(cands []doctree.Candidate) int {
	if len(cands) == 0 {
		return -1
	}
	const first = 0

	best := -1
	for i, c := range cands {
		if c.Block.Page != first {
			break
		}
		if c.Level == doctree.Level1 && (best < 0 || c.Confidence > cands[best].Confidence) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}

	for i, c := range cands {
		if c.Block.Page != first {
			break
		}
		if c.Block.Running {
			continue
		}
		if best < 0 || c.Block.FontSize > cands[best].Block.FontSize {
			best = i
		}
	}
	return best
}

// Flatten lists the tree depth-first in the output format.
func Flatten(title string, roots []*doctree.OutlineNode) doctree.Outline {
	out := doctree.Empty(title)
	stack := make([]*doctree.OutlineNode, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Entries = append(out.Entries, doctree.Entry{
			Level: n.Level.Label(),
			Text:  n.Text,
			Page:  max(n.Page, 1),
		})
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

func appendText(b *strings.Builder, text string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(text)
}
