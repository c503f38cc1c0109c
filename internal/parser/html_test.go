package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
	"golang.org/x/net/html"
)

func TestHTMLParser_HeadingsAndBody(t *testing.T) {
	input := `<html><head><title>Annual Report</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Overview</h1>
<p>Some   body
text.</p>
<h2>Details</h2>
<ul><li>one</li><li>two</li></ul>
<script>var x = 1;</script>
</body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs := doc.Pages[0].Runs
	want := []struct {
		text string
		size float64
	}{
		{"Annual Report", sizeTitle},
		{"Overview", 24},
		{"Some body text.", sizeBody},
		{"Details", 18},
		{"one", sizeBody},
		{"two", sizeBody},
	}
	if len(runs) != len(want) {
		t.Fatalf("expected %d runs, got %d: %v", len(want), len(runs), runTexts(doc))
	}
	for i, w := range want {
		if runs[i].Text != w.text {
			t.Errorf("run[%d]: expected %q, got %q", i, w.text, runs[i].Text)
		}
		if runs[i].FontSize != w.size {
			t.Errorf("run[%d]: expected size %v, got %v", i, w.size, runs[i].FontSize)
		}
	}
}

func TestHTMLParser_TitleMatchingHeadingNotRepeated(t *testing.T) {
	input := `<html><head><title>Guide</title></head><body><h1>Guide</h1><p>text</p></body></html>`
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "guide.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := runTexts(doc)
	if len(got) != 2 || got[0] != "Guide" {
		t.Errorf("expected [Guide text], got %v", got)
	}
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{"h1": 1, "h4": 4, "h6": 6, "p": 0, "header": 0}
	for tag, want := range tests {
		if got := headingLevel(&html.Node{Type: html.ElementNode, Data: tag}); got != want {
			t.Errorf("headingLevel(%q): expected %d, got %d", tag, want, got)
		}
	}
}

func TestHTMLParser_StrongParagraphIsBold(t *testing.T) {
	input := `<body><p><strong>Key Findings</strong></p><p>Plain <b>mixed</b> text.</p></body>`
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(input), "f.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runs := doc.Pages[0].Runs
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d: %v", len(runs), runTexts(doc))
	}
	if runs[0].Weight != doctree.WeightBold {
		t.Errorf("expected strong-only paragraph to be bold, got %v", runs[0].Weight)
	}
	if runs[1].Weight != doctree.WeightRegular {
		t.Errorf("expected mixed paragraph to stay regular, got %v", runs[1].Weight)
	}
}
