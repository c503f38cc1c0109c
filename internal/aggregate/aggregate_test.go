package aggregate

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// line builds a run occupying one text line starting at y.
func line(text string, y, size float64) doctree.TextRun {
	return doctree.TextRun{
		Text:     text,
		BBox:     doctree.BBox{X0: 72, Y0: y, X1: 72 + float64(len(text))*size*0.5, Y1: y + size},
		FontSize: size,
	}
}

func doc(pages ...[]doctree.TextRun) *doctree.Document {
	d := &doctree.Document{Name: "test"}
	for i, runs := range pages {
		d.Pages = append(d.Pages, doctree.Page{Index: i, Width: 612, Height: 792, Runs: runs})
	}
	return d
}

func TestAggregate_SameLineRunsJoinWithSpace(t *testing.T) {
	a := doctree.TextRun{Text: "Hello", BBox: doctree.BBox{X0: 72, Y0: 100, X1: 102, Y1: 112}, FontSize: 12}
	b := doctree.TextRun{Text: "world", BBox: doctree.BBox{X0: 105, Y0: 100, X1: 135, Y1: 112}, FontSize: 12}

	res := Aggregate(doc([]doctree.TextRun{a, b}))
	if len(res.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(res.Blocks))
	}
	if res.Blocks[0].Text != "Hello world" {
		t.Errorf("expected %q, got %q", "Hello world", res.Blocks[0].Text)
	}
	if res.Blocks[0].BBox.X1 != 135 {
		t.Errorf("expected union X1 135, got %v", res.Blocks[0].BBox.X1)
	}
}

func TestAggregate_ParagraphLinesMergeAndHeadingSplits(t *testing.T) {
	runs := []doctree.TextRun{
		line("Introduction", 72, 18),
		line("The first line of the para-", 110, 12),
		line("graph continues here and", 124, 12),
		line("ends on the third line.", 138, 12),
		line("Second paragraph after a gap.", 180, 12),
	}
	res := Aggregate(doc(runs))

	if len(res.Blocks) != 3 {
		for _, b := range res.Blocks {
			t.Logf("block: %q", b.Text)
		}
		t.Fatalf("expected 3 blocks, got %d", len(res.Blocks))
	}
	want := "The first line of the paragraph continues here and ends on the third line."
	if res.Blocks[1].Text != want {
		t.Errorf("expected %q, got %q", want, res.Blocks[1].Text)
	}
	if res.Blocks[1].Lines != 3 {
		t.Errorf("expected 3 lines, got %d", res.Blocks[1].Lines)
	}
	if res.Blocks[2].SpaceBefore <= 0 {
		t.Errorf("expected positive space before second paragraph, got %v", res.Blocks[2].SpaceBefore)
	}
	for i, b := range res.Blocks {
		if b.Index != i {
			t.Errorf("expected index %d, got %d", i, b.Index)
		}
	}
}

func TestAggregate_DifferentSizesDoNotMerge(t *testing.T) {
	runs := []doctree.TextRun{
		line("Heading", 72, 16),
		line("Body text directly below", 89, 12),
	}
	res := Aggregate(doc(runs))
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
}

func TestAggregate_EmptyAndSingleRunPages(t *testing.T) {
	res := Aggregate(doc(nil, []doctree.TextRun{line("Only line", 100, 12)}, []doctree.TextRun{{Text: "   "}}))
	if len(res.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(res.Blocks))
	}
	if res.Blocks[0].Page != 1 {
		t.Errorf("expected page index 1, got %d", res.Blocks[0].Page)
	}
	if res.Context.PageCount != 3 {
		t.Errorf("expected page count 3, got %d", res.Context.PageCount)
	}
}

func TestAggregate_BodyBaselineIsCharacterWeightedMode(t *testing.T) {
	runs := []doctree.TextRun{
		line("Big Title", 72, 24),
		line("A fairly long line of body text that dominates the page.", 120, 11),
		line("Another long line of body text at the same body size.", 134, 11),
	}
	res := Aggregate(doc(runs))
	if res.Context.BodySize != 11 {
		t.Errorf("expected body size 11, got %v", res.Context.BodySize)
	}
	if !res.Context.FontInfo {
		t.Error("expected font info to be available")
	}
	if res.Context.SizeSpread < 1.1 {
		t.Errorf("expected spread floored at 0.1*body or more, got %v", res.Context.SizeSpread)
	}
}

func TestAggregate_MissingFontSizeUsesBaseline(t *testing.T) {
	withSize := line("Sized body text on page one", 100, 10)
	noSize := line("Unsized text", 100, 10)
	noSize.FontSize = 0

	res := Aggregate(doc([]doctree.TextRun{withSize}, []doctree.TextRun{noSize}))
	if res.Context.FontInfo {
		t.Error("expected FontInfo false when a page has no font sizes")
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	b := res.Blocks[1]
	if b.FontSize != 10 {
		t.Errorf("expected substituted size 10, got %v", b.FontSize)
	}
	if b.SizeKnown {
		t.Error("expected SizeKnown false for substituted size")
	}
}

func TestAggregate_NoSizesAnywhereUsesDefault(t *testing.T) {
	r := line("plain text", 0, 12)
	r.FontSize = 0
	res := Aggregate(doc([]doctree.TextRun{r}))
	if res.Context.BodySize != DefaultBodySize {
		t.Errorf("expected default body size %v, got %v", DefaultBodySize, res.Context.BodySize)
	}
}

func TestAggregate_RunningHeadersMarked(t *testing.T) {
	var pages [][]doctree.TextRun
	for i := 0; i < 4; i++ {
		pages = append(pages, []doctree.TextRun{
			line("ACME Annual Report", 20, 9),
			line("Unique body text for this page number "+string(rune('A'+i)), 200, 12),
		})
	}
	res := Aggregate(doc(pages...))
	for _, b := range res.Blocks {
		header := b.Text == "ACME Annual Report"
		if header && !b.Running {
			t.Errorf("expected header on page %d to be running", b.Page)
		}
		if !header && b.Running {
			t.Errorf("expected body %q not to be running", b.Text)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  spaced \t out\n", "spaced out"},
		{"ﬁle", "file"},
		{"a\u0000b", "ab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestQuantile(t *testing.T) {
	sorted := []float64{10, 12, 14, 16, 18}
	if got := Quantile(sorted, 0.5); got != 14 {
		t.Errorf("expected median 14, got %v", got)
	}
	if got := Quantile(sorted, 0.9); got < 17.19 || got > 17.21 {
		t.Errorf("expected p90 17.2, got %v", got)
	}
	if got := Quantile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}
