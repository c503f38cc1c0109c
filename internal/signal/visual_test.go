package signal

import (
	"testing"

	"github.com/dgallion1/docoutline/internal/aggregate"
	"github.com/dgallion1/docoutline/internal/doctree"
)

func textRun(text string, y, size float64, w doctree.Weight) doctree.TextRun {
	return doctree.TextRun{
		Text:     text,
		BBox:     doctree.BBox{X0: 72, Y0: y, X1: 72 + float64(len(text))*size*0.5, Y1: y + size},
		FontSize: size,
		Weight:   w,
	}
}

func aggregated(runs ...doctree.TextRun) aggregate.Result {
	return aggregate.Aggregate(&doctree.Document{
		Pages: []doctree.Page{{Width: 612, Height: 792, Runs: runs}},
	})
}

func TestVisual_LargerTextScoresHigher(t *testing.T) {
	res := aggregated(
		textRun("Annual Report", 60, 24, doctree.WeightBold),
		textRun("Body paragraph text that runs across the page width.", 120, 12, doctree.WeightRegular),
		textRun("More body paragraph text that continues the section.", 134, 12, doctree.WeightRegular),
		textRun("Financial Results", 200, 16, doctree.WeightBold),
		textRun("Closing body text that keeps the baseline at twelve.", 240, 12, doctree.WeightRegular),
	)
	if len(res.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(res.Blocks))
	}
	title := Visual{}.Score(res.Blocks[0], res.Context)
	body := Visual{}.Score(res.Blocks[1], res.Context)
	sub := Visual{}.Score(res.Blocks[2], res.Context)

	if !(title.Score > sub.Score && sub.Score > body.Score) {
		t.Errorf("expected title > subheading > body, got %v, %v, %v", title.Score, sub.Score, body.Score)
	}
	if title.Level != doctree.Level1 {
		t.Errorf("expected title bucket H1, got %d", title.Level)
	}
	if body.Level != doctree.Level3 {
		t.Errorf("expected body bucket level 3, got %d", body.Level)
	}
	for _, s := range []doctree.SignalScore{title, body, sub} {
		if s.Score < 0 || s.Score > 1 {
			t.Errorf("expected score in [0,1], got %v", s.Score)
		}
	}
}

func TestVisual_UnknownWeightIsNeutral(t *testing.T) {
	if weightScore(doctree.WeightUnknown) != 0.5 {
		t.Errorf("expected neutral 0.5, got %v", weightScore(doctree.WeightUnknown))
	}
	if !(weightScore(doctree.WeightBold) > weightScore(doctree.WeightUnknown) &&
		weightScore(doctree.WeightUnknown) > weightScore(doctree.WeightRegular)) {
		t.Error("expected bold > unknown > regular")
	}
}

func TestSizeScore_Monotonic(t *testing.T) {
	prev := -1.0
	for z := -3.0; z <= 5; z += 0.5 {
		s := sizeScore(z)
		if s <= prev {
			t.Fatalf("expected increasing size score at z=%v, got %v after %v", z, s, prev)
		}
		prev = s
	}
	if sizeScore(1) != 0.5 {
		t.Errorf("expected 0.5 at z=1, got %v", sizeScore(1))
	}
}

func TestPositionScore_UnknownGeometryIsNeutral(t *testing.T) {
	got := positionScore(doctree.TextBlock{BBox: doctree.BBox{X0: 0, Y0: 10, X1: 50, Y1: 20}}, &aggregate.PageStats{})
	if got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}
