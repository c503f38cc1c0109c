package parser

import "testing"

func TestWrap(t *testing.T) {
	got := wrap("alpha beta gamma\ndelta", 11)
	want := []string{"alpha beta", "gamma", "delta"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLayout_WrappedParagraphBreaksOnce(t *testing.T) {
	l := newLayout()
	long := ""
	for i := 0; i < 40; i++ {
		long += "word "
	}
	l.add(body(long))
	l.add(para{text: "Next", size: headingSize(2)})
	doc := l.document()

	runs := doc.Pages[0].Runs
	if len(runs) < 3 {
		t.Fatalf("expected a wrapped paragraph plus a heading, got %d runs", len(runs))
	}
	breaks := 0
	for _, r := range runs {
		if r.Break {
			breaks++
		}
	}
	if breaks != 2 {
		t.Errorf("expected 2 block starts, got %d", breaks)
	}
	if last := runs[len(runs)-1]; last.FontSize != 18 {
		t.Errorf("expected heading size 18, got %v", last.FontSize)
	}
}

func TestHeadingSize(t *testing.T) {
	tests := map[int]float64{0: sizeBody, 1: 24, 2: 18, 3: 15, 6: 13, 9: 13}
	for level, want := range tests {
		if got := headingSize(level); got != want {
			t.Errorf("headingSize(%d): expected %v, got %v", level, want, got)
		}
	}
}
