package doctree

// BBox is a rectangle in page space. Y grows downward from the top of the page.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the horizontal extent.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Union returns the smallest box containing both boxes.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}

// Weight is a best-effort font weight. Sources that cannot tell report WeightUnknown.
type Weight int8

const (
	WeightUnknown Weight = iota
	WeightRegular
	WeightBold
)

// TextRun is one positioned piece of text as delivered by a run source.
// Runs are created once and never mutated.
type TextRun struct {
	Text       string
	Page       int // 0-based page index
	BBox       BBox
	FontFamily string
	FontSize   float64 // 0 when the source could not supply it
	Weight     Weight
	Italic     bool
	Baseline   float64
	Break      bool // the source knows this run starts a new block
}

// Page is the ordered run sequence for one page.
type Page struct {
	Index  int
	Width  float64 // 0 when unknown
	Height float64 // 0 when unknown
	Runs   []TextRun
}

// Document is the input boundary of the outline core.
type Document struct {
	Name  string
	Hash  string // content hash of the source bytes, empty if not computed
	Pages []Page
}

// RunCount returns the total number of runs across all pages.
func (d *Document) RunCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Runs)
	}
	return n
}

// TextBlock is a merged line or paragraph produced by the run aggregator.
type TextBlock struct {
	Index       int // position in reading order
	Text        string
	Page        int
	BBox        BBox
	FontFamily  string
	FontSize    float64
	SizeKnown   bool // false when FontSize was substituted with the body baseline
	Weight      Weight
	Italic      bool
	SpaceBefore float64 // gap to previous block on the same page, 0 for the first
	SpaceAfter  float64 // gap to next block on the same page, 0 for the last
	Lines       int
	Running     bool // repeated header/footer text
}

// Source identifies a signal extractor.
type Source string

const (
	SourcePattern  Source = "pattern"
	SourceVisual   Source = "visual"
	SourceSemantic Source = "semantic"
)

// Level is a heading level. LevelNone means "not a heading".
type Level int

const (
	LevelNone Level = 0
	Level1    Level = 1
	Level2    Level = 2
	Level3    Level = 3
)

// Label returns the wire label ("H1".."H3").
func (l Level) Label() string {
	switch l {
	case Level1:
		return "H1"
	case Level2:
		return "H2"
	case Level3:
		return "H3"
	default:
		return ""
	}
}

// ClampLevel maps any depth onto the supported 1..3 range.
func ClampLevel(depth int) Level {
	switch {
	case depth <= 0:
		return LevelNone
	case depth >= 3:
		return Level3
	default:
		return Level(depth)
	}
}

// SignalScore is one extractor's opinion about one block.
type SignalScore struct {
	Available bool    // false when the extractor was not active for this document
	Score     float64 // heading likelihood in [0,1]
	Level     Level   // suggested level, LevelNone when the extractor abstains
}

// Evidence is the fixed-shape record the confidence scorer consumes.
type Evidence struct {
	Pattern  SignalScore
	Visual   SignalScore
	Semantic SignalScore
}

// Candidate is a block with its fused confidence and chosen level.
type Candidate struct {
	Block       TextBlock
	Confidence  float64
	Level       Level
	LevelSource Source // which signal decided Level, empty when not a heading
}

// IsHeading reports whether the scorer promoted the block to a heading.
func (c Candidate) IsHeading() bool { return c.Level != LevelNone }

// OutlineNode is a heading in the final tree.
type OutlineNode struct {
	Text     string
	Level    Level
	Page     int    // 1-based
	Skip     bool   // attached more than one level below its parent
	Body     string // text of non-heading blocks that follow this heading
	PageEnd  int
	Children []*OutlineNode
}

// Entry is one flattened outline item in the output format.
type Entry struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Outline is the stable output structure. Outline is never nil.
type Outline struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"outline"`
}

// Empty returns a well-formed outline with no headings.
func Empty(title string) Outline {
	return Outline{Title: title, Entries: []Entry{}}
}

// Chunk is a sized text segment with its heading breadcrumb, ready for ranking.
type Chunk struct {
	Text       string   // Chunk text content
	Index      int      // Sequence number within document
	Breadcrumb []string // Heading hierarchy, e.g. ["Financial Results", "Revenue", "Q4"]
	PageStart  int
	PageEnd    int
}
