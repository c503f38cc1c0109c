package signal

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docoutline/internal/aggregate"
	"github.com/dgallion1/docoutline/internal/doctree"
)

// Heading text length limits, in runes.
const (
	MinHeadingLength = 3
	MaxHeadingLength = 200
)

// Pattern scores.
const (
	scoreNumberedDeep = 0.90
	scoreNumbered     = 0.80
	scoreKeyword      = 0.85
	scoreRoman        = 0.75
	scoreAllCaps      = 0.70
	scoreLetter       = 0.60
)

var (
	numberedRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})*)\.?\s+(\S.*)$`)
	keywordRe  = regexp.MustCompile(`(?i)^(chapter|part|section|appendix)\s+([0-9]{1,3}|[ivxlcdm]{1,6}|[a-z])\b`)
	bulletRe   = regexp.MustCompile(`^[•·▪◦‣●○■□*–—-]\s*`)

	// enumRe matches letter and Roman numeral prefixes such as "B." or "IV)".
	enumRe = regexp.MustCompile(`^([A-Z]{1,6})[.)]\s+(\S.*)$`)
)

// Pattern detects explicit structural markers in block text. It is
// deterministic and always enabled.
type Pattern struct{}

// Score implements Extractor.
func (Pattern) Score(b doctree.TextBlock, _ *aggregate.Context) doctree.SignalScore {
	level, score := Classify(b.Text)
	return doctree.SignalScore{Available: true, Score: score, Level: level}
}

// Classify returns the committed level and score for a piece of heading text.
// A zero score with LevelNone means the pattern signal abstains.
func Classify(text string) (doctree.Level, float64) {
	text = strings.TrimSpace(text)
	n := len([]rune(text))
	if n < MinHeadingLength || n > MaxHeadingLength {
		return doctree.LevelNone, 0
	}
	if bulletRe.MatchString(text) {
		return doctree.LevelNone, 0
	}

	if m := numberedRe.FindStringSubmatch(text); m != nil {
		return numbered(m[1], m[2])
	}
	if keywordRe.MatchString(text) && !sentenceLike(text, 15) {
		return doctree.Level1, scoreKeyword
	}
	if prefix, ok := enumPrefix(text); ok {
		// A single letter reads as a letter item even when it is also a
		// Roman numeral; ResolveEnumerations revisits it with its siblings.
		if len(prefix) == 1 {
			return doctree.Level2, scoreLetter
		}
		if _, roman := romanValue(prefix); roman {
			return doctree.Level1, scoreRoman
		}
	}
	if IsAllCaps(text) && wordCount(text) <= 8 && !endsWithPunct(text) {
		return doctree.Level1, scoreAllCaps
	}
	return doctree.LevelNone, 0
}

// enumPrefix returns the letter or numeral prefix of an enumerated heading.
func enumPrefix(text string) (string, bool) {
	m := enumRe.FindStringSubmatch(text)
	if m == nil || !startsUpper(m[2]) || sentenceLike(m[2], 12) {
		return "", false
	}
	return m[1], true
}

// ResolveEnumerations re-reads single-letter prefixes that are also Roman
// numerals (C, D, I, L, M, V, X) against the rest of the document. Such a
// block becomes a level 1 Roman item only when a multi-letter numeral
// adjacent in value exists ("I." next to "II.") and no alphabetically
// adjacent letter item does ("C." next to "B." or "D."). scores must be
// the Pattern scores of blocks, in order; it is updated in place.
func ResolveEnumerations(blocks []doctree.TextBlock, scores []doctree.SignalScore) {
	letters := make(map[byte]bool)
	numerals := make(map[int]bool)
	for _, b := range blocks {
		prefix, ok := enumPrefix(strings.TrimSpace(b.Text))
		if !ok {
			continue
		}
		if len(prefix) == 1 {
			letters[prefix[0]] = true
		} else if v, roman := romanValue(prefix); roman {
			numerals[v] = true
		}
	}
	if len(numerals) == 0 {
		return
	}
	for i, b := range blocks {
		if scores[i].Level != doctree.Level2 || scores[i].Score != scoreLetter {
			continue
		}
		prefix, ok := enumPrefix(strings.TrimSpace(b.Text))
		if !ok || len(prefix) != 1 {
			continue
		}
		v, roman := romanValue(prefix)
		if !roman || letters[prefix[0]-1] || letters[prefix[0]+1] {
			continue
		}
		if numerals[v-1] || numerals[v+1] {
			scores[i].Level = doctree.Level1
			scores[i].Score = scoreRoman
		}
	}
}

var romanDigits = []struct {
	value int
	text  string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// romanValue parses a canonical upper-case Roman numeral below 4000.
func romanValue(s string) (int, bool) {
	rest, v := s, 0
	for _, d := range romanDigits {
		for strings.HasPrefix(rest, d.text) {
			v += d.value
			rest = rest[len(d.text):]
		}
	}
	if rest != "" || v == 0 || v >= 4000 || toRoman(v) != s {
		return 0, false
	}
	return v, true
}

func toRoman(v int) string {
	var b strings.Builder
	for _, d := range romanDigits {
		for v >= d.value {
			b.WriteString(d.text)
			v -= d.value
		}
	}
	return b.String()
}

// numbered handles "2", "2.", "2.3", "2.3.1" prefixes. Depth beyond three
// levels is clamped.
func numbered(prefix, rest string) (doctree.Level, float64) {
	depth := strings.Count(prefix, ".") + 1
	first, _ := firstLetter(rest)
	if !unicode.IsLetter(first) {
		return doctree.LevelNone, 0
	}
	if depth == 1 {
		if !unicode.IsUpper(first) || sentenceLike(rest, 12) || strings.HasSuffix(rest, ".") {
			return doctree.LevelNone, 0
		}
		return doctree.Level1, scoreNumbered
	}
	if sentenceLike(rest, 15) {
		return doctree.LevelNone, 0
	}
	return doctree.ClampLevel(depth), scoreNumberedDeep
}

// IsAllCaps reports whether at least 90% of the cased letters are upper case.
func IsAllCaps(text string) bool {
	upper, lower := 0, 0
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		}
	}
	if upper+lower < 3 {
		return false
	}
	return lower == 0 || float64(upper)/float64(upper+lower) > 0.9
}

func sentenceLike(text string, maxWords int) bool {
	text = strings.TrimSpace(text)
	if wordCount(text) > maxWords {
		return true
	}
	return strings.HasSuffix(text, ",") || strings.HasSuffix(text, ";")
}

func endsWithPunct(text string) bool {
	return strings.ContainsAny(text[len(text)-1:], ".,;:!?")
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func startsUpper(text string) bool {
	r, ok := firstLetter(text)
	return ok && unicode.IsUpper(r)
}

func firstLetter(text string) (rune, bool) {
	for _, r := range text {
		if unicode.IsSpace(r) || r == '"' || r == '\'' || r == '(' {
			continue
		}
		return r, true
	}
	return 0, false
}
