package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xxxsen/hanzinote/internal/model"
)

// SplitterOptions tune the segment-mode splitting heuristics. The comma
// threshold intentionally stays configurable; 3 is the default that works for
// textbook prose.
type SplitterOptions struct {
	// CommaMinLeft is the minimum rune length of the left fragment for a comma
	// to act as a split point.
	CommaMinLeft int
	// MinFragmentLen merges any shorter fragment with the next one and
	// re-splits, correcting fragments broken by stray OCR line wraps.
	MinFragmentLen int
	// TitleScanLines bounds title detection to the first N lines; title-like
	// lines deeper in the body are ordinary content.
	TitleScanLines int
}

func DefaultSplitterOptions() SplitterOptions {
	return SplitterOptions{
		CommaMinLeft:   3,
		MinFragmentLen: 6,
		TitleScanLines: 3,
	}
}

// SplitResult carries the ordered unit texts plus the provenance the page
// processing record keeps for diagnostics.
type SplitResult struct {
	Segments  []string
	Titles    []string
	Reordered string
}

type Splitter struct {
	opts SplitterOptions
}

func NewSplitter(opts SplitterOptions) *Splitter {
	def := DefaultSplitterOptions()
	if opts.CommaMinLeft <= 0 {
		opts.CommaMinLeft = def.CommaMinLeft
	}
	if opts.MinFragmentLen <= 0 {
		opts.MinFragmentLen = def.MinFragmentLen
	}
	if opts.TitleScanLines <= 0 {
		opts.TitleScanLines = def.TitleScanLines
	}
	return &Splitter{opts: opts}
}

// Split turns cleaned text into an ordered unit sequence. Paragraph mode hands
// the whole text over as a single unit and lets the remote model decompose it;
// segment mode detects titles, splits sentences on punctuation and reorders
// titles to the front. Never returns an empty sequence for non-empty input.
func (s *Splitter) Split(cleaned string, mode model.ProcessingMode) SplitResult {
	text := strings.TrimSpace(cleaned)
	if text == "" {
		return SplitResult{}
	}
	if mode == model.ModeParagraph {
		return SplitResult{Segments: []string{text}, Reordered: text}
	}

	lines := splitLines(text)
	titles, body := s.detectTitles(lines)

	var frags []string
	for _, line := range body {
		frags = append(frags, s.splitByPunct(line)...)
	}
	frags = s.mergeShort(frags)

	segments := make([]string, 0, len(titles)+len(frags))
	segments = append(segments, titles...)
	segments = append(segments, frags...)
	if len(segments) == 0 {
		segments = []string{text}
	}

	reordered := make([]string, 0, len(titles)+len(body))
	reordered = append(reordered, titles...)
	reordered = append(reordered, body...)
	return SplitResult{
		Segments:  segments,
		Titles:    titles,
		Reordered: strings.Join(reordered, "\n"),
	}
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func (s *Splitter) detectTitles(lines []string) (titles []string, body []string) {
	for i, line := range lines {
		if i < s.opts.TitleScanLines && s.isTitleLine(line) {
			titles = append(titles, line)
			continue
		}
		body = append(body, line)
	}
	return titles, body
}

var (
	reNumberedHeading = regexp.MustCompile(`^(\d{1,2}|[一二三四五六七八九十]{1,3})[、.．]`)
	reLessonMarker    = regexp.MustCompile(`^(第[一二三四五六七八九十百\d]+\s*(课|課|单元|單元|章|节|節|讲|講|篇))|(?i)^((lesson|unit|chapter)\s*\d+)`)
)

var titleBrackets = map[rune]rune{
	'《': '》',
	'【': '】',
	'[': ']',
	'「': '」',
	'『': '』',
	'〈': '〉',
	'<': '>',
}

const (
	sentenceEndPunct = "。！？!?．"
	clausePunct      = "，,、；;：:"
)

func (s *Splitter) isTitleLine(line string) bool {
	if bracketWrapped(line) {
		return true
	}
	if allCapsLatin(line) {
		return true
	}
	if bannerEdged(line) {
		return true
	}
	if reNumberedHeading.MatchString(line) {
		return true
	}
	if reLessonMarker.MatchString(line) {
		return true
	}
	n := runeLen(line)
	if n >= 2 && n <= 8 && HasChinese(line) &&
		!strings.ContainsAny(line, sentenceEndPunct) &&
		!strings.ContainsAny(line, clausePunct) &&
		!strings.Contains(line, ".") {
		return true
	}
	return false
}

func bracketWrapped(line string) bool {
	runes := []rune(line)
	if len(runes) < 3 {
		return false
	}
	closer, ok := titleBrackets[runes[0]]
	return ok && runes[len(runes)-1] == closer
}

func allCapsLatin(line string) bool {
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if r > unicode.MaxASCII || !unicode.IsUpper(r) {
				return false
			}
			letters++
			continue
		}
		if !unicode.IsSpace(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return letters >= 2
}

// bannerEdged matches decorated headings like "***你好***" or "==第一课==".
func bannerEdged(line string) bool {
	runes := []rune(line)
	if len(runes) < 5 {
		return false
	}
	edge := runes[0]
	if unicode.IsLetter(edge) || unicode.IsDigit(edge) || unicode.IsSpace(edge) {
		return false
	}
	if runes[1] != edge {
		return false
	}
	return runes[len(runes)-1] == edge && runes[len(runes)-2] == edge
}

var quotePairs = map[rune]rune{
	'“': '”',
	'‘': '’',
	'「': '」',
	'『': '』',
	'"': '"',
}

// splitByPunct cuts one line into punctuation-delimited fragments. Sentence
// enders always split; a comma splits only when the left fragment is long
// enough; quoted spans stay intact regardless of internal punctuation.
func (s *Splitter) splitByPunct(line string) []string {
	var frags []string
	var cur []rune
	var pending rune // closing quote we are inside of, 0 when outside

	flush := func() {
		if t := strings.TrimSpace(string(cur)); t != "" {
			frags = append(frags, t)
		}
		cur = cur[:0]
	}

	for _, r := range line {
		cur = append(cur, r)
		if pending != 0 {
			if r == pending {
				pending = 0
			}
			continue
		}
		if closer, ok := quotePairs[r]; ok {
			pending = closer
			continue
		}
		if strings.ContainsRune(sentenceEndPunct, r) || r == '.' {
			flush()
			continue
		}
		if (r == '，' || r == ',') && len(cur)-1 >= s.opts.CommaMinLeft {
			flush()
		}
	}
	flush()
	return frags
}

// mergeShort joins fragments below the minimum length with their successors
// and re-splits the combined string by the punctuation rule.
func (s *Splitter) mergeShort(frags []string) []string {
	out := make([]string, 0, len(frags))
	for i := 0; i < len(frags); i++ {
		cur := frags[i]
		merged := false
		for runeLen(cur) < s.opts.MinFragmentLen && i+1 < len(frags) {
			i++
			cur += frags[i]
			merged = true
		}
		if merged {
			out = append(out, s.splitByPunct(cur)...)
			continue
		}
		out = append(out, cur)
	}
	return out
}
