// Package chunk splits normalized document text into overlapping, size-bounded chunks.
package chunk

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is a contiguous span of document text sized for embedding.
type Chunk struct {
	ID           string
	Text         string
	DocumentName string
	Index        int
	PageNumber   *int // nil when the source has no page information
	WordCount    int
}

// Config bounds chunk construction. Lengths are in characters (runes).
type Config struct {
	Size          int
	Overlap       int
	MinUnitLength int
}

// DefaultConfig returns the production chunking parameters.
func DefaultConfig() Config {
	return Config{Size: 500, Overlap: 80, MinUnitLength: 6}
}

// Chunker is stateless and safe for concurrent use.
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Zero fields take defaults; overlap is kept below size.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 2
	}
	if cfg.MinUnitLength <= 0 {
		cfg.MinUnitLength = def.MinUnitLength
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config { return c.cfg }

type span struct {
	text  string
	start int // rune offset in the normalized text
}

// Chunk splits text into chunks. pageBreaks are ascending rune offsets into the
// normalized text; nil means the source has no pages, an empty slice means one page.
// Blank input yields no chunks.
func (c *Chunker) Chunk(text, documentName string, pageBreaks []int) []Chunk {
	units := c.units(Normalize(text))
	if len(units) == 0 {
		return nil
	}

	pieces := c.pack(units)
	out := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		out = append(out, Chunk{
			ID:           ID(documentName, i),
			Text:         p.text,
			DocumentName: documentName,
			Index:        i,
			PageNumber:   pageAt(pageBreaks, p.start),
			WordCount:    len(strings.Fields(p.text)),
		})
	}
	return out
}

func (c *Chunker) units(norm string) []span {
	var out []span
	for _, u := range splitUnits(norm) {
		if utf8.RuneCountInString(u.text) >= c.cfg.MinUnitLength {
			out = append(out, u)
		}
	}
	return out
}

// pack greedily concatenates units up to Size, seeding each new chunk with
// the tail of the previous one.
func (c *Chunker) pack(units []span) []span {
	var (
		out      []span
		cur      string
		curStart int
		curEnd   int
	)
	flush := func() {
		if cur != "" {
			out = append(out, span{text: cur, start: curStart})
		}
		cur = ""
	}

	for _, u := range units {
		uLen := utf8.RuneCountInString(u.text)
		uEnd := u.start + uLen

		if uLen > c.cfg.Size {
			flush()
			out = append(out, splitWords(u, c.cfg.Size)...)
			continue
		}
		if cur == "" {
			cur, curStart, curEnd = u.text, u.start, uEnd
			continue
		}
		if utf8.RuneCountInString(cur)+1+uLen <= c.cfg.Size {
			cur += " " + u.text
			curEnd = uEnd
			continue
		}

		prev, prevEnd := cur, curEnd
		flush()
		seed := tail(prev, min(c.cfg.Overlap, c.cfg.Size-uLen-1))
		if seed == "" {
			cur, curStart = u.text, u.start
		} else {
			cur = seed + " " + u.text
			curStart = max(0, prevEnd-utf8.RuneCountInString(seed))
		}
		curEnd = uEnd
	}
	flush()
	return out
}

// tail returns at most n trailing runes of s without leading whitespace.
func tail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if n > len(r) {
		n = len(r)
	}
	return strings.TrimLeftFunc(string(r[len(r)-n:]), unicode.IsSpace)
}

// splitWords force-splits an oversized unit on word boundaries. A single word
// longer than size becomes its own piece.
func splitWords(u span, size int) []span {
	var (
		out      []span
		cur      string
		curLen   int
		curStart int
	)
	for _, w := range fieldsWithOffsets(u.text) {
		wLen := utf8.RuneCountInString(w.text)
		if cur == "" {
			cur, curLen, curStart = w.text, wLen, u.start+w.start
			continue
		}
		if curLen+1+wLen <= size {
			cur += " " + w.text
			curLen += 1 + wLen
			continue
		}
		out = append(out, span{text: cur, start: curStart})
		cur, curLen, curStart = w.text, wLen, u.start+w.start
	}
	if cur != "" {
		out = append(out, span{text: cur, start: curStart})
	}
	return out
}

func fieldsWithOffsets(s string) []span {
	var (
		out   []span
		start = -1
		pos   int
		b     strings.Builder
	)
	for _, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, span{text: b.String(), start: start})
				b.Reset()
				start = -1
			}
		} else {
			if start < 0 {
				start = pos
			}
			b.WriteRune(r)
		}
		pos++
	}
	if start >= 0 {
		out = append(out, span{text: b.String(), start: start})
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '؟'
}

// splitUnits cuts after sentence terminators followed by whitespace and after
// blank lines. Units are trimmed; empty units are dropped.
func splitUnits(norm string) []span {
	r := []rune(norm)
	var out []span
	emit := func(from, to int) {
		lead := 0
		for from+lead < to && unicode.IsSpace(r[from+lead]) {
			lead++
		}
		text := strings.TrimSpace(string(r[from:to]))
		if text != "" {
			out = append(out, span{text: text, start: from + lead})
		}
	}

	start := 0
	for i := 0; i < len(r); {
		if isTerminator(r[i]) && i+1 < len(r) && unicode.IsSpace(r[i+1]) {
			j := i + 1
			for j < len(r) && unicode.IsSpace(r[j]) {
				j++
			}
			emit(start, j)
			start, i = j, j
			continue
		}
		if r[i] == '\n' && i+1 < len(r) && r[i+1] == '\n' {
			emit(start, i+2)
			start, i = i+2, i+2
			continue
		}
		i++
	}
	emit(start, len(r))
	return out
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
	unsafeNameRune = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// Normalize unifies line endings, collapses runs of blank lines and horizontal
// whitespace, and trims the result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = horizontalRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// SafeName replaces every character outside [a-zA-Z0-9_-] with an underscore.
func SafeName(documentName string) string {
	return unsafeNameRune.ReplaceAllString(documentName, "_")
}

// ID derives the stable identifier of the index-th chunk of a document.
func ID(documentName string, index int) string {
	return SafeName(documentName) + "_chunk_" + strconv.Itoa(index)
}

// pageAt counts page breaks strictly before offset.
func pageAt(pageBreaks []int, offset int) *int {
	if pageBreaks == nil {
		return nil
	}
	page := 1
	for _, b := range pageBreaks {
		if b >= offset {
			break
		}
		page++
	}
	return &page
}

// EvenPageBreaks spaces pages-1 breaks evenly over totalChars.
// Extractors that only know a page count use it to approximate page offsets.
func EvenPageBreaks(totalChars, pages int) []int {
	breaks := []int{}
	if pages <= 1 || totalChars <= 0 {
		return breaks
	}
	avg := float64(totalChars) / float64(pages)
	for i := 1; i < pages; i++ {
		breaks = append(breaks, int(math.Floor(avg*float64(i))))
	}
	return breaks
}
