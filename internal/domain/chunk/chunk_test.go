package chunk

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk_ShortDocumentSingleChunk(t *testing.T) {
	text := "Les étudiants doivent confirmer leur inscription administrative avant le quinze septembre. " +
		"Le dossier complet comprend une pièce d'identité, deux photos et le reçu des frais. " +
		"Tout retard entraîne une pénalité fixée par le conseil de la faculté cette année."

	chunks := New(DefaultConfig()).Chunk(text, "reglement", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != Normalize(text) {
		t.Errorf("expected full normalized text, got %q", c.Text)
	}
	if c.ID != "reglement_chunk_0" {
		t.Errorf("expected id reglement_chunk_0, got %q", c.ID)
	}
	if c.PageNumber != nil {
		t.Errorf("expected no page number, got %d", *c.PageNumber)
	}
	if c.WordCount != len(strings.Fields(text)) {
		t.Errorf("expected %d words, got %d", len(strings.Fields(text)), c.WordCount)
	}
	if c.DocumentName != "reglement" || c.Index != 0 {
		t.Errorf("unexpected metadata: %+v", c)
	}
}

func TestChunk_BlankInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t \r\n"} {
		if got := New(DefaultConfig()).Chunk(in, "doc", nil); len(got) != 0 {
			t.Errorf("expected no chunks for %q, got %d", in, len(got))
		}
	}
}

func TestChunk_DropsShortFragments(t *testing.T) {
	chunks := New(DefaultConfig()).Chunk("Ok. Yes. This sentence is long enough.", "doc", nil)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "This sentence is long enough." {
		t.Errorf("unexpected text %q", chunks[0].Text)
	}
}

func longDocument(sentences int) string {
	var b strings.Builder
	for i := range sentences {
		fmt.Fprintf(&b, "Sentence number %d explains one administrative rule. ", i)
		if i%7 == 6 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func TestChunk_SizeBound(t *testing.T) {
	cfg := Config{Size: 200, Overlap: 40, MinUnitLength: 6}
	chunks := New(cfg).Chunk(longDocument(60), "doc", nil)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > cfg.Size {
			t.Errorf("chunk %s has %d chars, limit %d", c.ID, n, cfg.Size)
		}
	}
}

func TestChunk_OverlapIsSuffixOfPrevious(t *testing.T) {
	cfg := Config{Size: 200, Overlap: 40, MinUnitLength: 6}
	chunks := New(cfg).Chunk(longDocument(60), "doc", nil)

	for i := 1; i < len(chunks); i++ {
		prev, cur := []rune(chunks[i-1].Text), []rune(chunks[i].Text)
		found := false
		for k := 1; k <= cfg.Overlap && k < len(cur); k++ {
			if cur[k] == ' ' && strings.HasSuffix(string(prev), string(cur[:k])) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("chunk %d does not start with a suffix of chunk %d: %q", i, i-1, chunks[i].Text)
		}
	}
}

func TestChunk_CoversEveryUnit(t *testing.T) {
	text := longDocument(40)
	chunks := New(Config{Size: 180, Overlap: 30}).Chunk(text, "doc", nil)

	joined := ""
	for _, c := range chunks {
		joined += c.Text + "\n"
	}
	for _, u := range splitUnits(Normalize(text)) {
		if !strings.Contains(joined, u.text) {
			t.Errorf("unit %q missing from chunks", u.text)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(Config{Size: 150, Overlap: 30})
	text := longDocument(30)
	first := c.Chunk(text, "doc", []int{100, 900})
	second := c.Chunk(text, "doc", []int{100, 900})
	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output for identical input")
	}
}

func TestChunk_ForcedWordSplit(t *testing.T) {
	words := make([]string, 300)
	for i := range words {
		words[i] = fmt.Sprintf("mot%d", i)
	}
	text := strings.Join(words, " ")

	chunks := New(Config{Size: 100, Overlap: 20}).Chunk(text, "doc", nil)
	if len(chunks) < 2 {
		t.Fatalf("expected forced split, got %d chunks", len(chunks))
	}
	var rebuilt []string
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n > 100 {
			t.Errorf("chunk %s has %d chars", c.ID, n)
		}
		rebuilt = append(rebuilt, c.Text)
	}
	if strings.Join(rebuilt, " ") != text {
		t.Error("forced split must not overlap nor drop words")
	}
}

func TestChunk_OversizedWordIsKept(t *testing.T) {
	word := strings.Repeat("a", 50)
	chunks := New(Config{Size: 20, Overlap: 5}).Chunk(word, "doc", nil)
	if len(chunks) != 1 || chunks[0].Text != word {
		t.Fatalf("expected the indivisible word as one chunk, got %+v", chunks)
	}
}

func TestChunk_ArabicQuestionMark(t *testing.T) {
	text := "ما هي شروط التسجيل في الجامعة؟ يجب تقديم الملف كاملا قبل نهاية الشهر."
	units := splitUnits(Normalize(text))
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d: %+v", len(units), units)
	}
}

func TestChunk_PageNumbers(t *testing.T) {
	text := "First page sentence here.\n\nSecond page sentence here."
	norm := Normalize(text)
	breakAt := strings.Index(norm, "Second")

	chunks := New(Config{Size: 30}).Chunk(text, "doc", []int{breakAt - 1})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if *chunks[0].PageNumber != 1 {
		t.Errorf("expected page 1, got %d", *chunks[0].PageNumber)
	}
	if *chunks[1].PageNumber != 2 {
		t.Errorf("expected page 2, got %d", *chunks[1].PageNumber)
	}
}

func TestPageAt(t *testing.T) {
	if pageAt(nil, 10) != nil {
		t.Error("expected nil without page breaks")
	}
	tests := []struct {
		breaks []int
		offset int
		want   int
	}{
		{[]int{}, 42, 1},
		{[]int{10, 20}, 0, 1},
		{[]int{10, 20}, 10, 1},
		{[]int{10, 20}, 11, 2},
		{[]int{10, 20}, 25, 3},
	}
	for _, tt := range tests {
		if got := *pageAt(tt.breaks, tt.offset); got != tt.want {
			t.Errorf("pageAt(%v, %d) = %d, want %d", tt.breaks, tt.offset, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	in := "  Titre\r\n\r\n\r\n\r\nLigne\t\t un   deux\rfin  "
	want := "Titre\n\nLigne un deux\nfin"
	if got := Normalize(in); got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestID(t *testing.T) {
	if got := ID("Règlement 2024.pdf", 3); got != "R_glement_2024_pdf_chunk_3" {
		t.Errorf("unexpected id %q", got)
	}
}

func TestEvenPageBreaks(t *testing.T) {
	if got := EvenPageBreaks(1000, 1); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil breaks, got %v", got)
	}
	got := EvenPageBreaks(1000, 3)
	want := []int{333, 666}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EvenPageBreaks = %v, want %v", got, want)
	}
}
