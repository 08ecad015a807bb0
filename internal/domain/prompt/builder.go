// Package prompt turns a question and its evidence into the instruction pair
// sent to the language model.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/domain/lang"
	"github.com/kailas-cloud/unihelp/internal/domain/refusal"
)

// Built is an instruction pair plus the evidence it cites.
// EvidenceUsed is empty if and only if User is the no-evidence variant.
type Built struct {
	System       string
	User         string
	EvidenceUsed []evidence.Evidence
	Language     lang.Language
}

// Builder renders per-language templates. It is stateless.
type Builder struct {
	fallback lang.Language
}

// NewBuilder creates a builder that renders unsupported languages in fallback.
func NewBuilder(fallback lang.Language) *Builder {
	return &Builder{fallback: fallback.Or(lang.Default)}
}

// Build renders the prompt. The system instruction depends only on the language.
func (b *Builder) Build(question string, ev []evidence.Evidence, l lang.Language) Built {
	l = l.Or(b.fallback)
	t := byLanguage[l]

	if len(ev) == 0 {
		return Built{
			System:       t.system,
			User:         fmt.Sprintf(noEvidence, question, refusal.Message(l)),
			EvidenceUsed: []evidence.Evidence{},
			Language:     l,
		}
	}
	return Built{
		System:       t.system,
		User:         fmt.Sprintf(t.contextual, question, FormatSources(ev)),
		EvidenceUsed: ev,
		Language:     l,
	}
}

// System returns the fixed policy text for l.
func (b *Builder) System(l lang.Language) string {
	return byLanguage[l.Or(b.fallback)].system
}

// FormatSources renders numbered source blocks in rank order.
func FormatSources(ev []evidence.Evidence) string {
	blocks := make([]string, len(ev))
	for i, e := range ev {
		page := ""
		if e.PageNumber != nil && *e.PageNumber > 0 {
			page = fmt.Sprintf(" — Page %d", *e.PageNumber)
		}
		blocks[i] = fmt.Sprintf("[SOURCE %d] %s%s (pertinence: %d%%)\n%s",
			i+1, e.DocumentName, page, int(math.Round(e.Similarity*100)), e.Text)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
