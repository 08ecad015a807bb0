// Package answer decides whether generated text is a real answer or a refusal.
package answer

import (
	"strings"

	"github.com/kailas-cloud/unihelp/internal/domain/refusal"
)

// Verdict is the outcome of classifying generated text.
type Verdict struct {
	Found bool
}

// Classify reports Found=false when the text contains any canned refusal
// phrase, case-insensitively, in any supported language.
func Classify(text string) Verdict {
	lower := strings.ToLower(text)
	for _, marker := range refusal.Markers() {
		if strings.Contains(lower, marker) {
			return Verdict{Found: false}
		}
	}
	return Verdict{Found: true}
}
