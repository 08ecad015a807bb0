// Package refusal holds the canned "not found" answers shared by the prompt
// builder and the answer classifier.
package refusal

import "github.com/kailas-cloud/unihelp/internal/domain/lang"

type canned struct {
	message string
	marker  string // lower-cased leading phrase of message
}

var byLanguage = map[lang.Language]canned{
	lang.French: {
		message: "Je n'ai pas trouvé cette information dans les documents officiels disponibles. Veuillez contacter l'administration.",
		marker:  "je n'ai pas trouvé",
	},
	lang.English: {
		message: "I could not find this information in the available official documents. Please contact the administration.",
		marker:  "i could not find",
	},
	lang.Arabic: {
		message: "لم أجد هذه المعلومات في الوثائق الرسمية المتاحة. يرجى التواصل مع الإدارة.",
		marker:  "لم أجد",
	},
}

// Message returns the canned refusal for l, falling back to the default language.
func Message(l lang.Language) string {
	return byLanguage[l.Or(lang.Default)].message
}

// Markers returns the lower-cased refusal phrases of every supported language.
func Markers() []string {
	out := make([]string, 0, len(byLanguage))
	for _, l := range lang.All() {
		out = append(out, byLanguage[l].marker)
	}
	return out
}
