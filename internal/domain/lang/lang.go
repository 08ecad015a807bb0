// Package lang enumerates the answer languages of the assistant.
package lang

import "strings"

// Language is the language a question is answered in.
type Language string

// Supported languages.
const (
	French  Language = "fr"
	English Language = "en"
	Arabic  Language = "ar"
)

// Default is used when a request names no language or an unsupported one.
const Default = French

// All returns the supported languages in presentation order.
func All() []Language {
	return []Language{French, English, Arabic}
}

// IsValid checks if the language is one of the supported values.
func (l Language) IsValid() bool {
	return l == French || l == English || l == Arabic
}

// Parse normalizes s. The bool is false when s names no supported language.
func Parse(s string) (Language, bool) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	return l, l.IsValid()
}

// Or returns l when it is supported, else fallback.
func (l Language) Or(fallback Language) Language {
	if l.IsValid() {
		return l
	}
	return fallback
}
