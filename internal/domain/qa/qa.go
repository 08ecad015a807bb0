// Package qa holds the question lifecycle and its terminal result.
package qa

import (
	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	"github.com/kailas-cloud/unihelp/internal/domain/lang"
)

// State is a step of the query lifecycle.
type State string

// Lifecycle states. Refused, Answered and Failed are terminal.
const (
	Received    State = "RECEIVED"
	Retrieving  State = "RETRIEVING"
	NoEvidence  State = "NO_EVIDENCE"
	Scoring     State = "SCORING"
	Prompting   State = "PROMPTING"
	Generating  State = "GENERATING"
	Classifying State = "CLASSIFYING"
	Refused     State = "REFUSED"
	Answered    State = "ANSWERED"
	Failed      State = "FAILED"
)

// IsTerminal reports whether no transition leaves s.
func (s State) IsTerminal() bool {
	return s == Refused || s == Answered || s == Failed
}

var transitions = map[State][]State{
	Received:    {Retrieving},
	Retrieving:  {NoEvidence, Scoring},
	NoEvidence:  {Refused},
	Scoring:     {Refused, Prompting},
	Prompting:   {Generating},
	Generating:  {Classifying},
	Classifying: {Answered},
}

// CanTransition reports whether from → to is a legal step.
// Any non-terminal state may fail.
func CanTransition(from, to State) bool {
	if to == Failed {
		return !from.IsTerminal()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome explains how a question terminated successfully.
type Outcome string

// Successful outcomes.
const (
	OutcomeAnswered      Outcome = "answered"
	OutcomeNoEvidence    Outcome = "no_evidence"
	OutcomeLowConfidence Outcome = "low_confidence"
	OutcomeModelRefused  Outcome = "model_refused"
)

// Question is a validated request.
type Question struct {
	Text     string
	TopK     int
	Language lang.Language
}

// Source is a cited chunk in an answer.
type Source struct {
	Document   string
	Page       *int
	ChunkID    string
	Similarity float64 // rounded to three decimals
}

// Answer is the terminal result of a question that did not fail.
type Answer struct {
	RequestID  string
	Text       string
	Sources    []Source
	Confidence float64
	Found      bool
	Outcome    Outcome
	Language   lang.Language
}

// SourcesFrom maps evidence to cited sources in rank order.
func SourcesFrom(ev []evidence.Evidence) []Source {
	out := make([]Source, len(ev))
	for i, e := range ev {
		out[i] = Source{
			Document:   e.DocumentName,
			Page:       e.PageNumber,
			ChunkID:    e.ChunkID,
			Similarity: evidence.Round(e.Similarity, 3),
		}
	}
	return out
}
