// Package usage describes answered questions and the aggregate report built from them.
package usage

import "time"

// Record is one terminal question outcome.
type Record struct {
	RequestID  string
	Question   string
	Language   string
	Outcome    string
	Found      bool
	Confidence float64
	Duration   time.Duration
	Documents  []string
	At         time.Time
}

// QuestionCount is a frequently asked question keyed by its normalized prefix.
type QuestionCount struct {
	Question      string
	Count         int
	AvgConfidence float64
}

// DocumentCount is how often a document was cited.
type DocumentCount struct {
	Document string
	Hits     int
}

// Report is a snapshot of the rolling question window.
type Report struct {
	TotalQuestions  int
	FoundCount      int
	NotFoundCount   int
	FoundRate       float64
	AvgConfidence   float64 // over found answers only
	AvgDurationMs   int64
	Outcomes        map[string]int
	TopQuestions    []QuestionCount
	TopDocuments    []DocumentCount
	RecentQuestions []Record
}
