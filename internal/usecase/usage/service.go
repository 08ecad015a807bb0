package usage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
	domusage "github.com/kailas-cloud/unihelp/internal/domain/usage"
)

const (
	// DefaultCapacity is the size of the rolling window.
	DefaultCapacity = 1000

	questionKeyLen  = 80
	recentQuestions = 20
	recentTextLen   = 100
	topDocuments    = 10
)

// Service keeps the last N question records in memory.
type Service struct {
	mu       sync.RWMutex
	records  []domusage.Record
	capacity int
	now      func() time.Time
}

// New creates a Service. capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Service {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Service{capacity: capacity, now: time.Now}
}

// Record appends r, dropping the oldest record once the window is full.
func (s *Service) Record(_ context.Context, r domusage.Record) {
	if r.At.IsZero() {
		r.At = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	if over := len(s.records) - s.capacity; over > 0 {
		s.records = append(s.records[:0:0], s.records[over:]...)
	}
}

// Clear drops every record.
func (s *Service) Clear(_ context.Context) {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}

// Len returns the number of records in the window.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// GetReport aggregates the window. limit caps TopQuestions.
func (s *Service) GetReport(_ context.Context, limit int) domusage.Report {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	records := append([]domusage.Record(nil), s.records...)
	s.mu.RUnlock()

	rep := domusage.Report{
		TotalQuestions:  len(records),
		Outcomes:        map[string]int{},
		TopQuestions:    []domusage.QuestionCount{},
		TopDocuments:    []domusage.DocumentCount{},
		RecentQuestions: []domusage.Record{},
	}
	if len(records) == 0 {
		return rep
	}

	var (
		foundConf float64
		duration  time.Duration
	)
	type questionAgg struct {
		count     int
		totalConf float64
		firstSeen int
	}
	questions := map[string]*questionAgg{}
	docs := map[string]int{}

	for i, r := range records {
		if r.Found {
			rep.FoundCount++
			foundConf += r.Confidence
		}
		duration += r.Duration
		if r.Outcome != "" {
			rep.Outcomes[r.Outcome]++
		}

		key := questionKey(r.Question)
		q, ok := questions[key]
		if !ok {
			q = &questionAgg{firstSeen: i}
			questions[key] = q
		}
		q.count++
		q.totalConf += r.Confidence

		for _, d := range r.Documents {
			docs[d]++
		}
	}

	rep.NotFoundCount = rep.TotalQuestions - rep.FoundCount
	rep.FoundRate = evidence.Round(float64(rep.FoundCount)/float64(rep.TotalQuestions), 2)
	if rep.FoundCount > 0 {
		rep.AvgConfidence = evidence.Round(foundConf/float64(rep.FoundCount), 2)
	}
	rep.AvgDurationMs = (duration / time.Duration(len(records))).Milliseconds()

	keys := make([]string, 0, len(questions))
	for k := range questions {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := questions[keys[i]], questions[keys[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.firstSeen < b.firstSeen
	})
	for _, k := range keys[:min(limit, len(keys))] {
		q := questions[k]
		rep.TopQuestions = append(rep.TopQuestions, domusage.QuestionCount{
			Question:      k,
			Count:         q.count,
			AvgConfidence: evidence.Round(q.totalConf/float64(q.count), 2),
		})
	}

	for d, n := range docs {
		rep.TopDocuments = append(rep.TopDocuments, domusage.DocumentCount{Document: d, Hits: n})
	}
	sort.Slice(rep.TopDocuments, func(i, j int) bool {
		a, b := rep.TopDocuments[i], rep.TopDocuments[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		return a.Document < b.Document
	})
	rep.TopDocuments = rep.TopDocuments[:min(topDocuments, len(rep.TopDocuments))]

	for i := len(records) - 1; i >= 0 && len(rep.RecentQuestions) < recentQuestions; i-- {
		r := records[i]
		r.Question = truncate(r.Question, recentTextLen)
		rep.RecentQuestions = append(rep.RecentQuestions, r)
	}
	return rep
}

func questionKey(q string) string {
	return truncate(strings.ToLower(strings.TrimSpace(q)), questionKeyLen)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
