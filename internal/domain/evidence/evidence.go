// Package evidence holds retrieved chunks with their similarity and the
// confidence derived from them.
package evidence

import "math"

// Candidate is a raw nearest-neighbour hit returned by a vector index.
type Candidate struct {
	ChunkID      string
	Text         string
	DocumentName string
	PageNumber   *int
	Distance     float64
}

// Evidence is a retrieved chunk that passed the similarity floor.
type Evidence struct {
	ChunkID      string
	Text         string
	DocumentName string
	PageNumber   *int
	RawDistance  float64
	Similarity   float64
}

// FromCandidate converts an index hit using similarity = 1 - distance.
// The value is not clamped.
func FromCandidate(c Candidate) Evidence {
	return Evidence{
		ChunkID:      c.ChunkID,
		Text:         c.Text,
		DocumentName: c.DocumentName,
		PageNumber:   c.PageNumber,
		RawDistance:  c.Distance,
		Similarity:   1 - c.Distance,
	}
}

const (
	topWeight = 0.7
	avgWeight = 0.3
)

// Confidence blends the first similarity (70%) with the mean similarity (30%),
// rounded to two decimals. The list is expected in descending similarity order.
// An empty list scores 0.
func Confidence(ev []Evidence) float64 {
	if len(ev) == 0 {
		return 0
	}
	var sum float64
	for _, e := range ev {
		sum += e.Similarity
	}
	avg := sum / float64(len(ev))
	return Round(ev[0].Similarity*topWeight+avg*avgWeight, 2)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
