package evidence

import "testing"

func withSimilarities(sims ...float64) []Evidence {
	out := make([]Evidence, len(sims))
	for i, s := range sims {
		out[i] = Evidence{Similarity: s}
	}
	return out
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		sims []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{0.8}, 0.8},
		{"two", []float64{0.9, 0.5}, 0.84},
		{"all perfect", []float64{1, 1, 1}, 1},
		{"weak", []float64{0.4, 0.36, 0.35}, 0.39},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Confidence(withSimilarities(tt.sims...)); got != tt.want {
				t.Errorf("Confidence(%v) = %v, want %v", tt.sims, got, tt.want)
			}
		})
	}
}

func TestConfidence_MonotonicInTop(t *testing.T) {
	prev := -1.0
	for top := 0.35; top <= 1.0; top += 0.05 {
		got := Confidence(withSimilarities(top, 0.4, 0.35))
		if got < prev {
			t.Fatalf("confidence decreased from %v to %v at top=%v", prev, got, top)
		}
		if got < 0 || got > 1 {
			t.Fatalf("confidence %v out of [0,1]", got)
		}
		prev = got
	}
}

func TestFromCandidate(t *testing.T) {
	page := 3
	ev := FromCandidate(Candidate{ChunkID: "c1", DocumentName: "guide", PageNumber: &page, Distance: 0.25})
	if ev.Similarity != 0.75 {
		t.Errorf("expected similarity 0.75, got %v", ev.Similarity)
	}
	if ev.RawDistance != 0.25 || *ev.PageNumber != 3 || ev.ChunkID != "c1" {
		t.Errorf("unexpected evidence %+v", ev)
	}
}

func TestRound(t *testing.T) {
	if got := Round(0.83449, 3); got != 0.834 {
		t.Errorf("Round = %v, want 0.834", got)
	}
	if got := Round(-0.126, 2); got != -0.13 {
		t.Errorf("Round = %v, want -0.13", got)
	}
}
