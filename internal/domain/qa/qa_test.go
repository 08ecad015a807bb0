package qa

import (
	"testing"

	"github.com/kailas-cloud/unihelp/internal/domain/evidence"
)

func TestCanTransition(t *testing.T) {
	legal := [][2]State{
		{Received, Retrieving},
		{Retrieving, NoEvidence},
		{NoEvidence, Refused},
		{Scoring, Refused},
		{Scoring, Prompting},
		{Classifying, Answered},
		{Generating, Failed},
		{Received, Failed},
	}
	for _, tr := range legal {
		if !CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be legal", tr[0], tr[1])
		}
	}

	illegal := [][2]State{
		{Received, Generating},
		{NoEvidence, Prompting},
		{Answered, Failed},
		{Refused, Retrieving},
	}
	for _, tr := range illegal {
		if CanTransition(tr[0], tr[1]) {
			t.Errorf("%s -> %s should be illegal", tr[0], tr[1])
		}
	}
}

func TestSourcesFrom(t *testing.T) {
	page := 2
	got := SourcesFrom([]evidence.Evidence{{ChunkID: "a_chunk_0", DocumentName: "a", PageNumber: &page, Similarity: 0.87654}})
	if len(got) != 1 {
		t.Fatalf("expected 1 source, got %d", len(got))
	}
	if got[0].Similarity != 0.877 || *got[0].Page != 2 || got[0].Document != "a" {
		t.Errorf("unexpected source %+v", got[0])
	}
}
