package retriever

import (
	"context"
	"math"
	"testing"

	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"
)

type fakeDense struct {
	results []IndexScore
	called  bool
}

func (f *fakeDense) Search(ctx context.Context, query string, topK int) ([]IndexScore, error) {
	f.called = true
	return f.results, nil
}

func testLogger() *logger.Logger {
	return logger.New("test", "", "")
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestHybridRetrieve_FusesBothChannels(t *testing.T) {
	facts := []*models.Fact{
		newFact("D1", "subject gathers all facts before deciding", 0.9),
		newFact("D2", "subject prefers quiet mornings", 0.8),
	}
	dense := &fakeDense{results: []IndexScore{{Index: 0, Score: 0.8}, {Index: 1, Score: 0.4}}}
	r := NewHybridRetriever(facts, NewBM25Index(facts), dense, 20, testLogger())

	candidates, err := r.Retrieve(context.Background(), "facts deciding")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("expected candidates")
	}
	if candidates[0].Fact.ID != "D1" {
		t.Errorf("expected D1 ranked first, got %s", candidates[0].Fact.ID)
	}
	// D1 is the only lexical hit, so its normalized lexical score is 0.5 and
	// fused = 0.5*0.5 + 0.5*0.8.
	if !almostEqual(candidates[0].FusedScore, 0.65) {
		t.Errorf("expected fused score 0.65 for D1, got %f", candidates[0].FusedScore)
	}
	if !almostEqual(candidates[0].Confidence, 0.9) {
		t.Errorf("confidence should be copied from the fact, got %f", candidates[0].Confidence)
	}
}

func TestHybridRetrieve_SingleDistinctLexicalScoreNormalizesToHalf(t *testing.T) {
	facts := []*models.Fact{
		newFact("D1", "alpha beta", 0.9),
		newFact("D2", "alpha gamma", 0.9),
	}
	dense := &fakeDense{}
	r := NewHybridRetriever(facts, NewBM25Index(facts), dense, 20, testLogger())

	candidates, err := r.Retrieve(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	// Both docs score identically on BM25, so min-max collapses to 0.5 each
	// and the absent dense channel contributes 0.
	for _, cand := range candidates {
		if !almostEqual(cand.FusedScore, 0.25) {
			t.Errorf("expected fused score 0.25 for %s, got %f", cand.Fact.ID, cand.FusedScore)
		}
	}
	// Equal scores break ties by fact id ascending.
	if candidates[0].Fact.ID != "D1" || candidates[1].Fact.ID != "D2" {
		t.Errorf("tie-break by fact id violated: %s, %s", candidates[0].Fact.ID, candidates[1].Fact.ID)
	}
}

func TestHybridRetrieve_MissingChannelContributesZero(t *testing.T) {
	facts := []*models.Fact{
		newFact("D1", "unrelated text entirely", 0.9),
		newFact("D2", "more unrelated words", 0.9),
	}
	dense := &fakeDense{results: []IndexScore{{Index: 1, Score: 0.6}}}
	r := NewHybridRetriever(facts, NewBM25Index(facts), dense, 20, testLogger())

	candidates, err := r.Retrieve(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected only the dense hit, got %d candidates", len(candidates))
	}
	if candidates[0].Fact.ID != "D2" || !almostEqual(candidates[0].FusedScore, 0.3) {
		t.Errorf("expected D2 with fused 0.3, got %s with %f", candidates[0].Fact.ID, candidates[0].FusedScore)
	}
}

func TestHybridRetrieve_EmptyCorpusSkipsIndexes(t *testing.T) {
	dense := &fakeDense{}
	r := NewHybridRetriever(nil, NewBM25Index(nil), dense, 20, testLogger())

	candidates, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if candidates != nil {
		t.Errorf("expected no candidates from empty corpus, got %v", candidates)
	}
	if dense.called {
		t.Error("dense index should not be consulted for an empty corpus")
	}
}

func TestHybridRetrieve_Deterministic(t *testing.T) {
	facts := []*models.Fact{
		newFact("D3", "coffee in the morning", 0.9),
		newFact("D1", "coffee at night", 0.9),
		newFact("D2", "coffee all day", 0.9),
	}
	dense := &fakeDense{results: []IndexScore{{Index: 0, Score: 0.5}, {Index: 1, Score: 0.5}, {Index: 2, Score: 0.5}}}
	r := NewHybridRetriever(facts, NewBM25Index(facts), dense, 20, testLogger())

	first, err := r.Retrieve(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Retrieve(context.Background(), "coffee")
		if err != nil {
			t.Fatalf("Retrieve() error = %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("non-deterministic candidate count: %d vs %d", len(again), len(first))
		}
		for j := range again {
			if again[j].Fact.ID != first[j].Fact.ID {
				t.Fatalf("non-deterministic ordering at %d: %s vs %s", j, again[j].Fact.ID, first[j].Fact.ID)
			}
		}
	}
}

func TestMinMaxNormalize(t *testing.T) {
	in := []IndexScore{{Index: 0, Score: 2}, {Index: 1, Score: 6}, {Index: 2, Score: 4}}
	out := minMaxNormalize(in)
	if !almostEqual(out[0].Score, 0) || !almostEqual(out[1].Score, 1) || !almostEqual(out[2].Score, 0.5) {
		t.Errorf("unexpected normalization: %v", out)
	}
}
