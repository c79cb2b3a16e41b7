package retriever

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"
)

// Fusion weights for the lexical and dense channels.
const (
	lexicalWeight = 0.5
	denseWeight   = 0.5
)

// HybridRetriever runs the lexical and dense channels concurrently and fuses
// their scores into a single ranked candidate list. Fusion is a weighted sum
// of the min-max normalized lexical score and the (already unit-range) dense
// score; a fact missing from one channel contributes zero from that channel.
type HybridRetriever struct {
	log      *logger.Logger
	facts    []*models.Fact
	lexical  *BM25Index
	dense    DenseIndex
	kInitial int
}

// NewHybridRetriever builds the retriever over a fixed fact corpus.
func NewHybridRetriever(facts []*models.Fact, lexical *BM25Index, dense DenseIndex, kInitial int, log *logger.Logger) *HybridRetriever {
	return &HybridRetriever{
		log:      log,
		facts:    facts,
		lexical:  lexical,
		dense:    dense,
		kInitial: kInitial,
	}
}

// Retrieve returns up to kInitial fused candidates for the query, best first.
// Ties in fused score break by fact ID ascending, so the ranking is fully
// deterministic for a fixed corpus and query.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string) ([]*models.RetrievalCandidate, error) {
	if len(r.facts) == 0 {
		return nil, nil
	}

	var (
		wg         sync.WaitGroup
		lexResults []IndexScore
		dnsResults []IndexScore
		dnsErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexResults = r.lexical.Search(query, r.kInitial)
	}()
	go func() {
		defer wg.Done()
		dnsResults, dnsErr = r.dense.Search(ctx, query, r.kInitial)
	}()
	wg.Wait()
	if dnsErr != nil {
		return nil, fmt.Errorf("dense retrieval failed: %w", dnsErr)
	}

	lexNorm := minMaxNormalize(lexResults)

	fused := make(map[int]float64, len(lexNorm)+len(dnsResults))
	for _, res := range lexNorm {
		fused[res.Index] += lexicalWeight * res.Score
	}
	for _, res := range dnsResults {
		fused[res.Index] += denseWeight * res.Score
	}

	candidates := make([]*models.RetrievalCandidate, 0, len(fused))
	for idx, score := range fused {
		candidates = append(candidates, &models.RetrievalCandidate{
			Fact:       r.facts[idx],
			FusedScore: score,
			Confidence: r.facts[idx].Confidence,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		return candidates[i].Fact.ID < candidates[j].Fact.ID
	})
	if len(candidates) > r.kInitial {
		candidates = candidates[:r.kInitial]
	}

	r.log.Debug(fmt.Sprintf("Hybrid retrieval: %d lexical, %d dense, %d fused candidates", len(lexResults), len(dnsResults), len(candidates)))
	return candidates, nil
}

// minMaxNormalize rescales scores to [0,1]. When every score is identical the
// whole channel collapses to 0.5 so it neither dominates nor vanishes.
func minMaxNormalize(results []IndexScore) []IndexScore {
	if len(results) == 0 {
		return nil
	}
	minScore, maxScore := results[0].Score, results[0].Score
	for _, res := range results[1:] {
		if res.Score < minScore {
			minScore = res.Score
		}
		if res.Score > maxScore {
			maxScore = res.Score
		}
	}

	normalized := make([]IndexScore, len(results))
	for i, res := range results {
		score := 0.5
		if maxScore > minScore {
			score = (res.Score - minScore) / (maxScore - minScore)
		}
		normalized[i] = IndexScore{Index: res.Index, Score: score}
	}
	return normalized
}
