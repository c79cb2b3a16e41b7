package retriever

import (
	"math"
	"sort"
	"strings"

	"Mimic_1.0/internal/models"
)

// BM25 parameters, matching the common Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// IndexScore pairs a corpus index with a relevance score.
type IndexScore struct {
	Index int
	Score float64
}

// BM25Index is a term-frequency lexical index over the fact texts. Queries
// and documents are tokenized by lowercased whitespace splitting.
type BM25Index struct {
	termFreqs []map[string]int // per-document term counts
	docFreq   map[string]int   // number of documents containing each term
	docLen    []int
	avgDocLen float64
}

// NewBM25Index builds the lexical index over the given facts. An empty corpus
// yields an index that always reports no candidates.
func NewBM25Index(facts []*models.Fact) *BM25Index {
	idx := &BM25Index{
		docFreq: make(map[string]int),
	}

	total := 0
	for _, fact := range facts {
		tokens := tokenize(fact.Text)
		freqs := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freqs[tok]++
		}
		for tok := range freqs {
			idx.docFreq[tok]++
		}
		idx.termFreqs = append(idx.termFreqs, freqs)
		idx.docLen = append(idx.docLen, len(tokens))
		total += len(tokens)
	}
	if len(facts) > 0 {
		idx.avgDocLen = float64(total) / float64(len(facts))
	}
	return idx
}

// Search scores the tokenized query against every document and returns up to
// topK positive-scoring documents, best first. Ties break by corpus index
// ascending for determinism.
func (idx *BM25Index) Search(query string, topK int) []IndexScore {
	n := len(idx.termFreqs)
	if n == 0 || topK <= 0 {
		return nil
	}

	tokens := tokenize(query)
	scores := make([]float64, n)
	for _, tok := range tokens {
		df, ok := idx.docFreq[tok]
		if !ok {
			continue
		}
		inverseDocFreq := math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
		for doc := 0; doc < n; doc++ {
			tf := float64(idx.termFreqs[doc][tok])
			if tf == 0 {
				continue
			}
			norm := 1 - bm25B + bm25B*float64(idx.docLen[doc])/idx.avgDocLen
			scores[doc] += inverseDocFreq * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	var results []IndexScore
	for doc, score := range scores {
		if score > 0 {
			results = append(results, IndexScore{Index: doc, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
