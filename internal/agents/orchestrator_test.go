package agents

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"testing"

	"Mimic_1.0/internal/memory"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/retriever"
)

// fakeDense returns fixed unit-range scores for the whole corpus.
type fakeDense struct {
	scores []retriever.IndexScore
}

func (f *fakeDense) Search(ctx context.Context, query string, topK int) ([]retriever.IndexScore, error) {
	if len(f.scores) > topK {
		return f.scores[:topK], nil
	}
	return f.scores, nil
}

// fakeOracle scores passages by a fixed per-passage table.
type fakeOracle struct {
	scores map[string]float64
	calls  int
}

func (f *fakeOracle) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	f.calls++
	out := make([]float64, len(passages))
	for i, p := range passages {
		out[i] = f.scores[p]
	}
	return out, nil
}

// memStore is an in-memory memory.Store for pipeline tests.
type memStore struct {
	turns     []*models.Turn
	notes     []models.EpisodicNote
	summaries map[string]*models.ConversationSummary
}

func newMemStore() *memStore {
	return &memStore{summaries: make(map[string]*models.ConversationSummary)}
}

func (m *memStore) AppendTurn(ctx context.Context, turn *models.Turn) (int, error) {
	index := 0
	for _, t := range m.turns {
		if t.SessionID == turn.SessionID {
			index++
		}
	}
	turn.TurnIndex = index
	m.turns = append(m.turns, turn)
	return index, nil
}

func (m *memStore) History(ctx context.Context, sessionID string, limit int) ([]models.HistoryTurn, error) {
	var history []models.HistoryTurn
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			history = append(history, models.HistoryTurn{User: t.UserMessage, Assistant: t.AssistantResponse})
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (m *memStore) TurnCount(ctx context.Context, sessionID string) (int, error) {
	count := 0
	for _, t := range m.turns {
		if t.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) Summary(ctx context.Context, sessionID string) (*models.ConversationSummary, error) {
	return m.summaries[sessionID], nil
}

func (m *memStore) UpsertSummary(ctx context.Context, summary *models.ConversationSummary) error {
	m.summaries[summary.SessionID] = summary
	return nil
}

func (m *memStore) AddNote(ctx context.Context, note *models.EpisodicNote) error {
	m.notes = append(m.notes, *note)
	return nil
}

func (m *memStore) Notes(ctx context.Context, userID string, limit int) ([]models.EpisodicNote, error) {
	var notes []models.EpisodicNote
	for i := len(m.notes) - 1; i >= 0; i-- {
		if m.notes[i].UserID == userID {
			notes = append(notes, m.notes[i])
		}
		if limit > 0 && len(notes) == limit {
			break
		}
	}
	return notes, nil
}

func testFacts() []*models.Fact {
	return []*models.Fact{
		{ID: "D1", Text: "climbed the north ridge in nineteen ninety five", Source: "diary", Confidence: 0.9},
		{ID: "D2", Text: "always checks the weather twice before a climb", Source: "interview", Confidence: 0.8},
		{ID: "D3", Text: "retired after a knee injury on the glacier", Source: "diary", Confidence: 0.7},
	}
}

func buildOrchestrator(t *testing.T, facts []*models.Fact, fake *scriptedLLM, store *memStore, maxIterations int) *Orchestrator {
	t.Helper()
	log := agentLogger()
	artifacts := testArtifacts()

	var scores []retriever.IndexScore
	for i := range facts {
		scores = append(scores, retriever.IndexScore{Index: i, Score: 0.9 - 0.1*float64(i)})
	}
	hybrid := retriever.NewHybridRetriever(facts, retriever.NewBM25Index(facts), &fakeDense{scores: scores}, 10, log)

	oracle := &fakeOracle{scores: map[string]float64{}}
	for i, fact := range facts {
		oracle.scores[fact.Text] = 0.9 - 0.1*float64(i)
	}
	reranker := retriever.NewReranker(oracle, 5)

	updater := memory.NewUpdater(store, memory.NewSummarizer(fake), log)
	return NewOrchestrator(
		artifacts,
		hybrid,
		reranker,
		NewProducer(fake),
		NewContextor(fake, artifacts, log),
		NewRefiner(fake, artifacts),
		NewJudge(fake, log),
		updater,
		maxIterations,
		log,
	)
}

const rejectDecision = `{"factuality":3,"persona":3,"helpfulness":4,"safety":5,"overall":3.8,"accept":false,"targeted_edits":["cite the ridge note"]}`
const acceptDecision = `{"factuality":5,"persona":4,"helpfulness":4,"safety":5,"overall":4.5,"accept":true,"targeted_edits":[]}`

func TestProcessTurn_AcceptsAfterTwoRevisions(t *testing.T) {
	store := newMemStore()
	fake := &scriptedLLM{responses: []string{
		"The ridge was climbed in 1995 [D1].", // producer draft
		"not json",                            // contextor falls back to defaults
		"i went up the ridge back then [D1]",  // refiner
		rejectDecision,                        // judge pass 1
		"i went up the north ridge [D1]",      // applied edits 1
		rejectDecision,                        // judge pass 2
		"the north ridge, you know [D1]",      // applied edits 2
		acceptDecision,                        // judge pass 3
	}}
	o := buildOrchestrator(t, testFacts(), fake, store, 2)

	result, err := o.ProcessTurn(context.Background(), "tell me about the ridge you climbed back then", "u1", "s1")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !result.Revised {
		t.Error("two edit rounds must mark the result as revised")
	}
	if result.Trace.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", result.Trace.Iterations)
	}
	if len(result.Trace.JudgePasses) != 3 {
		t.Errorf("judge passes = %d, want 3", len(result.Trace.JudgePasses))
	}
	if !result.Trace.JudgePasses[2].Accept {
		t.Error("final judge pass should accept")
	}
	if result.Scores == nil || result.Scores.Overall != 4.5 {
		t.Errorf("scores must come from the last pass, got %+v", result.Scores)
	}
	if !reflect.DeepEqual(result.Citations, []string{"D1"}) {
		t.Errorf("citations = %v, want [D1]", result.Citations)
	}
	if result.Response != strings.ToLower(result.Response) {
		t.Errorf("final response must be style-enforced, got %q", result.Response)
	}
	if len(store.turns) != 1 || store.turns[0].AssistantResponse != result.Response {
		t.Errorf("the final response must be persisted as a turn, got %+v", store.turns)
	}
}

func TestProcessTurn_MalformedJudgeTerminates(t *testing.T) {
	store := newMemStore()
	// The judge never returns valid JSON; the fallback reject carries one
	// generic edit, so the loop runs maxIterations edits and stops.
	fake := &scriptedLLM{responses: []string{
		"A plain draft about the ridge.",
		"not json",
		"a plain reply about the ridge",
		"judge rambles",  // pass 1 -> fallback reject
		"a revised reply",
		"judge rambles again", // pass 2 -> fallback reject, iteration cap hit
	}}
	o := buildOrchestrator(t, testFacts(), fake, store, 1)

	result, err := o.ProcessTurn(context.Background(), "tell me about the ridge you climbed back then", "u1", "s1")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if len(result.Trace.JudgePasses) != 2 {
		t.Errorf("judge passes = %d, want maxIterations+1 = 2", len(result.Trace.JudgePasses))
	}
	if !result.Revised {
		t.Error("an applied edit must mark the result as revised")
	}
	if result.Scores.Overall != 3.5 {
		t.Errorf("fallback scores expected, got %+v", result.Scores)
	}
	if result.Response == "" {
		t.Error("an unaccepted turn still returns the best-effort response")
	}
}

func TestProcessTurn_EmptyCorpusLowersConfidence(t *testing.T) {
	store := newMemStore()
	fake := &scriptedLLM{responses: []string{
		"I do not have notes on that, honestly.", // producer history fallback
		"not json",
		"hard to say, maybe, i am not sure there",
		acceptDecision,
	}}
	o := buildOrchestrator(t, nil, fake, store, 2)

	result, err := o.ProcessTurn(context.Background(), "what was the hardest climb you ever did", "u1", "s1")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.Trace.RetrievedConfidence != emptyRetrievalConfidence {
		t.Errorf("confidence = %v, want %v", result.Trace.RetrievedConfidence, emptyRetrievalConfidence)
	}
	if result.Trace.ContextorOutput.HedgingLevel < 3 {
		t.Errorf("low confidence must raise hedging, got %d", result.Trace.ContextorOutput.HedgingLevel)
	}
	if len(result.Citations) != 0 {
		t.Errorf("no corpus means no citations, got %v", result.Citations)
	}
	if result.Trace.InitialRetrievalCount != 0 {
		t.Errorf("initial retrieval count = %d, want 0", result.Trace.InitialRetrievalCount)
	}
}

func TestProcessTurn_GeneratesSessionID(t *testing.T) {
	store := newMemStore()
	fake := &scriptedLLM{responses: []string{
		"A draft.", "not json", "a reply", acceptDecision,
	}}
	o := buildOrchestrator(t, nil, fake, store, 2)

	result, err := o.ProcessTurn(context.Background(), "hello there, how are you today then", "u1", "")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if result.SessionID == "" {
		t.Error("an empty session id must be replaced with a generated one")
	}
}

func TestProcessTurn_RerankOrdersCandidates(t *testing.T) {
	store := newMemStore()
	fake := &scriptedLLM{responses: []string{
		"A draft [D2].", "not json", "a reply [D2]", acceptDecision,
	}}
	facts := testFacts()
	o := buildOrchestrator(t, facts, fake, store, 2)

	// Invert the oracle so D3 outranks the fused order.
	oracle := &fakeOracle{scores: map[string]float64{
		facts[0].Text: 0.1,
		facts[1].Text: 0.5,
		facts[2].Text: 0.9,
	}}
	o.reranker = retriever.NewReranker(oracle, 2)

	result, err := o.ProcessTurn(context.Background(), "weather checks before the glacier climb that year", "u1", "s1")
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if len(result.Trace.RetrievalResults) != 2 {
		t.Fatalf("reranked results = %d, want topK 2", len(result.Trace.RetrievalResults))
	}
	if result.Trace.RetrievalResults[0].FactID != "D3" {
		t.Errorf("rerank order should lead with D3, got %s", result.Trace.RetrievalResults[0].FactID)
	}
}

func TestExtractCitations_DedupesInOrder(t *testing.T) {
	got := ExtractCitations("first [D2] then [D1] and [D2] again, plus [OP12]")
	want := []string{"D2", "D1", "OP12"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractCitations() = %v, want %v", got, want)
	}

	if got := ExtractCitations("no citations here"); got != nil {
		t.Errorf("expected nil for citation-free text, got %v", got)
	}
}

func TestProcessTurn_Deterministic(t *testing.T) {
	responses := []string{
		"A draft [D1].", "not json", "a reply about the ridge [D1]", acceptDecision,
	}
	var outputs []string
	for i := 0; i < 3; i++ {
		store := newMemStore()
		o := buildOrchestrator(t, testFacts(), &scriptedLLM{responses: responses}, store, 2)
		result, err := o.ProcessTurn(context.Background(), "tell me about the ridge you climbed back then", "u1", "s1")
		if err != nil {
			t.Fatalf("ProcessTurn() error = %v", err)
		}
		outputs = append(outputs, result.Response)
	}
	sort.Strings(outputs)
	if outputs[0] != outputs[len(outputs)-1] {
		t.Errorf("identical inputs must produce identical outputs: %v", outputs)
	}
}
