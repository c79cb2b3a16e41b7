package agents

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"Mimic_1.0/internal/memory"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/persona"
	"Mimic_1.0/internal/retriever"
	"Mimic_1.0/pkg/logger"

	"github.com/google/uuid"
)

// turnState is the revision loop state.
type turnState int

const (
	stateDrafted turnState = iota
	stateStyled
	stateJudging
	stateEditing
	stateAccepted
)

// emptyRetrievalConfidence is the fixed confidence reported when retrieval
// returns nothing, signaling the Contextor to raise hedging.
const emptyRetrievalConfidence = 0.35

const historyWindowTurns = 20

const traceTextPreviewLen = 100

var citationCapture = regexp.MustCompile(`\[([A-Z]+\d+)\]`)

// Orchestrator binds retrieval, drafting, styling, judging and memory into
// the processing of one conversation turn. One instance serves one persona;
// it is safe for concurrent use because all mutable state is per-call.
type Orchestrator struct {
	log       *logger.Logger
	artifacts *persona.Artifacts

	retriever *retriever.HybridRetriever
	reranker  *retriever.Reranker
	producer  *Producer
	contextor *Contextor
	refiner   *Refiner
	judge     *Judge
	updater   *memory.Updater

	maxIterations int
}

// NewOrchestrator assembles the turn pipeline for one persona.
func NewOrchestrator(
	artifacts *persona.Artifacts,
	hybrid *retriever.HybridRetriever,
	reranker *retriever.Reranker,
	producer *Producer,
	contextor *Contextor,
	refiner *Refiner,
	judge *Judge,
	updater *memory.Updater,
	maxIterations int,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		log:           log,
		artifacts:     artifacts,
		retriever:     hybrid,
		reranker:      reranker,
		producer:      producer,
		contextor:     contextor,
		refiner:       refiner,
		judge:         judge,
		updater:       updater,
		maxIterations: maxIterations,
	}
}

// Contextor exposes the persona's contextor, used by the admin surface to
// report intent classification.
func (o *Orchestrator) Contextor() *Contextor {
	return o.contextor
}

// ProcessTurn runs the full pipeline for one user message and returns the
// final response plus the per-stage trace. Oracle failures in the Producer or
// Refiner abort the turn (a true fault); Judge and Contextor failures degrade
// locally and never abort.
func (o *Orchestrator) ProcessTurn(ctx context.Context, userMessage, userID, sessionID string) (*models.TurnResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := o.updater.Store().History(ctx, sessionID, historyWindowTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	trace := &models.TraceRecord{
		TraceID:     uuid.NewString(),
		SessionID:   sessionID,
		Timestamp:   time.Now().UTC(),
		UserMessage: userMessage,
	}

	// Retrieval: conversation-aware query, fused candidates, reranked top-k.
	query := retriever.BuildConversationQuery(userMessage, history)
	trace.Query = query

	candidates, err := o.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	trace.InitialRetrievalCount = len(candidates)

	reranked, err := o.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		// Reranking is an optimization of ordering, not a source of truth;
		// fall back to the fused order rather than failing the turn.
		o.log.Warn(fmt.Sprintf("Reranking failed, falling back to fused order: %v", err))
		reranked = candidates
		if topK := o.reranker.TopK(); len(reranked) > topK {
			reranked = reranked[:topK]
		}
	}
	for _, cand := range reranked {
		trace.RetrievalResults = append(trace.RetrievalResults, models.TraceCandidate{
			FactID:     cand.Fact.ID,
			Text:       truncateForTrace(cand.Fact.Text),
			Confidence: cand.Confidence,
			Source:     cand.Fact.Source,
		})
	}

	avgConfidence := emptyRetrievalConfidence
	if len(reranked) > 0 {
		var sum float64
		for _, cand := range reranked {
			sum += cand.Confidence
		}
		avgConfidence = sum / float64(len(reranked))
	}
	trace.RetrievedConfidence = avgConfidence

	// DRAFTED: neutral factual draft.
	neutralDraft, err := o.producer.Produce(ctx, query, reranked, userMessage, history)
	if err != nil {
		return nil, err
	}
	trace.ProducerOutput = neutralDraft

	pack := o.contextor.BuildPack(ctx, userMessage, history, avgConfidence)
	trace.ContextorOutput = pack

	// STYLED: persona voice plus deterministic enforcement.
	styled, err := o.refiner.Refine(ctx, neutralDraft, pack, userMessage)
	if err != nil {
		return nil, err
	}
	trace.RefinerOutput = styled

	// JUDGING/EDITING loop: at most maxIterations edits, so at most
	// maxIterations+1 judge passes. The final output is whatever the last
	// styled result was, accepted or not.
	state := stateJudging
	final := styled
	iterations := 0
	var lastScores *models.JudgeScores

	for pass := 0; pass <= o.maxIterations; pass++ {
		decision := o.judge.Judge(ctx, final, userMessage, reranked, o.artifacts.Profile, pack)
		scores := decision.Scores
		lastScores = &scores
		trace.JudgePasses = append(trace.JudgePasses, models.TraceJudgePass{
			Scores: decision.Scores,
			Accept: decision.Accept,
			Edits:  decision.TargetedEdits,
		})

		if decision.Accept {
			state = stateAccepted
			break
		}
		// Nothing actionable: stop looping even though not formally accepted.
		if len(decision.TargetedEdits) == 0 || iterations >= o.maxIterations {
			break
		}

		state = stateEditing
		revised, err := o.judge.ApplyEdits(ctx, final, decision.TargetedEdits, userMessage)
		if err != nil {
			return nil, err
		}
		// Re-enter STYLED through a fresh enforcement pass so the formatting
		// guarantees hold before the next judging pass.
		final = o.refiner.Enforce(revised, userMessage)
		iterations++
		state = stateJudging
	}
	if state != stateAccepted {
		o.log.Info(fmt.Sprintf("Turn finished without judge acceptance after %d iterations (best effort)", iterations))
	}

	trace.Iterations = iterations
	trace.FinalResponse = final

	citations := ExtractCitations(final)
	trace.NotesUsed = citations
	if len(trace.NotesUsed) == 0 {
		for _, cand := range reranked {
			trace.NotesUsed = append(trace.NotesUsed, cand.Fact.ID)
		}
	}

	if err := o.updater.Update(ctx, userID, sessionID, userMessage, final); err != nil {
		return nil, err
	}

	return &models.TurnResult{
		Response:  final,
		SessionID: sessionID,
		Citations: citations,
		Scores:    lastScores,
		Revised:   iterations > 0,
		TraceID:   trace.TraceID,
		Trace:     trace,
	}, nil
}

// ExtractCitations returns the unique citation ids referenced by the text, in
// first-occurrence order.
func ExtractCitations(text string) []string {
	seen := make(map[string]struct{})
	var citations []string
	for _, match := range citationCapture.FindAllStringSubmatch(text, -1) {
		id := match[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		citations = append(citations, id)
	}
	return citations
}

func truncateForTrace(text string) string {
	if len(text) <= traceTextPreviewLen {
		return text
	}
	return text[:traceTextPreviewLen] + "..."
}
