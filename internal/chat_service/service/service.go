package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"Mimic_1.0/internal/agents"
	"Mimic_1.0/internal/chat_service/store"
	"Mimic_1.0/internal/config"
	"Mimic_1.0/internal/database/kafka"
	"Mimic_1.0/internal/database/milvus"
	"Mimic_1.0/internal/embedding"
	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/memory"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/internal/persona"
	"Mimic_1.0/internal/retriever"
	"Mimic_1.0/pkg/logger"
)

// ErrLatencyBudgetExceeded marks a turn aborted by the wall-clock budget. It
// is a turn-level fault, distinct from the quality-gate degradations that the
// pipeline absorbs internally.
var ErrLatencyBudgetExceeded = errors.New("latency budget exceeded")

// ErrPersonaNotFound is returned for chats against an unknown persona.
var ErrPersonaNotFound = errors.New("persona not found")

// Service owns the persona orchestrators and runs turns against them. One
// orchestrator is built lazily per persona and cached until invalidated.
type Service struct {
	log *logger.Logger
	cfg *config.AppConfig

	llmClient    llm.LLM
	embedder     embedding.Embedding
	oracle       retriever.RelevanceOracle
	memoryStore  memory.Store
	traceStore   *store.TraceStore
	publisher    *kafka.TurnPublisher
	milvusClient *milvus.MilvusClient

	mu             sync.Mutex
	orchestrators  map[string]*agents.Orchestrator
	defaultPersona string

	sessionMu sync.Mutex
	sessions  map[string]*sync.Mutex
}

// NewService wires the shared clients into a chat service. traceStore,
// publisher and milvusClient are optional.
func NewService(
	cfg *config.AppConfig,
	llmClient llm.LLM,
	embedder embedding.Embedding,
	oracle retriever.RelevanceOracle,
	memoryStore memory.Store,
	traceStore *store.TraceStore,
	publisher *kafka.TurnPublisher,
	milvusClient *milvus.MilvusClient,
	log *logger.Logger,
) *Service {
	return &Service{
		log:            log,
		cfg:            cfg,
		llmClient:      llmClient,
		embedder:       embedder,
		oracle:         oracle,
		memoryStore:    memoryStore,
		traceStore:     traceStore,
		publisher:      publisher,
		milvusClient:   milvusClient,
		orchestrators:  make(map[string]*agents.Orchestrator),
		defaultPersona: cfg.Persona.Default,
		sessions:       make(map[string]*sync.Mutex),
	}
}

// Chat processes one turn for the persona within the latency budget. Turns of
// the same session are serialized to preserve turn ordering; different
// sessions run in parallel.
func (s *Service) Chat(ctx context.Context, personaName, userMessage, userID, sessionID string) (*models.TurnResult, error) {
	if personaName == "" {
		personaName = s.DefaultPersona()
	}
	orch, err := s.orchestrator(ctx, personaName)
	if err != nil {
		return nil, err
	}

	budget := time.Duration(s.cfg.Style.LatencyBudgetSeconds) * time.Second
	turnCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if sessionID != "" {
		unlock := s.lockSession(sessionID)
		defer unlock()
	}

	result, err := orch.ProcessTurn(turnCtx, userMessage, userID, sessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrLatencyBudgetExceeded, budget)
		}
		return nil, err
	}

	// Trace storage and turn events are observability, not part of the turn
	// contract; failures are logged and the result still returned.
	if s.traceStore != nil && result.Trace != nil {
		if err := s.traceStore.Put(ctx, result.Trace); err != nil {
			s.log.Warn(fmt.Sprintf("Failed to store trace %s: %v", result.TraceID, err))
		}
	}
	if s.publisher != nil {
		event := &kafka.TurnEvent{
			TraceID:   result.TraceID,
			SessionID: result.SessionID,
			UserID:    userID,
			Persona:   personaName,
			Revised:   result.Revised,
			Citations: result.Citations,
			Scores:    result.Scores,
			Timestamp: time.Now().UTC(),
		}
		if err := s.publisher.PublishTurn(ctx, event); err != nil {
			s.log.Warn(fmt.Sprintf("Failed to publish turn event: %v", err))
		}
	}
	return result, nil
}

// Trace returns a stored trace record.
func (s *Service) Trace(ctx context.Context, traceID string) (*models.TraceRecord, error) {
	if s.traceStore == nil {
		return nil, store.ErrTraceNotFound
	}
	return s.traceStore.Get(ctx, traceID)
}

// Personas reports the available persona directories and their artifacts.
func (s *Service) Personas() ([]persona.ArtifactReport, error) {
	return persona.List(s.cfg.Persona.Dir)
}

// DefaultPersona returns the currently active default persona.
func (s *Service) DefaultPersona() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultPersona
}

// SwitchDefault changes the default persona after validating it loads.
func (s *Service) SwitchDefault(ctx context.Context, personaName string) error {
	if _, err := s.orchestrator(ctx, personaName); err != nil {
		return err
	}
	s.mu.Lock()
	s.defaultPersona = personaName
	s.mu.Unlock()
	return nil
}

// UpdateTaboos rewrites the persona's taboo list and drops its cached
// orchestrator so the next turn picks up the new artifacts.
func (s *Service) UpdateTaboos(personaName string, taboos []string, redirectLanguage string) error {
	dir := filepath.Join(s.cfg.Persona.Dir, personaName)
	if err := persona.WriteTaboos(dir, taboos, redirectLanguage); err != nil {
		return fmt.Errorf("failed to write taboo list: %w", err)
	}
	s.Invalidate(personaName)
	return nil
}

// Invalidate drops the cached orchestrator for the persona.
func (s *Service) Invalidate(personaName string) {
	s.mu.Lock()
	delete(s.orchestrators, personaName)
	s.mu.Unlock()
}

// orchestrator returns the cached pipeline for the persona, building it on
// first use.
func (s *Service) orchestrator(ctx context.Context, personaName string) (*agents.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if orch, ok := s.orchestrators[personaName]; ok {
		return orch, nil
	}

	orch, err := s.buildOrchestrator(ctx, personaName)
	if err != nil {
		return nil, err
	}
	s.orchestrators[personaName] = orch
	return orch, nil
}

func (s *Service) buildOrchestrator(ctx context.Context, personaName string) (*agents.Orchestrator, error) {
	dir := filepath.Join(s.cfg.Persona.Dir, personaName)
	artifacts, err := persona.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrPersonaNotFound, personaName, err)
	}

	factStore, err := retriever.LoadFactStore(artifacts.FactsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load fact corpus for %s: %w", personaName, err)
	}
	facts := factStore.Facts()
	s.log.Info(fmt.Sprintf("Loaded persona '%s' with %d canonical facts", personaName, len(facts)))

	var dense retriever.DenseIndex
	if s.cfg.Retrieval.DenseBackend == "milvus" && s.milvusClient != nil {
		dense, err = retriever.NewMilvusDenseIndex(ctx, s.milvusClient, s.embedder, facts, s.log)
	} else {
		dense, err = retriever.NewMemoryDenseIndex(ctx, s.embedder, facts)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build dense index for %s: %w", personaName, err)
	}

	hybrid := retriever.NewHybridRetriever(facts, retriever.NewBM25Index(facts), dense, s.cfg.Retrieval.KInitial, s.log)
	reranker := retriever.NewReranker(s.oracle, s.cfg.Retrieval.KFinal)
	updater := memory.NewUpdater(s.memoryStore, memory.NewSummarizer(s.llmClient), s.log)

	return agents.NewOrchestrator(
		artifacts,
		hybrid,
		reranker,
		agents.NewProducer(s.llmClient),
		agents.NewContextor(s.llmClient, artifacts, s.log),
		agents.NewRefiner(s.llmClient, artifacts),
		agents.NewJudge(s.llmClient, s.log),
		updater,
		s.cfg.Style.MaxReviseLoops,
		s.log,
	), nil
}

// lockSession acquires the per-session mutex and returns its unlock func.
func (s *Service) lockSession(sessionID string) func() {
	s.sessionMu.Lock()
	mu, ok := s.sessions[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.sessions[sessionID] = mu
	}
	s.sessionMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
