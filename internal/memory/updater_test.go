package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"
)

// stubLLM returns a fixed summary for every call.
type stubLLM struct {
	summary string
	calls   int
}

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	s.calls++
	return s.summary, nil
}

func (s *stubLLM) GenerateStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan string, error) {
	resp, err := s.Generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- resp
	close(ch)
	return ch, nil
}

// fakeStore is an in-memory Store for updater tests.
type fakeStore struct {
	turns     []*models.Turn
	notes     []models.EpisodicNote
	summaries map[string]*models.ConversationSummary

	failAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{summaries: make(map[string]*models.ConversationSummary)}
}

func (f *fakeStore) AppendTurn(ctx context.Context, turn *models.Turn) (int, error) {
	if f.failAppend {
		return 0, fmt.Errorf("store unavailable")
	}
	index := 0
	for _, t := range f.turns {
		if t.SessionID == turn.SessionID {
			index++
		}
	}
	turn.TurnIndex = index
	f.turns = append(f.turns, turn)
	return index, nil
}

func (f *fakeStore) History(ctx context.Context, sessionID string, limit int) ([]models.HistoryTurn, error) {
	var history []models.HistoryTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			history = append(history, models.HistoryTurn{User: t.UserMessage, Assistant: t.AssistantResponse})
		}
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

func (f *fakeStore) TurnCount(ctx context.Context, sessionID string) (int, error) {
	count := 0
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) Summary(ctx context.Context, sessionID string) (*models.ConversationSummary, error) {
	return f.summaries[sessionID], nil
}

func (f *fakeStore) UpsertSummary(ctx context.Context, summary *models.ConversationSummary) error {
	f.summaries[summary.SessionID] = summary
	return nil
}

func (f *fakeStore) AddNote(ctx context.Context, note *models.EpisodicNote) error {
	f.notes = append(f.notes, *note)
	return nil
}

func (f *fakeStore) Notes(ctx context.Context, userID string, limit int) ([]models.EpisodicNote, error) {
	var notes []models.EpisodicNote
	for i := len(f.notes) - 1; i >= 0; i-- {
		if f.notes[i].UserID == userID {
			notes = append(notes, f.notes[i])
		}
		if limit > 0 && len(notes) == limit {
			break
		}
	}
	return notes, nil
}

func newTestUpdater(store Store, oracle llm.LLM) *Updater {
	return NewUpdater(store, NewSummarizer(oracle), logger.New("test", "", ""))
}

func TestUpdate_AppendsTurn(t *testing.T) {
	store := newFakeStore()
	u := newTestUpdater(store, &stubLLM{summary: "a summary"})

	if err := u.Update(context.Background(), "u1", "s1", "hello", "hi there"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(store.turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(store.turns))
	}
	turn := store.turns[0]
	if turn.TurnIndex != 0 || turn.UserID != "u1" || turn.UserMessage != "hello" {
		t.Errorf("unexpected turn %+v", turn)
	}
	if turn.CreatedAt.IsZero() {
		t.Error("turn timestamp must be set")
	}
}

func TestUpdate_AppendFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.failAppend = true
	u := newTestUpdater(store, &stubLLM{summary: "a summary"})

	if err := u.Update(context.Background(), "u1", "s1", "hello", "hi"); err == nil {
		t.Fatal("a failed append must propagate: the turn is not durable")
	}
}

func TestUpdate_SummaryRefreshesEveryFifthTurn(t *testing.T) {
	store := newFakeStore()
	oracle := &stubLLM{summary: "they talked about climbing"}
	u := newTestUpdater(store, oracle)

	for i := 0; i < 4; i++ {
		if err := u.Update(context.Background(), "u1", "s1", fmt.Sprintf("message %d", i), "ok"); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if oracle.calls != 0 {
		t.Fatalf("no summary before the fifth turn, oracle called %d times", oracle.calls)
	}

	if err := u.Update(context.Background(), "u1", "s1", "message 4", "ok"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if oracle.calls != 1 {
		t.Errorf("fifth turn must refresh the summary, oracle called %d times", oracle.calls)
	}
	summary := store.summaries["s1"]
	if summary == nil {
		t.Fatal("summary must be stored")
	}
	if summary.RollingSummary != "they talked about climbing" || summary.TurnCount != 5 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestUpdate_PreferenceMessageAddsNote(t *testing.T) {
	store := newFakeStore()
	u := newTestUpdater(store, &stubLLM{summary: "a summary"})

	if err := u.Update(context.Background(), "u1", "s1", "I always prefer the morning routes", "noted"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(store.notes) != 1 {
		t.Fatalf("expected 1 episodic note, got %d", len(store.notes))
	}
	note := store.notes[0]
	if note.Bullet != "User mentioned: I always prefer the morning routes" {
		t.Errorf("unexpected bullet %q", note.Bullet)
	}
	if note.Metadata["response"] != "noted" {
		t.Errorf("note must carry a response preview, got %v", note.Metadata)
	}
}

func TestUpdate_NoteMessagesTruncateTo100Chars(t *testing.T) {
	store := newFakeStore()
	u := newTestUpdater(store, &stubLLM{summary: "a summary"})

	long := "I never " + strings.Repeat("really ", 30) + "liked exposed traverses"
	if err := u.Update(context.Background(), "u1", "s1", long, "understood"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	bullet := store.notes[0].Bullet
	if len(bullet) != len("User mentioned: ")+100 {
		t.Errorf("note preview must truncate to 100 chars, got len %d", len(bullet))
	}
}

func TestUpdate_NeutralMessageAddsNoNote(t *testing.T) {
	store := newFakeStore()
	u := newTestUpdater(store, &stubLLM{summary: "a summary"})

	if err := u.Update(context.Background(), "u1", "s1", "what happened on the glacier", "a story"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(store.notes) != 0 {
		t.Errorf("expected no notes, got %v", store.notes)
	}
}
