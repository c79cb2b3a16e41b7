package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Mimic_1.0/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	turnsCollection     = "conversation_turns"
	summariesCollection = "conversation_summaries"
	notesCollection     = "episodic_notes"
	countersCollection  = "session_counters"
)

// MongoStore implements Store on MongoDB. Turn index assignment uses an
// atomic counter document per session, so concurrent appends for the same
// session cannot collide.
type MongoStore struct {
	turns     *mongo.Collection
	summaries *mongo.Collection
	notes     *mongo.Collection
	counters  *mongo.Collection
}

// NewMongoStore creates a store over the named database and ensures the
// supporting indexes exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	db := client.Database(database)
	s := &MongoStore{
		turns:     db.Collection(turnsCollection),
		summaries: db.Collection(summariesCollection),
		notes:     db.Collection(notesCollection),
		counters:  db.Collection(countersCollection),
	}

	_, err := s.turns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "turn_index", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create turn index: %w", err)
	}
	_, err = s.notes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create note index: %w", err)
	}
	return s, nil
}

// AppendTurn assigns the next turn index atomically and inserts the turn.
func (s *MongoStore) AppendTurn(ctx context.Context, turn *models.Turn) (int, error) {
	// findOneAndUpdate with $inc+upsert is a single atomic operation, so two
	// concurrent appends for one session always get distinct sequence values.
	var counter struct {
		Seq int `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": turn.SessionID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to assign turn index: %w", err)
	}

	turn.TurnIndex = counter.Seq - 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if _, err := s.turns.InsertOne(ctx, turn); err != nil {
		return 0, fmt.Errorf("failed to append turn: %w", err)
	}
	return turn.TurnIndex, nil
}

// History returns the most recent turns, oldest first.
func (s *MongoStore) History(ctx context.Context, sessionID string, limit int) ([]models.HistoryTurn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "turn_index", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.turns.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer cursor.Close(ctx)

	var turns []models.HistoryTurn
	for cursor.Next(ctx) {
		var turn models.Turn
		if err := cursor.Decode(&turn); err != nil {
			return nil, fmt.Errorf("failed to decode turn: %w", err)
		}
		turns = append(turns, models.HistoryTurn{User: turn.UserMessage, Assistant: turn.AssistantResponse})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// TurnCount returns the number of turns stored for the session.
func (s *MongoStore) TurnCount(ctx context.Context, sessionID string) (int, error) {
	count, err := s.turns.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return int(count), nil
}

// Summary returns the session's rolling summary, or nil when none exists.
func (s *MongoStore) Summary(ctx context.Context, sessionID string) (*models.ConversationSummary, error) {
	var summary models.ConversationSummary
	err := s.summaries.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&summary)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch summary: %w", err)
	}
	return &summary, nil
}

// UpsertSummary overwrites the session's rolling summary.
func (s *MongoStore) UpsertSummary(ctx context.Context, summary *models.ConversationSummary) error {
	summary.UpdatedAt = time.Now().UTC()
	_, err := s.summaries.ReplaceOne(
		ctx,
		bson.M{"_id": summary.SessionID},
		summary,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert summary: %w", err)
	}
	return nil
}

// AddNote appends an episodic note for the user.
func (s *MongoStore) AddNote(ctx context.Context, note *models.EpisodicNote) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	if _, err := s.notes.InsertOne(ctx, note); err != nil {
		return fmt.Errorf("failed to add episodic note: %w", err)
	}
	return nil
}

// Notes returns up to limit most recent notes for the user, newest first.
func (s *MongoStore) Notes(ctx context.Context, userID string, limit int) ([]models.EpisodicNote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.notes.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notes: %w", err)
	}
	defer cursor.Close(ctx)

	var notes []models.EpisodicNote
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

var _ Store = (*MongoStore)(nil)
