package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"Mimic_1.0/internal/models"

	"github.com/go-redis/redis/v8"
)

const traceKeyPrefix = "persona:trace:"

// ErrTraceNotFound is returned when a trace id is unknown or expired.
var ErrTraceNotFound = errors.New("trace not found")

// TraceStore keeps per-turn trace records in Redis with a TTL. Traces are
// debugging artifacts, not durable history, so expiry is acceptable.
type TraceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTraceStore creates a trace store with the given record TTL.
func NewTraceStore(rdb *redis.Client, ttl time.Duration) *TraceStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TraceStore{rdb: rdb, ttl: ttl}
}

// Put stores the trace under its trace id.
func (s *TraceStore) Put(ctx context.Context, trace *models.TraceRecord) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := s.rdb.Set(ctx, traceKeyPrefix+trace.TraceID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store trace: %w", err)
	}
	return nil
}

// Get returns the trace for the id, or ErrTraceNotFound.
func (s *TraceStore) Get(ctx context.Context, traceID string) (*models.TraceRecord, error) {
	data, err := s.rdb.Get(ctx, traceKeyPrefix+traceID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTraceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trace: %w", err)
	}
	var trace models.TraceRecord
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}
	return &trace, nil
}
