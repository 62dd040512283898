package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"signal-tracker/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound is returned by KV implementations for absent keys.
var ErrNotFound = errors.New("store: key not found")

// KV is the persistence surface the store is bound to. Production binds it
// to Redis; tests substitute an in-memory fake.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Append(ctx context.Context, key string, values ...string) error
	List(ctx context.Context, key string) ([]string, error)
}

type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Append(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	if err := r.client.RPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) List(ctx context.Context, key string) ([]string, error) {
	out, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", key, err)
	}
	return out, nil
}

// Store keeps active signals per category, the global append-only completed
// log, and per-category auto-generation preferences. Writes are
// last-writer-wins: a SetActive replaces the whole category blob, there is
// no record-level isolation.
type Store struct {
	tracer trace.Tracer
	kv     KV
	mu     sync.Mutex
}

func New(tracer trace.Tracer, kv KV) *Store {
	return &Store{tracer: tracer, kv: kv}
}

func activeKey(c domain.Category) string  { return "signals:active:" + string(c) }
func autogenKey(c domain.Category) string { return "signals:autogen:" + string(c) }

const completedKey = "signals:completed"

// GetActive returns the ordered active set for a category. A missing or
// unreadable blob yields an empty set, never an error: the next write
// replaces it wholesale anyway.
func (s *Store) GetActive(ctx context.Context, category domain.Category) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "signal-store.get-active")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, activeKey(category))
	if errors.Is(err, ErrNotFound) {
		return []domain.Signal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active set for %s: %w", category, err)
	}

	var signals []domain.Signal
	if err := json.Unmarshal([]byte(raw), &signals); err != nil {
		log.Printf("discarding unreadable active set for %s: %v", category, err)
		return []domain.Signal{}, nil
	}
	return signals, nil
}

// SetActive replaces the category's active set as one blob.
func (s *Store) SetActive(ctx context.Context, category domain.Category, signals []domain.Signal) error {
	ctx, span := s.tracer.Start(ctx, "signal-store.set-active")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if signals == nil {
		signals = []domain.Signal{}
	}
	raw, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("encode active set for %s: %w", category, err)
	}
	if err := s.kv.Set(ctx, activeKey(category), string(raw)); err != nil {
		return fmt.Errorf("store active set for %s: %w", category, err)
	}
	return nil
}

// AppendCompleted persists one record to the append-only completed log.
func (s *Store) AppendCompleted(ctx context.Context, record domain.CompletedRecord) error {
	ctx, span := s.tracer.Start(ctx, "signal-store.append-completed")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	record.SchemaVersion = completedSchemaVersion
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode completed record %s: %w", record.ID, err)
	}
	if err := s.kv.Append(ctx, completedKey, string(raw)); err != nil {
		return fmt.Errorf("append completed record %s: %w", record.ID, err)
	}
	return nil
}

// CompletedRecords reads the full completed log, migrating legacy entries
// and deduplicating by id (first occurrence wins). Unreadable entries are
// skipped, not fatal.
func (s *Store) CompletedRecords(ctx context.Context) ([]domain.CompletedRecord, error) {
	ctx, span := s.tracer.Start(ctx, "signal-store.list-completed")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.kv.List(ctx, completedKey)
	if err != nil {
		return nil, fmt.Errorf("load completed log: %w", err)
	}

	out := make([]domain.CompletedRecord, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		var raw storedCompleted
		if err := json.Unmarshal([]byte(entry), &raw); err != nil {
			log.Printf("skipping unreadable completed record: %v", err)
			continue
		}
		rec := migrateCompleted(raw)
		if rec.ID == "" {
			log.Printf("skipping completed record without id")
			continue
		}
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	return out, nil
}

// AutogenState returns the persisted auto-generation preference for a
// category; absent state reads as disabled.
func (s *Store) AutogenState(ctx context.Context, category domain.Category) (domain.AutogenState, error) {
	ctx, span := s.tracer.Start(ctx, "signal-store.autogen-state")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.kv.Get(ctx, autogenKey(category))
	if errors.Is(err, ErrNotFound) {
		return domain.AutogenState{}, nil
	}
	if err != nil {
		return domain.AutogenState{}, fmt.Errorf("load autogen state for %s: %w", category, err)
	}

	var state domain.AutogenState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		log.Printf("discarding unreadable autogen state for %s: %v", category, err)
		return domain.AutogenState{}, nil
	}
	return state, nil
}

func (s *Store) SetAutogenState(ctx context.Context, category domain.Category, state domain.AutogenState) error {
	ctx, span := s.tracer.Start(ctx, "signal-store.set-autogen-state")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode autogen state for %s: %w", category, err)
	}
	if err := s.kv.Set(ctx, autogenKey(category), string(raw)); err != nil {
		return fmt.Errorf("store autogen state for %s: %w", category, err)
	}
	return nil
}
