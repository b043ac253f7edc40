package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrMiss is returned when no entry exists for a key.
	ErrMiss = errors.New("cache miss")
)

// Entry is a memoized response payload.
type Entry struct {
	Key        string    `json:"key"`
	Value      []byte    `json:"value"`
	InsertedAt time.Time `json:"inserted_at"`
}

// Cache is the contract the remote client memoizes lookups through.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value []byte) error
}

var _ Cache = (*Memory)(nil)

// Memory is a bounded in-process cache that evicts the least recently used entry
// once capacity is reached.
type Memory struct {
	entries *lru.Cache[string, Entry]
	now     func() time.Time
}

// NewMemory creates a Memory cache holding at most capacity entries.
func NewMemory(capacity int) (*Memory, error) {
	entries, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache with capacity %d: %w", capacity, err)
	}
	return &Memory{entries: entries, now: time.Now}, nil
}

// Get returns the entry for key and marks it as most recently used.
func (m *Memory) Get(_ context.Context, key string) (Entry, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return Entry{}, ErrMiss
	}
	return e, nil
}

// Set stores value under key, evicting the least recently used entry when full.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.entries.Add(key, Entry{
		Key:        key,
		Value:      value,
		InsertedAt: m.now().UTC(),
	})
	return nil
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	return m.entries.Len()
}
