package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process StateStore for tests and single-node
// deployments. All operations, including ClaimSlot, are serialized by one
// mutex, which gives the same atomicity the Redis scripts provide.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	lists   map[string][][]byte
	index   map[string]string
	clock   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		lists:   make(map[string][][]byte),
		index:   make(map[string]string),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic expiry testing.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && s.clock().After(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryStore) Get(ctx context.Context, key string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	if e == nil {
		return ErrNotFound
	}
	if err := json.Unmarshal(e.data, out); err != nil {
		return fmt.Errorf("store: failed to decode %q: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) SetWithExpiry(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to encode %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &memoryEntry{data: data}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) ListAppend(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: failed to encode list entry for %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lists[key] = append(s.lists[key], data)
	return nil
}

func (s *MemoryStore) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return nil, nil
	}

	out := make([][]byte, 0, stop-start+1)
	for _, v := range list[start : stop+1] {
		out = append(out, v)
	}
	return out, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.live(key); e != nil {
		e.expiresAt = s.clock().Add(ttl)
	}
	// Expiring a list is accepted but not enforced in the fake; the
	// routing log tests only assert appends within a single day.
	return nil
}

func (s *MemoryStore) ReverseIndexSet(ctx context.Context, indexKey, primaryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[indexKey] = primaryID
	return nil
}

func (s *MemoryStore) ReverseIndexSetNX(ctx context.Context, indexKey, primaryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[indexKey]; ok {
		return false, nil
	}
	s.index[indexKey] = primaryID
	return true, nil
}

func (s *MemoryStore) ReverseIndexGet(ctx context.Context, indexKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.index[indexKey]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) ClaimSlot(ctx context.Context, key string, max int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.counter(key)
	if current >= max {
		return false, current, nil
	}
	current++
	s.entries[key] = &memoryEntry{data: []byte(strconv.Itoa(current))}
	return true, current, nil
}

func (s *MemoryStore) ReleaseSlot(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.counter(key)
	if current <= 0 {
		return nil
	}
	s.entries[key] = &memoryEntry{data: []byte(strconv.Itoa(current - 1))}
	return nil
}

func (s *MemoryStore) counter(key string) int {
	e := s.live(key)
	if e == nil {
		return 0
	}
	n, err := strconv.Atoi(string(e.data))
	if err != nil {
		return 0
	}
	return n
}
