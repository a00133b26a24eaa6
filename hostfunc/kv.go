package hostfunc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	DefaultKVMaxEntries   = 1024
	DefaultKVMaxKeySize   = 256
	DefaultKVMaxValueSize = 64 << 10 // 64KB
)

// KVStore is a bounded in-memory key-value store shared by all scripts.
// Scripts use it for settings and small state that must survive across
// requests but not across restarts.
type KVStore struct {
	mu         sync.RWMutex
	data       map[string]string
	maxEntries int
	maxKey     int
	maxValue   int
}

type KVOption func(*KVStore)

func WithKVMaxEntries(n int) KVOption {
	return func(s *KVStore) { s.maxEntries = n }
}

func WithKVMaxKeySize(n int) KVOption {
	return func(s *KVStore) { s.maxKey = n }
}

func WithKVMaxValueSize(n int) KVOption {
	return func(s *KVStore) { s.maxValue = n }
}

func NewKVStore(opts ...KVOption) *KVStore {
	s := &KVStore{
		data:       make(map[string]string),
		maxEntries: DefaultKVMaxEntries,
		maxKey:     DefaultKVMaxKeySize,
		maxValue:   DefaultKVMaxValueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *KVStore) Get(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}

	s.mu.RLock()
	val, exists := s.data[key]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	return val, nil
}

func (s *KVStore) Set(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}
	val, ok := args["value"].(string)
	if !ok {
		return nil, errors.New("value required")
	}

	if len(key) > s.maxKey {
		return nil, fmt.Errorf("key exceeds max size %d", s.maxKey)
	}
	if len(val) > s.maxValue {
		return nil, fmt.Errorf("value exceeds max size %d", s.maxValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists && len(s.data) >= s.maxEntries {
		return nil, fmt.Errorf("store full (%d entries)", s.maxEntries)
	}
	s.data[key] = val
	return "ok", nil
}

func (s *KVStore) Delete(ctx context.Context, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok {
		return nil, errors.New("key required")
	}

	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()

	return "ok", nil
}

func (s *KVStore) Keys(ctx context.Context, args map[string]any) (any, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys, nil
}
