// Package cache holds the last-known value of every product sub-resource,
// keyed by resource family and owning product. It has no network awareness
// and no expiry: entries live until the session ends or Clear is called.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/pkg/model"
)

// Key builds the deterministic cache key for a resource of a product,
// e.g. Key(model.ResourceCoupons, "P1") -> "coupons:P1" and
// Key(model.ResourceCheckouts, "P1", "C9") -> "checkouts:P1:C9".
func Key(resource model.ResourceType, productID string, childIDs ...string) string {
	parts := append([]string{string(resource), productID}, childIDs...)
	return strings.Join(parts, ":")
}

// Store maps a resource key to its last-known raw JSON value.
// Last write wins; there is no eviction policy.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key string, value json.RawMessage)
	Delete(ctx context.Context, key string)
	// Clear drops every entry. Called on the session/logout boundary only.
	Clear(ctx context.Context)
}

// Put marshals value and stores it under key. Values that fail to marshal
// are dropped; the cache is strictly best-effort.
func Put(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.Set(ctx, key, data)
	return nil
}

// GetAs reads key and unmarshals it into T. A decode failure counts as a
// miss so a corrupt entry degrades to a refetch rather than an error.
func GetAs[T any](ctx context.Context, s Store, key string) (T, bool) {
	var out T
	raw, ok := s.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// Memory is the default in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, bool) {
	m.mu.RLock()
	val, ok := m.data[key]
	m.mu.RUnlock()
	metrics.IncCache(resourceOf(key), ok)
	return val, ok
}

func (m *Memory) Set(_ context.Context, key string, value json.RawMessage) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	m.data = make(map[string]json.RawMessage)
	m.mu.Unlock()
}

// resourceOf extracts the resource family from a key for metric labels.
func resourceOf(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
