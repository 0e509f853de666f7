// Package history records successful predictions so users can review them.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Limits for Recent.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is one stored prediction.
type Entry struct {
	ID string `json:"id"`
	// UserID is empty for anonymous requests.
	UserID    string          `json:"user_id"`
	Record    map[string]any  `json:"record"`
	Salary    decimal.Decimal `json:"predicted_salary"`
	Currency  string          `json:"currency"`
	Period    string          `json:"period"`
	ModelName string          `json:"model_name"`
	CreatedAt time.Time       `json:"created_at"`
}

// Store persists prediction history.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first. An empty userID
	// matches every user.
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
	Ping(ctx context.Context) error
	Close()
}

// NormalizeLimit maps a requested limit into [1, MaxLimit], with
// non-positive values meaning DefaultLimit.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// MemoryStore keeps the most recent entries in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
// Non-positive capacities default to 10000.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryStore{capacity: capacity}
}

// Record appends e, evicting the oldest entry when full.
func (s *MemoryStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries = s.entries[:len(s.entries)-1]
	}
	s.entries = append(s.entries, e)
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if userID == "" || s.entries[i].UserID == userID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() {}
