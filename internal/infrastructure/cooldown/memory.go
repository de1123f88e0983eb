package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dipwatch/internal/domain/model"
)

// DefaultTTL is the suppression window per (alert, level).
const DefaultTTL = time.Hour

func entryKey(alertID string, level model.Level) string {
	return fmt.Sprintf("%s:%s", alertID, level)
}

// Memory is the in-process cooldown store. Entries expire lazily on read;
// absence means free to fire again.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *Memory) IsSuppressed(_ context.Context, alertID string, level model.Level) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := entryKey(alertID, level)
	exp, ok := m.expires[k]
	if !ok {
		return false, nil
	}
	if m.now().After(exp) {
		delete(m.expires, k)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Suppress(_ context.Context, alertID string, level model.Level, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	m.expires[entryKey(alertID, level)] = m.now().Add(ttl)
	m.mu.Unlock()
	return nil
}
