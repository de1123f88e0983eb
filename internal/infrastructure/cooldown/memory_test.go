package cooldown

import (
	"context"
	"testing"
	"time"

	"dipwatch/internal/domain/model"
)

func TestMemorySuppression(t *testing.T) {
	base := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return base }
	ctx := context.Background()

	ok, err := m.IsSuppressed(ctx, "a1", model.LevelSmall)
	if err != nil || ok {
		t.Fatalf("fresh store must not suppress, got %v %v", ok, err)
	}

	if err := m.Suppress(ctx, "a1", model.LevelSmall, time.Hour); err != nil {
		t.Fatalf("suppress failed: %v", err)
	}

	ok, _ = m.IsSuppressed(ctx, "a1", model.LevelSmall)
	if !ok {
		t.Error("just-registered entry should suppress")
	}

	// levels are independent
	ok, _ = m.IsSuppressed(ctx, "a1", model.LevelMedium)
	if ok {
		t.Error("another level must not be suppressed")
	}
	ok, _ = m.IsSuppressed(ctx, "a2", model.LevelSmall)
	if ok {
		t.Error("another alert must not be suppressed")
	}
}

func TestMemoryExpiry(t *testing.T) {
	base := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return base }
	ctx := context.Background()

	_ = m.Suppress(ctx, "a1", model.LevelLarge, time.Hour)

	m.now = func() time.Time { return base.Add(59 * time.Minute) }
	if ok, _ := m.IsSuppressed(ctx, "a1", model.LevelLarge); !ok {
		t.Error("entry inside the TTL should suppress")
	}

	m.now = func() time.Time { return base.Add(61 * time.Minute) }
	if ok, _ := m.IsSuppressed(ctx, "a1", model.LevelLarge); ok {
		t.Error("entry past the TTL must not suppress")
	}
}

func TestMemoryDefaultTTL(t *testing.T) {
	base := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return base }
	ctx := context.Background()

	_ = m.Suppress(ctx, "a1", model.LevelSmall, 0)

	m.now = func() time.Time { return base.Add(DefaultTTL - time.Minute) }
	if ok, _ := m.IsSuppressed(ctx, "a1", model.LevelSmall); !ok {
		t.Error("zero ttl should fall back to the default window")
	}
}
