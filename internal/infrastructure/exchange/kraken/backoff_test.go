package kraken

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 1.3, 30*time.Second)
	b.rand = func() float64 { return 0 }

	var prev time.Duration
	for i := 0; i < 40; i++ {
		d := b.next()
		if d < prev {
			t.Fatalf("attempt %d: delay decreased from %v to %v", i, prev, d)
		}
		if d > 30*time.Second {
			t.Fatalf("attempt %d: delay %v exceeds cap", i, d)
		}
		prev = d
	}
	if prev != 30*time.Second {
		t.Errorf("expected the cap after many attempts, got %v", prev)
	}
}

func TestBackoffJitterStaysUnderCap(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 1.3, 30*time.Second)
	b.rand = func() float64 { return 0.999 }

	for i := 0; i < 40; i++ {
		if d := b.next(); d > 30*time.Second {
			t.Fatalf("attempt %d: jittered delay %v exceeds cap", i, d)
		}
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(500*time.Millisecond, 1.3, 30*time.Second)
	b.rand = func() float64 { return 0 }

	first := b.next()
	for i := 0; i < 10; i++ {
		b.next()
	}
	b.reset()
	if d := b.next(); d != first {
		t.Errorf("after reset expected %v, got %v", first, d)
	}
}
