package kraken

import (
	"testing"
	"time"
)

func TestLimiterSoftFlag(t *testing.T) {
	base := time.Now()
	l := newMsgLimiter(5, 10)
	l.now = func() time.Time { return base }

	for i := 0; i < 5; i++ {
		l.observe()
	}
	if l.rateLimited() {
		t.Error("at the soft limit the flag should still be down")
	}
	l.observe()
	if !l.rateLimited() {
		t.Error("one past the soft limit should raise the flag")
	}

	// flag drops when a new window stays quiet
	l.now = func() time.Time { return base.Add(2 * time.Second) }
	l.observe()
	if l.rateLimited() {
		t.Error("a fresh window should lower the flag")
	}
}

func TestLimiterTradeShedding(t *testing.T) {
	base := time.Now()
	l := newMsgLimiter(5, 10)
	l.now = func() time.Time { return base }

	for i := 0; i < 10; i++ {
		l.observe()
	}
	l.rand = func() float64 { return 0 }
	if !l.allowTrade() {
		t.Error("at the hard limit trades must still pass")
	}

	for i := 0; i < 10; i++ {
		l.observe()
	}
	// count 20, hard 10: drop probability 0.5
	l.rand = func() float64 { return 0.4 }
	if l.allowTrade() {
		t.Error("a roll below the drop probability should shed the trade")
	}
	l.rand = func() float64 { return 0.6 }
	if !l.allowTrade() {
		t.Error("a roll above the drop probability should pass the trade")
	}
}

func TestLimiterDisabledWhenZero(t *testing.T) {
	l := newMsgLimiter(0, 0)
	for i := 0; i < 1000; i++ {
		l.observe()
	}
	if l.rateLimited() {
		t.Error("soft limit 0 disables the flag")
	}
	if !l.allowTrade() {
		t.Error("hard limit 0 disables shedding")
	}
}
