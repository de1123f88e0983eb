package kraken

import (
	"math/rand"
	"sync"
	"time"
)

// msgLimiter tracks the inbound message rate over a rolling one-second
// window. Above softLimit a rate-limited flag is raised for consumers to
// query; above hardLimit lower-priority frames (trade prints) are
// probabilistically shed. Ticker frames are never shed.
type msgLimiter struct {
	mu        sync.Mutex
	softLimit int
	hardLimit int

	windowStart time.Time
	count       int
	limited     bool

	now  func() time.Time
	rand func() float64
}

func newMsgLimiter(soft, hard int) *msgLimiter {
	return &msgLimiter{
		softLimit: soft,
		hardLimit: hard,
		now:       time.Now,
		rand:      rand.Float64,
	}
}

// observe records one inbound message and returns the rate in the current
// window.
func (l *msgLimiter) observe() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) >= time.Second {
		l.windowStart = now
		l.count = 0
	}
	l.count++
	l.limited = l.softLimit > 0 && l.count > l.softLimit
	return l.count
}

// allowTrade decides whether a trade-class frame may pass. The drop
// probability grows with the overshoot, so shedding stays proportional to
// the overload instead of going all-or-nothing.
func (l *msgLimiter) allowTrade() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hardLimit <= 0 || l.count <= l.hardLimit {
		return true
	}
	dropP := 1 - float64(l.hardLimit)/float64(l.count)
	return l.rand() >= dropP
}

func (l *msgLimiter) rateLimited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limited
}
