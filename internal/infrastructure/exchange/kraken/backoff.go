package kraken

import (
	"math/rand"
	"time"
)

// backoff yields reconnect delays: exponential with a gentle factor, a
// random jitter fraction on top, capped at max. Owned by one client
// instance and reset after a successful connect.
type backoff struct {
	initial time.Duration
	factor  float64
	max     time.Duration

	cur  time.Duration
	rand func() float64 // [0,1)
}

func newBackoff(initial time.Duration, factor float64, max time.Duration) *backoff {
	if factor < 1 {
		factor = 1.3
	}
	return &backoff{initial: initial, factor: factor, max: max, rand: rand.Float64}
}

// next returns the delay before the upcoming attempt. The deterministic base
// never decreases and the jittered result never exceeds max.
func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.initial
	} else {
		b.cur = time.Duration(float64(b.cur) * b.factor)
	}
	if b.cur > b.max {
		b.cur = b.max
	}
	d := b.cur + time.Duration(b.rand()*0.1*float64(b.cur))
	if d > b.max {
		d = b.max
	}
	return d
}

func (b *backoff) reset() { b.cur = 0 }
