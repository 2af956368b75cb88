package client

import "time"

const (
	backoffBase = 1 * time.Second
	backoffCap  = 30 * time.Second
)

// backoff computes exponential reconnect delays: base × 2^attempt, capped.
// The attempt counter itself is uncapped and only resets on a successful
// connection.
type backoff struct {
	base     time.Duration
	cap      time.Duration
	attempts int
}

func newBackoff() *backoff {
	return &backoff{base: backoffBase, cap: backoffCap}
}

func (b *backoff) next() time.Duration {
	d := b.base
	for i := 0; i < b.attempts; i++ {
		d *= 2
		if d >= b.cap {
			d = b.cap
			break
		}
	}
	b.attempts++
	return d
}

func (b *backoff) reset() {
	b.attempts = 0
}
