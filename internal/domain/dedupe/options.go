package dedupe

import "time"

// Option applies a configuration option to the in-memory guard.
type Option func(*inMemoryGuard)

// WithMaxSize caps the number of keys held at once. When full, the key
// held longest is evicted to make room. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(g *inMemoryGuard) {
		g.maxSize = maxSize
	}
}

// WithNow sets the clock used to age keys.
func WithNow(now func() time.Time) Option {
	return func(g *inMemoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}
