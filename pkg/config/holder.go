package config

import (
	"sync"
	"sync/atomic"
)

// Holder publishes configuration snapshots. Readers always see a whole value;
// updates replace the snapshot instead of mutating it.
type Holder struct {
	mu      sync.Mutex
	current atomic.Pointer[Config]
	subs    []func(Config)
}

func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	c := cfg.Clone()
	h.current.Store(&c)
	return h
}

// Load returns a copy of the current snapshot.
func (h *Holder) Load() Config {
	return h.current.Load().Clone()
}

// Replace publishes cfg and notifies subscribers.
func (h *Holder) Replace(cfg Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publish(cfg)
}

// Update derives the next snapshot from the current one. Concurrent updates are serialised.
func (h *Holder) Update(fn func(Config) Config) Config {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := fn(h.current.Load().Clone())
	h.publish(next)
	return next.Clone()
}

// Subscribe registers fn to run after every replacement.
func (h *Holder) Subscribe(fn func(Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

func (h *Holder) publish(cfg Config) {
	c := cfg.Clone()
	h.current.Store(&c)
	for _, fn := range h.subs {
		fn(c.Clone())
	}
}
