package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry hands out named counters. A nil *Registry is valid and discards
// every increment.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*Counter)}
}

func (r *Registry) Counter(name string) *Counter {
	if r == nil {
		return &Counter{}
	}

	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

func (r *Registry) Inc(name string) {
	r.Counter(name).Inc()
}

// Snapshot returns current values keyed by counter name.
func (r *Registry) Snapshot() map[string]uint64 {
	out := map[string]uint64{}
	if r == nil {
		return out
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, c := range r.counters {
		out[name] = c.Load()
	}
	return out
}
