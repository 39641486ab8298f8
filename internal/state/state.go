// Package state holds the client-side containers that own local copies of
// the storefront's server entities. Every container mediates its writes
// through the API client, or through an in-memory fixture copy in mock mode.
package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/pkg/logger"
)

// Options configure a container. Mode is read on every call.
type Options struct {
	Mode   config.Mode
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (o Options) mock() bool { return o.Mode.IsMock() }

func (o Options) log() *slog.Logger {
	if o.Logger == nil {
		return logger.Discard()
	}
	return o.Logger
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// tracker tags fetches with a generation and counts the ones in flight.
// Callers hold the owning container's lock.
type tracker struct {
	gen      uint64
	inflight int
}

func (t *tracker) begin() uint64 {
	t.gen++
	t.inflight++
	return t.gen
}

func (t *tracker) end() { t.inflight-- }

// current reports whether g is still the newest fetch.
func (t *tracker) current(g uint64) bool { return g == t.gen }

func (t *tracker) loading() bool { return t.inflight > 0 }

// broadcaster fans a value out to subscribers. Callbacks run on the
// publishing goroutine, outside any container lock.
type broadcaster[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

func (b *broadcaster[T]) subscribe(fn func(T)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(T))
	}
	id := b.next
	b.next++
	b.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

func (b *broadcaster[T]) publish(v T) {
	b.mu.Lock()
	fns := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
