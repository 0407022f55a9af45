// Package asynchook moves rediscache.Hooks calls off the operation path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{RefreshEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := rediscache.New[User](rediscache.Options[User]{
//	    Addr:  "localhost:6379",
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/rediscache"
)

type Hooks struct {
	inner   rediscache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ rediscache.Hooks = (*Hooks)(nil)

func New(inner rediscache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed Hooks.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Connected(db int, reconnect bool) { h.try(func() { h.inner.Connected(db, reconnect) }) }
func (h *Hooks) ConnectFailed(db int, err error)  { h.try(func() { h.inner.ConnectFailed(db, err) }) }
func (h *Hooks) Disposed(db int)                  { h.try(func() { h.inner.Disposed(db) }) }
func (h *Hooks) ConnectionBroken(op string, err error) {
	h.try(func() { h.inner.ConnectionBroken(op, err) })
}
func (h *Hooks) SlidingRefreshFailed(key string, err error) {
	h.try(func() { h.inner.SlidingRefreshFailed(key, err) })
}
func (h *Hooks) DecodeFailed(key string, err error) {
	h.try(func() { h.inner.DecodeFailed(key, err) })
}
