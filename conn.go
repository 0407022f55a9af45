package rediscache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// errConnectorClosed is returned by connector.get after close. Operations
// treat it as "disposed" and return their no-op result.
var errConnectorClosed = errors.New("rediscache: connector closed")

// conn is one published client. It is never mutated after publication
// except for the broken latch.
type conn struct {
	rdb    redis.UniversalClient
	broken atomic.Bool
}

// connector owns the lazily dialed client for one cache instance.
//
// Readers take the fast path: one atomic load. A client that failed at the
// transport level is marked broken and replaced by the next caller. dialMu
// serializes those rebuilds so concurrent callers never dial twice; mu only
// guards closed and the publication of cur, and is never held across network
// I/O, so close does not wait for a dial in flight.
type connector struct {
	opts  *redis.Options
	dial  func(*redis.Options) redis.UniversalClient
	log   Logger
	hooks Hooks

	cur atomic.Pointer[conn]

	dialMu sync.Mutex
	dials  int // guarded by dialMu

	mu     sync.Mutex
	closed bool
}

func newConnector(opts *redis.Options, log Logger, hooks Hooks) *connector {
	return &connector{
		opts:  opts,
		dial:  func(o *redis.Options) redis.UniversalClient { return redis.NewClient(o) },
		log:   log,
		hooks: hooks,
	}
}

func (m *connector) get(ctx context.Context) (*conn, error) {
	if c := m.cur.Load(); c != nil && !c.broken.Load() {
		return c, nil
	}
	return m.rebuild(ctx)
}

func (m *connector) rebuild(ctx context.Context) (*conn, error) {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	if m.isClosed() {
		return nil, errConnectorClosed
	}
	old := m.cur.Load()
	if old != nil && !old.broken.Load() {
		return old, nil // someone else rebuilt while we waited
	}

	o := *m.opts
	rdb := m.dial(&o)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		if m.isClosed() {
			return nil, errConnectorClosed
		}
		m.log.Debug("redis connect failed", Fields{"addr": m.opts.Addr, "db": m.opts.DB, "err": err})
		m.hooks.ConnectFailed(m.opts.DB, err)
		return nil, err
	}

	c := &conn{rdb: rdb}
	m.mu.Lock()
	if m.closed {
		// close ran during the dial and already released old
		m.mu.Unlock()
		_ = rdb.Close()
		return nil, errConnectorClosed
	}
	m.cur.Store(c)
	m.mu.Unlock()
	if old != nil {
		_ = old.rdb.Close()
	}

	reconnect := m.dials > 0
	m.dials++
	m.log.Debug("redis connected", Fields{"addr": m.opts.Addr, "db": m.opts.DB, "reconnect": reconnect})
	m.hooks.Connected(m.opts.DB, reconnect)
	return c, nil
}

func (m *connector) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// markBroken flags c for replacement. Only the first caller reports it.
func (m *connector) markBroken(c *conn, op string, err error) {
	if c == nil || !c.broken.CompareAndSwap(false, true) {
		return
	}
	m.log.Debug("redis connection marked broken", Fields{"op": op, "err": err})
	m.hooks.ConnectionBroken(op, err)
}

// close releases the current client and refuses further dials. A dial in
// flight is not waited for; its client is closed once it returns.
func (m *connector) close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	c := m.cur.Swap(nil)
	m.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
