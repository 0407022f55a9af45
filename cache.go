package rediscache

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediscache/codec"
	"github.com/unkn0wn-root/rediscache/internal/wire"
)

const (
	opGet       = "get"
	opSet       = "set"
	opAdd       = "add"
	opSwap      = "add_or_get_existing"
	opGetValues = "get_values"
	opRemove    = "remove"
	opContains  = "contains"
	opCount     = "count"
	opKeys      = "keys"
	opClear     = "clear"
	opRefresh   = "refresh"
	opClose     = "close"
)

// refreshScript pushes a sliding TTL out only while the key still holds the
// frame the reader saw. A writer that replaced the value in between keeps the
// expiration it asked for.
var refreshScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// errDisposed travels between the internal helpers when an operation hits a
// disposed cache. Public methods turn it into their no-op result.
var errDisposed = errors.New("rediscache: disposed")

type cache[V any] struct {
	conns     *connector
	codec     codec.Codec[V]
	log       Logger
	hooks     Hooks
	now       func() time.Time
	db        int
	scanCount int64

	disposed atomic.Bool
}

var _ Cache[struct{}] = (*cache[struct{}])(nil)

func newCache[V any](opts Options[V]) (*cache[V], error) {
	ro, err := opts.redisOptions()
	if err != nil {
		return nil, err
	}

	c := &cache[V]{
		db:        ro.DB,
		codec:     coalesce[codec.Codec[V]](opts.Codec, codec.Default[V]()),
		log:       coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:     coalesce[Hooks](opts.Hooks, NopHooks{}),
		scanCount: coalesce(opts.ScanCount, defaultScanCount),
		now:       opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.conns = newConnector(ro, c.log, c.hooks)
	return c, nil
}

func (c *cache[V]) DB() int { return c.db }

func (c *cache[V]) IsDisposed() bool { return c.disposed.Load() }

func (c *cache[V]) InRegion(r Region) Cache[V] {
	if r.IsDefault() {
		return c
	}
	return regionView[V]{parent: c, region: r}
}

// Close disposes the cache. Exactly one caller among concurrent Close calls
// releases the connection; the rest return nil immediately.
func (c *cache[V]) Close(context.Context) error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.conns.close()
	c.log.Debug("cache disposed", Fields{"db": c.db})
	c.hooks.Disposed(c.db)
	if err != nil {
		return &OpError{Op: opClose, Kind: ErrConnection, Err: err}
	}
	return nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	v, ok, err := c.get(ctx, key)
	return v, ok, settle(err)
}

func (c *cache[V]) get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := checkKey(opGet, key); err != nil {
		return zero, false, err
	}
	cn, err := c.acquire(ctx, opGet, key)
	if err != nil {
		return zero, false, err
	}

	raw, err := cn.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.fail(cn, opGet, key, err)
	}

	v, window, err := c.decode(opGet, key, raw)
	if err != nil {
		return zero, false, err
	}
	if window > 0 {
		if err := refreshScript.Run(ctx, cn.rdb, []string{key}, raw, window.Milliseconds()).Err(); err != nil {
			c.lostRefresh(cn, err, key)
		}
	}
	return v, true, nil
}

func (c *cache[V]) Set(ctx context.Context, key string, value V, p Policy) error {
	if err := checkWrite(opSet, key, value, p); err != nil {
		return err
	}
	raw, err := c.encode(opSet, key, value, p)
	if err != nil {
		return err
	}
	cn, err := c.acquire(ctx, opSet, key)
	if err != nil {
		return settle(err)
	}

	_, err = cn.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, raw, 0)
		p.apply(ctx, pipe, key, c.now())
		return nil
	})
	if err != nil {
		return settle(c.fail(cn, opSet, key, err))
	}
	return nil
}

// Put is Set without expiration.
func (c *cache[V]) Put(ctx context.Context, key string, value V) error {
	return c.Set(ctx, key, value, NoExpiration)
}

// AddOrGetExisting swaps value in with GETSET and returns what was there
// before. This is a destructive swap, not an insert-if-absent: the new value
// is installed either way. The TTL commands for p run in the same
// transaction.
func (c *cache[V]) AddOrGetExisting(ctx context.Context, key string, value V, p Policy) (V, bool, error) {
	v, ok, err := c.swap(ctx, opSwap, key, value, p)
	return v, ok, settle(err)
}

// Add reports whether key was absent before value was swapped in.
func (c *cache[V]) Add(ctx context.Context, key string, value V, p Policy) (bool, error) {
	_, found, err := c.swap(ctx, opAdd, key, value, p)
	if err != nil {
		return false, settle(err)
	}
	return !found, nil
}

func (c *cache[V]) swap(ctx context.Context, op, key string, value V, p Policy) (V, bool, error) {
	var zero V
	if err := checkWrite(op, key, value, p); err != nil {
		return zero, false, err
	}
	raw, err := c.encode(op, key, value, p)
	if err != nil {
		return zero, false, err
	}
	cn, err := c.acquire(ctx, op, key)
	if err != nil {
		return zero, false, err
	}

	var prev *redis.StringCmd
	_, err = cn.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		prev = pipe.GetSet(ctx, key, raw)
		p.apply(ctx, pipe, key, c.now())
		return nil
	})
	if err != nil && err != redis.Nil {
		return zero, false, c.fail(cn, op, key, err)
	}

	old, err := prev.Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.fail(cn, op, key, err)
	}
	v, _, err := c.decode(op, key, old)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// GetValues reads keys with one MGET. The result has one entry per input key,
// in input order. A slot whose stored bytes cannot be decoded gets Entry.Err
// and Found=false; the other slots are still returned, together with a
// *BatchError listing the failures.
func (c *cache[V]) GetValues(ctx context.Context, keys []string) ([]Entry[V], error) {
	if err := checkKeys(opGetValues, keys); err != nil {
		return nil, err
	}
	out := make([]Entry[V], len(keys))
	for i, k := range keys {
		out[i].Key = k
	}
	if len(keys) == 0 {
		return out, nil
	}
	cn, err := c.acquire(ctx, opGetValues, "")
	if err != nil {
		return out, settle(err)
	}

	vals, err := cn.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		if err = settle(c.fail(cn, opGetValues, "", err)); err != nil {
			return nil, err
		}
		return out, nil
	}

	type touch struct {
		key    string
		frame  string
		window time.Duration
	}
	var (
		failed  []*OpError
		touches []touch
	)
	for i, raw := range vals {
		if raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			oe := &OpError{Op: opGetValues, Key: keys[i], Kind: ErrCodec, Err: errors.New("unexpected reply type")}
			out[i].Err = oe
			failed = append(failed, oe)
			continue
		}
		v, window, err := c.decode(opGetValues, keys[i], []byte(s))
		if err != nil {
			out[i].Err = err
			failed = append(failed, err.(*OpError))
			continue
		}
		out[i].Value, out[i].Found = v, true
		if window > 0 {
			touches = append(touches, touch{key: keys[i], frame: s, window: window})
		}
	}

	if len(touches) > 0 {
		// EVALSHA cannot fall back to EVAL inside a pipeline, so the script
		// body is sent with each command.
		cmds, err := cn.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, t := range touches {
				refreshScript.Eval(ctx, pipe, []string{t.key}, t.frame, t.window.Milliseconds())
			}
			return nil
		})
		if err != nil {
			for i, cmd := range cmds {
				if cmd.Err() != nil {
					c.lostRefresh(cn, cmd.Err(), touches[i].key)
				}
			}
		}
	}

	if len(failed) > 0 {
		return out, &BatchError{Op: opGetValues, Requested: len(keys), Failed: failed}
	}
	return out, nil
}

// Remove deletes key and returns the value it held. GET and DEL run in one
// transaction, so the returned value is exactly the one that was removed.
func (c *cache[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	v, ok, err := c.remove(ctx, key)
	return v, ok, settle(err)
}

func (c *cache[V]) remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := checkKey(opRemove, key); err != nil {
		return zero, false, err
	}
	cn, err := c.acquire(ctx, opRemove, key)
	if err != nil {
		return zero, false, err
	}

	var get *redis.StringCmd
	_, err = cn.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && err != redis.Nil {
		return zero, false, c.fail(cn, opRemove, key, err)
	}

	raw, err := get.Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, c.fail(cn, opRemove, key, err)
	}
	v, _, err := c.decode(opRemove, key, raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Contains checks existence without transferring the value. It does not
// count as a read for sliding expiration.
func (c *cache[V]) Contains(ctx context.Context, key string) (bool, error) {
	if err := checkKey(opContains, key); err != nil {
		return false, err
	}
	cn, err := c.acquire(ctx, opContains, key)
	if err != nil {
		return false, settle(err)
	}
	n, err := cn.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, settle(c.fail(cn, opContains, key, err))
	}
	return n > 0, nil
}

// Count returns DBSIZE for the selected database. Redis reports every key in
// the database, including ones written by other clients, and may still count
// keys whose TTL elapsed but which were not yet evicted.
func (c *cache[V]) Count(ctx context.Context) (int64, error) {
	cn, err := c.acquire(ctx, opCount, "")
	if err != nil {
		return 0, settle(err)
	}
	n, err := cn.rdb.DBSize(ctx).Result()
	if err != nil {
		return 0, settle(c.fail(cn, opCount, "", err))
	}
	return n, nil
}

// Keys enumerates the selected database with SCAN. Meant for tests and
// maintenance, not for hot paths.
func (c *cache[V]) Keys(ctx context.Context) ([]string, error) {
	cn, err := c.acquire(ctx, opKeys, "")
	if err != nil {
		return nil, settle(err)
	}

	var keys []string
	seen := make(map[string]struct{})
	iter := cn.rdb.Scan(ctx, 0, "", c.scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, dup := seen[k]; dup { // SCAN may repeat keys
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, settle(c.fail(cn, opKeys, "", err))
	}
	return keys, nil
}

// Clear deletes every key in the selected database, one SCAN page at a time,
// and returns how many were removed.
func (c *cache[V]) Clear(ctx context.Context) (int64, error) {
	cn, err := c.acquire(ctx, opClear, "")
	if err != nil {
		return 0, settle(err)
	}

	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := cn.rdb.Scan(ctx, cursor, "", c.scanCount).Result()
		if err != nil {
			return removed, settle(c.fail(cn, opClear, "", err))
		}
		if len(keys) > 0 {
			n, err := cn.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, settle(c.fail(cn, opClear, "", err))
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// acquire returns the live connection, or errDisposed once Close has run.
func (c *cache[V]) acquire(ctx context.Context, op, key string) (*conn, error) {
	if c.disposed.Load() {
		return nil, errDisposed
	}
	cn, err := c.conns.get(ctx)
	if errors.Is(err, errConnectorClosed) {
		return nil, errDisposed
	}
	if err != nil {
		return nil, &OpError{Op: op, Key: key, Kind: ErrConnection, Err: err}
	}
	return cn, nil
}

// fail classifies a command error. Transport failures mark the connection
// for rebuild; server replies and context errors do not. Once Close has
// started, any failure is taken to be the teardown and reported as
// errDisposed: a client closed mid-command surfaces raw socket errors as
// well as redis.ErrClosed.
func (c *cache[V]) fail(cn *conn, op, key string, err error) error {
	if c.disposed.Load() {
		return errDisposed
	}
	var reply redis.Error
	switch {
	case errors.As(err, &reply):
		return &OpError{Op: op, Key: key, Kind: ErrBackend, Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		c.conns.markBroken(cn, op, err)
	}
	return &OpError{Op: op, Key: key, Kind: ErrConnection, Err: err}
}

// lostRefresh records a sliding TTL refresh that did not reach Redis. The
// read that triggered it still succeeds; the entry may expire early.
func (c *cache[V]) lostRefresh(cn *conn, err error, key string) {
	if c.fail(cn, opRefresh, key, err) == errDisposed {
		return
	}
	c.log.Warn("sliding expiration refresh lost", Fields{"key": key, "db": c.db, "err": err})
	c.hooks.SlidingRefreshFailed(key, err)
}

func (c *cache[V]) encode(op, key string, v V, p Policy) ([]byte, error) {
	payload, err := c.codec.Encode(v)
	if err != nil {
		return nil, &OpError{Op: op, Key: key, Kind: ErrCodec, Err: err}
	}
	return wire.Encode(p.slidingWindow(), payload), nil
}

// decode unframes raw and runs the codec. Corruption is an error, never a
// miss.
func (c *cache[V]) decode(op, key string, raw []byte) (V, time.Duration, error) {
	var zero V
	e, err := wire.Decode(raw)
	if err == nil {
		var v V
		if v, err = c.codec.Decode(e.Payload); err == nil {
			return v, e.Sliding, nil
		}
	}
	c.hooks.DecodeFailed(key, err)
	return zero, 0, &OpError{Op: op, Key: key, Kind: ErrCodec, Err: err}
}

// settle maps errDisposed to the nil error of a no-op.
func settle(err error) error {
	if err == errDisposed {
		return nil
	}
	return err
}

func checkKey(op, key string) error {
	if key == "" {
		return invalid(op, key, "key is required")
	}
	return nil
}

func checkKeys(op string, keys []string) error {
	if keys == nil {
		return invalid(op, "", "keys is required")
	}
	for _, k := range keys {
		if err := checkKey(op, k); err != nil {
			return err
		}
	}
	return nil
}

func checkWrite[V any](op, key string, value V, p Policy) error {
	if err := checkKey(op, key); err != nil {
		return err
	}
	if isNil(value) {
		return invalid(op, key, "value is required")
	}
	if err := p.validate(); err != nil {
		return invalid(op, key, err.Error())
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
