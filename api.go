package rediscache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/rediscache/codec"
)

// Cache is the object-cache contract over one Redis logical database.
// V is the caller's value type; serialization is handled by a Codec[V].
//
// Reads of a missing key report found=false with a nil error. After Close,
// every operation is a no-op that reports "absent"/false/0 instead of an
// error; argument validation still applies.
type Cache[V any] interface {
	// Single key
	Get(ctx context.Context, key string) (v V, found bool, err error)
	Set(ctx context.Context, key string, value V, p Policy) error
	Put(ctx context.Context, key string, value V) error
	Add(ctx context.Context, key string, value V, p Policy) (added bool, err error)
	AddOrGetExisting(ctx context.Context, key string, value V, p Policy) (prev V, found bool, err error)
	Remove(ctx context.Context, key string) (v V, found bool, err error)
	Contains(ctx context.Context, key string) (bool, error)

	// Batch: one MGET, entries in input order.
	GetValues(ctx context.Context, keys []string) ([]Entry[V], error)

	// Whole database
	Count(ctx context.Context) (int64, error)
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) (int64, error)

	InRegion(r Region) Cache[V]
	DB() int
	IsDisposed() bool
	Close(ctx context.Context) error
}

// Entry is one slot of a GetValues result.
type Entry[V any] struct {
	Key   string
	Value V
	Found bool
	Err   error // set when this slot alone failed to decode
}

// Options configure a cache. One endpoint source is required: Redis, URL or
// Addr, checked in that order. Zero values elsewhere mean "library default".
//
// The cache does not retry failed operations. go-redis retries a command up
// to MaxRetries times on network errors; callers that need more must wrap
// their calls.
type Options[V any] struct {
	// Endpoint
	Redis     *redis.Options // full client options; copied, never mutated
	URL       string         // redis:// or rediss:// URL, parsed by redis.ParseURL
	Addr      string         // host:port
	Username  string
	Password  string
	TLSConfig *tls.Config

	// DB selects the logical database. A zero DB keeps whatever the endpoint
	// source says unless SelectDB is set; set SelectDB to force database 0
	// over a URL such as redis://host/2.
	DB       int
	SelectDB bool

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MaxRetries   int

	Codec     codec.Codec[V]   // nil => codec.Default[V]() (msgpack)
	Logger    Logger           // nil => NopLogger
	Hooks     Hooks            // nil => NopHooks
	Now       func() time.Time // clock for absolute deadlines; nil => time.Now
	ScanCount int64            // SCAN COUNT hint for Keys/Clear; 0 => 256
}

const defaultScanCount = 256

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}

func (o Options[V]) redisOptions() (*redis.Options, error) {
	var ro redis.Options
	switch {
	case o.Redis != nil:
		ro = *o.Redis
	case o.URL != "":
		parsed, err := redis.ParseURL(o.URL)
		if err != nil {
			return nil, fmt.Errorf("rediscache: parse url: %w", err)
		}
		ro = *parsed
	case o.Addr != "":
		ro.Addr = o.Addr
	default:
		return nil, errors.New("rediscache: endpoint is required (Redis, URL or Addr)")
	}

	if o.DB < 0 {
		return nil, fmt.Errorf("rediscache: invalid db %d", o.DB)
	}
	if o.SelectDB || o.DB != 0 {
		ro.DB = o.DB
	}
	ro.Username = coalesce(o.Username, ro.Username)
	ro.Password = coalesce(o.Password, ro.Password)
	if o.TLSConfig != nil {
		ro.TLSConfig = o.TLSConfig
	}
	ro.DialTimeout = coalesce(o.DialTimeout, ro.DialTimeout)
	ro.ReadTimeout = coalesce(o.ReadTimeout, ro.ReadTimeout)
	ro.WriteTimeout = coalesce(o.WriteTimeout, ro.WriteTimeout)
	ro.PoolSize = coalesce(o.PoolSize, ro.PoolSize)
	ro.MaxRetries = coalesce(o.MaxRetries, ro.MaxRetries)
	return &ro, nil
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
