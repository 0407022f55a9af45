package rediscache

import (
	"context"
	"errors"
	"fmt"
)

// Region selects a named sub-partition of the cache. Every key lives in one
// flat keyspace per logical database, so only DefaultRegion is usable: a
// cache viewed through a Named region rejects every call with ErrUnsupported
// before talking to Redis.
type Region struct {
	name  string
	named bool
}

// DefaultRegion is the zero Region.
var DefaultRegion = Region{}

// Named returns a named region. Named("") is still a named region.
func Named(name string) Region { return Region{name: name, named: true} }

func (r Region) IsDefault() bool { return !r.named }

func (r Region) String() string {
	if !r.named {
		return "default"
	}
	return fmt.Sprintf("region(%q)", r.name)
}

// regionView is what InRegion hands out for a named region. Arguments are
// still validated so misuse is reported as such.
type regionView[V any] struct {
	parent *cache[V]
	region Region
}

var _ Cache[struct{}] = regionView[struct{}]{}

func (r regionView[V]) reject(op, key string) error {
	return &OpError{Op: op, Key: key, Kind: ErrUnsupported, Err: errors.New(r.region.String())}
}

func (r regionView[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	if err := checkKey(opGet, key); err != nil {
		return zero, false, err
	}
	return zero, false, r.reject(opGet, key)
}

func (r regionView[V]) Set(_ context.Context, key string, value V, p Policy) error {
	if err := checkWrite(opSet, key, value, p); err != nil {
		return err
	}
	return r.reject(opSet, key)
}

func (r regionView[V]) Put(ctx context.Context, key string, value V) error {
	return r.Set(ctx, key, value, NoExpiration)
}

func (r regionView[V]) Add(_ context.Context, key string, value V, p Policy) (bool, error) {
	if err := checkWrite(opAdd, key, value, p); err != nil {
		return false, err
	}
	return false, r.reject(opAdd, key)
}

func (r regionView[V]) AddOrGetExisting(_ context.Context, key string, value V, p Policy) (V, bool, error) {
	var zero V
	if err := checkWrite(opSwap, key, value, p); err != nil {
		return zero, false, err
	}
	return zero, false, r.reject(opSwap, key)
}

func (r regionView[V]) GetValues(_ context.Context, keys []string) ([]Entry[V], error) {
	if err := checkKeys(opGetValues, keys); err != nil {
		return nil, err
	}
	return nil, r.reject(opGetValues, "")
}

func (r regionView[V]) Remove(_ context.Context, key string) (V, bool, error) {
	var zero V
	if err := checkKey(opRemove, key); err != nil {
		return zero, false, err
	}
	return zero, false, r.reject(opRemove, key)
}

func (r regionView[V]) Contains(_ context.Context, key string) (bool, error) {
	if err := checkKey(opContains, key); err != nil {
		return false, err
	}
	return false, r.reject(opContains, key)
}

func (r regionView[V]) Count(context.Context) (int64, error)   { return 0, r.reject(opCount, "") }
func (r regionView[V]) Keys(context.Context) ([]string, error) { return nil, r.reject(opKeys, "") }
func (r regionView[V]) Clear(context.Context) (int64, error)   { return 0, r.reject(opClear, "") }

func (r regionView[V]) InRegion(region Region) Cache[V] { return r.parent.InRegion(region) }
func (r regionView[V]) DB() int                         { return r.parent.DB() }
func (r regionView[V]) IsDisposed() bool                { return r.parent.IsDisposed() }
func (r regionView[V]) Close(ctx context.Context) error { return r.parent.Close(ctx) }
