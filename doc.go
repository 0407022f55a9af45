// Package rediscache presents a Redis logical database as an in-process
// object cache.
//
// Callers work against Cache[V]: Get, Set, AddOrGetExisting, GetValues,
// Remove, Contains, Count. The cache serializes values through a pluggable
// Codec[V] (msgpack by default), keeps one lazily dialed connection that is
// rebuilt after transport failures, and turns expiration policies into Redis
// TTLs:
//
//	NoExpiration        no TTL; a write also clears any previous TTL
//	AbsoluteAt(t)       PEXPIRE with t-now, or DEL when t already passed
//	Sliding(d)          PEXPIRE d on write and again on every successful read,
//	                    unless the value was replaced since it was read
//
// Writes and their TTL commands run in one MULTI/EXEC. Every read and write
// goes to Redis; there is no local tier.
//
// Misses are not errors: Get on an unknown key returns found=false and a nil
// error. Failures carry one of ErrInvalidArgument, ErrUnsupported,
// ErrConnection, ErrCodec or ErrBackend. Nothing is retried by the cache.
//
// Close is a one-shot latch. After it, operations return their empty result
// instead of failing, so cleanup paths holding a stale reference stay safe.
//
// Usage:
//
//	users, err := rediscache.New(rediscache.Options[User]{
//	    URL: "redis://localhost:6379/2",
//	})
//	if err != nil { ... }
//	defer users.Close(ctx)
//
//	_ = users.Set(ctx, "u:1", u, rediscache.Sliding(10*time.Minute))
//	u, ok, err := users.Get(ctx, "u:1")
package rediscache
