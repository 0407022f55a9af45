package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type policyKind uint8

const (
	kindNone policyKind = iota
	kindAbsolute
	kindSliding
)

// Policy says when a written entry expires. Exactly one form is active:
// NoExpiration (the zero value), AbsoluteAt or Sliding.
type Policy struct {
	kind     policyKind
	deadline time.Time
	window   time.Duration
}

// NoExpiration keeps an entry until it is removed. Writes with it also drop
// any TTL the key carried before.
var NoExpiration = Policy{}

// AbsoluteAt expires the entry at t. Redis counts TTLs from "now", so the
// deadline is turned into a remaining duration at write time. A deadline that
// has already passed removes the key in the same transaction as the write.
func AbsoluteAt(t time.Time) Policy {
	return Policy{kind: kindAbsolute, deadline: t}
}

// Sliding expires the entry d after it was last written or read. Every
// successful Get/GetValues pushes the TTL out by d again, provided the key
// still holds the value that was read. A concurrent write keeps its own
// expiration.
func Sliding(d time.Duration) Policy {
	return Policy{kind: kindSliding, window: d}
}

func (p Policy) IsNone() bool { return p.kind == kindNone }

// Deadline reports the absolute deadline, if p is absolute.
func (p Policy) Deadline() (time.Time, bool) {
	return p.deadline, p.kind == kindAbsolute
}

// Window reports the sliding window, if p is sliding.
func (p Policy) Window() (time.Duration, bool) {
	return p.window, p.kind == kindSliding
}

func (p Policy) String() string {
	switch p.kind {
	case kindAbsolute:
		return "absolute(" + p.deadline.UTC().Format(time.RFC3339Nano) + ")"
	case kindSliding:
		return "sliding(" + p.window.String() + ")"
	default:
		return "none"
	}
}

func (p Policy) validate() error {
	switch p.kind {
	case kindAbsolute:
		if p.deadline.IsZero() {
			return errors.New("absolute expiration needs a deadline")
		}
	case kindSliding:
		// PEXPIRE has millisecond resolution.
		if p.window < time.Millisecond {
			return fmt.Errorf("sliding window %s below 1ms", p.window)
		}
	}
	return nil
}

// slidingWindow is what gets framed next to the value for readers.
func (p Policy) slidingWindow() time.Duration {
	if p.kind == kindSliding {
		return p.window
	}
	return 0
}

// apply queues the TTL commands p needs for key onto pipe, which must be the
// same transaction that writes the value.
func (p Policy) apply(ctx context.Context, pipe redis.Pipeliner, key string, now time.Time) {
	switch p.kind {
	case kindAbsolute:
		d := p.deadline.Sub(now.UTC())
		if d <= 0 {
			pipe.Del(ctx, key)
			return
		}
		pipe.PExpire(ctx, key, max(d, time.Millisecond))
	case kindSliding:
		pipe.PExpire(ctx, key, p.window)
	}
}
