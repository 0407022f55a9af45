// Package codec converts cached values to and from the bytes stored in Redis.
//
// A Codec only ever sees values that exist: a key that is absent in Redis is
// reported by the cache as a miss before any codec is consulted, so Decode is
// never asked to interpret "nothing".
package codec

import "errors"

// ErrTrailingData is returned by decoders that find bytes left over after a
// complete value. Such a payload was written by something else.
var ErrTrailingData = errors.New("codec: trailing data after value")

// Codec encodes/decodes values V to []byte for storage.
// Implementations must be safe for concurrent use.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Default returns the built-in codec a cache uses when none is configured.
// Msgpack is self-describing (field names and type tags travel with the
// payload), so values round-trip without an external schema.
func Default[V any]() Codec[V] { return Msgpack[V]{} }

// Func adapts a plain encode/decode function pair to Codec.
// Both functions must be set.
type Func[V any] struct {
	Enc func(V) ([]byte, error)
	Dec func([]byte) (V, error)
}

var _ Codec[int] = Func[int]{}

func (f Func[V]) Encode(v V) ([]byte, error) { return f.Enc(v) }
func (f Func[V]) Decode(b []byte) (V, error) { return f.Dec(b) }
