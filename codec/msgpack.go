package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use and is the package default.
//
// Structs are written as maps keyed by field name, so stored entries stay
// readable after fields are added or reordered. Use `msgpack:"name"` tags
// for explicit control. Map keys are sorted, so equal values encode to
// equal bytes. Decode rejects a payload with bytes after the first value.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v, zero V
	// bytes.Reader is an io.ByteScanner, so the decoder reads it directly and
	// Len reports exactly what the value left behind.
	r := bytes.NewReader(b)
	if err := msgpack.NewDecoder(r).Decode(&v); err != nil {
		return zero, err
	}
	if r.Len() > 0 {
		return zero, ErrTrailingData
	}
	return v, nil
}
