package codec

import (
	"bytes"
	"encoding/json"
	"io"
)

// JSON stores values as JSON text. Handy when other tools read the same keys.
//
// Numbers decoded into interface values come back as json.Number rather than
// float64, so an int64 id read through an `any` and written again is not
// rounded. A payload holding more than one JSON document fails with
// ErrTrailingData.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

func (JSON[V]) Decode(b []byte) (V, error) {
	var v, zero V
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return zero, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return zero, ErrTrailingData
	}
	return v, nil
}
