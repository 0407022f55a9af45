package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNoCtor = errors.New("codec: Protobuf has no constructor, build it with NewProtobuf")

// deterministic keeps map fields in key order, so equal messages give equal
// bytes.
var deterministic = proto.MarshalOptions{Deterministic: true}

// Protobuf stores generated protobuf messages in their wire format.
type Protobuf[T proto.Message] struct {
	ctor func() T
}

// NewProtobuf returns a codec for T. ctor must return a fresh, non-nil
// message on every call, e.g. func() *userpb.User { return &userpb.User{} }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return deterministic.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	var zero T
	if c.ctor == nil {
		return zero, errNoCtor
	}
	m := c.ctor()
	if err := proto.Unmarshal(b, m); err != nil {
		return zero, err
	}
	return m, nil
}
