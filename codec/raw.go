package codec

import "bytes"

// Bytes passes []byte values through. Decode hands back its own copy, so the
// caller may keep or modify the result without touching the frame it came
// from.
type Bytes struct{}

func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return bytes.Clone(b), nil }

// String stores Go strings as their raw bytes (no UTF-8 validation).
type String struct{}

func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
