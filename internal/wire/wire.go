// Package wire frames values before they are written to Redis.
//
// Layout (big endian):
//
//	magic(4) | ver(1) | flags(1) | slidingMs(u64) | vlen(u32) | payload(vlen)
//
// The sliding window travels with the value so a reader that never saw the
// write still knows how far to push the TTL out on access.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

const (
	version byte = 1

	flagSliding byte = 1 << 0
	knownFlags       = flagSliding

	hdrLen = 4 + 1 + 1 + 8 + 4
)

var (
	ErrCorrupt = errors.New("rediscache: corrupt entry")
	magic4     = [...]byte{'R', 'D', 'C', 'E'}
)

// Entry is a decoded frame. Payload aliases the input buffer.
type Entry struct {
	Sliding time.Duration // 0 => no sliding window
	Payload []byte
}

// Encode frames payload. sliding is stored with millisecond precision;
// values below one millisecond are stored as "no sliding window".
func Encode(sliding time.Duration, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(hdrLen + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)

	ms := uint64(0)
	if sliding >= time.Millisecond {
		ms = uint64(sliding / time.Millisecond)
	}
	var flags byte
	if ms > 0 {
		flags |= flagSliding
	}
	buf.WriteByte(flags)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], ms)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode parses a frame produced by Encode. Anything else, including a
// valid frame followed by extra bytes, is ErrCorrupt.
func Decode(b []byte) (Entry, error) {
	if len(b) < hdrLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version {
		return Entry{}, ErrCorrupt
	}
	flags := b[5]
	if flags&^knownFlags != 0 {
		return Entry{}, ErrCorrupt
	}
	off := 6

	ms := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	if (flags&flagSliding != 0) != (ms > 0) || ms > uint64(1<<63-1)/uint64(time.Millisecond) {
		return Entry{}, ErrCorrupt
	}

	vlen := uint64(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != uint64(len(b)-off) {
		return Entry{}, ErrCorrupt
	}

	return Entry{
		Sliding: time.Duration(ms) * time.Millisecond,
		Payload: b[off:],
	}, nil
}
