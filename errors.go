package rediscache

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a cache operation matches exactly one
// of these through errors.Is.
var (
	// ErrInvalidArgument reports caller misuse: empty key, nil value, nil key
	// list, malformed expiration policy.
	ErrInvalidArgument = errors.New("rediscache: invalid argument")
	// ErrUnsupported reports a capability this cache does not implement,
	// such as a named region.
	ErrUnsupported = errors.New("rediscache: unsupported")
	// ErrConnection reports that Redis could not be reached or the connection
	// failed mid-command.
	ErrConnection = errors.New("rediscache: connection failed")
	// ErrCodec reports a value that could not be encoded, or stored bytes that
	// could not be turned back into a value.
	ErrCodec = errors.New("rediscache: codec failure")
	// ErrBackend reports an error reply from the Redis server (e.g. WRONGTYPE).
	ErrBackend = errors.New("rediscache: backend error")
)

// OpError describes a failed operation. Kind is one of the sentinels above;
// Err is the underlying cause and may be nil.
type OpError struct {
	Op   string
	Key  string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString("rediscache: ")
	b.WriteString(e.Op)
	if e.Key != "" {
		fmt.Fprintf(&b, " %q", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimPrefix(e.Kind.Error(), "rediscache: "))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// BatchError is returned by GetValues when some slots failed while the rest
// were read successfully. The failing slots also carry their error in
// Entry.Err.
type BatchError struct {
	Op        string
	Requested int
	Failed    []*OpError
}

func (e *BatchError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("rediscache: %s: batch failed", e.Op)
	}
	return fmt.Sprintf("rediscache: %s: %d of %d keys failed; first: %v",
		e.Op, len(e.Failed), e.Requested, e.Failed[0])
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

func invalid(op, key, reason string) error {
	return &OpError{Op: op, Key: key, Kind: ErrInvalidArgument, Err: errors.New(reason)}
}
