package rediscache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpErrorMessage(t *testing.T) {
	cause := errors.New("unexpected EOF")
	e := &OpError{Op: opGet, Key: "u:1", Kind: ErrCodec, Err: cause}

	assert.Equal(t, `rediscache: get "u:1": codec failure: unexpected EOF`, e.Error())
	assert.ErrorIs(t, e, ErrCodec)
	assert.ErrorIs(t, e, cause)
	assert.NotErrorIs(t, e, ErrConnection)

	noKey := &OpError{Op: opCount, Kind: ErrConnection}
	assert.Equal(t, "rediscache: count: connection failed", noKey.Error())
}

func TestBatchError(t *testing.T) {
	a := &OpError{Op: opGetValues, Key: "a", Kind: ErrCodec, Err: errors.New("bad")}
	b := &OpError{Op: opGetValues, Key: "b", Kind: ErrCodec}
	e := &BatchError{Op: opGetValues, Requested: 5, Failed: []*OpError{a, b}}

	assert.ErrorIs(t, e, ErrCodec)
	assert.Contains(t, e.Error(), "2 of 5 keys failed")
	assert.Contains(t, e.Error(), `"a"`)

	var oe *OpError
	assert.ErrorAs(t, e, &oe)
	assert.Same(t, a, oe)
}

func TestInvalid(t *testing.T) {
	err := invalid(opSet, "k", "value is required")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.EqualError(t, err, `rediscache: set "k": invalid argument: value is required`)
}
