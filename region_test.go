package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegionIsTheCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, nil)

	assert.Same(t, c, c.InRegion(DefaultRegion))
	assert.Same(t, c, c.InRegion(Region{}))
	assert.True(t, DefaultRegion.IsDefault())
	assert.Equal(t, "default", DefaultRegion.String())

	require.NoError(t, c.InRegion(DefaultRegion).Put(ctx, "k", user{ID: "1"}))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNamedRegionRejectsWithoutIO(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, nil)
	r := c.InRegion(Named("orders"))

	_, _, err := r.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, r.Set(ctx, "k", user{}, NoExpiration), ErrUnsupported)
	assert.ErrorIs(t, r.Put(ctx, "k", user{}), ErrUnsupported)
	_, err = r.Add(ctx, "k", user{}, NoExpiration)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, _, err = r.AddOrGetExisting(ctx, "k", user{}, NoExpiration)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, _, err = r.Remove(ctx, "k")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.Contains(ctx, "k")
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.GetValues(ctx, []string{"k"})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.Count(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.Keys(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = r.Clear(ctx)
	assert.ErrorIs(t, err, ErrUnsupported)

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Contains(t, oe.Error(), `region("orders")`)

	assert.Zero(t, mr.CommandCount())
	assert.Nil(t, c.conns.cur.Load())
}

func TestEmptyNameIsStillNamed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, nil)

	r := Named("")
	assert.False(t, r.IsDefault())
	_, _, err := c.InRegion(r).Get(ctx, "k")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNamedRegionValidatesFirst(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, nil)
	r := c.InRegion(Named("x"))

	_, _, err := r.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.NotErrorIs(t, err, ErrUnsupported)

	assert.ErrorIs(t, r.Set(ctx, "k", user{}, Sliding(time.Nanosecond)), ErrInvalidArgument)
	_, err = r.GetValues(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNamedRegionDelegatesLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, func(o *Options[user]) { o.DB = 4 })
	r := c.InRegion(Named("x"))

	assert.Equal(t, 4, r.DB())
	assert.Same(t, c, r.InRegion(DefaultRegion))
	assert.False(t, r.IsDisposed())

	require.NoError(t, r.Close(ctx))
	assert.True(t, c.IsDisposed())
	assert.True(t, r.IsDisposed())
}
