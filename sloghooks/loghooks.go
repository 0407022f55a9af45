// Package sloghooks reports rediscache.Hooks events to a *slog.Logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/rediscache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	RefreshEvery uint64
	DecodeEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	refreshCtr atomic.Uint64
	decodeCtr  atomic.Uint64
}

var _ rediscache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Connected(db int, reconnect bool) {
	if h.l == nil {
		return
	}
	h.l.Debug("rediscache.connected",
		"db", db,
		"reconnect", reconnect)
}

func (h *Hooks) ConnectFailed(db int, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("rediscache.connect_failed",
		"db", db,
		"err", err)
}

func (h *Hooks) ConnectionBroken(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("rediscache.connection_broken",
		"op", op,
		"err", err)
}

func (h *Hooks) SlidingRefreshFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.RefreshEvery, &h.refreshCtr) {
		return
	}
	h.l.Warn("rediscache.sliding_refresh_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) DecodeFailed(key string, err error) {
	if h.l == nil || !sample(h.opts.DecodeEvery, &h.decodeCtr) {
		return
	}
	h.l.Error("rediscache.decode_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Disposed(db int) {
	if h.l == nil {
		return
	}
	h.l.Debug("rediscache.disposed", "db", db)
}
