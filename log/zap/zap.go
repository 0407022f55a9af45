// Package zap adapts a *zap.Logger to rediscache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/rediscache"
)

var _ rediscache.Logger = Logger{}

// Logger writes cache events under the "rediscache" logger name.
type Logger struct{ L *zap.Logger }

func New(l *zap.Logger) Logger { return Logger{L: l.Named("rediscache")} }

func (z Logger) Debug(msg string, f rediscache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f rediscache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f rediscache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f rediscache.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts keys so repeated events encode identically. An "err" field
// holding an error becomes zap.Error.
func fields(f rediscache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok && k == "err" {
			out = append(out, zap.Error(err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
