package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/rediscache/internal/wire"
)

// rcache runs one command line against mr and returns stdout.
func rcache(t *testing.T, mr *miniredis.Miniredis, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--addr", mr.Addr(), "--log-level", "error"}, args...)
	err := run(context.Background(), full, &out, &errOut)
	return strings.TrimRight(out.String(), "\n"), err
}

func mustRcache(t *testing.T, mr *miniredis.Miniredis, args ...string) string {
	t.Helper()
	out, err := rcache(t, mr, args...)
	require.NoError(t, err)
	return out
}

func TestSetGetDel(t *testing.T) {
	mr := miniredis.RunT(t)

	assert.Equal(t, "OK", mustRcache(t, mr, "set", "u:1", `{"name":"ada","age":36}`))
	assert.JSONEq(t, `{"name":"ada","age":36}`, mustRcache(t, mr, "get", "u:1"))

	assert.Equal(t, "OK", mustRcache(t, mr, "set", "greeting", "hello"))
	assert.Equal(t, `"hello"`, mustRcache(t, mr, "get", "greeting"))

	assert.Equal(t, nilReply, mustRcache(t, mr, "get", "missing"))

	assert.Equal(t, `"hello"`, mustRcache(t, mr, "del", "greeting"))
	assert.Equal(t, nilReply, mustRcache(t, mr, "del", "greeting"))
	assert.Equal(t, "false", mustRcache(t, mr, "exists", "greeting"))
	assert.Equal(t, "true", mustRcache(t, mr, "exists", "u:1"))
}

func TestSwapAndAdd(t *testing.T) {
	mr := miniredis.RunT(t)

	assert.Equal(t, nilReply, mustRcache(t, mr, "swap", "k", "1"))
	assert.Equal(t, "1", mustRcache(t, mr, "swap", "k", "2"))
	assert.Equal(t, "2", mustRcache(t, mr, "get", "k"))

	assert.Equal(t, "true", mustRcache(t, mr, "add", "n", `"x"`))
	assert.Equal(t, "false", mustRcache(t, mr, "add", "n", `"y"`))
}

func TestExpirationFlags(t *testing.T) {
	mr := miniredis.RunT(t)

	mustRcache(t, mr, "set", "abs", "1", "--ttl", "1m")
	assert.InDelta(t, float64(time.Minute), float64(mr.TTL("abs")), float64(time.Second))

	mustRcache(t, mr, "set", "sl", "1", "--sliding", "90s")
	assert.Equal(t, 90*time.Second, mr.TTL("sl"))

	until := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	mustRcache(t, mr, "swap", "u", "1", "--until", until)
	assert.InDelta(t, float64(time.Hour), float64(mr.TTL("u")), float64(2*time.Second))

	_, err := rcache(t, mr, "set", "x", "1", "--ttl", "1m", "--sliding", "1m")
	assert.Error(t, err)

	_, err = rcache(t, mr, "set", "x", "1", "--until", "tomorrow")
	assert.Error(t, err)
	assert.False(t, mr.Exists("x"))
}

func TestMgetCountKeysClear(t *testing.T) {
	mr := miniredis.RunT(t)
	mustRcache(t, mr, "set", "b", "2")
	mustRcache(t, mr, "set", "a", "1")
	require.NoError(t, mr.Set("junk", "not framed"))

	out, err := rcache(t, mr, "mget", "a", "missing", "b", "junk")
	require.Error(t, err, "a corrupt slot fails the command")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "a        1", lines[0])
	assert.Equal(t, "missing  (nil)", lines[1])
	assert.Equal(t, "b        2", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "junk     error: "))

	assert.Equal(t, "3", mustRcache(t, mr, "count"))
	assert.Equal(t, "a\nb\njunk", mustRcache(t, mr, "keys"))

	_, err = rcache(t, mr, "clear")
	assert.Error(t, err)
	assert.Equal(t, "3", mustRcache(t, mr, "count"))

	assert.Equal(t, "removed 3", mustRcache(t, mr, "clear", "--force"))
	assert.Equal(t, "0", mustRcache(t, mr, "count"))
}

func TestCodecs(t *testing.T) {
	mr := miniredis.RunT(t)

	mustRcache(t, mr, "--codec", "json", "set", "j", `{"a":1}`)
	raw, err := mr.Get("j")
	require.NoError(t, err)
	e, err := wire.Decode([]byte(raw))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(e.Payload))
	assert.JSONEq(t, `{"a":1}`, mustRcache(t, mr, "--codec", "json", "get", "j"))

	mustRcache(t, mr, "--codec", "cbor", "set", "c", `{"a":[1,"two"]}`)
	assert.JSONEq(t, `{"a":[1,"two"]}`, mustRcache(t, mr, "--codec", "cbor", "get", "c"))

	// reading with the wrong codec is a decode failure, not a miss
	_, err = rcache(t, mr, "--codec", "json", "get", "c")
	assert.Error(t, err)

	_, err = rcache(t, mr, "--codec", "xml", "get", "j")
	assert.ErrorContains(t, err, "unknown codec")
}

func TestConfigFileAndDB(t *testing.T) {
	mr := miniredis.RunT(t)
	p := filepath.Join(t.TempDir(), "rcache.yaml")
	body := "redis:\n  addr: " + mr.Addr() + "\n  db: 2\ncache:\n  codec: json\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--config", p, "set", "k", "1"}, &out, &out))
	assert.True(t, mr.DB(2).Exists("k"))
	assert.False(t, mr.DB(0).Exists("k"))

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"--config", p, "--db", "3", "count"}, &out, &out))
	assert.Equal(t, "0\n", out.String())
}

func TestDBFlagForcesZero(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/2"

	mustRcache(t, mr, "--url", url, "set", "in2", "1")
	assert.True(t, mr.DB(2).Exists("in2"))

	mustRcache(t, mr, "--url", url, "--db", "0", "set", "in0", "1")
	assert.True(t, mr.DB(0).Exists("in0"))
	assert.False(t, mr.DB(2).Exists("in0"))
}

func TestBadLogLevel(t *testing.T) {
	mr := miniredis.RunT(t)
	var out bytes.Buffer
	err := run(context.Background(), []string{"--addr", mr.Addr(), "--log-level", "loud", "count"}, &out, &out)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	in := map[any]any{
		"name": "x",
		1:      []any{map[any]any{"k": []byte("v")}},
	}
	s, err := render(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","1":[{"k":"v"}]}`, s)
}

func TestMaxValueBytes(t *testing.T) {
	mr := miniredis.RunT(t)
	p := filepath.Join(t.TempDir(), "rcache.yaml")
	body := "redis:\n  addr: " + mr.Addr() + "\ncache:\n  codec: json\n  max_value_bytes: 8\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

	var out bytes.Buffer
	ctx := context.Background()
	require.NoError(t, run(ctx, []string{"--config", p, "set", "small", "1"}, &out, &out))
	require.NoError(t, run(ctx, []string{"--config", p, "set", "big", `"0123456789"`}, &out, &out))

	out.Reset()
	require.NoError(t, run(ctx, []string{"--config", p, "get", "small"}, &out, &out))
	assert.Equal(t, "1\n", out.String())

	err := run(ctx, []string{"--config", p, "get", "big"}, &out, &out)
	assert.ErrorContains(t, err, "too large")
}
