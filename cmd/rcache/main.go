// Command rcache reads and writes a Redis-backed rediscache from the shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/rediscache"
	"github.com/unkn0wn-root/rediscache/codec"
	"github.com/unkn0wn-root/rediscache/internal/config"
	zapadapter "github.com/unkn0wn-root/rediscache/log/zap"
)

// app is the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	url        string
	addr       string
	db         int
	codec      string
	logLevel   string

	cfg   *config.Config
	log   *zap.Logger
	cache rediscache.Cache[any]
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes one command line and releases the cache afterwards.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if a.cache != nil {
		err = errors.Join(err, a.cache.Close(ctx))
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rcache",
		Short:         "rcache - inspect and edit a Redis object cache",
		Long:          "Reads and writes values through the same framing and codecs the rediscache library uses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.url, "url", "", "Redis URL (redis:// or rediss://)")
	pf.StringVar(&a.addr, "addr", "", "Redis address host:port")
	pf.IntVar(&a.db, "db", 0, "Redis logical database (overrides the URL's, 0 included)")
	pf.StringVar(&a.codec, "codec", "", "Value codec: msgpack, json or cbor")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.addCmd(),
		a.swapCmd(),
		a.delCmd(),
		a.existsCmd(),
		a.mgetCmd(),
		a.countCmd(),
		a.keysCmd(),
		a.clearCmd(),
	)
	return root
}

// setup resolves configuration (defaults, file, env, flags, in that order)
// and opens the cache. The cache dials lazily, on the first command.
func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Redis.URL = a.url
	}
	if flags.Changed("addr") {
		cfg.Redis.Addr = a.addr
	}
	if flags.Changed("db") {
		cfg.Redis.DB = &a.db
	}
	if flags.Changed("codec") {
		cfg.Cache.Codec = a.codec
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log.Level, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = logger

	c, err := codecFor(cfg.Cache.Codec)
	if err != nil {
		return err
	}
	if cfg.Cache.MaxValueBytes > 0 {
		c = codec.Limit[any]{Inner: c, MaxDecode: cfg.Cache.MaxValueBytes}
	}
	cache, err := rediscache.New[any](rediscache.Options[any]{
		URL:          cfg.Redis.URL,
		Addr:         cfg.Redis.Addr,
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		TLSConfig:    cfg.Redis.TLSConfig(),
		DB:           deref(cfg.Redis.DB),
		SelectDB:     cfg.Redis.DB != nil,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MaxRetries:   cfg.Redis.MaxRetries,
		Codec:        c,
		Logger:       zapadapter.New(logger),
		ScanCount:    cfg.Cache.ScanCount,
	})
	if err != nil {
		return err
	}
	a.cache = cache
	logger.Debug("cache ready",
		zap.String("codec", cfg.Cache.Codec),
		zap.Int("db", cache.DB()))
	return nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl)
	return zap.New(core), nil
}

func codecFor(name string) (codec.Codec[any], error) {
	switch name {
	case "msgpack":
		return codec.Msgpack[any]{}, nil
	case "json":
		return codec.JSON[any]{}, nil
	case "cbor":
		return codec.NewCBOR[any](false)
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
