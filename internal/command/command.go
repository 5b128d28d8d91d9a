package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/xraph/interceder"
	"github.com/xraph/interceder/manifest"
	"github.com/xraph/interceder/observability"
	"github.com/xraph/interceder/payload"
	"github.com/xraph/interceder/payload/file"
	"github.com/xraph/interceder/payload/memory"
	"github.com/xraph/interceder/payload/mongo"
	"github.com/xraph/interceder/payload/redis"
	"github.com/xraph/interceder/payload/sqlite"
)

// Store kinds accepted by --store.
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// String formats the build info for --version, e.g. "1.2.0 (abc1234, 2025-01-01)".
func (b BuildInfo) String() string {
	v := b.Version
	if v == "" {
		v = "dev"
	}
	var extra []string
	if b.Commit != "" {
		extra = append(extra, b.Commit)
	}
	if b.Date != "" {
		extra = append(extra, b.Date)
	}
	if len(extra) == 0 {
		return v
	}
	return v + " (" + strings.Join(extra, ", ") + ")"
}

type App struct {
	BuildInfo

	Manifest        string
	Store           string
	PayloadDir      string
	RedisURL        string
	RedisTTL        time.Duration
	SQLitePath      string
	MongoURI        string
	MongoDatabase   string
	Timeout         time.Duration
	ForwardPolicy   string
	MaxBodyBytes    int64
	ForwardRate     float64
	ShutdownTimeout time.Duration
	OTLPEndpoint    string
	OTLPInsecure    bool

	Lookup manifest.LookupFunc
	Out    io.Writer

	debug bool
}

func New(name string, opts ...func(*App)) *App {
	cfg := interceder.DefaultConfig()
	app := &App{
		Manifest:        "interceder.toml",
		Store:           StoreFile,
		PayloadDir:      file.DefaultDir,
		RedisURL:        "redis://localhost:6379/0",
		SQLitePath:      name + ".db",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   name,
		Timeout:         cfg.RequestTimeout,
		ForwardPolicy:   string(cfg.ForwardPolicy),
		MaxBodyBytes:    cfg.MaxBodyBytes,
		ShutdownTimeout: 10 * time.Second,
		Lookup:          os.LookupEnv,
		Out:             os.Stdout,
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

func (app *App) Register(f *pflag.FlagSet) {
	f.BoolVar(&app.debug, "debug", app.debug, "enable debug logging")
	f.StringVarP(&app.Manifest, "manifest", "m", app.Manifest, "manifest file (.toml, .yaml, .yml or .json)")
}

// RegisterServe adds the flags of the serve command.
func (app *App) RegisterServe(f *pflag.FlagSet) {
	f.StringVar(&app.Store, "store", app.Store, "payload store: file, memory, redis, sqlite or mongo")
	f.StringVar(&app.PayloadDir, "payload-dir", app.PayloadDir, "payload directory for the file store")
	f.StringVar(&app.RedisURL, "redis-url", app.RedisURL, "connection URL for the redis store")
	f.DurationVar(&app.RedisTTL, "redis-ttl", app.RedisTTL, "expiry of cached payloads in the redis store (0 keeps them)")
	f.StringVar(&app.SQLitePath, "sqlite-path", app.SQLitePath, "database file for the sqlite store")
	f.StringVar(&app.MongoURI, "mongo-uri", app.MongoURI, "connection string for the mongo store")
	f.StringVar(&app.MongoDatabase, "mongo-db", app.MongoDatabase, "database for the mongo store")
	f.DurationVar(&app.Timeout, "timeout", app.Timeout, "outbound request timeout")
	f.StringVar(&app.ForwardPolicy, "forward-policy", app.ForwardPolicy, "forward failure policy: surface or best-effort")
	f.Float64Var(&app.ForwardRate, "forward-rate", app.ForwardRate, "outbound calls per second per topic key (0 is unlimited)")
	f.Int64Var(&app.MaxBodyBytes, "max-body-bytes", app.MaxBodyBytes, "largest accepted inbound body")
	f.DurationVar(&app.ShutdownTimeout, "shutdown-timeout", app.ShutdownTimeout, "graceful shutdown limit")
	f.StringVar(&app.OTLPEndpoint, "otlp-endpoint", app.OTLPEndpoint, "OTLP/gRPC collector for traces (disabled when empty)")
	f.BoolVar(&app.OTLPInsecure, "otlp-insecure", app.OTLPInsecure, "dial the OTLP collector without TLS")
}

func (app *App) Init(cmd *cobra.Command, args []string) {
	level := slog.LevelInfo
	if app.debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			AddSource:  true,
			Level:      level,
			TimeFormat: time.Kitchen,
		}),
	))
}

// LoadManifest loads and resolves the manifest file.
func (app *App) LoadManifest() (*manifest.Manifest, error) {
	return manifest.Open(app.Manifest, app.Lookup)
}

// OpenStore opens the payload store selected by --store.
func (app *App) OpenStore(ctx context.Context) (payload.Store, error) {
	switch app.Store {
	case StoreFile:
		return file.New(app.PayloadDir)
	case StoreMemory:
		return memory.New(), nil
	case StoreRedis:
		return redis.Open(ctx, app.RedisURL, redis.WithTTL(app.RedisTTL))
	case StoreSQLite:
		return sqlite.Open(ctx, app.SQLitePath)
	case StoreMongo:
		return mongo.Open(ctx, app.MongoURI, app.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store %q", app.Store)
	}
}

// Options returns the interceder options derived from the flags.
func (app *App) Options(m *manifest.Manifest, store payload.Store, metrics *observability.Metrics) ([]interceder.Option, error) {
	policy, err := interceder.ParseForwardPolicy(app.ForwardPolicy)
	if err != nil {
		return nil, err
	}
	return []interceder.Option{
		interceder.WithManifest(m),
		interceder.WithStore(store),
		interceder.WithLogger(slog.Default()),
		interceder.WithRequestTimeout(app.Timeout),
		interceder.WithForwardPolicy(policy),
		interceder.WithMaxBodyBytes(app.MaxBodyBytes),
		interceder.WithForwardRateLimit(app.ForwardRate),
		interceder.WithMetrics(metrics),
	}, nil
}

// Tracing returns the OTLP settings derived from the flags.
func (app *App) Tracing() observability.TracingConfig {
	return observability.TracingConfig{
		Endpoint:    app.OTLPEndpoint,
		Insecure:    app.OTLPInsecure,
		ServiceName: "interceder",
	}
}

func (app *App) Render(v any) error {
	p, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("rendering failed: %w", err)
	}
	fmt.Fprintf(app.Out, "%s", p)
	return nil
}
