// Package sync parses sync command flags and launches the sync core runtime.
package sync

import (
	"context"
	"flag"
	"time"

	"github.com/wordtrail/wordtrail/internal/app"
	entrypoint "github.com/wordtrail/wordtrail/internal/platform/cmd"
)

// Config holds sync command configuration.
type Config struct {
	Port            int           `env:"WORDTRAIL_SYNC_PORT" envDefault:"8090"`
	BackendAddr     string        `env:"WORDTRAIL_SYNC_BACKEND_ADDR"`
	DBPath          string        `env:"WORDTRAIL_SYNC_DB_PATH" envDefault:"data/sync.db"`
	Namespace       string        `env:"WORDTRAIL_SYNC_NAMESPACE" envDefault:"wordtrail"`
	CacheCapacity   int           `env:"WORDTRAIL_SYNC_CACHE_CAPACITY" envDefault:"100"`
	PollInterval    time.Duration `env:"WORDTRAIL_SYNC_POLL_INTERVAL" envDefault:"15s"`
	SweepInterval   time.Duration `env:"WORDTRAIL_SYNC_SWEEP_INTERVAL" envDefault:"1m"`
	GCInterval      time.Duration `env:"WORDTRAIL_SYNC_GC_INTERVAL" envDefault:"1m"`
	GRPCDialTimeout time.Duration `env:"WORDTRAIL_SYNC_DIAL_TIMEOUT" envDefault:"2s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The sync health gRPC server port")
	fs.StringVar(&cfg.BackendAddr, "backend-addr", cfg.BackendAddr, "The backend gRPC server address probed for connectivity")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The sync SQLite database path")
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "Document key namespace")
	fs.IntVar(&cfg.CacheCapacity, "cache-capacity", cfg.CacheCapacity, "Maximum in-memory cache entries")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Connectivity probe interval")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Expired cache entry sweep interval")
	fs.DurationVar(&cfg.GCInterval, "gc-interval", cfg.GCInterval, "Query cache garbage collection interval")
	fs.DurationVar(&cfg.GRPCDialTimeout, "dial-timeout", cfg.GRPCDialTimeout, "gRPC dependency dial timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sync runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSync, func(context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Port:            cfg.Port,
			BackendAddr:     cfg.BackendAddr,
			DBPath:          cfg.DBPath,
			Namespace:       cfg.Namespace,
			CacheCapacity:   cfg.CacheCapacity,
			PollInterval:    cfg.PollInterval,
			SweepInterval:   cfg.SweepInterval,
			GCInterval:      cfg.GCInterval,
			GRPCDialTimeout: cfg.GRPCDialTimeout,
		})
	})
}
