// Package app composes the sync core: the document store, caches, offline
// queue, reward ledger, and connectivity monitor, wired together and exposed
// behind one runtime. Embedding apps construct a Core; the sync service
// command wraps it in Run, which also serves a gRPC health endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wordtrail/wordtrail/internal/cache"
	"github.com/wordtrail/wordtrail/internal/keymutex"
	"github.com/wordtrail/wordtrail/internal/notify"
	"github.com/wordtrail/wordtrail/internal/platform/timeouts"
	"github.com/wordtrail/wordtrail/internal/query"
	"github.com/wordtrail/wordtrail/internal/queue"
	"github.com/wordtrail/wordtrail/internal/rewards"
	"github.com/wordtrail/wordtrail/internal/signal"
	"github.com/wordtrail/wordtrail/internal/storage"
	"github.com/wordtrail/wordtrail/internal/storage/sqlite"
	"github.com/wordtrail/wordtrail/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls sync core startup and loop behavior.
type RuntimeConfig struct {
	Port            int
	BackendAddr     string
	DBPath          string
	Namespace       string
	CacheCapacity   int
	PollInterval    time.Duration
	SweepInterval   time.Duration
	GCInterval      time.Duration
	GRPCDialTimeout time.Duration

	// Replayer sends queued actions to the backend. Nil falls back to the
	// logging replayer until a transport is configured.
	Replayer queue.Replayer
}

const (
	defaultSyncPort      = 8090
	defaultSyncDB        = "data/sync.db"
	defaultSweepInterval = time.Minute
	defaultGCInterval    = time.Minute
)

// Core is the assembled sync component graph.
type Core struct {
	Store      *sqlite.Store
	Keys       storage.Keys
	Broker     *notify.Broker
	Emitter    *telemetry.Emitter
	Memory     *cache.Memory
	Persistent *cache.Persistent
	Queue      *queue.Queue
	Query      *query.Cache
	Ledger     *rewards.Ledger
	Monitor    *signal.Monitor

	prober *signal.HealthProber
}

// NewCore opens the store and wires every component. Background loops (cache
// sweep, query GC, connectivity polling) run until ctx ends.
func NewCore(ctx context.Context, cfg RuntimeConfig) (*Core, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultSyncDB
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = defaultGCInterval
	}
	if cfg.GRPCDialTimeout <= 0 {
		cfg.GRPCDialTimeout = timeouts.GRPCDial
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sync storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sync sqlite store: %w", err)
	}

	keys := storage.DefaultKeys(cfg.Namespace)
	core := &Core{
		Store:      store,
		Keys:       keys,
		Broker:     notify.NewBroker(),
		Emitter:    telemetry.NewEmitter(store),
		Memory:     cache.NewMemory(cfg.CacheCapacity),
		Persistent: cache.NewPersistent(store, keys),
	}

	if strings.TrimSpace(cfg.BackendAddr) != "" {
		core.prober = signal.NewHealthProber(cfg.BackendAddr, cfg.GRPCDialTimeout)
		core.Monitor = signal.NewMonitor(core.prober, cfg.PollInterval, 0)
	} else {
		core.Monitor = signal.NewMonitor(nil, cfg.PollInterval, 0)
	}

	core.Queue = queue.New(ctx, store, core.Keys, cfg.Replayer, core.Monitor.Online, core.Emitter)
	core.Query = query.New(core.Monitor.Online, core.Queue)
	core.Ledger = rewards.NewLedger(store, core.Keys, keymutex.New(), core.Broker, core.Emitter, core.Query.Invalidate)

	// Coming back online or to the foreground drains whatever queued up.
	core.Monitor.Subscribe(func(kind signal.Kind) {
		if kind == signal.KindOffline {
			return
		}
		if err := core.Queue.Flush(context.Background()); err != nil {
			log.Printf("app: flush on %s: %v", kind, err)
		}
	})

	core.Memory.StartSweep(ctx, cfg.SweepInterval)
	core.Query.StartGC(ctx, cfg.GCInterval)
	go core.Monitor.Run(ctx)

	return core, nil
}

// Close releases the store and the probe connection.
func (c *Core) Close() error {
	var errs []error
	if c.prober != nil {
		if err := c.prober.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close prober: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run assembles the core and serves the gRPC health endpoint until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultSyncPort
	}

	core, err := NewCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := core.Close(); closeErr != nil {
			log.Printf("close sync core: %v", closeErr)
		}
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on sync port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("sync.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("sync server listening at %v", listener.Addr())
	<-ctx.Done()
	return nil
}
