// Package app wires the metastore, information schema and API servers
// into one service lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"

	grpcapi "github.com/arkilian/infoschema/internal/api/grpc"
	httpapi "github.com/arkilian/infoschema/internal/api/http"
	"github.com/arkilian/infoschema/internal/config"
	"github.com/arkilian/infoschema/internal/export"
	"github.com/arkilian/infoschema/internal/infoschema"
	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/internal/observability"
	"github.com/arkilian/infoschema/internal/server"
	"github.com/arkilian/infoschema/internal/storage"
)

// App manages the service lifecycle.
type App struct {
	cfg *config.Config

	store    *metastore.SQLiteMetaStore
	registry *infoschema.Registry
	storage  storage.ObjectStorage
	exporter *export.Exporter
	stats    *observability.ScanStats
	shutdown *server.ShutdownManager

	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpc.Server
	grpcListener net.Listener
	health       *grpcapi.HealthReporter

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and prepares its directories.
func New(cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	return &App{cfg: cfg}, nil
}

// Start opens the metastore and starts the HTTP and gRPC servers.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())

	if err := a.initResources(ctx); err != nil {
		a.abort()
		return err
	}
	if err := a.startHTTP(); err != nil {
		a.abort()
		return fmt.Errorf("failed to start http server: %w", err)
	}
	if a.cfg.GRPC.Enabled {
		if err := a.startGRPC(ctx); err != nil {
			a.abort()
			return fmt.Errorf("failed to start grpc server: %w", err)
		}
	}

	log.Printf("Arkilian metastore started: %d tables registered", len(a.registry.Tables()))
	return nil
}

func (a *App) initResources(ctx context.Context) error {
	store, err := metastore.Open(a.cfg.Metastore.Path, metastore.Options{
		ReadPoolSize: a.cfg.Metastore.ReadPoolSize,
		BusyTimeout:  a.cfg.Metastore.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open metastore: %w", err)
	}
	a.store = store
	a.shutdown.RegisterCloser("metastore", store)
	log.Printf("Metastore opened: %s", store.Path())

	a.registry = infoschema.DefaultRegistry()
	a.stats = observability.NewScanStats(0)

	if !a.cfg.Export.Enabled {
		return nil
	}
	a.storage, err = OpenStorage(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	a.exporter = export.NewExporter(a.storage, a.cfg.Export.TempDir)
	log.Printf("Export storage initialized: type=%s", a.cfg.Storage.Type)
	return nil
}

// OpenStorage builds the object storage described by cfg.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		s, err := storage.NewLocalStorage(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return s, nil
	case "s3":
		s3Cfg := storage.DefaultS3Config()
		if cfg.S3.Region != "" {
			s3Cfg.Region = cfg.S3.Region
		}
		s3Cfg.Endpoint = cfg.S3.Endpoint
		s3Cfg.UsePathStyle = cfg.S3.UsePathStyle
		s3Cfg.Prefix = cfg.S3.Prefix
		s, err := storage.NewS3Storage(ctx, cfg.S3.Bucket, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		log.Printf("S3 config: bucket=%s region=%s endpoint=%s", cfg.S3.Bucket, s3Cfg.Region, cfg.S3.Endpoint)
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func (a *App) startHTTP() error {
	mux := http.NewServeMux()
	httpapi.NewTablesHandler(a.registry, a.store, a.exporter, a.stats).Register(mux)

	lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return err
	}
	a.httpListener = lis
	a.httpServer = &http.Server{
		Handler:      httpapi.DefaultMiddleware(a.shutdown.Middleware)(mux),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.RegisterCloser("http", server.HTTPServerCloser(a.httpServer, 10*time.Second))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("HTTP API listening on %s", lis.Addr())
		if err := a.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()
	return nil
}

func (a *App) startGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		return err
	}
	a.grpcListener = lis
	a.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(grpcapi.RequestIDInterceptor))
	a.health = grpcapi.NewHealthReporter(a.store, a.cfg.GRPC.HealthInterval)
	a.health.Register(a.grpcServer)
	a.health.Start(ctx)

	a.shutdown.RegisterCloser("grpc", server.CloserFunc(func() error {
		a.health.Stop()
		a.grpcServer.GracefulStop()
		return nil
	}))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Printf("gRPC health listening on %s", lis.Addr())
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Printf("gRPC server error: %v", err)
		}
	}()
	return nil
}

// HTTPAddr returns the bound HTTP address, or "" before Start.
func (a *App) HTTPAddr() string {
	if a.httpListener == nil {
		return ""
	}
	return a.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is off.
func (a *App) GRPCAddr() string {
	if a.grpcListener == nil {
		return ""
	}
	return a.grpcListener.Addr().String()
}

// Wait blocks until a signal, ctx cancellation or Stop, then shuts down.
func (a *App) Wait(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}

// Stop drains requests and closes everything Start opened.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	err := a.shutdown.Shutdown(ctx, "stop requested")
	a.cancel()
	a.wg.Wait()
	log.Printf("Arkilian metastore stopped")
	return err
}

// abort releases whatever a failed Start opened.
func (a *App) abort() {
	a.shutdown.Shutdown(context.Background(), "startup failed")
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}
