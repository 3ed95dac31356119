// Package main implements the arkilian-meta server, which serves the
// metastore's information schema over HTTP and reports health over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/arkilian/infoschema/internal/app"
	"github.com/arkilian/infoschema/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		httpAddr    string
		grpcAddr    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP address for the information schema API")
	flag.StringVar(&grpcAddr, "grpc-addr", "", "gRPC health server address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "arkilian-meta - Arkilian metastore and information schema\n\n")
		fmt.Fprintf(os.Stderr, "Usage: arkilian-meta [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ARKILIAN_DATA_DIR         Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  ARKILIAN_HTTP_ADDR        HTTP address\n")
		fmt.Fprintf(os.Stderr, "  ARKILIAN_GRPC_ADDR        gRPC health address\n")
		fmt.Fprintf(os.Stderr, "  ARKILIAN_METASTORE_PATH   SQLite metastore file\n")
		fmt.Fprintf(os.Stderr, "  ARKILIAN_STORAGE_TYPE     Export storage type (local, s3)\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("arkilian-meta version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := loadConfig(configFile, dataDir, httpAddr, grpcAddr)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	if err := application.Wait(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	if err := application.Stop(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig layers the file (or defaults), the environment and then flags.
func loadConfig(configFile, dataDir, httpAddr, grpcAddr string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
	}

	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if grpcAddr != "" {
		cfg.GRPC.Addr = grpcAddr
	}
	return cfg, nil
}

func printBanner(cfg *config.Config) {
	log.Printf("ARKILIAN METASTORE %s", version)
	log.Printf("Configuration:")
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  HTTP:     %s", cfg.HTTP.Addr)
	if cfg.GRPC.Enabled {
		log.Printf("  gRPC:     %s (health every %s)", cfg.GRPC.Addr, cfg.GRPC.HealthInterval)
	}
	if cfg.Export.Enabled {
		log.Printf("  Exports:  %s", cfg.Storage.Type)
	}
}
