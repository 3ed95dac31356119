// Package main implements arkilian-metactl, an operator tool that works
// directly on a metastore database file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/arkilian/infoschema/internal/app"
	"github.com/arkilian/infoschema/internal/config"
	"github.com/arkilian/infoschema/internal/export"
	"github.com/arkilian/infoschema/internal/infoschema"
	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/internal/storage"
	"github.com/arkilian/infoschema/pkg/types"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "arkilian-metactl: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: arkilian-metactl [-config file] [-data-dir dir] <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  enqueue -key K -value V      Add a queue item\n")
	fmt.Fprintf(w, "  dequeue -key K               Remove a queue item\n")
	fmt.Fprintf(w, "  create-schema -name N        Register a schema\n")
	fmt.Fprintf(w, "  tables                       List virtual tables\n")
	fmt.Fprintf(w, "  scan -table schema.table     Print a table snapshot\n")
	fmt.Fprintf(w, "  export -table schema.table   Upload a snapshot to export storage\n")
	fmt.Fprintf(w, "  pull -table schema.table -out DIR [-concurrency N]\n")
	fmt.Fprintf(w, "                               Download every export of a table\n")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("arkilian-metactl", flag.ContinueOnError)
	global.SetOutput(os.Stderr)
	configFile := global.String("config", "", "Path to configuration file (YAML or JSON)")
	dataDir := global.String("data-dir", "", "Base directory for all data files")
	global.Usage = func() { usage(os.Stderr) }
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() == 0 {
		usage(os.Stderr)
		return errUsage
	}

	cfg, err := loadConfig(*configFile, *dataDir)
	if err != nil {
		return err
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	if cmd == "tables" {
		return listTables(out)
	}

	store, err := metastore.Open(cfg.Metastore.Path, metastore.Options{
		ReadPoolSize: cfg.Metastore.ReadPoolSize,
		BusyTimeout:  cfg.Metastore.BusyTimeout,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	switch cmd {
	case "enqueue":
		return enqueue(ctx, store, cmdArgs, out)
	case "dequeue":
		return dequeue(ctx, store, cmdArgs, out)
	case "create-schema":
		return createSchema(ctx, store, cmdArgs, out)
	case "scan":
		return scan(ctx, store, cmdArgs, out)
	case "export":
		return exportTable(ctx, cfg, store, cmdArgs, out)
	case "pull":
		return pull(ctx, cfg, cmdArgs, out)
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loadConfig(configFile, dataDir string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(configFile); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		cfg.Metastore.Path = ""
		cfg.Storage.Path = ""
		cfg.Export.TempDir = ""
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseFlags(name string, args []string, setup func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	setup(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func enqueue(ctx context.Context, store metastore.MetaStore, args []string, out io.Writer) error {
	var key, value string
	if err := parseFlags("enqueue", args, func(fs *flag.FlagSet) {
		fs.StringVar(&key, "key", "", "Queue item key")
		fs.StringVar(&value, "value", "", "Queue item payload")
	}); err != nil {
		return err
	}
	row, err := store.AddToQueue(ctx, types.NewQueueItem(key, value))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "enqueued %s (id %d)\n", row.GetRow().GetKey(), row.GetID())
	return nil
}

func dequeue(ctx context.Context, store metastore.MetaStore, args []string, out io.Writer) error {
	var key string
	if err := parseFlags("dequeue", args, func(fs *flag.FlagSet) {
		fs.StringVar(&key, "key", "", "Queue item key")
	}); err != nil {
		return err
	}
	if err := store.DeleteQueueItem(ctx, key); err != nil {
		return err
	}
	fmt.Fprintf(out, "dequeued %s\n", key)
	return nil
}

func createSchema(ctx context.Context, store metastore.MetaStore, args []string, out io.Writer) error {
	var name string
	if err := parseFlags("create-schema", args, func(fs *flag.FlagSet) {
		fs.StringVar(&name, "name", "", "Schema name")
	}); err != nil {
		return err
	}
	row, err := store.CreateSchema(ctx, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created schema %s (id %d)\n", row.GetRow().GetName(), row.GetID())
	return nil
}

func listTables(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tCOLUMNS")
	for _, t := range infoschema.DefaultRegistry().Tables() {
		fields := infoschema.DescribeSchema(t.Schema())
		cols := ""
		for i, f := range fields {
			if i > 0 {
				cols += ", "
			}
			cols += f.Name + " " + f.Type
		}
		fmt.Fprintf(tw, "%s\t%s\n", t.Name(), cols)
	}
	return tw.Flush()
}

func lookupTable(args []string, name string, extra func(fs *flag.FlagSet)) (infoschema.Table, error) {
	var tableName string
	if err := parseFlags(name, args, func(fs *flag.FlagSet) {
		fs.StringVar(&tableName, "table", "", "Qualified table name, e.g. system.queue")
		if extra != nil {
			extra(fs)
		}
	}); err != nil {
		return nil, err
	}
	tn, err := infoschema.ParseTableName(tableName)
	if err != nil {
		return nil, err
	}
	return infoschema.DefaultRegistry().Lookup(tn)
}

func scan(ctx context.Context, store metastore.Reader, args []string, out io.Writer) error {
	table, err := lookupTable(args, "scan", nil)
	if err != nil {
		return err
	}
	rec, err := table.Scan(ctx, store)
	if err != nil {
		return err
	}
	defer rec.Release()

	cols := infoschema.RecordToColumns(rec)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c.Name)
	}
	fmt.Fprintln(tw)
	for row := 0; row < int(rec.NumRows()); row++ {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			if v := c.Values[row]; v == nil {
				fmt.Fprint(tw, "NULL")
			} else {
				fmt.Fprint(tw, v)
			}
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d rows)\n", rec.NumRows())
	return nil
}

func exportTable(ctx context.Context, cfg *config.Config, store metastore.Reader, args []string, out io.Writer) error {
	table, err := lookupTable(args, "export", nil)
	if err != nil {
		return err
	}
	objects, err := app.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	result, err := export.NewExporter(objects, cfg.Export.TempDir).Export(ctx, table, store)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "exported %d rows to %s (%d bytes, checksum %s)\n",
		result.Rows, result.ObjectPath, result.SizeBytes, result.Checksum)
	return nil
}

func pull(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	var outDir string
	var concurrency int
	table, err := lookupTable(args, "pull", func(fs *flag.FlagSet) {
		fs.StringVar(&outDir, "out", ".", "Directory to download into")
		fs.IntVar(&concurrency, "concurrency", 4, "Parallel downloads")
	})
	if err != nil {
		return err
	}
	objects, err := app.OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	paths, err := export.NewExporter(objects, cfg.Export.TempDir).ListExports(ctx, table.Name())
	if err != nil {
		return err
	}

	result, err := storage.NewFetcher(objects, concurrency, outDir).Fetch(ctx, paths)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if local, ok := result.LocalPaths[p]; ok {
			fmt.Fprintf(out, "%s -> %s\n", p, local)
		}
	}
	fmt.Fprintf(out, "downloaded %d, skipped %d, failed %d\n", result.Downloaded, result.Skipped, len(result.Errors))
	for p, ferr := range result.Errors {
		fmt.Fprintf(out, "  %s: %v\n", p, ferr)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d downloads failed", len(result.Errors))
	}
	return nil
}
