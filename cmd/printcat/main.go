package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/printforge/catalog/pkg/backfill"
	"github.com/printforge/catalog/pkg/catalogpath"
	"github.com/printforge/catalog/pkg/config"
	"github.com/printforge/catalog/pkg/metaextract"
	"github.com/printforge/catalog/pkg/names"
	"github.com/printforge/catalog/pkg/objstore"
	"github.com/printforge/catalog/pkg/publish"

	_ "github.com/lib/pq" // Postgres Driver
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "publish":
		return runPublishCmd(args[2:], stdout, stderr)
	case "check":
		return runCheckCmd(args[2:], stdout, stderr)
	case "extract":
		return runExtractCmd(args[2:], stdout, stderr)
	case "dedupe":
		return runDedupeCmd(stdout, stderr)
	case "gc":
		return runGCCmd(stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "printcat - print-job artifact catalog")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  printcat publish -owner <id> -model <model> -job <name> -token <staging token>")
	fmt.Fprintln(w, "  printcat check   -model <model> -job <name> [-token <staging token>]")
	fmt.Fprintln(w, "  printcat extract -key <object key>")
	fmt.Fprintln(w, "  printcat dedupe")
	fmt.Fprintln(w, "  printcat gc")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CATALOG_STORAGE_TYPE   fs | s3 | gcs (default fs)")
	fmt.Fprintln(w, "  DATA_DIR, CATALOG_S3_BUCKET/REGION/ENDPOINT, CATALOG_GCS_BUCKET")
	fmt.Fprintln(w, "  DATABASE_URL           postgres://... or sqlite://<path>")
	fmt.Fprintln(w, "  CATALOG_EXTRACTOR_PROFILE  optional YAML tuning file")
	fmt.Fprintln(w, "  LOG_LEVEL              DEBUG | INFO | WARN | ERROR")
	fmt.Fprintln(w, "")
}

func setupLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

// recordBackend is the surface both SQL-backed record stores provide.
type recordBackend interface {
	names.RecordStore
	Init(ctx context.Context) error
	GlobalScope() names.Scope
	OwnerScope() names.OwnerScope
}

func openRecords(ctx context.Context, cfg *config.Config) (recordBackend, error) {
	var backend recordBackend
	switch {
	case strings.HasPrefix(cfg.DatabaseURL, "sqlite://"):
		store, err := names.OpenSQLite(strings.TrimPrefix(cfg.DatabaseURL, "sqlite://"))
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening catalog database: %w", err)
		}
		backend = names.NewPostgresRecordStore(db)
	}
	if err := backend.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	return backend, nil
}

// buildRegistry assembles the name registry. With REDIS_ADDR set, the
// global scope is a Redis snapshot seeded from the record store, keeping
// per-probe traffic off the relational database; the owner fast path stays
// on the indexed owner query either way.
func buildRegistry(ctx context.Context, cfg *config.Config, records recordBackend, logger *slog.Logger) (*names.Registry, error) {
	if cfg.RedisAddr == "" {
		return names.NewRegistry(records.GlobalScope(), records.OwnerScope(), logger), nil
	}

	scope := names.NewRedisScope(names.NewRedisClient(cfg.RedisAddr, "", 0), "catalog:names")
	all, err := records.AllNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting names for redis scope: %w", err)
	}
	if err := scope.Seed(ctx, all); err != nil {
		return nil, err
	}
	return names.NewRegistry(scope, records.OwnerScope(), logger), nil
}

func runPublishCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("publish", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var owner, model, job, token string
	cmd.StringVar(&owner, "owner", "", "Owner ID of the job (REQUIRED)")
	cmd.StringVar(&model, "model", "", "Printer model the job targets (REQUIRED)")
	cmd.StringVar(&job, "job", "", "Desired display name, e.g. Benchy.gcode (REQUIRED)")
	cmd.StringVar(&token, "token", "", "Staging token the producer uploaded under (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if owner == "" || model == "" || job == "" || token == "" {
		fmt.Fprintln(stderr, "Error: --owner, --model, --job and --token are required")
		cmd.Usage()
		return 2
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg, stderr)

	store, err := objstore.NewStoreFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	records, err := openRecords(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	extractCfg, err := config.LoadExtractorProfile(cfg.ExtractorProfile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	registry, err := buildRegistry(ctx, cfg, records, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	runner := backfill.NewRunner(store, records, registry,
		publish.NewCoordinator(store, logger),
		metaextract.NewExtractor(store, extractCfg, logger), logger)

	res, err := runner.Run(ctx, []backfill.Item{{
		OwnerID: owner,
		Model:   model,
		JobName: job,
		Handle:  catalogpath.HandleForToken(model, job, token),
	}})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "published %d, renamed %d\n", res.Published, res.Renamed)
	return 0
}

func runCheckCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("check", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var model, job, token string
	cmd.StringVar(&model, "model", "", "Printer model (REQUIRED)")
	cmd.StringVar(&job, "job", "", "Display name (REQUIRED)")
	cmd.StringVar(&token, "token", "", "Staging token, for pre-commit status")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if model == "" || job == "" {
		fmt.Fprintln(stderr, "Error: --model and --job are required")
		cmd.Usage()
		return 2
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg, stderr)

	store, err := objstore.NewStoreFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	coord := publish.NewCoordinator(store, logger)

	if token == "" {
		published, err := coord.IsPublished(ctx, model, job)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if published {
			fmt.Fprintln(stdout, string(publish.StateCommitted))
		} else {
			fmt.Fprintln(stdout, "not published")
		}
		return 0
	}

	state, err := coord.Status(ctx, model, job, catalogpath.HandleForToken(model, job, token))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(state))
	return 0
}

func runExtractCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("extract", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var key string
	cmd.StringVar(&key, "key", "", "Object key of the payload (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if key == "" {
		fmt.Fprintln(stderr, "Error: --key is required")
		cmd.Usage()
		return 2
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg, stderr)

	store, err := objstore.NewStoreFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	extractCfg, err := config.LoadExtractorProfile(cfg.ExtractorProfile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	facts, err := metaextract.NewExtractor(store, extractCfg, logger).Extract(ctx, key, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	printFacts(stdout, facts)
	return 0
}

func printFacts(w io.Writer, facts metaextract.Facts) {
	if facts.EstimateMinutes != nil {
		fmt.Fprintf(w, "estimate_min:  %d\n", *facts.EstimateMinutes)
	}
	if facts.EstimateText != nil {
		fmt.Fprintf(w, "estimate_text: %s\n", *facts.EstimateText)
	}
	if facts.FilamentGrams != nil {
		fmt.Fprintf(w, "filament_g:    %.2f\n", *facts.FilamentGrams)
	}
	if facts.FilamentMillimeters != nil {
		fmt.Fprintf(w, "filament_mm:   %.1f\n", *facts.FilamentMillimeters)
	}
	if facts.EstimateMinutes == nil && facts.FilamentGrams == nil && facts.FilamentMillimeters == nil {
		fmt.Fprintln(w, "no facts found within the read budget")
	}
}

func runDedupeCmd(stdout, stderr io.Writer) int {
	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg, stderr)

	records, err := openRecords(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	renamed, err := names.NewRepairer(records, logger).RepairDuplicates(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "renamed %d duplicate entries\n", renamed)
	return 0
}

// runGCCmd sweeps everything under the staging prefix. Committed artifacts
// never live there and interrupted publishes are resumable from their final
// keys alone, so staging objects are always safe to delete.
func runGCCmd(stdout, stderr io.Writer) int {
	ctx := context.Background()
	cfg := config.Load()
	logger := setupLogger(cfg, stderr)

	store, err := objstore.NewStoreFromEnv(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	keys, err := store.List(ctx, "staging/")
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	removed := 0
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			logger.Warn("staging sweep failed", slog.String("key", key), slog.Any("error", err))
			continue
		}
		removed++
	}
	fmt.Fprintf(stdout, "removed %d staging objects\n", removed)
	return 0
}
