package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"diamond-price-service/internal/adapters/secondary/filesystem"
	"diamond-price-service/internal/adapters/secondary/postgres"
	"diamond-price-service/internal/adapters/secondary/prometheus"
	"diamond-price-service/internal/config"
	ports "diamond-price-service/internal/core/ports/output"
	"diamond-price-service/internal/core/services"
)

var (
	// CLI flags; when set they win over the environment
	folds       int     // Number of cross-validation folds
	seed        int64   // Seed for the fold shuffle
	ridge       float64 // Ridge penalty on non-intercept coefficients
	registryDir string  // Model registry directory
	databaseDSN string  // Postgres connection string
	dryRun      bool    // Evaluate only, never promote
	metricsFile string  // Optional Prometheus textfile written after a run
	logLevel    string  // Log verbosity level
)

// rootCmd trains by default so that a bare `trainer` behaves like `trainer run`
var rootCmd = &cobra.Command{
	Use:           "trainer",
	Short:         "Train the diamond price model and promote it when it beats the active one",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTrain,
}

// runCmd executes one training workflow
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the dataset, evaluate a candidate and promote it if better",
	RunE:  runTrain,
}

// showCmd prints the active registry metadata
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active model metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		registry := filesystem.NewRegistry(afero.NewOsFs(), &cfg.Registry)
		return showMetadata(cmd.Context(), registry, cmd.OutOrStdout())
	},
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("trainer failed")
		stop()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&folds, "folds", 10, "Number of cross-validation folds")
	flags.Int64Var(&seed, "seed", 42, "Seed for the cross-validation shuffle")
	flags.Float64Var(&ridge, "ridge", 0.001, "Ridge penalty (0 for plain least squares)")
	flags.StringVar(&registryDir, "registry-dir", "", "Model registry directory (default from REGISTRY_DIR)")
	flags.StringVar(&databaseDSN, "database-dsn", "", "Postgres DSN (default built from DATABASE_* settings)")
	flags.BoolVar(&dryRun, "dry-run", false, "Evaluate the candidate without promoting it")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write training metrics in Prometheus text format to this file")
	flags.StringVar(&logLevel, "log", "", "Log level (trace, debug, info, warn, error, fatal, panic)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(showCmd)
}

// loadConfig reads the environment then applies the flags that were set
// explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("folds") {
		cfg.Training.Folds = folds
	}
	if flags.Changed("seed") {
		cfg.Training.Seed = seed
	}
	if flags.Changed("ridge") {
		cfg.Training.RidgeLambda = ridge
	}
	if flags.Changed("registry-dir") {
		cfg.Registry.Dir = registryDir
	}
	if flags.Changed("log") {
		cfg.Logger.Level = logLevel
	}
	if cfg.Training.Folds < 2 {
		return nil, fmt.Errorf("folds must be at least 2, got %d", cfg.Training.Folds)
	}
	if cfg.Training.RidgeLambda < 0 {
		return nil, fmt.Errorf("ridge must be non-negative, got %g", cfg.Training.RidgeLambda)
	}

	initLogger(cfg)
	return cfg, nil
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	dsn := cfg.Database.DSN()
	if cmd.Flags().Changed("database-dsn") {
		dsn = databaseDSN
	}
	pool, err := openReadOnlyPool(ctx, dsn, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	collector := prometheus.NewCollector()
	svc := services.NewTrainingService(
		postgres.NewDiamondRepository(pool),
		filesystem.NewRegistry(afero.NewOsFs(), &cfg.Registry),
		collector,
		services.TrainingOptions{
			Folds:       cfg.Training.Folds,
			Seed:        cfg.Training.Seed,
			RidgeLambda: cfg.Training.RidgeLambda,
			DryRun:      dryRun,
		},
	)

	report, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report, dryRun)

	if metricsFile != "" {
		if err := collector.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics file: %w", err)
		}
	}
	return nil
}

// openReadOnlyPool connects with every session pinned to read-only
// transactions so training can never modify the dataset.
func openReadOnlyPool(ctx context.Context, dsn string, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(dbCfg.MaxOpenConns)
	poolCfg.MinConns = int32(dbCfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = dbCfg.ConnMaxLifetime
	poolCfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	log.Info("database connection established")
	return pool, nil
}

func printReport(w io.Writer, r *services.TrainingReport, dryRun bool) {
	fmt.Fprintf(w, "rows: %d (dropped %d)\n", r.Rows, r.Dropped)
	fmt.Fprintf(w, "candidate mae: %.3f\n", r.CandidateMetric)
	if r.PreviousMetric != nil {
		fmt.Fprintf(w, "active mae: %.3f\n", *r.PreviousMetric)
	} else {
		fmt.Fprintln(w, "active mae: none")
	}
	switch {
	case r.Promoted:
		fmt.Fprintf(w, "promoted: %s\n", r.ArtifactPath)
	case dryRun:
		fmt.Fprintln(w, "dry run: registry unchanged")
	default:
		fmt.Fprintln(w, "not promoted: registry unchanged")
	}
}

func showMetadata(ctx context.Context, registry ports.ModelRegistry, w io.Writer) error {
	meta, err := registry.ReadMetadata(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
