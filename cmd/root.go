package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/livecheck/internal/config"
	"github.com/andresmejia3/livecheck/internal/logging"
	"github.com/andresmejia3/livecheck/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// DB is the global database connection shared by subcommands.
	// It is opened on demand by openDB; commands that never touch Postgres leave it nil.
	DB *store.Store
	// dbURL is the connection string
	dbURL string

	// appCfg holds thresholds and paths resolved from the environment and --config.
	appCfg *config.Config

	configPath string
	logLevel   string
	logFormat  string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "livecheck",
	Short:   "Face attendance with multi-signal liveness verification",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.New(logLevel, logFormat)
		slog.SetDefault(logger)
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

		var err error
		appCfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
	},
}

// resolveDBURL returns the --db flag, or a connection string built from the environment.
func resolveDBURL() string {
	if dbURL != "" {
		return dbURL
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		name := os.Getenv("POSTGRES_DB")
		port := os.Getenv("POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
	}
	// Fallback to local default if no env vars are present
	return "postgres://localhost:5432/livecheck"
}

// openDB connects to Postgres once per process and stores the handle in DB.
func openDB(ctx context.Context) (*store.Store, error) {
	if DB != nil {
		return DB, nil
	}
	s, err := store.New(ctx, resolveDBURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	DB = s
	return DB, nil
}

// loadDotEnv reads .env from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to load .env: %v\n", err)
	}
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: postgres://localhost:5432/livecheck)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file overriding liveness thresholds and worker settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}
