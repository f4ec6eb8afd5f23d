package main

import (
	"fmt"
	"os"

	"github.com/npezzotti/go-curio/internal/config"
	"github.com/npezzotti/go-curio/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// demoSigningSecret signs sessions in demo mode when no secret is configured.
const demoSigningSecret = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

var (
	configPath     string
	addr           string
	dbDriver       string
	dsn            string
	signingSecret  string
	allowedOrigins []string
	logLevel       string
	demoMode       bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "curio",
	Short:         "Curio collection tracker server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&dbDriver, "db-driver", "", "database driver (postgres or sqlite)")
	pf.StringVar(&dsn, "dsn", "", "database connection string")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&demoMode, "demo", false, "run on SQLite with a seeded demo account")

	serveCmd.Flags().StringVar(&addr, "addr", "", "server address")
	serveCmd.Flags().StringVar(&signingSecret, "signing-secret", "", "base64 encoded session signing secret")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "allowed-origins", nil, "comma-separated list of allowed origins for CORS")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ServerAddr = addr
	}
	if flags.Changed("db-driver") {
		cfg.Database.Driver = dbDriver
	}
	if flags.Changed("dsn") {
		cfg.Database.DSN = dsn
	}
	if flags.Changed("signing-secret") {
		cfg.SigningSecret = signingSecret
	}
	if flags.Changed("allowed-origins") {
		cfg.AllowedOrigins = allowedOrigins
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("demo") {
		cfg.Demo = demoMode
	}
	if cfg.Demo && cfg.SigningSecret == "" {
		cfg.SigningSecret = demoSigningSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err = logging.NewLogger(cfg.Log.Level, cfg.Log.Format, "curio")
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
