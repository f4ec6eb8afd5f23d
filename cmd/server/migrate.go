package main

import (
	"fmt"

	"github.com/npezzotti/go-curio/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		driver := cfg.DatabaseDriver()
		if err := database.Migrate(driver, cfg.Database.DSN); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		logger.Info("database is up to date", zap.String("driver", string(driver)))
		return nil
	},
}
