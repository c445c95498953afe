package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/niktheblak/helvetic/pkg/psql"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the PostgreSQL schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(psql.Up), string(psql.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := psql.Up
		if len(args) > 0 {
			direction = psql.Direction(args[0])
		}
		url := viper.GetString("postgres.url")
		if url == "" {
			return fmt.Errorf("postgres.url is not set")
		}
		logger.LogAttrs(context.Background(), slog.LevelInfo, "Running migrations", slog.String("direction", string(direction)))
		if err := psql.Migrate(url, direction); err != nil {
			return err
		}
		logger.Info("Migrations complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
