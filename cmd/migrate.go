package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/studydeck-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		a, err := app.OpenCore(ctx, cfg, log, true)
		if err != nil {
			return err
		}
		defer a.Close(ctx)
		log.Info("schema up to date", "driver", cfg.DB.Driver)
		return nil
	},
}
