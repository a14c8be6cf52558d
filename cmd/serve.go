package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/studydeck-backend/internal/app"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. The schema is migrated on startup.

Examples:
  studydeck serve
  studydeck serve --addr :9000
  STUDYDECK_DB_DRIVER=sqlite studydeck serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTP.Addr = serveAddr
		}
		ctx := cmd.Context()
		a, err := app.New(ctx, cfg, log)
		if err != nil {
			log.Error("startup failed", "error", err)
			log.Sync()
			return err
		}
		defer a.Close(ctx)
		return a.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
}
