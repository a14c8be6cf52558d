package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/studydeck-backend/internal/app"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "studydeck",
	Short: "Credit-metered study material generation backend",
	Long: `studydeck turns uploaded documents into topics, flashcards, quiz
questions, explanations and vocabulary, charging the owner's credit balance.

Commands:
  serve    run the HTTP API
  migrate  create or update the database schema
  credits  inspect and adjust credit accounts
  report   print token cost efficiency reports`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./studydeck.yaml or ~/.studydeck/studydeck.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.AddCommand(serveCmd, migrateCmd, creditsCmd, reportCmd)
}

// bootstrap loads config and builds the logger it names.
func bootstrap() (app.Config, *logger.Logger, error) {
	cfg, err := app.LoadConfig(nil, cfgFile)
	if err != nil {
		return app.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
