package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/studydeck-backend/internal/app"
)

var reportOwner string

var reportCmd = &cobra.Command{
	Use:   "report [document-id]",
	Short: "Print a token cost efficiency report",
	Long: `Print a token cost efficiency report for one document, or for every
processing job when no document is given.

Examples:
  studydeck report
  studydeck report 6f1c... --owner 9a2b... -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(a *app.App) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				rep, err := a.Services.Reports.GlobalEfficiency(ctx)
				if err != nil {
					return err
				}
				return printOutput(cmd.OutOrStdout(), rep)
			}
			docID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id: %w", err)
			}
			ownerID := uuid.Nil
			if reportOwner != "" {
				if ownerID, err = uuid.Parse(reportOwner); err != nil {
					return fmt.Errorf("invalid owner id: %w", err)
				}
			}
			rep, err := a.Services.Reports.DocumentEfficiency(ctx, ownerID, docID)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), rep)
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOwner, "owner", "", "require the document to belong to this user")
}
