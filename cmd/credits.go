package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/studydeck-backend/internal/app"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	"github.com/yungbote/studydeck-backend/internal/services"
)

var (
	grantKind   string
	grantReason string
	historySize int
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and adjust credit accounts",
}

var creditsGrantCmd = &cobra.Command{
	Use:   "grant <user-id> <amount>",
	Short: "Add credits to an account (purchase, bonus or adjustment)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		var amount int
		if _, err := fmt.Sscanf(args[1], "%d", &amount); err != nil || amount <= 0 {
			return fmt.Errorf("amount must be a positive integer")
		}
		kind := types.CreditKind(strings.ToLower(grantKind))
		switch kind {
		case types.CreditPurchase, types.CreditBonus, types.CreditAdjustment:
		default:
			return fmt.Errorf("kind must be purchase, bonus or adjustment")
		}
		return withCore(cmd, func(a *app.App) error {
			dbc := dbctx.New(cmd.Context())
			if _, err := a.Services.Ledger.EnsureAccount(dbc, userID); err != nil {
				return err
			}
			balance, err := a.Services.Ledger.Credit(dbc, services.CreditRequest{
				UserID: userID,
				Amount: amount,
				Kind:   kind,
				Reason: grantReason,
			})
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), map[string]any{"user_id": userID, "balance": balance})
		})
	},
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance <user-id>",
	Short: "Show an account and its recent transactions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		return withCore(cmd, func(a *app.App) error {
			dbc := dbctx.New(cmd.Context())
			acct, err := a.Services.Ledger.Balance(dbc, userID)
			if err != nil {
				return err
			}
			if acct == nil {
				return fmt.Errorf("no credit account for %s", userID)
			}
			txns, err := a.Services.Ledger.History(dbc, userID, historySize)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), map[string]any{"account": acct, "transactions": txns})
		})
	},
}

var creditsReconstructCmd = &cobra.Command{
	Use:   "reconstruct <user-id>",
	Short: "Recompute an account from its transaction log and compare",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		return withCore(cmd, func(a *app.App) error {
			rec, err := a.Services.Ledger.Reconstruct(dbctx.New(cmd.Context()), userID)
			if err != nil {
				return err
			}
			if err := printOutput(cmd.OutOrStdout(), rec); err != nil {
				return err
			}
			if !rec.Consistent {
				return fmt.Errorf("account %s does not match its transaction log", userID)
			}
			return nil
		})
	},
}

func withCore(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	a, err := app.OpenCore(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())
	return fn(a)
}

func init() {
	creditsGrantCmd.Flags().StringVar(&grantKind, "kind", string(types.CreditPurchase), "purchase, bonus or adjustment")
	creditsGrantCmd.Flags().StringVar(&grantReason, "reason", "manual grant", "reason stored on the transaction")
	creditsBalanceCmd.Flags().IntVar(&historySize, "limit", 20, "number of transactions to show")
	creditsCmd.AddCommand(creditsGrantCmd, creditsBalanceCmd, creditsReconstructCmd)
}
