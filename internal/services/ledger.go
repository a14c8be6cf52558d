package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/studydeck-backend/internal/data/repos"
	types "github.com/yungbote/studydeck-backend/internal/domain"
	"github.com/yungbote/studydeck-backend/internal/observability"
	"github.com/yungbote/studydeck-backend/internal/pkg/dbctx"
	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type ReserveRequest struct {
	UserID uuid.UUID
	Amount int
	// Kind defaults to processing.
	Kind   types.CreditKind
	Reason string
	JobID  *uuid.UUID
}

type CreditRequest struct {
	UserID uuid.UUID
	Amount int
	Kind   types.CreditKind
	Reason string
	JobID  *uuid.UUID
}

// Reconstruction is an account head recomputed from its transaction log.
type Reconstruction struct {
	UserID         uuid.UUID `json:"user_id"`
	Transactions   int       `json:"transactions"`
	Balance        int       `json:"balance"`
	LifetimeEarned int       `json:"lifetime_earned"`
	LifetimeSpent  int       `json:"lifetime_spent"`
	Consistent     bool      `json:"consistent"`
	Mismatches     []string  `json:"mismatches,omitempty"`
}

// LedgerService is the only writer of credit_account and credit_transaction.
// Every mutation updates the account head and appends one transaction in the
// same datastore transaction; a caller may pass its own via dbctx.Context.Tx.
type LedgerService interface {
	EnsureAccount(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error)
	Reserve(dbc dbctx.Context, req ReserveRequest) (int, error)
	Credit(dbc dbctx.Context, req CreditRequest) (int, error)
	Transfer(dbc dbctx.Context, fromUserID, toUserID uuid.UUID, amount int, reason string) (int, error)
	Balance(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error)
	History(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.CreditTransaction, error)
	Reconstruct(dbc dbctx.Context, userID uuid.UUID) (*Reconstruction, error)
}

type ledgerService struct {
	db          *gorm.DB
	log         *logger.Logger
	accounts    repos.CreditAccountRepo
	txns        repos.CreditTransactionRepo
	signupBonus int
}

func NewLedgerService(
	db *gorm.DB,
	baseLog *logger.Logger,
	accounts repos.CreditAccountRepo,
	txns repos.CreditTransactionRepo,
	signupBonus int,
) LedgerService {
	return &ledgerService{
		db:          db,
		log:         baseLog.With("service", "LedgerService"),
		accounts:    accounts,
		txns:        txns,
		signupBonus: signupBonus,
	}
}

// inTx runs fn in dbc.Tx when set, otherwise in a new transaction.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

func (s *ledgerService) EnsureAccount(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id: %w", apperr.ErrInvalidArgument)
	}
	var acct *types.CreditAccount
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		created, err := s.accounts.Ensure(dbc, userID)
		if err != nil {
			return fmt.Errorf("ensure account: %w", err)
		}
		if created && s.signupBonus > 0 {
			if _, err := s.credit(dbc, CreditRequest{
				UserID: userID,
				Amount: s.signupBonus,
				Kind:   types.CreditBonus,
				Reason: "signup bonus",
			}); err != nil {
				return err
			}
		}
		acct, err = s.accounts.Get(dbc, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *ledgerService) Reserve(dbc dbctx.Context, req ReserveRequest) (int, error) {
	if req.Kind == "" {
		req.Kind = types.CreditProcessing
	}
	ctx, span := otel.Tracer("studydeck/ledger").Start(dbc.Ctx, "ledger.reserve")
	defer span.End()
	span.SetAttributes(attribute.String("credit.kind", string(req.Kind)), attribute.Int("credit.amount", req.Amount))
	dbc.Ctx = ctx

	var balance int
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		var err error
		balance, err = s.reserve(dbc, req)
		return err
	})
	s.observe("reserve", req.Kind, req.Amount, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		return 0, err
	}
	return balance, nil
}

func (s *ledgerService) reserve(dbc dbctx.Context, req ReserveRequest) (int, error) {
	if req.UserID == uuid.Nil || req.Amount <= 0 {
		return 0, fmt.Errorf("reserve %d for %s: %w", req.Amount, req.UserID, apperr.ErrInvalidArgument)
	}
	ok, err := s.accounts.Debit(dbc, req.UserID, req.Amount)
	if err != nil {
		return 0, fmt.Errorf("debit account: %w", err)
	}
	if !ok {
		available := 0
		if acct, err := s.accounts.Get(dbc, req.UserID); err != nil {
			return 0, fmt.Errorf("read account: %w", err)
		} else if acct != nil {
			available = acct.Balance
		}
		return 0, &InsufficientCreditsError{
			Required:  req.Amount,
			Available: available,
			Shortfall: req.Amount - available,
		}
	}
	return s.appendTxn(dbc, req.UserID, -req.Amount, req.Kind, req.Reason, req.JobID)
}

func (s *ledgerService) Credit(dbc dbctx.Context, req CreditRequest) (int, error) {
	ctx, span := otel.Tracer("studydeck/ledger").Start(dbc.Ctx, "ledger.credit")
	defer span.End()
	span.SetAttributes(attribute.String("credit.kind", string(req.Kind)), attribute.Int("credit.amount", req.Amount))
	dbc.Ctx = ctx

	var balance int
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		var err error
		balance, err = s.credit(dbc, req)
		return err
	})
	s.observe("credit", req.Kind, req.Amount, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		return 0, err
	}
	return balance, nil
}

func (s *ledgerService) credit(dbc dbctx.Context, req CreditRequest) (int, error) {
	if req.UserID == uuid.Nil || req.Amount <= 0 {
		return 0, fmt.Errorf("credit %d for %s: %w", req.Amount, req.UserID, apperr.ErrInvalidArgument)
	}
	switch req.Kind {
	case types.CreditRefund, types.CreditPurchase, types.CreditBonus, types.CreditGift, types.CreditAdjustment:
	default:
		return 0, fmt.Errorf("credit kind %q: %w", req.Kind, apperr.ErrInvalidArgument)
	}
	if _, err := s.accounts.Ensure(dbc, req.UserID); err != nil {
		return 0, fmt.Errorf("ensure account: %w", err)
	}
	if err := s.accounts.Increment(dbc, req.UserID, req.Amount); err != nil {
		return 0, fmt.Errorf("increment account: %w", err)
	}
	return s.appendTxn(dbc, req.UserID, req.Amount, req.Kind, req.Reason, req.JobID)
}

func (s *ledgerService) appendTxn(dbc dbctx.Context, userID uuid.UUID, amount int, kind types.CreditKind, reason string, jobID *uuid.UUID) (int, error) {
	acct, err := s.accounts.Get(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("read account: %w", err)
	}
	if acct == nil {
		return 0, fmt.Errorf("account %s: %w", userID, apperr.ErrNotFound)
	}
	txn := &types.CreditTransaction{
		UserID:       userID,
		Amount:       amount,
		Kind:         kind,
		JobID:        jobID,
		Reason:       strings.TrimSpace(reason),
		BalanceAfter: acct.Balance,
	}
	if err := s.txns.Append(dbc, txn); err != nil {
		if apperr.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%s already recorded for job: %w", kind, apperr.ErrConflict)
		}
		return 0, fmt.Errorf("append transaction: %w", err)
	}
	return acct.Balance, nil
}

// Transfer moves amount from one user to another as a pair of gift rows.
func (s *ledgerService) Transfer(dbc dbctx.Context, fromUserID, toUserID uuid.UUID, amount int, reason string) (int, error) {
	if fromUserID == toUserID {
		return 0, fmt.Errorf("transfer to self: %w", apperr.ErrInvalidArgument)
	}
	var balance int
	err := inTx(s.db, dbc, func(dbc dbctx.Context) error {
		var err error
		balance, err = s.reserve(dbc, ReserveRequest{UserID: fromUserID, Amount: amount, Kind: types.CreditGift, Reason: reason})
		if err != nil {
			return err
		}
		_, err = s.credit(dbc, CreditRequest{UserID: toUserID, Amount: amount, Kind: types.CreditGift, Reason: reason})
		return err
	})
	s.observe("transfer", types.CreditGift, amount, err)
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *ledgerService) Balance(dbc dbctx.Context, userID uuid.UUID) (*types.CreditAccount, error) {
	acct, err := s.accounts.Get(dbc, userID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return &types.CreditAccount{UserID: userID}, nil
	}
	return acct, nil
}

func (s *ledgerService) History(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.CreditTransaction, error) {
	return s.txns.ListByUser(dbc, userID, limit)
}

// Reconstruct replays the log and compares it with the stored head.
func (s *ledgerService) Reconstruct(dbc dbctx.Context, userID uuid.UUID) (*Reconstruction, error) {
	rows, err := s.txns.ListAllByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := &Reconstruction{UserID: userID, Transactions: len(rows)}
	for _, row := range rows {
		out.Balance += row.Amount
		if row.Amount > 0 {
			out.LifetimeEarned += row.Amount
		} else {
			out.LifetimeSpent -= row.Amount
		}
		if row.BalanceAfter != out.Balance {
			out.Mismatches = append(out.Mismatches, fmt.Sprintf("transaction %s: balance_after=%d replayed=%d", row.ID, row.BalanceAfter, out.Balance))
		}
		if out.Balance < 0 {
			out.Mismatches = append(out.Mismatches, fmt.Sprintf("transaction %s: negative balance %d", row.ID, out.Balance))
		}
	}
	acct, err := s.accounts.Get(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("read account: %w", err)
	}
	if acct == nil {
		acct = &types.CreditAccount{UserID: userID}
	}
	if acct.Balance != out.Balance {
		out.Mismatches = append(out.Mismatches, fmt.Sprintf("balance: stored=%d replayed=%d", acct.Balance, out.Balance))
	}
	if acct.LifetimeEarned != out.LifetimeEarned {
		out.Mismatches = append(out.Mismatches, fmt.Sprintf("lifetime_earned: stored=%d replayed=%d", acct.LifetimeEarned, out.LifetimeEarned))
	}
	if acct.LifetimeSpent != out.LifetimeSpent {
		out.Mismatches = append(out.Mismatches, fmt.Sprintf("lifetime_spent: stored=%d replayed=%d", acct.LifetimeSpent, out.LifetimeSpent))
	}
	out.Consistent = len(out.Mismatches) == 0
	return out, nil
}

func (s *ledgerService) observe(op string, kind types.CreditKind, amount int, err error) {
	outcome := "ok"
	var insufficient *InsufficientCreditsError
	switch {
	case err == nil:
	case errors.As(err, &insufficient):
		outcome = "insufficient"
	case errors.Is(err, apperr.ErrConflict):
		outcome = "conflict"
	default:
		outcome = "error"
		s.log.Warn("ledger operation failed", "op", op, "kind", kind, "amount", amount, "error", err)
	}
	observability.Current().ObserveLedger(op, string(kind), outcome, amount)
}
