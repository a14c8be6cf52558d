package services

import (
	"errors"
	"fmt"

	"github.com/yungbote/studydeck-backend/internal/domain/credits"
)

var (
	// ErrJobAlreadyActive means the document already has a pending or
	// processing job.
	ErrJobAlreadyActive = errors.New("document already has an active job")
	// ErrInvalidTransition is returned when a job is not in the state an
	// operation requires.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrJobAbandoned fails a job whose run stopped reporting.
	ErrJobAbandoned = errors.New("job abandoned: no progress before the stale deadline")
	// ErrShuttingDown fails a job the process could not finish before exit.
	ErrShuttingDown = errors.New("server shutting down")
)

// PreflightError is a failure before any credits were reserved. No job exists.
type PreflightError struct {
	Stage string
	Err   error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("preflight %s: %v", e.Stage, e.Err)
}

func (e *PreflightError) Unwrap() error { return e.Err }

// InsufficientCreditsError is a refused reservation.
type InsufficientCreditsError struct {
	Required  int `json:"required"`
	Available int `json:"available"`
	Shortfall int `json:"shortfall"`
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d, short %d", e.Required, e.Available, e.Shortfall)
}

func (e *InsufficientCreditsError) Unwrap() error { return credits.ErrInsufficientCredits }

// PersistenceError is a failed save after reservation.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// GenerationError is a failed or unusable AI call after reservation.
type GenerationError struct {
	Operation string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Operation, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// AccountingError is a failed usage record. It is logged, never returned to
// pipeline callers.
type AccountingError struct {
	Operation string
	Err       error
}

func (e *AccountingError) Error() string {
	return fmt.Sprintf("record usage %s: %v", e.Operation, e.Err)
}

func (e *AccountingError) Unwrap() error { return e.Err }
