package brokerage

import (
	"context"

	"github.com/shopspring/decimal"
)

// Readiness reports whether the backend considers an account eligible to
// enter closure, and what stands in the way if not.
type Readiness struct {
	Ready            bool            `json:"ready"`
	OpenOrders       int             `json:"open_orders"`
	OpenPositions    int             `json:"open_positions"`
	CashBalance      decimal.Decimal `json:"cash_balance"`
	PositionsValue   decimal.Decimal `json:"positions_market_value"`
	PendingTransfers int             `json:"pending_transfers"`
	Blockers         []string        `json:"blockers,omitempty"`
}

type InitiateRequest struct {
	ACHRelationshipID string `json:"ach_relationship_id"`
}

type InitiateResult struct {
	ConfirmationNumber  string   `json:"confirmation_number"`
	EstimatedCompletion string   `json:"estimated_completion"`
	NextSteps           []string `json:"next_steps"`
}

type LiquidateResult struct {
	Status       string `json:"status"`
	OrdersPlaced int    `json:"orders_placed"`
}

type ResumeRequest struct {
	ACHRelationshipID string `json:"ach_relationship_id"`
}

// ResumeResult is either an immediate success or a structured "not yet
// retryable" answer carrying the backend-issued delay.
type ResumeResult struct {
	Success            bool   `json:"success"`
	CanRetry           bool   `json:"can_retry"`
	NextRetryInSeconds int    `json:"next_retry_in_seconds"`
	Message            string `json:"message,omitempty"`
}

type CloseResult struct {
	Status   string `json:"status"`
	ClosedAt string `json:"closed_at,omitempty"`
}

// ProgressSignal is the backend's raw view of a closure in flight. Phase
// names are the backend's vocabulary; FailedPhase is set only when a phase
// has terminally errored.
type ProgressSignal struct {
	Phase           string          `json:"phase"`
	FailedPhase     string          `json:"failed_phase,omitempty"`
	FailureDetail   string          `json:"failure_detail,omitempty"`
	CashTransferred decimal.Decimal `json:"cash_transferred"`
}

// Backend is the external brokerage system this service orchestrates. The
// userToken is the caller's bearer token, forwarded so the backend can run
// its own authorization on top of ours.
type Backend interface {
	CheckReadiness(ctx context.Context, userToken, accountID string) (Readiness, error)
	Initiate(ctx context.Context, userToken, accountID string, req InitiateRequest) (InitiateResult, error)
	LiquidatePositions(ctx context.Context, userToken, accountID string) (LiquidateResult, error)
	Resume(ctx context.Context, userToken, accountID string, req ResumeRequest) (ResumeResult, error)
	CloseAccount(ctx context.Context, userToken, accountID string) (CloseResult, error)
	Progress(ctx context.Context, userToken, accountID string) (ProgressSignal, error)
}
