package closure

import (
	"context"
	"errors"
	"time"

	"clearhaven/internal/brokerage"
)

// ACHVerifier confirms a bank relationship belongs to the caller before it
// is handed to the backend. Satisfied by the bankaccounts service.
type ACHVerifier interface {
	Owns(ctx context.Context, userID, relationshipID string) (bool, error)
}

// Service owns the closure state machine. Every entry point that names an
// account re-runs the ownership gate; no result of a previous call is
// trusted across requests.
type Service struct {
	store   Store
	backend brokerage.Backend
	ach     ACHVerifier
	bus     *Bus
}

func NewService(store Store, backend brokerage.Backend, ach ACHVerifier, bus *Bus) *Service {
	return &Service{store: store, backend: backend, ach: ach, bus: bus}
}

// EnsureAccount provisions an active record for a fresh identity.
func (s *Service) EnsureAccount(ctx context.Context, userID string) error {
	return s.store.EnsureAccount(ctx, userID)
}

// Authorize is the ownership gate: the record must exist with both the
// caller's identity and the requested account. Missing and mismatched rows
// are the same error.
func (s *Service) Authorize(ctx context.Context, userID, accountID string) (*Record, error) {
	if accountID == "" {
		return nil, &ValidationError{Field: "account_id", Reason: "is required"}
	}
	return s.store.FindOwned(ctx, userID, accountID)
}

func (s *Service) CheckReadiness(ctx context.Context, userID, userToken, accountID string) (brokerage.Readiness, error) {
	if _, err := s.Authorize(ctx, userID, accountID); err != nil {
		return brokerage.Readiness{}, err
	}
	return s.backend.CheckReadiness(ctx, userToken, accountID)
}

type InitiateParams struct {
	ACHRelationshipID  string
	ConfirmLiquidation bool
	ConfirmIrrevocable bool
}

type InitiateOutcome struct {
	ConfirmationNumber  string   `json:"confirmation_number"`
	EstimatedCompletion string   `json:"estimated_completion"`
	NextSteps           []string `json:"next_steps"`
	Status              Status   `json:"status"`
}

// Initiate starts the irreversible closure flow. The local status flip and
// confirmation number are written only after the backend accepts, and the
// write itself re-checks the status so a concurrent initiate cannot land
// twice.
func (s *Service) Initiate(ctx context.Context, userID, userToken, accountID string, p InitiateParams) (InitiateOutcome, error) {
	rec, err := s.Authorize(ctx, userID, accountID)
	if err != nil {
		return InitiateOutcome{}, err
	}
	if rec.Closing() {
		return InitiateOutcome{}, ErrAlreadyClosing
	}
	if p.ACHRelationshipID == "" {
		return InitiateOutcome{}, &ValidationError{Field: "ach_relationship_id", Reason: "is required"}
	}
	if !p.ConfirmLiquidation {
		return InitiateOutcome{}, &ValidationError{Field: "confirm_liquidation", Reason: "must be true"}
	}
	if !p.ConfirmIrrevocable {
		return InitiateOutcome{}, &ValidationError{Field: "confirm_irreversible", Reason: "must be true"}
	}
	if s.ach != nil {
		ok, err := s.ach.Owns(ctx, userID, p.ACHRelationshipID)
		if err != nil {
			return InitiateOutcome{}, err
		}
		if !ok {
			return InitiateOutcome{}, &ValidationError{Field: "ach_relationship_id", Reason: "unknown bank relationship"}
		}
	}

	res, err := s.backend.Initiate(ctx, userToken, accountID, brokerage.InitiateRequest{ACHRelationshipID: p.ACHRelationshipID})
	if err != nil {
		return InitiateOutcome{}, err
	}

	meta := Metadata{
		EstimatedCompletion: res.EstimatedCompletion,
		NextSteps:           res.NextSteps,
		ACHRelationshipID:   p.ACHRelationshipID,
	}
	updated, err := s.store.MarkPending(ctx, userID, accountID, res.ConfirmationNumber, meta)
	if err != nil {
		return InitiateOutcome{}, err
	}
	return InitiateOutcome{
		ConfirmationNumber:  res.ConfirmationNumber,
		EstimatedCompletion: res.EstimatedCompletion,
		NextSteps:           res.NextSteps,
		Status:              updated.Status,
	}, nil
}

// Liquidate asks the backend to (re)start the liquidation sub-step. The
// backend treats repeat calls as no-ops; nothing is written locally.
func (s *Service) Liquidate(ctx context.Context, userID, userToken, accountID string) (brokerage.LiquidateResult, error) {
	if _, err := s.Authorize(ctx, userID, accountID); err != nil {
		return brokerage.LiquidateResult{}, err
	}
	return s.backend.LiquidatePositions(ctx, userToken, accountID)
}

// Resume continues a stalled closure. The caller may supply an ACH
// relationship explicitly; otherwise the one stored at initiate time is
// used, so the user never re-confirms irreversibility just to retry.
func (s *Service) Resume(ctx context.Context, userID, userToken, accountID, achRelationshipID string) (brokerage.ResumeResult, error) {
	rec, err := s.Authorize(ctx, userID, accountID)
	if err != nil {
		return brokerage.ResumeResult{}, err
	}
	if achRelationshipID == "" {
		achRelationshipID = rec.Metadata.ACHRelationshipID
	}
	return s.backend.Resume(ctx, userToken, accountID, brokerage.ResumeRequest{ACHRelationshipID: achRelationshipID})
}

type CloseOutcome struct {
	Status      Status  `json:"status"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// Close is the terminal transition. It is legal only from pending_closure
// exactly, and the local flip happens only after the backend accepts.
func (s *Service) Close(ctx context.Context, userID, userToken, accountID string, finalConfirmation bool) (CloseOutcome, error) {
	rec, err := s.Authorize(ctx, userID, accountID)
	if err != nil {
		return CloseOutcome{}, err
	}
	if !finalConfirmation {
		return CloseOutcome{}, &ValidationError{Field: "final_confirmation", Reason: "must be true"}
	}
	if rec.Status != StatusPendingClosure {
		return CloseOutcome{}, ErrNotPending
	}
	if _, err := s.backend.CloseAccount(ctx, userToken, accountID); err != nil {
		return CloseOutcome{}, err
	}
	updated, err := s.store.MarkClosed(ctx, userID, accountID)
	if err != nil {
		return CloseOutcome{}, err
	}
	out := CloseOutcome{Status: updated.Status}
	if updated.CompletedAt != nil {
		ts := updated.CompletedAt.UTC().Format(time.RFC3339)
		out.CompletedAt = &ts
	}
	return out, nil
}

// Progress fetches the backend's raw signal, aggregates it onto the fixed
// step list, and publishes the result for websocket subscribers.
func (s *Service) Progress(ctx context.Context, userID, userToken, accountID string) (Report, error) {
	if _, err := s.Authorize(ctx, userID, accountID); err != nil {
		return Report{}, err
	}
	sig, err := s.backend.Progress(ctx, userToken, accountID)
	if err != nil {
		return Report{}, err
	}
	rep := BuildReport(accountID, sig)
	if s.bus != nil {
		s.bus.Publish(Event{Type: "closure_progress", Data: rep})
	}
	return rep, nil
}

// StatusPayload is the identity-scoped closure view. It is only ever
// returned when the confirmation number exists; any record without one is
// reported as "no closure" regardless of its status field.
type StatusPayload struct {
	ConfirmationNumber  string   `json:"confirmationNumber"`
	InitiatedAt         *string  `json:"initiatedAt"`
	CompletedAt         *string  `json:"completedAt"`
	Status              Status   `json:"status"`
	EstimatedCompletion string   `json:"estimatedCompletion,omitempty"`
	NextSteps           []string `json:"nextSteps,omitempty"`
}

func (s *Service) ClosureStatus(ctx context.Context, userID string) (*StatusPayload, error) {
	rec, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Initiated() {
		return nil, nil
	}
	out := &StatusPayload{
		ConfirmationNumber:  *rec.ConfirmationNumber,
		Status:              rec.Status,
		EstimatedCompletion: rec.Metadata.EstimatedCompletion,
		NextSteps:           rec.Metadata.NextSteps,
	}
	if rec.InitiatedAt != nil {
		ts := rec.InitiatedAt.UTC().Format(time.RFC3339)
		out.InitiatedAt = &ts
	}
	if rec.CompletedAt != nil {
		ts := rec.CompletedAt.UTC().Format(time.RFC3339)
		out.CompletedAt = &ts
	}
	return out, nil
}

// UpdateStatus serves the internal status write. Only the two closure
// statuses are accepted.
func (s *Service) UpdateStatus(ctx context.Context, userID string, status Status, confirmation string) error {
	if status != StatusPendingClosure && status != StatusClosed {
		return &ValidationError{Field: "status", Reason: "must be pending_closure or closed"}
	}
	return s.store.SetStatus(ctx, userID, status, confirmation)
}

// IsValidation reports whether err is caller-correctable.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
