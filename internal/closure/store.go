package closure

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists closure records. Every status write is a compare-and-swap
// on the current status so concurrent transitions cannot both land.
type Store interface {
	// FindOwned returns the record for (userID, accountID) or ErrNotOwned.
	FindOwned(ctx context.Context, userID, accountID string) (*Record, error)
	// GetByUser returns the caller's record, or nil when none exists.
	GetByUser(ctx context.Context, userID string) (*Record, error)
	// MarkPending flips active -> pending_closure, recording the backend's
	// confirmation number. Fails with ErrAlreadyClosing if the record is
	// already pending or closed.
	MarkPending(ctx context.Context, userID, accountID, confirmation string, meta Metadata) (*Record, error)
	// MarkClosed flips pending_closure -> closed. Fails with ErrNotPending
	// from any other status.
	MarkClosed(ctx context.Context, userID, accountID string) (*Record, error)
	// SetStatus writes status and optionally the confirmation number
	// without transition guards; reserved for the internal surface.
	SetStatus(ctx context.Context, userID string, status Status, confirmation string) error
	// EnsureAccount provisions an active record for a new identity.
	EnsureAccount(ctx context.Context, userID string) error
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const recordColumns = "user_id, account_id, status, confirmation_number, initiated_at, completed_at, closure_metadata"

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var meta *Metadata
	if err := row.Scan(&rec.UserID, &rec.AccountID, &rec.Status, &rec.ConfirmationNumber, &rec.InitiatedAt, &rec.CompletedAt, &meta); err != nil {
		return nil, err
	}
	if meta != nil {
		rec.Metadata = *meta
	}
	return &rec, nil
}

func (s *PGStore) FindOwned(ctx context.Context, userID, accountID string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM brokerage_accounts
		WHERE user_id = $1 AND account_id = $2
	`, userID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotOwned
		}
		return nil, err
	}
	return rec, nil
}

func (s *PGStore) GetByUser(ctx context.Context, userID string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM brokerage_accounts
		WHERE user_id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (s *PGStore) MarkPending(ctx context.Context, userID, accountID, confirmation string, meta Metadata) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		UPDATE brokerage_accounts
		SET status = 'pending_closure',
		    confirmation_number = $3,
		    initiated_at = NOW(),
		    closure_metadata = $4,
		    updated_at = NOW()
		WHERE user_id = $1 AND account_id = $2
		  AND status NOT IN ('pending_closure', 'closed')
		RETURNING `+recordColumns, userID, accountID, confirmation, meta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The row exists (the gate already matched it), so the swap
			// lost to a concurrent transition.
			return nil, ErrAlreadyClosing
		}
		return nil, err
	}
	return rec, nil
}

func (s *PGStore) MarkClosed(ctx context.Context, userID, accountID string) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, `
		UPDATE brokerage_accounts
		SET status = 'closed',
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE user_id = $1 AND account_id = $2
		  AND status = 'pending_closure'
		RETURNING `+recordColumns, userID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotPending
		}
		return nil, err
	}
	return rec, nil
}

func (s *PGStore) SetStatus(ctx context.Context, userID string, status Status, confirmation string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE brokerage_accounts
		SET status = $2,
		    confirmation_number = COALESCE(NULLIF($3, ''), confirmation_number),
		    completed_at = CASE WHEN $2 = 'closed' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE user_id = $1
	`, userID, status, confirmation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotOwned
	}
	return nil
}

func (s *PGStore) EnsureAccount(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO brokerage_accounts (user_id, account_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (user_id) DO NOTHING
	`, userID, uuid.NewString())
	return err
}
