package bankaccounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Relationship is a linked external bank account. Its ID is what closure
// initiate/resume calls reference as ach_relationship_id.
type Relationship struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Nickname    string    `json:"nickname"`
	BankName    string    `json:"bank_name"`
	AccountLast string    `json:"account_last4"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func (s *Service) Link(ctx context.Context, userID, nickname, bankName, accountLast4 string) (*Relationship, error) {
	if userID == "" {
		return nil, errors.New("user_id is required")
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, errors.New("nickname is required")
	}
	bankName = strings.TrimSpace(bankName)
	if bankName == "" {
		return nil, errors.New("bank_name is required")
	}
	accountLast4 = strings.TrimSpace(accountLast4)
	if len(accountLast4) != 4 {
		return nil, errors.New("account_last4 must be exactly 4 digits")
	}

	var rel Relationship
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bank_relationships (user_id, nickname, bank_name, account_last4, status)
		VALUES ($1, $2, $3, $4, 'active')
		RETURNING id, user_id, nickname, bank_name, account_last4, status, created_at
	`, userID, nickname, bankName, accountLast4).Scan(
		&rel.ID, &rel.UserID, &rel.Nickname, &rel.BankName, &rel.AccountLast, &rel.Status, &rel.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Relationship, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, nickname, bank_name, account_last4, status, created_at
		FROM bank_relationships
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Relationship, 0, 2)
	for rows.Next() {
		var rel Relationship
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.Nickname, &rel.BankName, &rel.AccountLast, &rel.Status, &rel.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// Owns reports whether the relationship exists, is active, and belongs to
// the caller.
func (s *Service) Owns(ctx context.Context, userID, relationshipID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM bank_relationships
			WHERE id = $1 AND user_id = $2 AND status = 'active'
		)
	`, relationshipID, userID).Scan(&exists)
	return exists, err
}
