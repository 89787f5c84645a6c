package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

const approvalColumns = `principal, status, decided_by, created_at, updated_at`

// ApprovalRepository handles approval record persistence.
type ApprovalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository creates a new ApprovalRepository instance.
func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{pool: pool}
}

func scanApproval(row pgx.Row) (*model.UserApproval, error) {
	var (
		a         model.UserApproval
		principal string
		status    string
		decidedBy *string
	)
	if err := row.Scan(&principal, &status, &decidedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Principal = model.Principal(principal)
	a.Status = model.ApprovalStatus(status)
	if decidedBy != nil {
		d := model.Principal(*decidedBy)
		a.DecidedBy = &d
	}
	return &a, nil
}

// Request ensures a pending record exists for the principal.
// A rejected record is moved back to pending; pending and approved records are left alone.
// changed reports whether a row was inserted or moved to pending.
func (r *ApprovalRepository) Request(ctx context.Context, p model.Principal) (*model.UserApproval, bool, error) {
	const query = `
		INSERT INTO user_approvals (principal, status, created_at, updated_at)
		VALUES ($1, 'pending', NOW(), NOW())
		ON CONFLICT (principal) DO UPDATE
			SET status = 'pending', decided_by = NULL, updated_at = NOW()
			WHERE user_approvals.status = 'rejected'
		RETURNING ` + approvalColumns

	a, err := scanApproval(r.pool.QueryRow(ctx, query, p.String()))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to request approval: %w", err)
	}

	// Conflict without update: the existing record already satisfies the request.
	a, err = r.Get(ctx, p)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// Get retrieves the approval record for a principal.
// Returns ErrNotFound if none exists.
func (r *ApprovalRepository) Get(ctx context.Context, p model.Principal) (*model.UserApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM user_approvals WHERE principal = $1`

	a, err := scanApproval(r.pool.QueryRow(ctx, query, p.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return a, nil
}

// Set moves a principal's record to exactly the given status, creating it if needed.
func (r *ApprovalRepository) Set(ctx context.Context, p model.Principal, status model.ApprovalStatus, decidedBy model.Principal) (*model.UserApproval, error) {
	const query = `
		INSERT INTO user_approvals (principal, status, decided_by, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (principal) DO UPDATE
			SET status = EXCLUDED.status, decided_by = EXCLUDED.decided_by, updated_at = NOW()
		RETURNING ` + approvalColumns

	var decided *string
	if !decidedBy.IsAnonymous() {
		d := decidedBy.String()
		decided = &d
	}

	a, err := scanApproval(r.pool.QueryRow(ctx, query, p.String(), string(status), decided))
	if err != nil {
		return nil, fmt.Errorf("failed to set approval: %w", err)
	}
	return a, nil
}

// List returns every approval record, most recently updated first.
func (r *ApprovalRepository) List(ctx context.Context) ([]*model.UserApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM user_approvals ORDER BY updated_at DESC, principal`
	return r.query(ctx, query)
}

// ListByStatus returns the records in a given status, oldest first.
func (r *ApprovalRepository) ListByStatus(ctx context.Context, status model.ApprovalStatus) ([]*model.UserApproval, error) {
	query := `SELECT ` + approvalColumns + ` FROM user_approvals WHERE status = $1 ORDER BY updated_at ASC, principal`
	return r.query(ctx, query, string(status))
}

func (r *ApprovalRepository) query(ctx context.Context, query string, args ...any) ([]*model.UserApproval, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*model.UserApproval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		approvals = append(approvals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}
