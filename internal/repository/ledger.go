package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

// LedgerRepository records trophy balance changes.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Create creates a new ledger entry.
func (r *LedgerRepository) Create(ctx context.Context, p model.Principal, amount int64, entryType string, description *string) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO trophy_ledger (principal, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, principal, amount, type, description, created_at
	`

	var (
		e         model.LedgerEntry
		principal string
	)
	err := r.pool.QueryRow(ctx, query, p.String(), amount, entryType, description).Scan(
		&e.ID,
		&principal,
		&e.Amount,
		&e.Type,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger entry: %w", err)
	}
	e.Principal = model.Principal(principal)

	return &e, nil
}

// ListByPrincipal retrieves a principal's ledger, newest first.
func (r *LedgerRepository) ListByPrincipal(ctx context.Context, p model.Principal, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT id, principal, amount, type, description, created_at
		FROM trophy_ledger
		WHERE principal = $1
		ORDER BY id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, p.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var (
			e         model.LedgerEntry
			principal string
		)
		err := rows.Scan(
			&e.ID,
			&principal,
			&e.Amount,
			&e.Type,
			&e.Description,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Principal = model.Principal(principal)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger: %w", err)
	}

	return entries, nil
}
