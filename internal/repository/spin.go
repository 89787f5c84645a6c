package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

// SpinRepository handles spin history persistence.
type SpinRepository struct {
	pool *pgxpool.Pool
}

// NewSpinRepository creates a new SpinRepository instance.
func NewSpinRepository(pool *pgxpool.Pool) *SpinRepository {
	return &SpinRepository{pool: pool}
}

func scanSpin(row pgx.Row) (*model.SpinRecord, error) {
	var (
		rec       model.SpinRecord
		principal string
	)
	err := row.Scan(
		&rec.ID,
		&principal,
		&rec.RewardType,
		&rec.Value,
		&rec.Label,
		&rec.ExtraSpin,
		&rec.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	rec.Principal = model.Principal(principal)
	return &rec, nil
}

// Create appends a spin record.
func (r *SpinRepository) Create(ctx context.Context, rec *model.SpinRecord) error {
	const query = `
		INSERT INTO spin_records (id, principal, reward_type, value, label, extra_spin, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Principal.String(),
		rec.RewardType,
		rec.Value,
		rec.Label,
		rec.ExtraSpin,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create spin record: %w", err)
	}
	return nil
}

// LastCooldownSpin returns the latest spin that started a cooldown (one that did not grant an extra spin).
// Returns ErrNotFound if there is none.
func (r *SpinRepository) LastCooldownSpin(ctx context.Context, p model.Principal) (*model.SpinRecord, error) {
	const query = `
		SELECT id::text, principal, reward_type, value, label, extra_spin, timestamp
		FROM spin_records
		WHERE principal = $1 AND extra_spin = FALSE
		ORDER BY timestamp DESC
		LIMIT 1
	`

	rec, err := scanSpin(r.pool.QueryRow(ctx, query, p.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get last spin: %w", err)
	}
	return rec, nil
}

// ListByPrincipal returns a principal's spins, newest first.
func (r *SpinRepository) ListByPrincipal(ctx context.Context, p model.Principal, limit int) ([]*model.SpinRecord, error) {
	const query = `
		SELECT id::text, principal, reward_type, value, label, extra_spin, timestamp
		FROM spin_records
		WHERE principal = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, p.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get spin history: %w", err)
	}
	defer rows.Close()

	var records []*model.SpinRecord
	for rows.Next() {
		rec, err := scanSpin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spin records: %w", err)
	}

	return records, nil
}

// Count returns how many times a principal has spun.
func (r *SpinRepository) Count(ctx context.Context, p model.Principal) (int, error) {
	const query = `SELECT COUNT(*) FROM spin_records WHERE principal = $1`

	var n int
	if err := r.pool.QueryRow(ctx, query, p.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count spins: %w", err)
	}
	return n, nil
}
