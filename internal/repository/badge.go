package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

// BadgeRepository handles badge proof persistence.
type BadgeRepository struct {
	pool *pgxpool.Pool
}

// NewBadgeRepository creates a new BadgeRepository instance.
func NewBadgeRepository(pool *pgxpool.Pool) *BadgeRepository {
	return &BadgeRepository{pool: pool}
}

// Award stores a proof. It reports false if the principal already held the badge.
func (r *BadgeRepository) Award(ctx context.Context, proof *model.BadgeProof) (bool, error) {
	const query = `
		INSERT INTO badge_proofs (principal, badge_id, timestamp)
		VALUES ($1, $2, $3)
		ON CONFLICT (principal, badge_id) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, proof.Principal.String(), proof.BadgeID, proof.Timestamp)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// ListByPrincipal returns every proof a principal holds, oldest first.
func (r *BadgeRepository) ListByPrincipal(ctx context.Context, p model.Principal) ([]*model.BadgeProof, error) {
	const query = `
		SELECT principal, badge_id, timestamp
		FROM badge_proofs
		WHERE principal = $1
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, p.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}
	defer rows.Close()

	var proofs []*model.BadgeProof
	for rows.Next() {
		var (
			proof     model.BadgeProof
			principal string
		)
		if err := rows.Scan(&principal, &proof.BadgeID, &proof.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan badge proof: %w", err)
		}
		proof.Principal = model.Principal(principal)
		proofs = append(proofs, &proof)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}

	return proofs, nil
}
