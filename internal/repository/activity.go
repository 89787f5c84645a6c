package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

// ActivityRepository handles the append-only activity event log.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository instance.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Append appends an event and returns it with its assigned id.
func (r *ActivityRepository) Append(ctx context.Context, e *model.ActivityEvent) (*model.ActivityEvent, error) {
	const query = `
		INSERT INTO activity_events (type, game_id, game_name, principal, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	stored := *e
	err := r.pool.QueryRow(ctx, query,
		string(e.Type),
		e.GameID,
		e.GameName,
		e.Principal.String(),
		e.Timestamp,
	).Scan(&stored.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to append activity event: %w", err)
	}

	return &stored, nil
}

// Recent returns the latest events, newest first.
func (r *ActivityRepository) Recent(ctx context.Context, limit int) ([]*model.ActivityEvent, error) {
	const query = `
		SELECT id, type, game_id, game_name, principal, timestamp
		FROM activity_events
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity events: %w", err)
	}
	defer rows.Close()

	var events []*model.ActivityEvent
	for rows.Next() {
		var (
			e         model.ActivityEvent
			eventType string
			principal string
		)
		err := rows.Scan(
			&e.ID,
			&eventType,
			&e.GameID,
			&e.GameName,
			&principal,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		e.Type = model.ActivityType(eventType)
		e.Principal = model.Principal(principal)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity events: %w", err)
	}

	return events, nil
}

// CountGamesPlayed returns the total number of game plays and the number of distinct games played.
func (r *ActivityRepository) CountGamesPlayed(ctx context.Context, p model.Principal) (total int, distinct int, err error) {
	const query = `
		SELECT COUNT(*), COUNT(DISTINCT game_id)
		FROM activity_events
		WHERE principal = $1 AND type = $2
	`

	err = r.pool.QueryRow(ctx, query, p.String(), string(model.ActivityGamePlayed)).Scan(&total, &distinct)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count games played: %w", err)
	}
	return total, distinct, nil
}
