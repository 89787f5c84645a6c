package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

// GameStateRepository handles saved game states.
type GameStateRepository struct {
	pool *pgxpool.Pool
}

// NewGameStateRepository creates a new GameStateRepository instance.
func NewGameStateRepository(pool *pgxpool.Pool) *GameStateRepository {
	return &GameStateRepository{pool: pool}
}

func scanGameState(row pgx.Row) (*model.GameState, error) {
	var (
		gs        model.GameState
		principal string
		state     []byte
	)
	if err := row.Scan(&principal, &gs.GameID, &gs.GameName, &state, &gs.UpdatedAt); err != nil {
		return nil, err
	}
	gs.Principal = model.Principal(principal)
	gs.State = json.RawMessage(state)
	return &gs, nil
}

// Upsert replaces the whole saved state of one game.
func (r *GameStateRepository) Upsert(ctx context.Context, gs *model.GameState) (*model.GameState, error) {
	const query = `
		INSERT INTO game_states (principal, game_id, game_name, state, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (principal, game_id) DO UPDATE
		SET game_name = EXCLUDED.game_name, state = EXCLUDED.state, updated_at = NOW()
		RETURNING principal, game_id, game_name, state, updated_at
	`

	saved, err := scanGameState(r.pool.QueryRow(ctx, query,
		gs.Principal.String(),
		gs.GameID,
		gs.GameName,
		jsonArg(gs.State),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save game state: %w", err)
	}
	return saved, nil
}

// Get returns the saved state of one game. Returns ErrNotFound if none.
func (r *GameStateRepository) Get(ctx context.Context, p model.Principal, gameID string) (*model.GameState, error) {
	const query = `
		SELECT principal, game_id, game_name, state, updated_at
		FROM game_states
		WHERE principal = $1 AND game_id = $2
	`

	gs, err := scanGameState(r.pool.QueryRow(ctx, query, p.String(), gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return gs, nil
}
