package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

const petColumns = `principal, name, happiness, growth_stage, accessories, decorations, home_style,
	warned_extreme_changes, trophies, last_welcome_back, created_at, updated_at`

// PetRepository handles virtual pet persistence, including the trophy balance.
type PetRepository struct {
	pool *pgxpool.Pool
}

// NewPetRepository creates a new PetRepository instance.
func NewPetRepository(pool *pgxpool.Pool) *PetRepository {
	return &PetRepository{pool: pool}
}

func scanPet(row pgx.Row) (*model.VirtualPet, error) {
	var (
		pet       model.VirtualPet
		principal string
	)
	err := row.Scan(
		&principal,
		&pet.Name,
		&pet.Happiness,
		&pet.GrowthStage,
		&pet.Accessories,
		&pet.Decorations,
		&pet.HomeStyle,
		&pet.WarnedExtremeChanges,
		&pet.Trophies,
		&pet.LastWelcomeBack,
		&pet.CreatedAt,
		&pet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pet.Principal = model.Principal(principal)
	if pet.Accessories == nil {
		pet.Accessories = []string{}
	}
	if pet.Decorations == nil {
		pet.Decorations = []string{}
	}
	return &pet, nil
}

// Create creates a pet with the given starting trophy balance.
func (r *PetRepository) Create(ctx context.Context, p model.Principal, name string, trophies int64) (*model.VirtualPet, error) {
	query := `
		INSERT INTO virtual_pets (principal, name, trophies, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + petColumns

	pet, err := scanPet(r.pool.QueryRow(ctx, query, p.String(), name, trophies))
	if err != nil {
		return nil, fmt.Errorf("failed to create pet: %w", err)
	}
	return pet, nil
}

// Get retrieves a pet. Returns ErrNotFound if none exists.
func (r *PetRepository) Get(ctx context.Context, p model.Principal) (*model.VirtualPet, error) {
	query := `SELECT ` + petColumns + ` FROM virtual_pets WHERE principal = $1`

	pet, err := scanPet(r.pool.QueryRow(ctx, query, p.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pet: %w", err)
	}
	return pet, nil
}

// GetOrCreate retrieves a pet, creating one with the starting balance if it doesn't exist.
func (r *PetRepository) GetOrCreate(ctx context.Context, p model.Principal, name string, trophies int64) (*model.VirtualPet, bool, error) {
	pet, err := r.Get(ctx, p)
	if err == nil {
		return pet, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	pet, err = r.Create(ctx, p, name, trophies)
	if err != nil {
		// Another request might have created the pet
		pet, err = r.Get(ctx, p)
		if err != nil {
			return nil, false, err
		}
		return pet, false, nil
	}

	return pet, true, nil
}

// Update overwrites the cosmetic pet fields. Trophies and welcome-back time are not written.
func (r *PetRepository) Update(ctx context.Context, pet *model.VirtualPet) (*model.VirtualPet, error) {
	query := `
		UPDATE virtual_pets
		SET name = $2, happiness = $3, growth_stage = $4, accessories = $5, decorations = $6,
			home_style = $7, warned_extreme_changes = $8, updated_at = NOW()
		WHERE principal = $1
		RETURNING ` + petColumns

	updated, err := scanPet(r.pool.QueryRow(ctx, query,
		pet.Principal.String(),
		pet.Name,
		pet.Happiness,
		pet.GrowthStage,
		textArray(pet.Accessories),
		textArray(pet.Decorations),
		pet.HomeStyle,
		pet.WarnedExtremeChanges,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update pet: %w", err)
	}
	return updated, nil
}

// AdjustTrophies adds delta (which may be negative) to the balance.
// The update is refused with ErrInsufficientTrophies if it would go below zero.
func (r *PetRepository) AdjustTrophies(ctx context.Context, p model.Principal, delta int64) (*model.VirtualPet, error) {
	query := `
		UPDATE virtual_pets
		SET trophies = trophies + $2, updated_at = NOW()
		WHERE principal = $1 AND trophies + $2 >= 0
		RETURNING ` + petColumns

	pet, err := scanPet(r.pool.QueryRow(ctx, query, p.String(), delta))
	if err == nil {
		return pet, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to adjust trophies: %w", err)
	}

	if _, err := r.Get(ctx, p); err != nil {
		return nil, err
	}
	return nil, ErrInsufficientTrophies
}

// AddAccessory adds an accessory to the pet's set.
func (r *PetRepository) AddAccessory(ctx context.Context, p model.Principal, accessory string) (*model.VirtualPet, error) {
	query := `
		UPDATE virtual_pets
		SET accessories = CASE WHEN $2 = ANY(accessories) THEN accessories ELSE array_append(accessories, $2) END,
			updated_at = NOW()
		WHERE principal = $1
		RETURNING ` + petColumns

	pet, err := scanPet(r.pool.QueryRow(ctx, query, p.String(), accessory))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to add accessory: %w", err)
	}
	return pet, nil
}

// SetWelcomeBack records the time (epoch seconds) of the last welcome-back grant.
func (r *PetRepository) SetWelcomeBack(ctx context.Context, p model.Principal, at int64) error {
	const query = `
		UPDATE virtual_pets
		SET last_welcome_back = $2, updated_at = NOW()
		WHERE principal = $1
	`

	result, err := r.pool.Exec(ctx, query, p.String(), at)
	if err != nil {
		return fmt.Errorf("failed to update welcome back: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TopByTrophies returns the top N principals by trophy balance.
func (r *PetRepository) TopByTrophies(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	const query = `
		SELECT p.principal, COALESCE(u.name, p.name), p.trophies
		FROM virtual_pets p
		LEFT JOIN user_profiles u ON u.principal = p.principal
		ORDER BY p.trophies DESC, p.principal ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top pets: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var (
			e         model.LeaderboardEntry
			principal string
		)
		if err := rows.Scan(&principal, &e.Name, &e.Trophies); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Principal = model.Principal(principal)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}
