package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kidzone/internal/model"
)

const profileColumns = `principal, name, age, parent_principal, approved_contacts, screen_time_limit,
	content_filter, avatar, accessibility, created_at, updated_at`

// ProfileRepository handles user profile persistence.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*model.UserProfile, error) {
	var (
		pr            model.UserProfile
		principal     string
		parent        string
		avatar        []byte
		accessibility []byte
	)
	err := row.Scan(
		&principal,
		&pr.Name,
		&pr.Age,
		&parent,
		&pr.ApprovedContacts,
		&pr.ScreenTimeLimit,
		&pr.ContentFilter,
		&avatar,
		&accessibility,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pr.Principal = model.Principal(principal)
	pr.ParentPrincipal = model.Principal(parent)
	pr.Avatar = json.RawMessage(avatar)
	pr.Accessibility = json.RawMessage(accessibility)
	if pr.ApprovedContacts == nil {
		pr.ApprovedContacts = []string{}
	}
	return &pr, nil
}

// jsonArg returns raw as a JSONB argument, defaulting to an empty object.
func jsonArg(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return []byte(raw)
}

func textArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// Create inserts a new profile. Returns ErrAlreadyExists if the principal has one.
func (r *ProfileRepository) Create(ctx context.Context, pr *model.UserProfile) (*model.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (principal, name, age, parent_principal, approved_contacts,
			screen_time_limit, content_filter, avatar, accessibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + profileColumns

	created, err := scanProfile(r.pool.QueryRow(ctx, query,
		pr.Principal.String(),
		pr.Name,
		pr.Age,
		pr.ParentPrincipal.String(),
		textArray(pr.ApprovedContacts),
		pr.ScreenTimeLimit,
		pr.ContentFilter,
		jsonArg(pr.Avatar),
		jsonArg(pr.Accessibility),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return created, nil
}

// Get retrieves a profile. Returns ErrNotFound if none exists.
func (r *ProfileRepository) Get(ctx context.Context, p model.Principal) (*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE principal = $1`

	pr, err := scanProfile(r.pool.QueryRow(ctx, query, p.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return pr, nil
}

// Update overwrites the mutable fields of a profile. Age and parent are never written.
func (r *ProfileRepository) Update(ctx context.Context, pr *model.UserProfile) (*model.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET name = $2, approved_contacts = $3, screen_time_limit = $4, content_filter = $5,
			avatar = $6, accessibility = $7, updated_at = NOW()
		WHERE principal = $1
		RETURNING ` + profileColumns

	updated, err := scanProfile(r.pool.QueryRow(ctx, query,
		pr.Principal.String(),
		pr.Name,
		textArray(pr.ApprovedContacts),
		pr.ScreenTimeLimit,
		pr.ContentFilter,
		jsonArg(pr.Avatar),
		jsonArg(pr.Accessibility),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// Names returns display names for the given principals.
func (r *ProfileRepository) Names(ctx context.Context, principals []model.Principal) (map[model.Principal]string, error) {
	ids := make([]string, len(principals))
	for i, p := range principals {
		ids[i] = p.String()
	}

	rows, err := r.pool.Query(ctx, `SELECT principal, name FROM user_profiles WHERE principal = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile names: %w", err)
	}
	defer rows.Close()

	names := make(map[model.Principal]string, len(principals))
	for rows.Next() {
		var principal, name string
		if err := rows.Scan(&principal, &name); err != nil {
			return nil, fmt.Errorf("failed to scan profile name: %w", err)
		}
		names[model.Principal(principal)] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profile names: %w", err)
	}
	return names, nil
}
