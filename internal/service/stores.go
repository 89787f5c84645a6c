package service

import (
	"context"

	"kidzone/internal/model"
)

// The stores below are satisfied by the pgx repositories.

// ApprovalStore persists approval records.
type ApprovalStore interface {
	Request(ctx context.Context, p model.Principal) (*model.UserApproval, bool, error)
	Get(ctx context.Context, p model.Principal) (*model.UserApproval, error)
	Set(ctx context.Context, p model.Principal, status model.ApprovalStatus, decidedBy model.Principal) (*model.UserApproval, error)
	List(ctx context.Context) ([]*model.UserApproval, error)
	ListByStatus(ctx context.Context, status model.ApprovalStatus) ([]*model.UserApproval, error)
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	Create(ctx context.Context, pr *model.UserProfile) (*model.UserProfile, error)
	Get(ctx context.Context, p model.Principal) (*model.UserProfile, error)
	Update(ctx context.Context, pr *model.UserProfile) (*model.UserProfile, error)
}

// PetStore persists pets and their trophy balance.
type PetStore interface {
	GetOrCreate(ctx context.Context, p model.Principal, name string, trophies int64) (*model.VirtualPet, bool, error)
	Get(ctx context.Context, p model.Principal) (*model.VirtualPet, error)
	Update(ctx context.Context, pet *model.VirtualPet) (*model.VirtualPet, error)
	AdjustTrophies(ctx context.Context, p model.Principal, delta int64) (*model.VirtualPet, error)
	AddAccessory(ctx context.Context, p model.Principal, accessory string) (*model.VirtualPet, error)
	SetWelcomeBack(ctx context.Context, p model.Principal, at int64) error
	TopByTrophies(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// LedgerStore records trophy changes.
type LedgerStore interface {
	Create(ctx context.Context, p model.Principal, amount int64, entryType string, description *string) (*model.LedgerEntry, error)
}

// ActivityStore is the append-only activity log.
type ActivityStore interface {
	Append(ctx context.Context, e *model.ActivityEvent) (*model.ActivityEvent, error)
	Recent(ctx context.Context, limit int) ([]*model.ActivityEvent, error)
	CountGamesPlayed(ctx context.Context, p model.Principal) (total int, distinct int, err error)
}

// SpinStore persists spin history.
type SpinStore interface {
	Create(ctx context.Context, rec *model.SpinRecord) error
	LastCooldownSpin(ctx context.Context, p model.Principal) (*model.SpinRecord, error)
	ListByPrincipal(ctx context.Context, p model.Principal, limit int) ([]*model.SpinRecord, error)
	Count(ctx context.Context, p model.Principal) (int, error)
}

// BadgeStore persists badge proofs.
type BadgeStore interface {
	Award(ctx context.Context, proof *model.BadgeProof) (bool, error)
	ListByPrincipal(ctx context.Context, p model.Principal) ([]*model.BadgeProof, error)
}

// GameStateStore persists saved game states.
type GameStateStore interface {
	Upsert(ctx context.Context, gs *model.GameState) (*model.GameState, error)
	Get(ctx context.Context, p model.Principal, gameID string) (*model.GameState, error)
}

// AdminPolicy decides admin membership. *config.Config satisfies it.
type AdminPolicy interface {
	IsAdmin(principal string) bool
}
