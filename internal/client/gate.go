package client

import (
	"context"
	"strings"
	"time"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

// DefaultApprovalPoll is how often WaitForApproval re-checks.
const DefaultApprovalPoll = 10 * time.Second

// GateAPI is the subset of the API the bootstrap gate uses.
type GateAPI interface {
	HasIdentity() bool
	GetProfile(ctx context.Context) (*model.UserProfile, error)
	CreateProfile(ctx context.Context, name string, age int) (*model.UserProfile, error)
	RequestApproval(ctx context.Context) (*model.UserApproval, error)
	IsCallerApproved(ctx context.Context) (bool, error)
}

// Bootstrap walks the caller through login, profile setup and approval.
// Each stage is only asked once the previous one has resolved.
type Bootstrap struct {
	api      GateAPI
	interval time.Duration
}

// NewBootstrap creates a gate over api.
func NewBootstrap(api GateAPI) *Bootstrap {
	return &Bootstrap{api: api, interval: DefaultApprovalPoll}
}

// Resolve returns the caller's current stage.
func (b *Bootstrap) Resolve(ctx context.Context) (*model.GateState, error) {
	if !b.api.HasIdentity() {
		return &model.GateState{Stage: model.StageLogin}, nil
	}

	profile, err := b.api.GetProfile(ctx)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return &model.GateState{Stage: model.StageProfileSetup}, nil
	}
	if apperr.IsKind(err, apperr.KindUnauthenticated) {
		return &model.GateState{Stage: model.StageLogin}, nil
	}
	if err != nil {
		return nil, err
	}

	approved, err := b.api.IsCallerApproved(ctx)
	if err != nil {
		return nil, err
	}
	if !approved {
		return &model.GateState{Stage: model.StageApprovalPending, Profile: profile}, nil
	}
	return &model.GateState{Stage: model.StageReady, Profile: profile}, nil
}

// SetupProfile creates the profile and then files the approval request.
func (b *Bootstrap) SetupProfile(ctx context.Context, name string, age int) (*model.UserProfile, error) {
	profile, err := b.api.CreateProfile(ctx, strings.TrimSpace(name), age)
	if err != nil {
		return nil, err
	}
	if _, err := b.api.RequestApproval(ctx); err != nil {
		return profile, err
	}
	return profile, nil
}

// RequestApproval files or re-files the approval request.
func (b *Bootstrap) RequestApproval(ctx context.Context) (*model.UserApproval, error) {
	return b.api.RequestApproval(ctx)
}

// WaitForApproval polls until the caller is approved or ctx is done.
func (b *Bootstrap) WaitForApproval(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		approved, err := b.api.IsCallerApproved(ctx)
		if err != nil && !apperr.IsKind(err, apperr.KindTransient) {
			return err
		}
		if approved {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
