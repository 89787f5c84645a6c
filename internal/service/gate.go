package service

import (
	"context"
	"errors"

	"kidzone/internal/model"
	"kidzone/internal/repository"
)

// GateService resolves the bootstrap stage: login, then profile setup, then
// approval, then the app. Each stage is decided only once the previous one passes.
type GateService struct {
	profiles  ProfileStore
	approvals ApprovalStore
}

// NewGateService creates a new GateService instance.
func NewGateService(profiles ProfileStore, approvals ApprovalStore) *GateService {
	return &GateService{profiles: profiles, approvals: approvals}
}

// Resolve returns the caller's current stage.
func (s *GateService) Resolve(ctx context.Context, caller model.Principal) (*model.GateState, error) {
	if caller.IsAnonymous() {
		return &model.GateState{Stage: model.StageLogin}, nil
	}

	profile, err := s.profiles.Get(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.GateState{Stage: model.StageProfileSetup}, nil
		}
		return nil, transient(err, "get profile")
	}

	approval, err := s.approvals.Get(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &model.GateState{Stage: model.StageApprovalPending, Profile: profile}, nil
		}
		return nil, transient(err, "get approval")
	}

	state := &model.GateState{Profile: profile, Approval: approval}
	if approval.Status == model.ApprovalApproved {
		state.Stage = model.StageReady
	} else {
		state.Stage = model.StageApprovalPending
	}
	return state, nil
}
