package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"kidzone/internal/metrics"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/repository"
)

// ApprovalNotifier is told when a record newly becomes pending.
type ApprovalNotifier interface {
	ApprovalRequested(ctx context.Context, rec *model.UserApproval) error
}

// ApprovalService gates app access behind an admin decision.
// States: (none) -> pending -> approved | rejected. A rejected caller may
// request again and returns to pending. Nothing transitions automatically.
type ApprovalService struct {
	store    ApprovalStore
	admins   AdminPolicy
	notifier ApprovalNotifier
}

// NewApprovalService creates a new ApprovalService instance.
func NewApprovalService(store ApprovalStore, admins AdminPolicy) *ApprovalService {
	return &ApprovalService{store: store, admins: admins}
}

// SetNotifier sets the push target for new pending requests.
func (s *ApprovalService) SetNotifier(n ApprovalNotifier) {
	s.notifier = n
}

// IsCallerAdmin reports whether the caller may use admin-only operations.
func (s *ApprovalService) IsCallerAdmin(caller model.Principal) bool {
	return !caller.IsAnonymous() && s.admins.IsAdmin(caller.String())
}

// RequestApproval ensures the caller has a pending record. Calling it again
// while pending, or once approved, changes nothing.
func (s *ApprovalService) RequestApproval(ctx context.Context, caller model.Principal) (*model.UserApproval, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	rec, changed, err := s.store.Request(ctx, caller)
	if err != nil {
		return nil, transient(err, "request approval")
	}

	if changed {
		metrics.RecordApproval(string(model.ApprovalPending))
		log.Info().Str("principal", caller.String()).Msg("Approval requested")
		if s.notifier != nil {
			bestEffort(ctx, "notify_approval_requested", caller, func(ctx context.Context) error {
				return s.notifier.ApprovalRequested(ctx, rec)
			})
		}
	}

	return rec, nil
}

// Status returns the caller's approval record.
func (s *ApprovalService) Status(ctx context.Context, caller model.Principal) (*model.UserApproval, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	rec, err := s.store.Get(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no approval record")
		}
		return nil, transient(err, "get approval")
	}
	return rec, nil
}

// IsCallerApproved returns true iff the caller's status is approved.
func (s *ApprovalService) IsCallerApproved(ctx context.Context, caller model.Principal) (bool, error) {
	rec, err := s.Status(ctx, caller)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return rec.Status == model.ApprovalApproved, nil
}

// SetApproval moves user's record to exactly status. Admin-only.
// A user without a record gets one.
func (s *ApprovalService) SetApproval(ctx context.Context, caller, user model.Principal, status model.ApprovalStatus) (*model.UserApproval, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !s.IsCallerAdmin(caller) {
		return nil, apperr.Unauthorized("set approvals")
	}
	if user.IsAnonymous() {
		return nil, apperr.New(apperr.KindInvalid, "user principal is required")
	}
	if !status.Valid() {
		return nil, apperr.New(apperr.KindInvalid, "unknown approval status %q", status)
	}

	rec, err := s.store.Set(ctx, user, status, caller)
	if err != nil {
		return nil, transient(err, "set approval")
	}

	metrics.RecordApproval(string(status))
	log.Info().
		Str("admin", caller.String()).
		Str("principal", user.String()).
		Str("status", string(status)).
		Msg("Approval decided")

	return rec, nil
}

// ListApprovals returns every record, most recently updated first. Admin-only.
func (s *ApprovalService) ListApprovals(ctx context.Context, caller model.Principal) ([]*model.UserApproval, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !s.IsCallerAdmin(caller) {
		return nil, apperr.Unauthorized("list approvals")
	}

	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, transient(err, "list approvals")
	}
	return recs, nil
}

// Pending returns the records awaiting a decision, oldest first.
// It has no caller check and is meant for system jobs.
func (s *ApprovalService) Pending(ctx context.Context) ([]*model.UserApproval, error) {
	recs, err := s.store.ListByStatus(ctx, model.ApprovalPending)
	if err != nil {
		return nil, transient(err, "list pending approvals")
	}
	return recs, nil
}
