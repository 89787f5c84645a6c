package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"kidzone/internal/config"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/repository"
)

// Profile field limits.
const (
	maxNameLength      = 40
	minScreenTimeLimit = 15
	maxScreenTimeLimit = 480
)

// UserCreatedRecorder appends the user_created event.
type UserCreatedRecorder interface {
	RecordUserCreated(ctx context.Context, p model.Principal) (*model.ActivityEvent, error)
}

// ProfileService manages child profiles. Age is fixed once a profile exists.
type ProfileService struct {
	profiles ProfileStore
	activity UserCreatedRecorder
	badges   BadgeEvaluator
	cfg      config.ProfileConfig
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profiles ProfileStore, activity UserCreatedRecorder, badges BadgeEvaluator, cfg config.ProfileConfig) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		activity: activity,
		badges:   badges,
		cfg:      cfg,
	}
}

// CreateProfile sets up the caller's profile with the default settings.
// The caller becomes the parent principal.
func (s *ProfileService) CreateProfile(ctx context.Context, caller model.Principal, name string, age int) (*model.UserProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if age < s.cfg.MinAge || age > s.cfg.MaxAge {
		return nil, apperr.New(apperr.KindInvalid, "age must be between %d and %d", s.cfg.MinAge, s.cfg.MaxAge)
	}

	created, err := s.profiles.Create(ctx, &model.UserProfile{
		Principal:        caller,
		Name:             name,
		Age:              age,
		ParentPrincipal:  caller,
		ApprovedContacts: []string{},
		ScreenTimeLimit:  s.cfg.DefaultScreenTime,
		ContentFilter:    s.cfg.DefaultContentFilter,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperr.New(apperr.KindInvalid, "profile already exists")
		}
		return nil, transient(err, "create profile")
	}

	log.Info().Str("principal", caller.String()).Int("age", age).Msg("Profile created")

	if s.activity != nil {
		bestEffort(ctx, "activity_user_created", caller, func(ctx context.Context) error {
			_, err := s.activity.RecordUserCreated(ctx, caller)
			return err
		})
	}
	if s.badges != nil {
		bestEffort(ctx, "badges_after_profile", caller, func(ctx context.Context) error {
			_, err := s.badges.Evaluate(ctx, caller)
			return err
		})
	}

	return created, nil
}

// GetProfile returns the caller's profile.
func (s *ProfileService) GetProfile(ctx context.Context, caller model.Principal) (*model.UserProfile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	pr, err := s.profiles.Get(ctx, caller)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "profile not found")
		}
		return nil, transient(err, "get profile")
	}
	return pr, nil
}

// SaveProfile merges patch into the caller's profile.
func (s *ProfileService) SaveProfile(ctx context.Context, caller model.Principal, patch model.ProfilePatch) (*model.UserProfile, error) {
	current, err := s.GetProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	merged, err := MergeProfile(*current, patch)
	if err != nil {
		return nil, err
	}

	updated, err := s.profiles.Update(ctx, &merged)
	if err != nil {
		return nil, transient(err, "save profile")
	}
	return updated, nil
}

// MergeProfile applies patch to current. Fields absent from patch are kept.
// Changing the age is refused.
func MergeProfile(current model.UserProfile, patch model.ProfilePatch) (model.UserProfile, error) {
	merged := current

	if patch.Age != nil && *patch.Age != current.Age {
		return current, apperr.New(apperr.KindInvalid, "age cannot be changed after setup")
	}
	if patch.Name != nil {
		name, err := validateName(*patch.Name)
		if err != nil {
			return current, err
		}
		merged.Name = name
	}
	if patch.ApprovedContacts != nil {
		merged.ApprovedContacts = normalizeSet(*patch.ApprovedContacts)
	}
	if patch.ScreenTimeLimit != nil {
		limit := *patch.ScreenTimeLimit
		if limit < minScreenTimeLimit || limit > maxScreenTimeLimit {
			return current, apperr.New(apperr.KindInvalid,
				"screen time limit must be between %d and %d minutes", minScreenTimeLimit, maxScreenTimeLimit)
		}
		merged.ScreenTimeLimit = limit
	}
	if patch.ContentFilter != nil {
		switch *patch.ContentFilter {
		case model.ContentFilterLow, model.ContentFilterMedium, model.ContentFilterHigh:
			merged.ContentFilter = *patch.ContentFilter
		default:
			return current, apperr.New(apperr.KindInvalid, "unknown content filter %q", *patch.ContentFilter)
		}
	}
	if patch.Avatar != nil {
		if !isJSONObject(patch.Avatar) {
			return current, apperr.New(apperr.KindInvalid, "avatar must be a JSON object")
		}
		merged.Avatar = patch.Avatar
	}
	if patch.Accessibility != nil {
		if !isJSONObject(patch.Accessibility) {
			return current, apperr.New(apperr.KindInvalid, "accessibility must be a JSON object")
		}
		merged.Accessibility = patch.Accessibility
	}

	return merged, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", apperr.New(apperr.KindInvalid, "name must be 1 to %d characters", maxNameLength)
	}
	return name, nil
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
