package service

import (
	"context"
	"sort"
	"strings"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/pkg/lock"
)

// Pet limits.
const (
	minHappiness = 0
	maxHappiness = 100
	maxPetName   = 40
	maxHomeStyle = 32
)

// PetService manages the virtual pet. Trophies are never written here.
type PetService struct {
	pets    PetStore
	economy *EconomyService
	locks   *lock.UserLock
}

// NewPetService creates a new PetService instance.
func NewPetService(pets PetStore, economy *EconomyService, locks *lock.UserLock) *PetService {
	return &PetService{pets: pets, economy: economy, locks: locks}
}

// GetPet returns the caller's pet, creating it on first access.
func (s *PetService) GetPet(ctx context.Context, caller model.Principal) (*model.VirtualPet, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.economy.EnsurePet(ctx, caller)
}

// SavePet merges patch into the caller's pet.
func (s *PetService) SavePet(ctx context.Context, caller model.Principal, patch model.PetPatch) (*model.VirtualPet, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var saved *model.VirtualPet
	err := s.locks.WithLockTimeout(ctx, caller, lockTimeout, func() error {
		current, err := s.economy.EnsurePet(ctx, caller)
		if err != nil {
			return err
		}

		merged, err := MergePet(*current, patch)
		if err != nil {
			return err
		}

		saved, err = s.pets.Update(ctx, &merged)
		if err != nil {
			return transient(err, "save pet")
		}
		return nil
	})
	if err != nil {
		return nil, lockErr(err)
	}
	return saved, nil
}

// MergePet applies patch to current. Happiness is clamped to 0..100 and
// accessories and decorations are kept as sorted sets.
func MergePet(current model.VirtualPet, patch model.PetPatch) (model.VirtualPet, error) {
	merged := current

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" || len([]rune(name)) > maxPetName {
			return current, apperr.New(apperr.KindInvalid, "pet name must be 1 to %d characters", maxPetName)
		}
		merged.Name = name
	}
	if patch.Happiness != nil {
		merged.Happiness = clampHappiness(*patch.Happiness)
	}
	if patch.GrowthStage != nil {
		switch *patch.GrowthStage {
		case model.GrowthBaby, model.GrowthChild, model.GrowthTeen, model.GrowthAdult:
			merged.GrowthStage = *patch.GrowthStage
		default:
			return current, apperr.New(apperr.KindInvalid, "unknown growth stage %q", *patch.GrowthStage)
		}
	}
	if patch.Accessories != nil {
		merged.Accessories = normalizeSet(*patch.Accessories)
	}
	if patch.Decorations != nil {
		merged.Decorations = normalizeSet(*patch.Decorations)
	}
	if patch.HomeStyle != nil {
		style := strings.TrimSpace(*patch.HomeStyle)
		if style == "" || len([]rune(style)) > maxHomeStyle {
			return current, apperr.New(apperr.KindInvalid, "home style must be 1 to %d characters", maxHomeStyle)
		}
		merged.HomeStyle = style
	}
	if patch.WarnedExtremeChanges != nil {
		merged.WarnedExtremeChanges = *patch.WarnedExtremeChanges
	}

	return merged, nil
}

func clampHappiness(h int) int {
	if h < minHappiness {
		return minHappiness
	}
	if h > maxHappiness {
		return maxHappiness
	}
	return h
}

// normalizeSet trims, drops empties and duplicates, and sorts.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
