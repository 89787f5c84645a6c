package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"kidzone/internal/model"
	"kidzone/internal/repository"
)

// memStore is an in-memory stand-in for the pgx repositories.
type memStore struct {
	mu sync.Mutex

	approvals map[model.Principal]*model.UserApproval
	profiles  map[model.Principal]*model.UserProfile
	pets      map[model.Principal]*model.VirtualPet
	ledger    []*model.LedgerEntry
	events    []*model.ActivityEvent
	spins     []*model.SpinRecord
	proofs    map[model.Principal]map[string]*model.BadgeProof
	states    map[string]*model.GameState
	nextID    int64
	tick      int64

	// Injected failures.
	appendErr error
	upsertErr error
	ledgerErr error
	// recentReversed returns events oldest first to exercise display ordering.
	recentReversed bool
}

func newMemStore() *memStore {
	return &memStore{
		approvals: make(map[model.Principal]*model.UserApproval),
		profiles:  make(map[model.Principal]*model.UserProfile),
		pets:      make(map[model.Principal]*model.VirtualPet),
		proofs:    make(map[model.Principal]map[string]*model.BadgeProof),
		states:    make(map[string]*model.GameState),
	}
}

// stamp returns strictly increasing times so ordering by update time is stable.
func (m *memStore) stamp() time.Time {
	m.tick++
	return time.Unix(1_700_000_000+m.tick, 0)
}

// --- ApprovalStore ---

func (m *memStore) Request(_ context.Context, p model.Principal) (*model.UserApproval, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.approvals[p]; ok {
		if rec.Status != model.ApprovalRejected {
			cp := *rec
			return &cp, false, nil
		}
		rec.Status = model.ApprovalPending
		rec.DecidedBy = nil
		rec.UpdatedAt = m.stamp()
		cp := *rec
		return &cp, true, nil
	}

	now := m.stamp()
	rec := &model.UserApproval{Principal: p, Status: model.ApprovalPending, CreatedAt: now, UpdatedAt: now}
	m.approvals[p] = rec
	cp := *rec
	return &cp, true, nil
}

func (m *memStore) Get(_ context.Context, p model.Principal) (*model.UserApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.approvals[p]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Set(_ context.Context, p model.Principal, status model.ApprovalStatus, decidedBy model.Principal) (*model.UserApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.approvals[p]
	now := m.stamp()
	if !ok {
		rec = &model.UserApproval{Principal: p, CreatedAt: now}
		m.approvals[p] = rec
	}
	rec.Status = status
	d := decidedBy
	rec.DecidedBy = &d
	rec.UpdatedAt = now
	cp := *rec
	return &cp, nil
}

func (m *memStore) List(_ context.Context) ([]*model.UserApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserApproval
	for _, rec := range m.approvals {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) ListByStatus(_ context.Context, status model.ApprovalStatus) ([]*model.UserApproval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.UserApproval
	for _, rec := range m.approvals {
		if rec.Status == status {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *memStore) approvalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approvals)
}

// --- ProfileStore ---

type memProfiles struct{ *memStore }

func (m memProfiles) Create(_ context.Context, pr *model.UserProfile) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[pr.Principal]; ok {
		return nil, repository.ErrAlreadyExists
	}
	cp := *pr
	cp.CreatedAt, cp.UpdatedAt = m.stamp(), m.stamp()
	m.profiles[pr.Principal] = &cp
	out := cp
	return &out, nil
}

func (m memProfiles) Get(_ context.Context, p model.Principal) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.profiles[p]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pr
	return &cp, nil
}

func (m memProfiles) Update(_ context.Context, pr *model.UserProfile) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.profiles[pr.Principal]
	if !ok {
		return nil, repository.ErrNotFound
	}
	age, parent := cur.Age, cur.ParentPrincipal
	cp := *pr
	cp.Age, cp.ParentPrincipal = age, parent
	cp.UpdatedAt = m.stamp()
	m.profiles[pr.Principal] = &cp
	out := cp
	return &out, nil
}

// --- PetStore ---

type memPets struct{ *memStore }

func (m memPets) GetOrCreate(_ context.Context, p model.Principal, name string, trophies int64) (*model.VirtualPet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pet, ok := m.pets[p]; ok {
		cp := *pet
		return &cp, false, nil
	}
	pet := &model.VirtualPet{
		Principal:   p,
		Name:        name,
		Happiness:   50,
		GrowthStage: model.GrowthBaby,
		Accessories: []string{},
		Decorations: []string{},
		HomeStyle:   "cozy",
		Trophies:    trophies,
	}
	m.pets[p] = pet
	cp := *pet
	return &cp, true, nil
}

func (m memPets) Get(_ context.Context, p model.Principal) (*model.VirtualPet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pet, ok := m.pets[p]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pet
	return &cp, nil
}

func (m memPets) Update(_ context.Context, pet *model.VirtualPet) (*model.VirtualPet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.pets[pet.Principal]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *pet
	cp.Trophies, cp.LastWelcomeBack = cur.Trophies, cur.LastWelcomeBack
	m.pets[pet.Principal] = &cp
	out := cp
	return &out, nil
}

func (m memPets) AdjustTrophies(_ context.Context, p model.Principal, delta int64) (*model.VirtualPet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pet, ok := m.pets[p]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if pet.Trophies+delta < 0 {
		return nil, repository.ErrInsufficientTrophies
	}
	pet.Trophies += delta
	cp := *pet
	return &cp, nil
}

func (m memPets) AddAccessory(_ context.Context, p model.Principal, accessory string) (*model.VirtualPet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pet, ok := m.pets[p]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, a := range pet.Accessories {
		if a == accessory {
			cp := *pet
			return &cp, nil
		}
	}
	pet.Accessories = append(append([]string{}, pet.Accessories...), accessory)
	cp := *pet
	return &cp, nil
}

func (m memPets) SetWelcomeBack(_ context.Context, p model.Principal, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pet, ok := m.pets[p]
	if !ok {
		return repository.ErrNotFound
	}
	pet.LastWelcomeBack = at
	return nil
}

func (m memPets) TopByTrophies(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.LeaderboardEntry
	for _, pet := range m.pets {
		name := pet.Name
		if pr, ok := m.profiles[pet.Principal]; ok {
			name = pr.Name
		}
		out = append(out, model.LeaderboardEntry{Principal: pet.Principal, Name: name, Trophies: pet.Trophies})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Trophies != out[j].Trophies {
			return out[i].Trophies > out[j].Trophies
		}
		return out[i].Principal < out[j].Principal
	})
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (m *memStore) balance(p model.Principal) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pet, ok := m.pets[p]; ok {
		return pet.Trophies
	}
	return -1
}

// --- LedgerStore ---

type memLedger struct{ *memStore }

func (m memLedger) Create(_ context.Context, p model.Principal, amount int64, entryType string, description *string) (*model.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledgerErr != nil {
		return nil, m.ledgerErr
	}
	m.nextID++
	e := &model.LedgerEntry{ID: m.nextID, Principal: p, Amount: amount, Type: entryType, Description: description}
	m.ledger = append(m.ledger, e)
	return e, nil
}

func (m *memStore) ledgerTypes(p model.Principal) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.ledger {
		if e.Principal == p {
			out = append(out, e.Type)
		}
	}
	return out
}

// --- ActivityStore ---

type memActivity struct{ *memStore }

func (m memActivity) Append(_ context.Context, e *model.ActivityEvent) (*model.ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return nil, m.appendErr
	}
	m.nextID++
	cp := *e
	cp.ID = m.nextID
	m.events = append(m.events, &cp)
	out := cp
	return &out, nil
}

func (m memActivity) Recent(_ context.Context, limit int) ([]*model.ActivityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ActivityEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *m.events[i]
		out = append(out, &cp)
	}
	if m.recentReversed {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (m memActivity) CountGamesPlayed(_ context.Context, p model.Principal) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	distinct := make(map[string]struct{})
	for _, e := range m.events {
		if e.Principal == p && e.Type == model.ActivityGamePlayed {
			total++
			distinct[e.GameID] = struct{}{}
		}
	}
	return total, len(distinct), nil
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// --- SpinStore ---

type memSpins struct{ *memStore }

func (m memSpins) Create(_ context.Context, rec *model.SpinRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.spins = append(m.spins, &cp)
	return nil
}

func (m memSpins) LastCooldownSpin(_ context.Context, p model.Principal) (*model.SpinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *model.SpinRecord
	for _, rec := range m.spins {
		if rec.Principal == p && !rec.ExtraSpin && (last == nil || rec.Timestamp > last.Timestamp) {
			last = rec
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

func (m memSpins) ListByPrincipal(_ context.Context, p model.Principal, limit int) ([]*model.SpinRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SpinRecord
	for i := len(m.spins) - 1; i >= 0 && len(out) < limit; i-- {
		if m.spins[i].Principal == p {
			cp := *m.spins[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m memSpins) Count(_ context.Context, p model.Principal) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.spins {
		if rec.Principal == p {
			n++
		}
	}
	return n, nil
}

// --- BadgeStore ---

type memBadges struct{ *memStore }

func (m memBadges) Award(_ context.Context, proof *model.BadgeProof) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	held, ok := m.proofs[proof.Principal]
	if !ok {
		held = make(map[string]*model.BadgeProof)
		m.proofs[proof.Principal] = held
	}
	if _, ok := held[proof.BadgeID]; ok {
		return false, nil
	}
	cp := *proof
	held[proof.BadgeID] = &cp
	return true, nil
}

func (m memBadges) ListByPrincipal(_ context.Context, p model.Principal) ([]*model.BadgeProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BadgeProof
	for _, proof := range m.proofs[p] {
		cp := *proof
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

// --- GameStateStore ---

type memStates struct{ *memStore }

func stateKey(p model.Principal, gameID string) string {
	return strings.Join([]string{p.String(), gameID}, "\x00")
}

func (m memStates) Upsert(_ context.Context, gs *model.GameState) (*model.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	cp := *gs
	cp.UpdatedAt = m.stamp()
	m.states[stateKey(gs.Principal, gs.GameID)] = &cp
	out := cp
	return &out, nil
}

func (m memStates) Get(_ context.Context, p model.Principal, gameID string) (*model.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.states[stateKey(p, gameID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *gs
	return &cp, nil
}

// --- AdminPolicy ---

type adminSet map[string]bool

func (a adminSet) IsAdmin(principal string) bool {
	return a[strings.TrimSpace(principal)]
}
