// Package model defines the data models for the kidzone backend.
package model

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Principal is an opaque, text-serialisable caller identity.
// Two principals are equal when their canonical text forms are equal.
type Principal string

// ParsePrincipal returns the canonical form of a principal text.
func ParsePrincipal(s string) Principal {
	return Principal(strings.TrimSpace(s))
}

// String returns the canonical text form.
func (p Principal) String() string {
	return string(p)
}

// IsAnonymous reports whether the principal carries no identity.
func (p Principal) IsAnonymous() bool {
	return strings.TrimSpace(string(p)) == ""
}

// ApprovalStatus is the state of a user's approval record.
type ApprovalStatus string

// Approval statuses.
const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// UserApproval gates app access behind an admin decision.
type UserApproval struct {
	Principal Principal      `json:"principal" db:"principal"`
	Status    ApprovalStatus `json:"status" db:"status"`
	DecidedBy *Principal     `json:"decided_by,omitempty" db:"decided_by"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// Content filter levels.
const (
	ContentFilterLow    = "low"
	ContentFilterMedium = "medium"
	ContentFilterHigh   = "high"
)

// UserProfile is the child's profile. Age is fixed once created.
type UserProfile struct {
	Principal        Principal       `json:"principal" db:"principal"`
	Name             string          `json:"name" db:"name"`
	Age              int             `json:"age" db:"age"`
	ParentPrincipal  Principal       `json:"parent_principal" db:"parent_principal"`
	ApprovedContacts []string        `json:"approved_contacts" db:"approved_contacts"`
	ScreenTimeLimit  int             `json:"screen_time_limit" db:"screen_time_limit"`
	ContentFilter    string          `json:"content_filter" db:"content_filter"`
	Avatar           json.RawMessage `json:"avatar" db:"avatar"`
	Accessibility    json.RawMessage `json:"accessibility" db:"accessibility"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// ProfilePatch carries the fields of a partial profile save. Nil fields are left untouched.
type ProfilePatch struct {
	Name             *string         `json:"name,omitempty"`
	Age              *int            `json:"age,omitempty"`
	ApprovedContacts *[]string       `json:"approved_contacts,omitempty"`
	ScreenTimeLimit  *int            `json:"screen_time_limit,omitempty"`
	ContentFilter    *string         `json:"content_filter,omitempty"`
	Avatar           json.RawMessage `json:"avatar,omitempty"`
	Accessibility    json.RawMessage `json:"accessibility,omitempty"`
}

// VirtualPet is the per-user pet hub; it also carries the trophy balance.
type VirtualPet struct {
	Principal            Principal `json:"principal" db:"principal"`
	Name                 string    `json:"name" db:"name"`
	Happiness            int       `json:"happiness" db:"happiness"`
	GrowthStage          string    `json:"growth_stage" db:"growth_stage"`
	Accessories          []string  `json:"accessories" db:"accessories"`
	Decorations          []string  `json:"decorations" db:"decorations"`
	HomeStyle            string    `json:"home_style" db:"home_style"`
	WarnedExtremeChanges bool      `json:"warned_extreme_changes" db:"warned_extreme_changes"`
	Trophies             int64     `json:"trophies" db:"trophies"`
	LastWelcomeBack      int64     `json:"last_welcome_back" db:"last_welcome_back"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// PetPatch carries the fields of a partial pet save. Trophies are not writable here.
type PetPatch struct {
	Name                 *string   `json:"name,omitempty"`
	Happiness            *int      `json:"happiness,omitempty"`
	GrowthStage          *string   `json:"growth_stage,omitempty"`
	Accessories          *[]string `json:"accessories,omitempty"`
	Decorations          *[]string `json:"decorations,omitempty"`
	HomeStyle            *string   `json:"home_style,omitempty"`
	WarnedExtremeChanges *bool     `json:"warned_extreme_changes,omitempty"`
}

// Pet growth stages.
const (
	GrowthBaby  = "baby"
	GrowthChild = "child"
	GrowthTeen  = "teen"
	GrowthAdult = "adult"
)

// LedgerEntry records a single trophy balance change.
type LedgerEntry struct {
	ID          int64     `json:"id" db:"id"`
	Principal   Principal `json:"principal" db:"principal"`
	Amount      int64     `json:"amount" db:"amount"`
	Type        string    `json:"type" db:"type"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Ledger entry types for categorizing trophy changes.
const (
	LedgerInitial     = "initial"      // Starting balance on pet creation
	LedgerGameUnlock  = "game_unlock"  // Trophies spent to unlock a game session
	LedgerSpinReward  = "spin_reward"  // Spin wheel winnings
	LedgerWelcomeBack = "welcome_back" // Return-visit bonus
	LedgerBadgeReward = "badge_reward" // Badge reward points
)

// ActivityType tags the shape of an activity event.
type ActivityType string

// Activity event types.
const (
	ActivityUserCreated ActivityType = "user_created"
	ActivityGamePlayed  ActivityType = "game_played"
)

// ActivityEvent is an append-only audit record visible to admins.
// GameID and GameName are set only for game_played events.
type ActivityEvent struct {
	ID        int64        `json:"id" db:"id"`
	Type      ActivityType `json:"type" db:"type"`
	GameID    string       `json:"game_id,omitempty" db:"game_id"`
	GameName  string       `json:"game_name,omitempty" db:"game_name"`
	Principal Principal    `json:"principal" db:"principal"`
	Timestamp int64        `json:"timestamp" db:"timestamp"`
}

// SortNewestFirst orders events most recent first by id, whatever order they arrived in.
func SortNewestFirst(events []*ActivityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ID > events[j].ID
	})
}

// SpinRecord is one spin of the reward wheel.
type SpinRecord struct {
	ID         string    `json:"id" db:"id"`
	Principal  Principal `json:"principal" db:"principal"`
	RewardType string    `json:"reward_type" db:"reward_type"`
	Value      int64     `json:"value" db:"value"`
	Label      string    `json:"label,omitempty" db:"label"`
	ExtraSpin  bool      `json:"extra_spin" db:"extra_spin"`
	Timestamp  int64     `json:"timestamp" db:"timestamp"`
}

// SpinResult is returned to the caller after a successful spin.
type SpinResult struct {
	Record     SpinRecord `json:"record"`
	RewardType string     `json:"reward_type"`
	Value      int64      `json:"value"`
	Label      string     `json:"label,omitempty"`
	ExtraSpin  bool       `json:"extra_spin"`
	Balance    int64      `json:"balance"`
	Timestamp  int64      `json:"timestamp"`
	NextSpinAt int64      `json:"next_spin_at"`
}

// WelcomeBackResult is returned by a successful welcome-back claim.
type WelcomeBackResult struct {
	Granted int64 `json:"granted"`
	Balance int64 `json:"balance"`
	// NextAt is when the next claim opens, in nanoseconds since the epoch.
	NextAt int64 `json:"next_at"`
}

// SpinStatus describes the caller's spin eligibility.
type SpinStatus struct {
	CanSpin     bool  `json:"can_spin"`
	RemainingMs int64 `json:"remaining_ms"`
	LastSpin    int64 `json:"last_spin"`
}

// Badge is a static badge descriptor.
type Badge struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Requirement  string `json:"requirement"`
	RewardPoints int64  `json:"reward_points"`
}

// BadgeProof records that a badge was earned.
type BadgeProof struct {
	Principal Principal `json:"principal" db:"principal"`
	BadgeID   string    `json:"badge_id" db:"badge_id"`
	Timestamp int64     `json:"timestamp" db:"timestamp"`
}

// EarnedBadge pairs a descriptor with its proof, if earned.
type EarnedBadge struct {
	Badge
	Proof *BadgeProof `json:"proof,omitempty"`
}

// GameState is the last saved state of one game for one user.
type GameState struct {
	Principal Principal       `json:"principal" db:"principal"`
	GameID    string          `json:"game_id" db:"game_id"`
	GameName  string          `json:"game_name" db:"game_name"`
	State     json.RawMessage `json:"state" db:"state"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// LeaderboardEntry is one row of the trophy leaderboard.
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	Principal Principal `json:"principal"`
	Name      string    `json:"name"`
	Trophies  int64     `json:"trophies"`
}

// Stage is a step of the bootstrap gate.
type Stage string

// Bootstrap gate stages, in order.
const (
	StageLogin           Stage = "login"
	StageProfileSetup    Stage = "profile_setup"
	StageApprovalPending Stage = "approval_pending"
	StageReady           Stage = "ready"
)

// GateState is the resolved bootstrap stage with the values that decided it.
type GateState struct {
	Stage    Stage         `json:"stage"`
	Profile  *UserProfile  `json:"profile,omitempty"`
	Approval *UserApproval `json:"approval,omitempty"`
}

// Timestamps cross the API boundary as nanoseconds since the Unix epoch.
// Client arithmetic works in milliseconds.
const nanosPerMilli = int64(time.Millisecond)

// TimestampNanos converts t to the boundary representation.
func TimestampNanos(t time.Time) int64 {
	return t.UnixNano()
}

// NanosToMillis converts a boundary timestamp to epoch milliseconds.
func NanosToMillis(ns int64) int64 {
	return ns / nanosPerMilli
}

// MillisToNanos converts epoch milliseconds to a boundary timestamp.
func MillisToNanos(ms int64) int64 {
	return ms * nanosPerMilli
}

// NanosToTime converts a boundary timestamp to a time.Time.
func NanosToTime(ns int64) time.Time {
	return time.Unix(0, ns)
}
