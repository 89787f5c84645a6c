// Package client is the Go client core of the kidzone API: the HTTP client,
// the read cache with mutation fan-out, the spin controller, the admin
// activity poller, the bootstrap gate and the device-local store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kidzone/internal/game"
	"kidzone/internal/handler"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPAPI calls the kidzone HTTP API. Failed calls return *apperr.Error
// rebuilt from the response's error code.
type HTTPAPI struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPAPI creates a client for baseURL. A nil httpClient uses a client
// with a 15 second timeout.
func NewHTTPAPI(baseURL, token string, httpClient *http.Client) *HTTPAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// SetToken replaces the identity token.
func (a *HTTPAPI) SetToken(token string) {
	a.token = token
}

// HasIdentity reports whether calls carry an identity token.
func (a *HTTPAPI) HasIdentity() bool {
	return a.token != ""
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "failed to read response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e handler.ErrorResponse
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return apperr.FromWire(e.Code, e.Error)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "failed to decode response")
	}
	return nil
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}

// Bootstrap returns the server-resolved gate stage.
func (a *HTTPAPI) Bootstrap(ctx context.Context) (*model.GateState, error) {
	var out model.GateState
	if err := a.do(ctx, http.MethodGet, "/v1/bootstrap", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsCallerAdmin reports whether the caller is an admin.
func (a *HTTPAPI) IsCallerAdmin(ctx context.Context) (bool, error) {
	var out struct {
		IsAdmin bool `json:"is_admin"`
	}
	err := a.do(ctx, http.MethodGet, "/v1/me/admin", nil, &out)
	return out.IsAdmin, err
}

// RequestApproval asks for the caller's account to be approved.
func (a *HTTPAPI) RequestApproval(ctx context.Context) (*model.UserApproval, error) {
	var out model.UserApproval
	if err := a.do(ctx, http.MethodPost, "/v1/approval/request", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsCallerApproved reports whether the caller's account is approved.
func (a *HTTPAPI) IsCallerApproved(ctx context.Context) (bool, error) {
	var out struct {
		Approved bool `json:"approved"`
	}
	err := a.do(ctx, http.MethodGet, "/v1/approval/me", nil, &out)
	return out.Approved, err
}

// ListApprovals returns every approval record. Admin-only.
func (a *HTTPAPI) ListApprovals(ctx context.Context) ([]*model.UserApproval, error) {
	var out []*model.UserApproval
	err := a.do(ctx, http.MethodGet, "/v1/admin/approvals", nil, &out)
	return out, err
}

// SetApproval decides a user's approval. Admin-only.
func (a *HTTPAPI) SetApproval(ctx context.Context, user model.Principal, status model.ApprovalStatus) (*model.UserApproval, error) {
	var out model.UserApproval
	err := a.do(ctx, http.MethodPut, "/v1/admin/approvals/"+url.PathEscape(user.String()),
		handler.SetApprovalRequest{Status: status}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrophies returns the caller's balance.
func (a *HTTPAPI) GetTrophies(ctx context.Context) (int64, error) {
	var out handler.BalanceResponse
	err := a.do(ctx, http.MethodGet, "/v1/trophies", nil, &out)
	return out.Trophies, err
}

// UpdateGamesTrophies pays for one game session and returns the new balance.
func (a *HTTPAPI) UpdateGamesTrophies(ctx context.Context) (int64, error) {
	var out handler.BalanceResponse
	err := a.do(ctx, http.MethodPost, "/v1/trophies/spend", nil, &out)
	return out.Trophies, err
}

// WelcomeBackReward claims the welcome-back bonus.
func (a *HTTPAPI) WelcomeBackReward(ctx context.Context) (*model.WelcomeBackResult, error) {
	var out model.WelcomeBackResult
	if err := a.do(ctx, http.MethodPost, "/v1/trophies/welcome-back", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the top principals by trophies.
func (a *HTTPAPI) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	err := a.do(ctx, http.MethodGet, withLimit("/v1/leaderboard", limit), nil, &out)
	return out, err
}

// Games returns the game catalog.
func (a *HTTPAPI) Games(ctx context.Context) ([]game.Game, error) {
	var out []game.Game
	err := a.do(ctx, http.MethodGet, "/v1/games", nil, &out)
	return out, err
}

// RecordGamePlay records a finished game.
func (a *HTTPAPI) RecordGamePlay(ctx context.Context, gameID, gameName string) (*model.ActivityEvent, error) {
	var out model.ActivityEvent
	err := a.do(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/play",
		handler.PlayRequest{GameName: gameName}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveGameState stores a game's state.
func (a *HTTPAPI) SaveGameState(ctx context.Context, gameID, gameName string, state json.RawMessage) (*model.GameState, error) {
	var out model.GameState
	err := a.do(ctx, http.MethodPut, "/v1/games/"+url.PathEscape(gameID)+"/state",
		handler.SaveStateRequest{GameName: gameName, State: state}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGameState returns a game's saved state.
func (a *HTTPAPI) GetGameState(ctx context.Context, gameID string) (*model.GameState, error) {
	var out model.GameState
	if err := a.do(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/state", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecentActivityEvents returns the latest events. Admin-only.
func (a *HTTPAPI) GetRecentActivityEvents(ctx context.Context, limit int) ([]*model.ActivityEvent, error) {
	var out []*model.ActivityEvent
	err := a.do(ctx, http.MethodGet, withLimit("/v1/admin/activity", limit), nil, &out)
	return out, err
}

// Spin spins the reward wheel.
func (a *HTTPAPI) Spin(ctx context.Context) (*model.SpinResult, error) {
	var out model.SpinResult
	if err := a.do(ctx, http.MethodPost, "/v1/spin", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpinStatus returns the server's view of the caller's cooldown.
func (a *HTTPAPI) SpinStatus(ctx context.Context) (*model.SpinStatus, error) {
	var out model.SpinStatus
	if err := a.do(ctx, http.MethodGet, "/v1/spin/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpinHistory returns the caller's spins, most recent first.
func (a *HTTPAPI) SpinHistory(ctx context.Context, limit int) ([]*model.SpinRecord, error) {
	var out []*model.SpinRecord
	err := a.do(ctx, http.MethodGet, withLimit("/v1/spin/history", limit), nil, &out)
	return out, err
}

// GetProfile returns the caller's profile.
func (a *HTTPAPI) GetProfile(ctx context.Context) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := a.do(ctx, http.MethodGet, "/v1/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProfile sets up the caller's profile.
func (a *HTTPAPI) CreateProfile(ctx context.Context, name string, age int) (*model.UserProfile, error) {
	var out model.UserProfile
	err := a.do(ctx, http.MethodPost, "/v1/profile", handler.CreateProfileRequest{Name: name, Age: age}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveProfile merges patch into the caller's profile.
func (a *HTTPAPI) SaveProfile(ctx context.Context, patch model.ProfilePatch) (*model.UserProfile, error) {
	var out model.UserProfile
	if err := a.do(ctx, http.MethodPatch, "/v1/profile", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPet returns the caller's pet.
func (a *HTTPAPI) GetPet(ctx context.Context) (*model.VirtualPet, error) {
	var out model.VirtualPet
	if err := a.do(ctx, http.MethodGet, "/v1/pet", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePet merges patch into the caller's pet.
func (a *HTTPAPI) SavePet(ctx context.Context, patch model.PetPatch) (*model.VirtualPet, error) {
	var out model.VirtualPet
	if err := a.do(ctx, http.MethodPatch, "/v1/pet", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Badges returns the badge catalog with the caller's proofs.
func (a *HTTPAPI) Badges(ctx context.Context) ([]model.EarnedBadge, error) {
	var out []model.EarnedBadge
	err := a.do(ctx, http.MethodGet, "/v1/badges", nil, &out)
	return out, err
}
