package game

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/gosimple/slug"
)

var (
	ErrNoName      = errors.New("game name cannot be empty")
	ErrInvalidID   = errors.New("game id is not a valid slug")
	ErrUnknownGame = errors.New("unknown game")
)

// Registry manages game registration and lookup by id.
type Registry struct {
	games map[string]Game
	mu    sync.RWMutex
}

// NewRegistry creates a new game registry.
func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Game),
	}
}

// NewDefaultRegistry returns a registry holding DefaultGames.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, g := range DefaultGames {
		// DefaultGames all have names
		_, _ = r.Register(g)
	}
	return r
}

// Register adds a game to the registry, deriving its id from the name when empty.
// A game with the same id is replaced.
func (r *Registry) Register(g Game) (Game, error) {
	g.Name = strings.TrimSpace(g.Name)
	if g.Name == "" {
		return Game{}, ErrNoName
	}
	if g.ID == "" {
		g.ID = slug.Make(g.Name)
	}
	if !slug.IsSlug(g.ID) {
		return Game{}, ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID] = g
	return g, nil
}

// Get retrieves a game by its id.
func (r *Registry) Get(id string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[id]
	return g, ok
}

// Resolve returns the canonical game for id. When allowUnknown is set, an
// unregistered id is accepted with the caller-supplied name.
func (r *Registry) Resolve(id, name string, allowUnknown bool) (Game, error) {
	if g, ok := r.Get(id); ok {
		return g, nil
	}
	if !allowUnknown {
		return Game{}, ErrUnknownGame
	}
	if strings.TrimSpace(id) == "" {
		return Game{}, ErrInvalidID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}
	return Game{ID: id, Name: name}, nil
}

// List returns all registered games sorted by id.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Unregister removes a game from the registry by its id.
// Returns true if the game was found and removed, false otherwise.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[id]; ok {
		delete(r.games, id)
		return true
	}
	return false
}
