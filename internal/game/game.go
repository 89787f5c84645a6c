// Package game holds the catalog of playable games.
package game

// Categories group games on the hub.
const (
	CategoryPuzzle   = "puzzle"
	CategoryLearning = "learning"
	CategoryArcade   = "arcade"
	CategoryCreative = "creative"
)

// Game describes one playable game.
type Game struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// DefaultGames is the catalog registered at startup. IDs are derived from names.
var DefaultGames = []Game{
	{Name: "Memory Match", Category: CategoryPuzzle, Description: "Flip cards and find the pairs"},
	{Name: "Maze Runner", Category: CategoryPuzzle, Description: "Find the way out of the maze"},
	{Name: "Math Quest", Category: CategoryLearning, Description: "Solve sums to move forward"},
	{Name: "Spelling Bee", Category: CategoryLearning, Description: "Spell the word you hear"},
	{Name: "Word Search", Category: CategoryLearning, Description: "Find hidden words in the grid"},
	{Name: "Bubble Pop", Category: CategoryArcade, Description: "Pop the bubbles before they float away"},
	{Name: "Space Dodger", Category: CategoryArcade, Description: "Steer the rocket around asteroids"},
	{Name: "Color Studio", Category: CategoryCreative, Description: "Paint pictures with your own colors"},
	{Name: "Music Maker", Category: CategoryCreative, Description: "Build a tune one note at a time"},
}
