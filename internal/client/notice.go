package client

import (
	"errors"

	"kidzone/internal/pkg/apperr"
)

// Notice is a user-facing message for a failed action.
type Notice struct {
	Title   string
	Message string
}

// Classify maps err to the notice shown to the user.
func Classify(err error) Notice {
	if errors.Is(err, ErrSpinInFlight) {
		return Notice{Title: "Hold on", Message: "The wheel is already spinning!"}
	}

	switch apperr.KindOf(err) {
	case apperr.KindInsufficientTrophies:
		return Notice{Title: "Not enough trophies", Message: "Play more games to earn trophies!"}
	case apperr.KindRateLimited:
		return Notice{Title: "Not ready yet", Message: "The wheel needs a rest. Come back soon!"}
	case apperr.KindUnauthorized:
		return Notice{Title: "Not allowed", Message: "Only admins can do that."}
	case apperr.KindUnauthenticated:
		return Notice{Title: "Please sign in", Message: "Sign in to keep playing."}
	default:
		return Notice{Title: "Oops", Message: "Something went wrong, please try again."}
	}
}

// IsUnauthorized reports whether err means the caller lacks admin rights.
func IsUnauthorized(err error) bool {
	return apperr.IsKind(err, apperr.KindUnauthorized)
}
