package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized("approve users")))

	wrapped := fmt.Errorf("spend: %w", InsufficientTrophies(70, 80))
	assert.True(t, IsKind(wrapped, KindInsufficientTrophies))
	assert.False(t, IsKind(wrapped, KindRateLimited))
}

func TestMessagesKeepLegacySubstrings(t *testing.T) {
	assert.Contains(t, InsufficientTrophies(70, 80).Error(), "Not enough trophies")
	assert.Contains(t, SpinNotReady(60_000).Error(), "cannot be spun yet")
	assert.Contains(t, SpinNotReady(60_000).Error(), "60 seconds")
	assert.Contains(t, SpinNotReady(1).Error(), "1 seconds")
}

func TestWrapUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(KindTransient, base, "failed to load pet")
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "failed to load pet: connection refused", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated:      http.StatusUnauthorized,
		KindUnauthorized:         http.StatusForbidden,
		KindInsufficientTrophies: http.StatusConflict,
		KindRateLimited:          http.StatusTooManyRequests,
		KindInvalid:              http.StatusBadRequest,
		KindNotFound:             http.StatusNotFound,
		KindTransient:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}

func TestFromWire(t *testing.T) {
	assert.Equal(t, KindRateLimited, FromWire("rate_limited", "x").Kind)
	assert.Equal(t, KindInsufficientTrophies, FromWire("", "Error: Not enough trophies").Kind)
	assert.Equal(t, KindRateLimited, FromWire("weird", "Wheel cannot be spun yet").Kind)
	assert.Equal(t, KindUnauthorized, FromWire("", "Unauthorized: only admins").Kind)
	assert.Equal(t, KindTransient, FromWire("", "something else").Kind)
}
