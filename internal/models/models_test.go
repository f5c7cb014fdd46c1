package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCents(0))
	assert.Equal(t, "$12.50", FormatCents(1250))
	assert.Equal(t, "$20.00", FormatCents(2000))
	assert.Equal(t, "-$0.05", FormatCents(-5))
}

func TestAbbreviateCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{95000, "$950"},
		{100000, "$1k"},
		{123400, "$1.2k"},
		{340000000, "$3.4M"},
		{200000000000, "$2B"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, AbbreviateCents(tt.cents))
		})
	}
}

func TestDollarsToCents(t *testing.T) {
	assert.Equal(t, int64(1000), DollarsToCents(10))
	assert.Equal(t, int64(1999), DollarsToCents(19.99))
	assert.Equal(t, int64(30), DollarsToCents(0.1+0.2))
}

func TestNormalizeChallengeName(t *testing.T) {
	assert.Equal(t, "drink piss", NormalizeChallengeName("  Drink   PISS "))
	assert.Equal(t, NormalizeChallengeName("Shitback"), NormalizeChallengeName("SHITBACK"))
	assert.Equal(t, "", NormalizeChallengeName("   "))
}

func TestChallengeReachedAndProgress(t *testing.T) {
	c := Challenge{TargetCents: 2000, CurrentCents: 1000}
	assert.False(t, c.Reached())
	assert.InDelta(t, 0.5, c.Progress(), 0.0001)

	c.CurrentCents = 2500
	assert.True(t, c.Reached())
	assert.Equal(t, 1.0, c.Progress())

	requested := Challenge{}
	assert.False(t, requested.Reached())
	assert.Zero(t, requested.Progress())
}

func TestChannelOwnership(t *testing.T) {
	ch := Channel{}
	assert.False(t, ch.HasOwner())
	assert.False(t, ch.IsOwnedBy("u1"))

	owner := "u1"
	ch.OwnerID = &owner
	assert.True(t, ch.IsOwnedBy("u1"))
	assert.False(t, ch.IsOwnedBy("u2"))
	assert.False(t, ch.IsOwnedBy(""))
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusForError(NewNotFoundError("Challenge", "x")))
	assert.Equal(t, http.StatusBadRequest, StatusForError(NewValidationError("bad")))
	assert.Equal(t, http.StatusForbidden, StatusForError(NewForbiddenError("no")))
	assert.Equal(t, http.StatusConflict, StatusForError(fmt.Errorf("wrapped: %w", NewConflictError("dup"))))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(errors.New("boom")))
	assert.True(t, IsCode(NewConflictError("dup"), CodeConflict))
	assert.False(t, IsCode(nil, CodeConflict))
}
