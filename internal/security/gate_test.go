package security

import (
	"context"
	"testing"

	"dumdummies/internal/models"
	"dumdummies/internal/repository"
	"dumdummies/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T) (*Gate, repository.SecurityRepository, *models.Channel, *models.User, *models.User) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	first, channel := testutil.SeedChannel(t, db)
	second := testutil.SeedUser(t, db, "second")
	violations := repository.NewSecurityRepository(db)
	return NewGate(repository.NewChannelRepository(db), violations), violations, channel, first, second
}

func TestGate_FirstClaimWins(t *testing.T) {
	gate, violations, channel, first, second := newGate(t)
	ctx := context.Background()

	ok, err := gate.IsCreator(ctx, channel.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = gate.Claim(ctx, channel.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = gate.Claim(ctx, channel.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok, "re-claiming as the creator is idempotent")

	ok, err = gate.Claim(ctx, channel.ID, second.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := violations.ListByChannel(ctx, channel.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ActionClaimCreator, list[0].Action)
	assert.Equal(t, second.ID, list[0].UserID)
}

func TestGate_ClaimRequiresIdentity(t *testing.T) {
	gate, _, channel, _, _ := newGate(t)
	_, err := gate.Claim(context.Background(), channel.ID, "")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestGate_EnforceRecordsRefusal(t *testing.T) {
	gate, violations, channel, first, second := newGate(t)
	ctx := context.Background()

	_, err := gate.Claim(ctx, channel.ID, first.ID)
	require.NoError(t, err)

	assert.NoError(t, gate.Enforce(ctx, channel.ID, first.ID, models.ActionStartStream))

	err = gate.Enforce(ctx, channel.ID, second.ID, models.ActionApproveChallenge)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeForbidden))

	err = gate.Enforce(ctx, "missing", second.ID, models.ActionApproveChallenge)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	list, err := violations.ListByChannel(ctx, channel.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ActionApproveChallenge, list[0].Action)
}
