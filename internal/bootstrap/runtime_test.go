package bootstrap

import (
	"context"
	"testing"

	"dumdummies/internal/config"
	"dumdummies/internal/models"
	"dumdummies/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDemoData_SeedsEmptyDatabaseOnce(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{Env: "development"}
	ctx := context.Background()

	require.NoError(t, ensureDemoData(ctx, cfg, db))

	var first int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&first).Error)
	assert.Positive(t, first)

	require.NoError(t, ensureDemoData(ctx, cfg, db))
	var second int64
	require.NoError(t, db.Model(&models.Channel{}).Count(&second).Error)
	assert.Equal(t, first, second)
}

func TestEnsureDemoData_SkipsProduction(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, ensureDemoData(context.Background(), &config.Config{Env: "production"}, db))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}
