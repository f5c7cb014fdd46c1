package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"dumdummies/internal/config"
	"dumdummies/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestEmbeddedMigrationsLoaded(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Equal(t, "000001_init", all[0].String())
	assert.Contains(t, all[0].UpScript, "idx_challenges_open_name")
	assert.Contains(t, all[0].DownScript, "DROP TABLE IF EXISTS challenges")

	require.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestSplitMigrationName(t *testing.T) {
	v, name, ok := splitMigrationName("000002_add_index")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, "add_index", name)

	_, _, ok = splitMigrationName("noversion")
	assert.False(t, ok)
	_, _, ok = splitMigrationName("abc_name")
	assert.False(t, ok)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		env      string
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid dev", "hybrid", "development", true, true, false},
		{"hybrid prod", "hybrid", "production", true, false, false},
		{"empty defaults to hybrid", "", "test", true, true, false},
		{"sql", "sql", "development", true, false, false},
		{"auto dev", "auto", "development", false, true, false},
		{"auto staging refused", "auto", "staging", false, false, true},
		{"unknown", "yolo", "development", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.sql)
			assert.Equal(t, tt.wantAuto, plan.auto)
		})
	}
}

func TestApplySchemaAutoModeCreatesTables(t *testing.T) {
	db := openTestDB(t)
	cfg := &config.Config{DBSchemaMode: SchemaModeAuto, Env: "test"}

	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	status, err := GetSchemaStatus(context.Background(), db, cfg)
	require.NoError(t, err)
	assert.False(t, status.WillRunSQL)
	assert.True(t, status.WillRunAutoMigrate)
	assert.Empty(t, status.PendingMigrations)
}

func TestOpenChallengeNamesAreUnique(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	first := &models.Challenge{ChannelID: "ch-1", Name: "Eat a Ghost Pepper", RequestedBy: "u1"}
	require.NoError(t, db.Create(first).Error)

	dup := &models.Challenge{ChannelID: "ch-1", Name: "eat a  ghost pepper", RequestedBy: "u2"}
	assert.Error(t, db.Create(dup).Error)

	require.NoError(t, db.Model(first).Update("status", models.ChallengeCompleted).Error)

	again := &models.Challenge{ChannelID: "ch-1", Name: "Eat a Ghost Pepper", RequestedBy: "u2"}
	assert.NoError(t, db.Create(again).Error)
}

func TestMigrationStore(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	store := NewMigrationStore(db)
	ctx := context.Background()

	applied, err := store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	require.NoError(t, store.ApplyMigration(ctx, 42, "scratch", "CREATE TABLE scratch (id INTEGER)"))
	assert.True(t, db.Migrator().HasTable("scratch"))

	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, applied)

	assert.Error(t, store.ApplyMigration(ctx, 43, "broken", "CREATE TABLE"))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, applied)

	require.NoError(t, store.RemoveMigration(ctx, 42))
	applied, err = store.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMissingMigrationLogTableIsEmpty(t *testing.T) {
	db := openTestDB(t)
	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestRollbackUnappliedMigration(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))

	assert.Error(t, RollbackMigration(context.Background(), db, 999))
	assert.Error(t, RollbackMigration(context.Background(), db, 1))
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}

func TestConfigurePool(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, configurePool(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "init"}, {Version: 2, Name: "stream_keys"}, {Version: 3, Name: "violations"}}

	pending, err := pendingMigrations([]int{1, 3}, registered)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	pending, err = pendingMigrations(nil, registered)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	_, err = pendingMigrations([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestGormLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String())

	l.Trace(ctx, time.Now(), stmt, errors.New("boom"))
	assert.Contains(t, buf.String(), `"msg":"sql error"`)
	assert.Contains(t, buf.String(), "boom")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	assert.Contains(t, buf.String(), `"msg":"slow sql"`)

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now(), stmt, errors.New("boom"))
	assert.Empty(t, buf.String())
}
