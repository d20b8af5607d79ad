package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/todo/internal/infrastructure/config"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()

	db, err := New(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_UpDown(t *testing.T) {
	db := openSQLite(t)

	mg, err := NewMigrator(db)
	require.NoError(t, err)

	version, dirty, err := mg.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, mg.Up())
	require.NoError(t, mg.Up(), "second up is a no-op")

	version, _, err = mg.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	for _, table := range []string{"users", "sessions", "teams", "team_members", "tasks", "routines", "shares"} {
		var n int
		require.NoError(t, db.DB.Get(&n, "SELECT COUNT(*) FROM "+table), table)
	}

	require.NoError(t, mg.Down())
	var n int
	assert.Error(t, db.DB.Get(&n, "SELECT COUNT(*) FROM tasks"))
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Migrate(db))
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`),
			"6f1c1f5e-0000-4000-8000-000000000001", "alice", "x", time.Now().UTC())
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.DB.Get(&n, "SELECT COUNT(*) FROM users"))
	assert.Zero(t, n)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Migrate(db))

	insert := db.DB.Rebind(`INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`)
	_, err := db.DB.Exec(insert, "6f1c1f5e-0000-4000-8000-000000000001", "alice", "x", time.Now().UTC())
	require.NoError(t, err)

	_, err = db.DB.Exec(insert, "6f1c1f5e-0000-4000-8000-000000000002", "alice", "x", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestGetConnectionInfo(t *testing.T) {
	db := openSQLite(t)

	info := db.GetConnectionInfo()
	assert.Equal(t, config.DriverSQLite, info["driver"])
	assert.Equal(t, 1, info["max_open_connections"])
	assert.NoError(t, db.HealthCheck())
}
