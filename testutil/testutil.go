// Package testutil opens throwaway SQLite databases migrated to head.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/migrations"
	"github.com/stretchr/testify/require"
)

// NewDB returns a fresh database in t.TempDir(), closed on cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "checked.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m, err := migrations.New(conn, nil)
	require.NoError(t, err)
	_, err = m.Upgrade(context.Background(), "head")
	require.NoError(t, err)
	return conn
}
