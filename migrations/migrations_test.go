package migrations

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/checked/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "test.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newMigrator(t *testing.T, conn *sql.DB) *Migrator {
	t.Helper()
	m, err := New(conn, nil)
	require.NoError(t, err)
	return m
}

func columnNames(t *testing.T, conn *sql.DB, table string) []string {
	t.Helper()
	cols, err := reflectColumns(context.Background(), conn, table)
	require.NoError(t, err)
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return names
}

func indexNames(t *testing.T, conn *sql.DB, table string) []string {
	t.Helper()
	rows, err := conn.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL", table)
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	return names
}

func TestChainIsLinear(t *testing.T) {
	chain, err := Chain()
	require.NoError(t, err)

	revs := make([]string, len(chain))
	for i, m := range chain {
		revs[i] = m.Revision
	}
	assert.Equal(t, []string{"0000", "0001", "0002", "20260205_0003"}, revs)
}

func TestUpgradeHeadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	steps, err := m.Upgrade(ctx, "head")
	require.NoError(t, err)
	assert.Len(t, steps, 4)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, m.Head(), cur)

	steps, err = m.Upgrade(ctx, "head")
	require.NoError(t, err)
	assert.Empty(t, steps)

	var rows int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM alembic_version").Scan(&rows))
	assert.Equal(t, 1, rows)

	assert.Contains(t, columnNames(t, conn, "players"), "chess_com_country")
	assert.Contains(t, columnNames(t, conn, "pairings"), "is_disputed")
	assert.Contains(t, columnNames(t, conn, "tournaments"), "result_confirmation_minutes")
	assert.Contains(t, indexNames(t, conn, "pairings"), "ix_pairings_claimed")
}

func TestUpgradeToleratesExistingSchema(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := m.Upgrade(ctx, "head")
	require.NoError(t, err)
	_, err = conn.Exec("DROP TABLE alembic_version")
	require.NoError(t, err)

	steps, err := m.Upgrade(ctx, "head")
	require.NoError(t, err)
	assert.Len(t, steps, 4)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20260205_0003", cur)
}

func TestDowngradeRebuildsTableAndKeepsData(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := m.Upgrade(ctx, "head")
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = conn.Exec(`INSERT INTO players (id, chess_com_username, password_hash, phone, age, gender, chess_com_country, created_at, updated_at)
		VALUES ('p1', 'magnus', 'x', '+254712345678', 30, 'male', 'KE', ?, ?)`, now, now)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO tournaments (id, name, registration_open, created_at, updated_at, created_by)
		VALUES ('t1', 'Open', ?, ?, ?, 'p1')`, now, now, now)
	require.NoError(t, err)

	steps, err := m.Downgrade(ctx, "-1")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.True(t, steps[0].Downgrade)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0002", cur)

	assert.NotContains(t, columnNames(t, conn, "players"), "chess_com_country")
	assert.ElementsMatch(t, []string{
		"ix_players_county", "ix_players_gender", "ix_players_age",
		"ix_players_created_at", "ix_players_county_gender", "ix_players_club_id",
	}, indexNames(t, conn, "players"))

	var username string
	require.NoError(t, conn.QueryRow("SELECT chess_com_username FROM players WHERE id = 'p1'").Scan(&username))
	assert.Equal(t, "magnus", username)

	// Unique constraints survive the rebuild.
	_, err = conn.Exec(`INSERT INTO players (id, chess_com_username, password_hash, phone, age, gender, created_at, updated_at)
		VALUES ('p2', 'magnus', 'x', '+254700000000', 30, 'male', ?, ?)`, now, now)
	assert.Error(t, err)

	// Foreign keys from other tables still resolve.
	_, err = conn.Exec(`INSERT INTO tournaments (id, name, registration_open, created_at, updated_at, created_by)
		VALUES ('t2', 'Ghost', ?, ?, ?, 'nobody')`, now, now, now)
	assert.Error(t, err)

	var fkOn int
	require.NoError(t, conn.QueryRow("PRAGMA foreign_keys").Scan(&fkOn))
	assert.Equal(t, 1, fkOn)
}

func TestDowngradeBaseThenUpgradeAgain(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := m.Upgrade(ctx, "head")
	require.NoError(t, err)

	steps, err := m.Downgrade(ctx, "base")
	require.NoError(t, err)
	assert.Len(t, steps, 4)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", cur)

	var tables int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'pairings'").Scan(&tables))
	assert.Zero(t, tables)

	_, err = m.Upgrade(ctx, "0001")
	require.NoError(t, err)
	cur, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0001", cur)

	_, err = m.Upgrade(ctx, "+2")
	require.NoError(t, err)
	cur, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20260205_0003", cur)
}

func TestDowngradeOnePairingsColumns(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := m.Upgrade(ctx, "0001")
	require.NoError(t, err)
	_, err = m.Downgrade(ctx, "0000")
	require.NoError(t, err)

	cols := columnNames(t, conn, "pairings")
	for _, gone := range []string{"claimed_result", "claimed_by", "is_disputed", "dispute_reason"} {
		assert.NotContains(t, cols, gone)
	}
	assert.NotContains(t, indexNames(t, conn, "pairings"), "ix_pairings_claimed")
	assert.Contains(t, indexNames(t, conn, "pairings"), "ix_pairings_deadline")
}

func TestTargetsOutOfRange(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := m.Downgrade(ctx, "-1")
	assert.ErrorIs(t, err, ErrBelowBase)

	_, err = m.Upgrade(ctx, "+5")
	assert.ErrorIs(t, err, ErrAboveHead)

	_, err = m.Upgrade(ctx, "20260205_0002")
	assert.ErrorIs(t, err, ErrUnknownRevision)
	assert.Contains(t, err.Error(), "20260205_0002")
}

func TestUnknownStampedRevision(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	_, err := conn.Exec(createVersionTable)
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO alembic_version (version_num) VALUES ('deadbeef')")
	require.NoError(t, err)

	_, err = m.Current(ctx)
	assert.ErrorIs(t, err, ErrUnknownRevision)
	assert.Contains(t, err.Error(), "deadbeef")
}

func TestStamp(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	require.NoError(t, m.Stamp(ctx, "0002"))
	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0002", cur)

	require.NoError(t, m.Stamp(ctx, "base"))
	cur, err = m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", cur)
}

func TestRenderOffline(t *testing.T) {
	ctx := context.Background()
	conn := openDB(t)
	m := newMigrator(t, conn)

	script, err := m.Render(ctx, "", "head")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(script, "BEGIN TRANSACTION;"))
	assert.Contains(t, script, "CREATE TABLE IF NOT EXISTS alembic_version")
	assert.Contains(t, script, "INSERT INTO alembic_version (version_num) VALUES ('0000')")
	assert.Contains(t, script, "ALTER TABLE pairings ADD COLUMN is_disputed BOOLEAN DEFAULT '0'")
	assert.Contains(t, script, "UPDATE alembic_version SET version_num='20260205_0003' WHERE version_num = '0002'")
	assert.True(t, strings.HasSuffix(script, "COMMIT;\n"))

	down, err := m.Render(ctx, "0002", "0000")
	require.NoError(t, err)
	assert.Contains(t, down, "ALTER TABLE tournaments DROP COLUMN is_online")
	assert.Contains(t, down, "DROP INDEX ix_pairings_claimed")
	assert.Contains(t, down, "ALTER TABLE pairings DROP COLUMN claimed_result")
	assert.Less(t, strings.Index(down, "DROP INDEX ix_pairings_claimed"), strings.Index(down, "DROP COLUMN claimed_result"))

	// Rendering never touches the database.
	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", cur)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Render(cancelled, "", "head")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHistoryNewestFirst(t *testing.T) {
	m := newMigrator(t, openDB(t))
	hist := m.History()
	require.Len(t, hist, 4)
	assert.Equal(t, "20260205_0003", hist[0].Revision)
	assert.Equal(t, "0002", hist[0].DownRevision)
	assert.Equal(t, "0000", hist[3].Revision)
}

func TestRevisionFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := Revision(dir, "add things", true, now)
	assert.ErrorIs(t, err, ErrAutogenerate)

	path, err := Revision(dir, "Add club logos!", false, now)
	require.NoError(t, err)
	assert.Equal(t, "v20260301_0004_add_club_logos.go", filepath.Base(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `Revision:     "20260301_0004"`)
	assert.Contains(t, string(body), `DownRevision: "20260205_0003"`)
}
