package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StatsTables are the tables whose row counts are reported by Stats.
var StatsTables = []string{
	"players",
	"tournaments",
	"tournament_players",
	"pairings",
	"clubs",
	"notifications",
}

type Stats struct {
	Path        string           `json:"database"`
	SizeBytes   int64            `json:"db_size_bytes"`
	SizeMB      float64          `json:"db_size_mb"`
	WALFrames   int              `json:"wal_frames"`
	JournalMode string           `json:"journal_mode"`
	TableCounts map[string]int64 `json:"table_counts"`
}

// CollectStats reports file size, WAL state and row counts.
func CollectStats(ctx context.Context, db *sql.DB, path string) (*Stats, error) {
	st := &Stats{Path: filepath.Base(path), TableCounts: make(map[string]int64)}

	if info, err := os.Stat(path); err == nil {
		st.SizeBytes = info.Size()
		st.SizeMB = float64(int64(float64(info.Size())/1024/1024*100)) / 100
	}

	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&st.JournalMode); err != nil {
		return nil, fmt.Errorf("failed to read journal mode: %w", err)
	}

	var busy, checkpointed int
	if err := db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &st.WALFrames, &checkpointed); err != nil {
		return nil, fmt.Errorf("failed to read wal state: %w", err)
	}

	for _, table := range StatsTables {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		st.TableCounts[table] = n
	}
	return st, nil
}

// Optimize refreshes planner statistics and truncates the WAL.
func Optimize(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyze failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database into dir and returns its
// path. The caller owns the file.
func Snapshot(ctx context.Context, db *sql.DB, dir string) (string, error) {
	name := fmt.Sprintf("chesskenya-%s.db", time.Now().UTC().Format("20060102-150405"))
	dst := filepath.Join(dir, name)
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return "", fmt.Errorf("vacuum into %s failed: %w", dst, err)
	}
	return dst, nil
}

// IsConstraintError reports a SQLite constraint violation.
func IsConstraintError(err error, kind string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "constraint failed") && strings.Contains(msg, kind)
}
