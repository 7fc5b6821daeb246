package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const versionTable = "alembic_version"

const createVersionTable = `CREATE TABLE IF NOT EXISTS alembic_version (
	version_num VARCHAR(32) NOT NULL,
	CONSTRAINT alembic_version_pkc PRIMARY KEY (version_num)
)`

// Step is one applied or rendered migration step.
type Step struct {
	From      string
	To        string
	Message   string
	Downgrade bool
}

func (s Step) String() string {
	verb := "upgrade"
	if s.Downgrade {
		verb = "downgrade"
	}
	return fmt.Sprintf("Running %s %s -> %s, %s", verb, displayRev(s.From), displayRev(s.To), s.Message)
}

type Migrator struct {
	db     *sql.DB
	chain  []*Migration
	index  map[string]int
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) (*Migrator, error) {
	chain, err := Chain()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	index := make(map[string]int, len(chain))
	for i, m := range chain {
		index[m.Revision] = i
	}
	return &Migrator{db: db, chain: chain, index: index, logger: logger}, nil
}

// Head is the newest revision, or "" when nothing is registered.
func (m *Migrator) Head() string {
	if len(m.chain) == 0 {
		return ""
	}
	return m.chain[len(m.chain)-1].Revision
}

// History returns the chain newest first.
func (m *Migrator) History() []*Migration {
	out := make([]*Migration, len(m.chain))
	for i, mig := range m.chain {
		out[len(m.chain)-1-i] = mig
	}
	return out
}

func (m *Migrator) position(rev string) (int, error) {
	if rev == "" || rev == Base {
		return -1, nil
	}
	i, ok := m.index[rev]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRevision, rev)
	}
	return i, nil
}

func (m *Migrator) revisionAt(pos int) string {
	if pos < 0 {
		return ""
	}
	return m.chain[pos].Revision
}

// Current reads the applied revision; "" means base.
func (m *Migrator) Current(ctx context.Context) (string, error) {
	var exists int
	err := m.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", versionTable,
	).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", versionTable, err)
	}
	if exists == 0 {
		return "", nil
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version_num FROM "+versionTable)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", versionTable, err)
	}
	defer rows.Close()

	var revs []string
	for rows.Next() {
		var rev string
		if err := rows.Scan(&rev); err != nil {
			return "", err
		}
		revs = append(revs, rev)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(revs) {
	case 0:
		return "", nil
	case 1:
		if _, err := m.position(revs[0]); err != nil {
			return "", fmt.Errorf("database is stamped with %w", err)
		}
		return revs[0], nil
	default:
		return "", fmt.Errorf("%s holds %d rows (%s); expected one", versionTable, len(revs), strings.Join(revs, ", "))
	}
}

// resolve turns a target expression into a chain position.
func (m *Migrator) resolve(target string, current int) (int, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "head" || target == "heads":
		return len(m.chain) - 1, nil
	case target == Base || target == "":
		return -1, nil
	case strings.HasPrefix(target, "+") || strings.HasPrefix(target, "-"):
		n, err := strconv.Atoi(target)
		if err != nil {
			return 0, fmt.Errorf("invalid relative revision %q", target)
		}
		pos := current + n
		if pos < -1 {
			return 0, fmt.Errorf("%w: %s from %s", ErrBelowBase, target, displayRev(m.revisionAt(current)))
		}
		if pos >= len(m.chain) {
			return 0, fmt.Errorf("%w: %s from %s", ErrAboveHead, target, displayRev(m.revisionAt(current)))
		}
		return pos, nil
	default:
		return m.position(target)
	}
}

// plan lists the steps between two positions.
func (m *Migrator) plan(from, to int) []Step {
	var steps []Step
	if to >= from {
		for i := from + 1; i <= to; i++ {
			mig := m.chain[i]
			steps = append(steps, Step{From: mig.DownRevision, To: mig.Revision, Message: mig.Message})
		}
		return steps
	}
	for i := from; i > to; i-- {
		mig := m.chain[i]
		steps = append(steps, Step{From: mig.Revision, To: mig.DownRevision, Message: mig.Message, Downgrade: true})
	}
	return steps
}

// Upgrade applies migrations up to target. An empty result means the
// database was already there.
func (m *Migrator) Upgrade(ctx context.Context, target string) ([]Step, error) {
	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", versionTable, err)
	}
	cur, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	from, _ := m.position(cur)
	to, err := m.resolve(target, from)
	if err != nil {
		return nil, err
	}
	if to < from {
		return nil, fmt.Errorf("target %s is behind current revision %s; use downgrade", displayRev(m.revisionAt(to)), displayRev(cur))
	}
	return m.run(ctx, m.plan(from, to))
}

// Downgrade reverts migrations down to target.
func (m *Migrator) Downgrade(ctx context.Context, target string) ([]Step, error) {
	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", versionTable, err)
	}
	cur, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	from, _ := m.position(cur)
	to, err := m.resolve(target, from)
	if err != nil {
		return nil, err
	}
	if to > from {
		return nil, fmt.Errorf("target %s is ahead of current revision %s; use upgrade", displayRev(m.revisionAt(to)), displayRev(cur))
	}
	return m.run(ctx, m.plan(from, to))
}

func (m *Migrator) run(ctx context.Context, steps []Step) ([]Step, error) {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		m.logger.Info("migration step", slog.String("step", step.String()))
		if err := m.apply(ctx, step); err != nil {
			return done, fmt.Errorf("%s: %w", step, err)
		}
		done = append(done, step)
	}
	return done, nil
}

func (m *Migrator) migrationFor(step Step) *Migration {
	if step.Downgrade {
		return m.chain[m.index[step.From]]
	}
	return m.chain[m.index[step.To]]
}

func operationsFor(mig *Migration, step Step) []Operation {
	if step.Downgrade {
		return mig.Down
	}
	return mig.Up
}

func (m *Migrator) apply(ctx context.Context, step Step) (err error) {
	mig := m.migrationFor(step)
	ops := operationsFor(mig, step)

	rebuild := false
	for _, op := range ops {
		if op.recreatesTable() {
			rebuild = true
			break
		}
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if rebuild {
		// foreign_keys is a no-op inside a transaction, so it is toggled first.
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
			return fmt.Errorf("failed to disable foreign keys: %w", err)
		}
		defer func() {
			if _, fkErr := conn.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); fkErr != nil && err == nil {
				err = fmt.Errorf("failed to re-enable foreign keys: %w", fkErr)
			}
		}()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				m.logger.Error("migration rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	for _, op := range ops {
		if err = op.apply(ctx, tx); err != nil {
			return err
		}
	}
	if rebuild {
		if err = checkForeignKeys(ctx, tx); err != nil {
			return err
		}
	}
	for _, stmt := range versionStatements(step) {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to update %s: %w", versionTable, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func versionStatements(step Step) []string {
	switch {
	case step.From == "":
		return []string{fmt.Sprintf("INSERT INTO %s (version_num) VALUES ('%s')", versionTable, step.To)}
	case step.To == "":
		return []string{fmt.Sprintf("DELETE FROM %s WHERE version_num = '%s'", versionTable, step.From)}
	default:
		return []string{fmt.Sprintf("UPDATE %s SET version_num='%s' WHERE version_num = '%s'", versionTable, step.To, step.From)}
	}
}

// Stamp records rev as current without running any migration.
func (m *Migrator) Stamp(ctx context.Context, rev string) error {
	pos, err := m.resolve(rev, -1)
	if err != nil {
		return err
	}
	if _, err := m.db.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("failed to create %s: %w", versionTable, err)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+versionTable); err != nil {
		return err
	}
	if pos >= 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+versionTable+" (version_num) VALUES (?)", m.revisionAt(pos)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Render produces the SQL script for moving from one revision to another
// without touching the database. Drops render as native DROP COLUMN since
// there is no live table to reflect.
func (m *Migrator) Render(ctx context.Context, from, target string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fromPos, err := m.position(from)
	if err != nil {
		return "", err
	}
	to, err := m.resolve(target, fromPos)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n\n")
	if fromPos < 0 && to >= 0 {
		b.WriteString(createVersionTable)
		b.WriteString(";\n\n")
	}
	for _, step := range m.plan(fromPos, to) {
		fmt.Fprintf(&b, "-- %s\n\n", step)
		for _, op := range operationsFor(m.migrationFor(step), step) {
			for _, stmt := range op.statements() {
				b.WriteString(stmt)
				b.WriteString(";\n\n")
			}
		}
		for _, stmt := range versionStatements(step) {
			b.WriteString(stmt)
			b.WriteString(";\n\n")
		}
	}
	b.WriteString("COMMIT;\n")
	return b.String(), nil
}
