// Package migrations holds the versioned schema changes for the SQLite store
// and the runner that applies them. Revisions form a single linear chain; the
// applied revision is kept in the alembic_version table.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Base is the revision before any migration has been applied.
const Base = "base"

var (
	ErrUnknownRevision = errors.New("unknown revision")
	ErrBrokenChain     = errors.New("revision chain is not linear")
	ErrBelowBase       = errors.New("cannot downgrade below base")
	ErrAboveHead       = errors.New("cannot upgrade past head")
	ErrAutogenerate    = errors.New("autogenerate is not supported: there is no model metadata to compare against")
)

// Migration is one revision in the chain.
type Migration struct {
	Revision     string
	DownRevision string
	Message      string
	CreateDate   string
	Up           []Operation
	Down         []Operation
}

// Querier is satisfied by *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Operation is a single schema change.
type Operation interface {
	apply(ctx context.Context, q Querier) error
	// statements renders the operation for offline mode.
	statements() []string
	recreatesTable() bool
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Migration{}
)

func register(m *Migration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[m.Revision]; dup {
		panic(fmt.Sprintf("migrations: duplicate revision %q", m.Revision))
	}
	registry[m.Revision] = m
}

// Chain returns the registered migrations ordered from base to head.
func Chain() ([]*Migration, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	children := make(map[string][]*Migration)
	for _, m := range registry {
		children[m.DownRevision] = append(children[m.DownRevision], m)
	}

	var chain []*Migration
	parent := ""
	for {
		next := children[parent]
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			revs := make([]string, 0, len(next))
			for _, m := range next {
				revs = append(revs, m.Revision)
			}
			sort.Strings(revs)
			return nil, fmt.Errorf("%w: %s has multiple children (%s)", ErrBrokenChain, displayRev(parent), strings.Join(revs, ", "))
		}
		chain = append(chain, next[0])
		parent = next[0].Revision
	}

	if len(chain) != len(registry) {
		var orphans []string
		linked := make(map[string]bool, len(chain))
		for _, m := range chain {
			linked[m.Revision] = true
		}
		for rev, m := range registry {
			if !linked[rev] {
				orphans = append(orphans, fmt.Sprintf("%s (down %s)", rev, displayRev(m.DownRevision)))
			}
		}
		sort.Strings(orphans)
		return nil, fmt.Errorf("%w: unreachable revisions %s", ErrBrokenChain, strings.Join(orphans, ", "))
	}
	return chain, nil
}

func displayRev(rev string) string {
	if rev == "" {
		return Base
	}
	return rev
}

// IsIdempotentDDLError reports DDL errors that mean the change is already in place.
func IsIdempotentDDLError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column")
}
