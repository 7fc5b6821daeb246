package migrations

import (
	"context"
	"fmt"
	"strings"
)

// Exec runs a single raw SQL statement.
type Exec struct {
	SQL string
}

func (o Exec) apply(ctx context.Context, q Querier) error {
	if _, err := q.ExecContext(ctx, o.SQL); err != nil && !IsIdempotentDDLError(err) {
		return err
	}
	return nil
}

func (o Exec) statements() []string { return []string{strings.TrimSpace(o.SQL)} }
func (o Exec) recreatesTable() bool { return false }

type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

func (o CreateIndex) sql() string {
	unique := ""
	if o.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, o.Name, o.Table, strings.Join(o.Columns, ", "))
}

func (o CreateIndex) apply(ctx context.Context, q Querier) error {
	return Exec{SQL: o.sql()}.apply(ctx, q)
}

func (o CreateIndex) statements() []string { return []string{o.sql()} }
func (o CreateIndex) recreatesTable() bool { return false }

type DropIndex struct {
	Name  string
	Table string
}

func (o DropIndex) apply(ctx context.Context, q Querier) error {
	_, err := q.ExecContext(ctx, "DROP INDEX IF EXISTS "+o.Name)
	return err
}

func (o DropIndex) statements() []string { return []string{"DROP INDEX " + o.Name} }
func (o DropIndex) recreatesTable() bool { return false }

// Column describes a column added by a batch operation.
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	ServerDefault string
}

func (c Column) definition() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(" ")
	b.WriteString(c.Type)
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.ServerDefault != "" {
		b.WriteString(" DEFAULT '")
		b.WriteString(strings.ReplaceAll(c.ServerDefault, "'", "''"))
		b.WriteString("'")
	}
	return b.String()
}

// BatchAlter groups column changes on one table. Added columns use
// ALTER TABLE ADD COLUMN; dropped columns recreate the table.
type BatchAlter struct {
	Table       string
	AddColumns  []Column
	DropColumns []string
}

func (o BatchAlter) apply(ctx context.Context, q Querier) error {
	if len(o.AddColumns) > 0 {
		existing, err := tableColumns(ctx, q, o.Table)
		if err != nil {
			return err
		}
		for _, col := range o.AddColumns {
			if existing[col.Name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", o.Table, col.definition())
			if _, err := q.ExecContext(ctx, stmt); err != nil && !IsIdempotentDDLError(err) {
				return fmt.Errorf("add column %s.%s: %w", o.Table, col.Name, err)
			}
		}
	}
	if len(o.DropColumns) > 0 {
		if err := recreateWithout(ctx, q, o.Table, o.DropColumns); err != nil {
			return fmt.Errorf("batch drop on %s: %w", o.Table, err)
		}
	}
	return nil
}

func (o BatchAlter) statements() []string {
	out := make([]string, 0, len(o.AddColumns)+len(o.DropColumns))
	for _, col := range o.AddColumns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", o.Table, col.definition()))
	}
	for _, name := range o.DropColumns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", o.Table, name))
	}
	return out
}

func (o BatchAlter) recreatesTable() bool { return len(o.DropColumns) > 0 }
