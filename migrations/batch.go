package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

const tmpPrefix = "_alembic_tmp_"

type columnInfo struct {
	Name    string
	Type    string
	NotNull bool
	Default sql.NullString
	PK      int
}

type foreignKey struct {
	ID       int
	Table    string
	From     []string
	To       []string
	OnUpdate string
	OnDelete string
}

type indexInfo struct {
	Name    string
	Unique  bool
	Origin  string
	Columns []string
	SQL     sql.NullString
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableColumns(ctx context.Context, q Querier, table string) (map[string]bool, error) {
	cols, err := reflectColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c.Name] = true
	}
	return out, nil
}

func reflectColumns(ctx context.Context, q Querier, table string) ([]columnInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reflect columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []columnInfo
	for rows.Next() {
		var (
			cid int
			c   columnInfo
		)
		if err := rows.Scan(&cid, &c.Name, &c.Type, &c.NotNull, &c.Default, &c.PK); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table: %s", table)
	}
	return cols, nil
}

func reflectForeignKeys(ctx context.Context, q Querier, table string) ([]*foreignKey, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reflect foreign keys of %s: %w", table, err)
	}
	defer rows.Close()

	byID := make(map[int]*foreignKey)
	var order []int
	for rows.Next() {
		var (
			id, seq                                 int
			refTable, from, onUpdate, onDelete, mat string
			to                                      sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &mat); err != nil {
			return nil, fmt.Errorf("scan foreign key of %s: %w", table, err)
		}
		fk, ok := byID[id]
		if !ok {
			fk = &foreignKey{ID: id, Table: refTable, OnUpdate: onUpdate, OnDelete: onDelete}
			byID[id] = fk
			order = append(order, id)
		}
		fk.From = append(fk.From, from)
		fk.To = append(fk.To, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Ints(order)
	out := make([]*foreignKey, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

func reflectIndexes(ctx context.Context, q Querier, table string) ([]*indexInfo, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("reflect indexes of %s: %w", table, err)
	}
	var idxs []*indexInfo
	for rows.Next() {
		var (
			seq     int
			idx     indexInfo
			partial int
		)
		if err := rows.Scan(&seq, &idx.Name, &idx.Unique, &idx.Origin, &partial); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan index of %s: %w", table, err)
		}
		idxs = append(idxs, &idx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, idx := range idxs {
		colRows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(idx.Name)))
		if err != nil {
			return nil, fmt.Errorf("reflect index %s: %w", idx.Name, err)
		}
		type seqCol struct {
			seq  int
			name string
		}
		var cols []seqCol
		for colRows.Next() {
			var (
				seqno, cid int
				name       sql.NullString
			)
			if err := colRows.Scan(&seqno, &cid, &name); err != nil {
				colRows.Close()
				return nil, fmt.Errorf("scan index column of %s: %w", idx.Name, err)
			}
			cols = append(cols, seqCol{seq: seqno, name: name.String})
		}
		colRows.Close()
		sort.Slice(cols, func(i, j int) bool { return cols[i].seq < cols[j].seq })
		for _, c := range cols {
			idx.Columns = append(idx.Columns, c.name)
		}

		if idx.Origin == "c" {
			err := q.QueryRowContext(ctx,
				"SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?", idx.Name,
			).Scan(&idx.SQL)
			if err != nil {
				return nil, fmt.Errorf("read definition of index %s: %w", idx.Name, err)
			}
		}
	}
	return idxs, nil
}

func containsAny(haystack []string, needles map[string]bool) bool {
	for _, h := range haystack {
		if needles[h] {
			return true
		}
	}
	return false
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// recreateWithout rebuilds table without the dropped columns. The caller must
// have switched foreign keys off on the connection before the transaction began.
func recreateWithout(ctx context.Context, q Querier, table string, drop []string) error {
	cols, err := reflectColumns(ctx, q, table)
	if err != nil {
		return err
	}
	dropped := make(map[string]bool, len(drop))
	existing := make(map[string]bool, len(cols))
	for _, c := range cols {
		existing[c.Name] = true
	}
	for _, name := range drop {
		if !existing[name] {
			return fmt.Errorf("no such column: %s.%s", table, name)
		}
		dropped[name] = true
	}

	fks, err := reflectForeignKeys(ctx, q, table)
	if err != nil {
		return err
	}
	idxs, err := reflectIndexes(ctx, q, table)
	if err != nil {
		return err
	}

	var (
		defs []string
		kept []string
		pks  []columnInfo
	)
	for _, c := range cols {
		if dropped[c.Name] {
			continue
		}
		kept = append(kept, c.Name)
		def := quoteIdent(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default.Valid {
			def += " DEFAULT " + c.Default.String
		}
		defs = append(defs, def)
		if c.PK > 0 {
			pks = append(pks, c)
		}
	}
	if len(kept) == 0 {
		return fmt.Errorf("cannot drop every column of %s", table)
	}

	if len(pks) > 0 {
		sort.Slice(pks, func(i, j int) bool { return pks[i].PK < pks[j].PK })
		names := make([]string, len(pks))
		for i, c := range pks {
			names[i] = c.Name
		}
		defs = append(defs, "PRIMARY KEY ("+quoteAll(names)+")")
	}
	for _, idx := range idxs {
		if idx.Origin == "u" && !containsAny(idx.Columns, dropped) {
			defs = append(defs, "UNIQUE ("+quoteAll(idx.Columns)+")")
		}
	}
	for _, fk := range fks {
		if containsAny(fk.From, dropped) {
			continue
		}
		def := fmt.Sprintf("FOREIGN KEY(%s) REFERENCES %s", quoteAll(fk.From), quoteIdent(fk.Table))
		if len(fk.To) > 0 && fk.To[0] != "" {
			def += " (" + quoteAll(fk.To) + ")"
		}
		if fk.OnUpdate != "" && fk.OnUpdate != "NO ACTION" {
			def += " ON UPDATE " + fk.OnUpdate
		}
		if fk.OnDelete != "" && fk.OnDelete != "NO ACTION" {
			def += " ON DELETE " + fk.OnDelete
		}
		defs = append(defs, def)
	}

	tmp := tmpPrefix + table
	keptList := quoteAll(kept)
	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", quoteIdent(tmp), strings.Join(defs, ",\n\t")),
		fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", quoteIdent(tmp), keptList, keptList, quoteIdent(table)),
		fmt.Sprintf("DROP TABLE %s", quoteIdent(table)),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quoteIdent(tmp), quoteIdent(table)),
	}
	for _, idx := range idxs {
		if idx.Origin != "c" || !idx.SQL.Valid || containsAny(idx.Columns, dropped) {
			continue
		}
		stmts = append(stmts, idx.SQL.String)
	}

	for _, stmt := range stmts {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// checkForeignKeys fails when PRAGMA foreign_key_check reports violations.
func checkForeignKeys(ctx context.Context, q Querier) error {
	rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var (
			table  string
			rowid  sql.NullInt64
			parent string
			fkid   int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("scan foreign key violation: %w", err)
		}
		violations = append(violations, fmt.Sprintf("%s row %d -> %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign key violations after table rebuild: %s", strings.Join(violations, "; "))
	}
	return nil
}
