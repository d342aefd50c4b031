package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/lib/pq"
)

// TableResult is the outcome of restoring one archive entry.
type TableResult struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

// Report lists which tables were reloaded and which failed. Tables not
// present in the archive are left untouched and do not appear.
type Report struct {
	Restored []TableResult `json:"restored"`
	Failed   []TableResult `json:"failed"`
}

// OK reports whether every table in the archive was restored.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Restore reloads every <table>.csv entry of archive into the table of the
// same name. Tables linked by foreign keys are reloaded together: one
// transaction truncates the whole group in a single statement and
// bulk-loads each table, referenced tables first. A failure rolls the group
// back, so its tables keep their previous contents while other groups stay
// restored. A table referenced by a table the archive does not carry is not
// touched and is reported as failed, as is an entry naming an unknown table.
// Tables not present in the archive are never modified.
//
// An archive that is not a ZIP or holds no CSV entry yields
// models.ErrMalformedArchive and touches nothing.
func (e *Engine) Restore(ctx context.Context, archive []byte) (*Report, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedArchive, err)
	}

	entries := make(map[string]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".csv") {
			continue
		}
		entries[strings.TrimSuffix(f.Name, ".csv")] = f
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no .csv entries", models.ErrMalformedArchive)
	}

	live, err := e.tables(ctx)
	if err != nil {
		return nil, err
	}
	deps, err := e.dependencies(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}

	report := &Report{Restored: []TableResult{}, Failed: []TableResult{}}
	var restorable []string
	for _, table := range restoreOrder(names, deps) {
		if !slices.Contains(live, table) {
			report.Failed = append(report.Failed, TableResult{
				Table: table,
				Error: fmt.Sprintf("table %q does not exist", table),
			})
			continue
		}
		if missing := missingDependents(table, deps, entries); len(missing) > 0 {
			report.Failed = append(report.Failed, TableResult{
				Table: table,
				Error: fmt.Sprintf("referenced by %s, missing from the archive", strings.Join(missing, ", ")),
			})
			continue
		}
		restorable = append(restorable, table)
	}

	done := make(map[string]bool, len(restorable))
	for _, table := range restorable {
		if done[table] {
			continue
		}
		group := linkedGroup(table, restorable, deps)
		for _, t := range group {
			done[t] = true
		}

		results, culprit, err := e.restoreGroup(ctx, group, entries)
		if err != nil {
			for _, t := range group {
				msg := err.Error()
				if culprit != "" && t != culprit {
					msg = fmt.Sprintf("rolled back: %s failed", culprit)
				}
				report.Failed = append(report.Failed, TableResult{Table: t, Error: msg})
			}
			continue
		}
		report.Restored = append(report.Restored, results...)
	}
	return report, nil
}

// dependencies maps each table to the tables its foreign keys reference.
func (e *Engine) dependencies(ctx context.Context) (map[string][]string, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT DISTINCT tc.table_name, ccu.table_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = current_schema()`)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}
	defer rows.Close()

	deps := make(map[string][]string)
	for rows.Next() {
		var child, parent string
		if err := rows.Scan(&child, &parent); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if child != parent {
			deps[child] = append(deps[child], parent)
		}
	}
	return deps, rows.Err()
}

// restoreOrder sorts tables so that every referenced table comes before the
// tables referencing it, breaking ties alphabetically. Tables caught in a
// reference cycle are appended alphabetically.
func restoreOrder(tables []string, deps map[string][]string) []string {
	pending := make(map[string]int, len(tables))
	for _, t := range tables {
		pending[t] = 0
	}
	children := make(map[string][]string)
	for _, t := range tables {
		for _, p := range deps[t] {
			if _, ok := pending[p]; ok {
				pending[t]++
				children[p] = append(children[p], t)
			}
		}
	}

	var ready []string
	for t, n := range pending {
		if n == 0 {
			ready = append(ready, t)
		}
	}

	order := make([]string, 0, len(tables))
	for len(ready) > 0 {
		sort.Strings(ready)
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)
		delete(pending, t)
		for _, c := range children[t] {
			pending[c]--
			if pending[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	var rest []string
	for t := range pending {
		rest = append(rest, t)
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// referencedBy inverts deps: it maps each table to the tables whose
// foreign keys point at it.
func referencedBy(deps map[string][]string) map[string][]string {
	children := make(map[string][]string)
	for child, parents := range deps {
		for _, p := range parents {
			children[p] = append(children[p], child)
		}
	}
	return children
}

// missingDependents returns, sorted, the tables that directly or
// transitively reference table and have no entry in the archive. Emptying
// table would require emptying them too.
func missingDependents(table string, deps map[string][]string, entries map[string]*zip.File) []string {
	children := referencedBy(deps)
	seen := map[string]bool{table: true}
	queue := []string{table}
	var missing []string
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, c := range children[t] {
			if seen[c] {
				continue
			}
			seen[c] = true
			if _, ok := entries[c]; !ok {
				missing = append(missing, c)
			}
			queue = append(queue, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// linkedGroup returns the tables of restorable connected to table through
// foreign keys in either direction, in restorable's order.
func linkedGroup(table string, restorable []string, deps map[string][]string) []string {
	children := referencedBy(deps)
	in := make(map[string]bool, len(restorable))
	for _, t := range restorable {
		in[t] = true
	}

	seen := map[string]bool{table: true}
	queue := []string{table}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		for _, n := range append(slices.Clone(deps[t]), children[t]...) {
			if in[n] && !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}

	group := make([]string, 0, len(seen))
	for _, t := range restorable {
		if seen[t] {
			group = append(group, t)
		}
	}
	return group
}

type tableData struct {
	header  []string
	records [][]string
}

// restoreGroup reloads group, ordered parents first, in one transaction.
// On failure it also returns the table that caused it, when there is one.
func (e *Engine) restoreGroup(ctx context.Context, group []string, entries map[string]*zip.File) ([]TableResult, string, error) {
	data := make([]tableData, len(group))
	for i, table := range group {
		header, records, err := readCSV(entries[table])
		if err != nil {
			return nil, table, err
		}
		data[i] = tableData{header: header, records: records}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(group))
	for i, table := range group {
		quoted[i] = pq.QuoteIdentifier(table)
	}
	if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(quoted, ", ")); err != nil {
		return nil, "", fmt.Errorf("truncate: %w", err)
	}

	results := make([]TableResult, len(group))
	for i, table := range group {
		if err := copyRows(ctx, tx, table, data[i]); err != nil {
			return nil, table, err
		}
		if slices.Contains(data[i].header, "id") {
			if err := resetSequence(ctx, tx, quoted[i]); err != nil {
				return nil, table, err
			}
		}
		results[i] = TableResult{Table: table, Rows: len(data[i].records)}
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit: %w", err)
	}
	return results, "", nil
}

// copyRows bulk-loads d into table. Empty cells become NULL.
func copyRows(ctx context.Context, tx *sql.Tx, table string, d tableData) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, d.header...))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for i, rec := range d.records {
		args := make([]any, len(rec))
		for j, cell := range rec {
			if cell != "" {
				args[j] = cell
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy row %d: %w", i+2, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("copy close: %w", err)
	}
	return nil
}

// resetSequence moves the serial sequence behind the id column past the
// restored ids so later inserts do not collide.
func resetSequence(ctx context.Context, tx *sql.Tx, quoted string) error {
	var seq sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT pg_get_serial_sequence($1, 'id')`, quoted).Scan(&seq); err != nil {
		return fmt.Errorf("lookup sequence: %w", err)
	}
	if !seq.Valid {
		return nil
	}
	stmt := fmt.Sprintf(
		`SELECT setval($1, COALESCE((SELECT MAX(id) FROM %[1]s), 1), (SELECT MAX(id) FROM %[1]s) IS NOT NULL)`,
		quoted)
	if _, err := tx.ExecContext(ctx, stmt, seq.String); err != nil {
		return fmt.Errorf("reset sequence: %w", err)
	}
	return nil
}

func readCSV(f *zip.File) ([]string, [][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", models.ErrMalformedArchive, f.Name, err)
	}
	defer rc.Close()

	all, err := csv.NewReader(rc).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: parse %s: %v", models.ErrMalformedArchive, f.Name, err)
	}
	if len(all) == 0 || len(all[0]) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no header row", models.ErrMalformedArchive, f.Name)
	}

	header := all[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	return header, all[1:], nil
}
