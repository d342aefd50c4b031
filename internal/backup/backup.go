// Package backup dumps every table of the current schema into a ZIP of CSV
// files and loads such an archive back, table by table.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lib/pq"
)

// timestampLayout keeps microseconds and the offset so COPY can parse the value back.
const timestampLayout = "2006-01-02 15:04:05.999999-07:00"

// Engine runs backups and restores against a PostgreSQL database.
type Engine struct {
	// DB is the database handle used for every statement.
	DB *sql.DB
}

// NewEngine creates an Engine for db.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{DB: db}
}

// Backup serializes every base table of the current schema as <table>.csv
// (header row plus one record per row) into a DEFLATE-compressed ZIP held in
// memory. Any failure aborts the whole backup and no archive is returned.
func (e *Engine) Backup(ctx context.Context) ([]byte, error) {
	tables, err := e.tables(ctx)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	modified := time.Now()

	for _, table := range tables {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     table + ".csv",
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", table, err)
		}
		if err := e.dumpTable(ctx, table, w); err != nil {
			return nil, fmt.Errorf("dump %s: %w", table, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) tables(ctx context.Context) ([]string, error) {
	rows, err := e.DB.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (e *Engine) dumpTable(ctx context.Context, table string, w io.Writer) error {
	rows, err := e.DB.QueryContext(ctx, "SELECT * FROM "+pq.QuoteIdentifier(table))
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(cols))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// formatValue renders a scanned column value as CSV text. NULL becomes an
// empty cell.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.Format(timestampLayout)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
