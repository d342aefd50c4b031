package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSectorRepository implements sector persistence against PostgreSQL.
type PostgresSectorRepository struct {
	DB *sql.DB
}

// NewPostgresSectorRepository creates a PostgresSectorRepository with the given database connection.
func NewPostgresSectorRepository(db *sql.DB) *PostgresSectorRepository {
	return &PostgresSectorRepository{DB: db}
}

// AddSector inserts a new sector name. A name that already exists yields
// an error wrapping models.ErrConflict.
func (r *PostgresSectorRepository) AddSector(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `INSERT INTO settori (nome) VALUES ($1) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add sector %q: %w", name, translate(err))
	}
	return id, nil
}

// ListSectors returns every sector name in alphabetical order.
func (r *PostgresSectorRepository) ListSectors(ctx context.Context) ([]string, error) {
	names, err := listStrings(ctx, r.DB, `SELECT nome FROM settori ORDER BY nome ASC`)
	if err != nil {
		return nil, fmt.Errorf("ListSectors: %w", err)
	}
	return names, nil
}
