package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/venditori/internal/models"
)

// PostgresStatsRepository computes the dashboard figures.
type PostgresStatsRepository struct {
	DB *sql.DB
}

// NewPostgresStatsRepository creates a PostgresStatsRepository with the given database connection.
func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{DB: db}
}

// Stats returns the total number of vendors, the count per sector, the
// count per years of experience and the ten cities with most vendors.
func (r *PostgresStatsRepository) Stats(ctx context.Context) (*models.Stats, error) {
	var st models.Stats

	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM venditori`).Scan(&st.Total); err != nil {
		return nil, fmt.Errorf("count vendors: %w", err)
	}

	var err error
	st.BySector, err = r.counts(ctx, `
		SELECT s.nome, COUNT(*) FROM venditori v JOIN settori s ON s.id = v.settore_id
		GROUP BY s.nome ORDER BY s.nome`)
	if err != nil {
		return nil, fmt.Errorf("count per sector: %w", err)
	}

	st.ByExperience, err = r.counts(ctx, `
		SELECT esperienza_vendita::text, COUNT(*) FROM venditori
		GROUP BY esperienza_vendita ORDER BY esperienza_vendita`)
	if err != nil {
		return nil, fmt.Errorf("count per experience: %w", err)
	}

	st.TopCities, err = r.counts(ctx, `
		SELECT citta, COUNT(*) AS totale FROM venditori
		GROUP BY citta ORDER BY totale DESC, citta LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("count per city: %w", err)
	}

	return &st, nil
}

func (r *PostgresStatsRepository) counts(ctx context.Context, stmt string) ([]models.Count, error) {
	rows, err := r.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Count{}
	for rows.Next() {
		var c models.Count
		if err := rows.Scan(&c.Label, &c.Total); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
