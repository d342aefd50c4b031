// Package repository provides PostgreSQL persistence for vendors, sectors
// and dashboard figures.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/venditori/internal/models"
	"github.com/atinyakov/venditori/internal/query"
	"github.com/lib/pq"
)

const selectVendors = `SELECT v.id, v.nome_cognome, v.email, COALESCE(v.telefono, ''), v.citta,
	v.esperienza_vendita, COALESCE(v.anno_nascita, 0), s.nome, v.partita_iva, v.agente_isenarco,
	COALESCE(v.cv, ''), COALESCE(v.note, ''), v.data_creazione
FROM venditori v JOIN settori s ON s.id = v.settore_id`

const upsertVendor = `
INSERT INTO venditori
    (nome_cognome, email, telefono, citta, esperienza_vendita, anno_nascita,
     settore_id, partita_iva, agente_isenarco, cv, note, data_creazione)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, 0), $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NOW())
ON CONFLICT (email) DO UPDATE SET
    nome_cognome = EXCLUDED.nome_cognome,
    telefono = EXCLUDED.telefono,
    citta = EXCLUDED.citta,
    esperienza_vendita = EXCLUDED.esperienza_vendita,
    anno_nascita = EXCLUDED.anno_nascita,
    settore_id = EXCLUDED.settore_id,
    partita_iva = EXCLUDED.partita_iva,
    agente_isenarco = EXCLUDED.agente_isenarco,
    cv = COALESCE(EXCLUDED.cv, venditori.cv),
    note = EXCLUDED.note,
    data_creazione = NOW()
RETURNING id`

const insertVendor = `
INSERT INTO venditori
    (nome_cognome, email, telefono, citta, esperienza_vendita, anno_nascita,
     settore_id, partita_iva, agente_isenarco, cv, note, data_creazione)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, 0), $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NOW())`

const updateVendorByID = `
UPDATE venditori SET
    nome_cognome = $1, email = $2, telefono = NULLIF($3, ''), citta = $4,
    esperienza_vendita = $5, anno_nascita = NULLIF($6, 0), settore_id = $7,
    partita_iva = $8, agente_isenarco = $9, cv = COALESCE(NULLIF($10, ''), cv), note = NULLIF($11, '')
WHERE id = $12`

const updateVendorByEmail = `
UPDATE venditori SET
    nome_cognome = $1, telefono = NULLIF($3, ''), citta = $4,
    esperienza_vendita = $5, anno_nascita = NULLIF($6, 0), settore_id = $7,
    partita_iva = $8, agente_isenarco = $9, cv = COALESCE(NULLIF($10, ''), cv), note = NULLIF($11, '')
WHERE email = $2`

// PostgresVendorRepository implements vendor persistence against PostgreSQL.
type PostgresVendorRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresVendorRepository creates a PostgresVendorRepository using the provided *sql.DB.
func NewPostgresVendorRepository(db *sql.DB) *PostgresVendorRepository {
	return &PostgresVendorRepository{DB: db}
}

// UpsertVendor inserts v or, when its email already exists, overwrites the
// other fields of that row and refreshes its creation timestamp. A blank CV
// keeps the stored one. An unknown
// sector is created first. It returns the id of the stored row.
func (r *PostgresVendorRepository) UpsertVendor(ctx context.Context, v models.Vendor) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sectorID, err := ensureSector(ctx, tx, v.Sector)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, upsertVendor, vendorArgs(v, sectorID)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert vendor: %w", translate(err))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// UpdateVendor overwrites every field of the vendor with the given id,
// keeping its creation timestamp. A blank CV keeps the stored one.
func (r *PostgresVendorRepository) UpdateVendor(ctx context.Context, id int64, v models.Vendor) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	sectorID, err := ensureSector(ctx, tx, v.Sector)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, updateVendorByID, append(vendorArgs(v, sectorID), id)...)
	if err != nil {
		return fmt.Errorf("update vendor: %w", translate(err))
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("update vendor %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetVendor fetches a single vendor by id.
func (r *PostgresVendorRepository) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	row := r.DB.QueryRowContext(ctx, selectVendors+" WHERE v.id = $1", id)
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vendor %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return &v, nil
}

// SearchVendors returns the vendors matching every filter that is set.
// Name is a substring match, the other filters are exact.
func (r *PostgresVendorRepository) SearchVendors(ctx context.Context, f models.VendorFilter) ([]models.Vendor, error) {
	stmt, args := query.Select(selectVendors).
		WhereIf("v.nome_cognome", query.Contains, f.Name).
		WhereIf("v.citta", query.Eq, f.City).
		WhereIf("s.nome", query.Eq, f.Sector).
		WhereIf("v.partita_iva", query.Eq, f.VATRegistered).
		WhereIf("v.agente_isenarco", query.Eq, f.Enasarco).
		OrderBy("v.id").
		Build()

	rows, err := r.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("SearchVendors: %w", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SearchVendors: %w", err)
	}
	return vendors, nil
}

// DeleteVendor physically removes the vendor with the given id.
// It returns models.ErrNotFound when no such vendor exists.
func (r *PostgresVendorRepository) DeleteVendor(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM venditori WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete vendor %d: %w", id, err)
	}
	return nil
}

// SetCV stores the résumé reference of a vendor.
func (r *PostgresVendorRepository) SetCV(ctx context.Context, id int64, ref string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE venditori SET cv = NULLIF($1, '') WHERE id = $2`, ref, id)
	if err != nil {
		return fmt.Errorf("set cv: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("set cv %d: %w", id, err)
	}
	return nil
}

// ExistingEmails returns the subset of emails already stored.
func (r *PostgresVendorRepository) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	return existingEmails(ctx, r.DB, emails)
}

// BulkUpsert stores many vendors in one transaction. Vendors whose email is
// new are inserted; the others are updated when overwrite is set and
// skipped otherwise.
func (r *PostgresVendorRepository) BulkUpsert(ctx context.Context, vendors []models.Vendor, overwrite bool) (models.BulkResult, error) {
	var result models.BulkResult

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	emails := make([]string, 0, len(vendors))
	for _, v := range vendors {
		emails = append(emails, v.Email)
	}
	existing, err := existingEmails(ctx, tx, emails)
	if err != nil {
		return result, err
	}

	for _, v := range vendors {
		if existing[v.Email] && !overwrite {
			result.Skipped++
			continue
		}

		sectorID, err := ensureSector(ctx, tx, v.Sector)
		if err != nil {
			return models.BulkResult{}, err
		}

		if existing[v.Email] {
			if _, err := tx.ExecContext(ctx, updateVendorByEmail, vendorArgs(v, sectorID)...); err != nil {
				return models.BulkResult{}, fmt.Errorf("update %s: %w", v.Email, translate(err))
			}
			result.Updated++
			continue
		}

		if _, err := tx.ExecContext(ctx, insertVendor, vendorArgs(v, sectorID)...); err != nil {
			return models.BulkResult{}, fmt.Errorf("insert %s: %w", v.Email, translate(err))
		}
		existing[v.Email] = true
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return models.BulkResult{}, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

// ListCities returns the distinct vendor cities in alphabetical order.
func (r *PostgresVendorRepository) ListCities(ctx context.Context) ([]string, error) {
	return listStrings(ctx, r.DB, `SELECT DISTINCT citta FROM venditori ORDER BY citta ASC`)
}

func ensureSector(ctx context.Context, q querier, name string) (int64, error) {
	if _, err := q.ExecContext(ctx, `INSERT INTO settori (nome) VALUES ($1) ON CONFLICT (nome) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("ensure sector: %w", translate(err))
	}
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT id FROM settori WHERE nome = $1`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("sector id: %w", err)
	}
	return id, nil
}

func existingEmails(ctx context.Context, q querier, emails []string) (map[string]bool, error) {
	found := make(map[string]bool, len(emails))
	if len(emails) == 0 {
		return found, nil
	}

	rows, err := q.QueryContext(ctx, `SELECT email FROM venditori WHERE email = ANY($1)`, pq.Array(emails))
	if err != nil {
		return nil, fmt.Errorf("existing emails: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		found[email] = true
	}
	return found, rows.Err()
}

func listStrings(ctx context.Context, q querier, stmt string) ([]string, error) {
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVendor(s scanner) (models.Vendor, error) {
	var v models.Vendor
	err := s.Scan(&v.ID, &v.FullName, &v.Email, &v.Phone, &v.City,
		&v.SalesExperience, &v.BirthYear, &v.Sector, &v.VATRegistered, &v.Enasarco,
		&v.CV, &v.Notes, &v.CreatedAt)
	return v, err
}

func vendorArgs(v models.Vendor, sectorID int64) []any {
	return []any{
		v.FullName, v.Email, v.Phone, v.City, v.SalesExperience, v.BirthYear,
		sectorID, v.VATRegistered, v.Enasarco, v.CV, v.Notes,
	}
}
