// Package db opens the PostgreSQL connection and creates the registry schema.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS settori (
    id SERIAL PRIMARY KEY,
    nome VARCHAR(255) UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS venditori (
    id SERIAL PRIMARY KEY,
    nome_cognome VARCHAR(255) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    telefono VARCHAR(50),
    citta VARCHAR(255) NOT NULL,
    esperienza_vendita INTEGER NOT NULL DEFAULT 0 CHECK (esperienza_vendita >= 0),
    anno_nascita INTEGER,
    settore_id INTEGER NOT NULL REFERENCES settori(id),
    partita_iva TEXT NOT NULL CHECK (partita_iva IN ('Sì', 'No')),
    agente_isenarco TEXT NOT NULL CHECK (agente_isenarco IN ('Sì', 'No')),
    cv TEXT,
    note TEXT,
    data_creazione TIMESTAMP NOT NULL DEFAULT NOW()
);
`

// InitPostgres opens a connection pool for dsn, checks it and makes sure
// the settori and venditori tables exist.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := EnsureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the settori and venditori tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
