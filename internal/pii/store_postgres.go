package pii

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"civic/pkg/platform/sentinel"
)

// PostgresStore persists encrypted PII records in the pii table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the pii table if missing. Safe to call on every
// startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pii (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			full_name     TEXT NOT NULL,
			date_of_birth TEXT NOT NULL,
			address       TEXT NOT NULL,
			phone_number  TEXT NOT NULL,
			created       TIMESTAMPTZ NOT NULL,
			updated       TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure pii schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO pii (id, username, full_name, date_of_birth, address, phone_number, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username      = EXCLUDED.username,
			full_name     = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			address       = EXCLUDED.address,
			phone_number  = EXCLUDED.phone_number,
			updated       = EXCLUDED.updated
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Username, rec.FullName, rec.DateOfBirth, rec.Address, rec.PhoneNumber,
		rec.Created, rec.Updated,
	)
	if err != nil {
		return fmt.Errorf("put pii record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, date_of_birth, address, phone_number, created, updated
		FROM pii WHERE id = $1
	`, id).Scan(
		&rec.ID, &rec.Username, &rec.FullName, &rec.DateOfBirth, &rec.Address, &rec.PhoneNumber,
		&rec.Created, &rec.Updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get pii record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pii WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pii record: %w", err)
	}
	return nil
}
