package decision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"civic/pkg/platform/sentinel"
)

// PostgresStore persists decision records in the decisions table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the decisions table if missing. Safe to call on every
// startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS decisions (
			id       TEXT PRIMARY KEY,
			status   SMALLINT NOT NULL,
			decision SMALLINT NOT NULL,
			created  TIMESTAMPTZ NOT NULL,
			updated  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure decisions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO decisions (id, status, decision, created, updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status   = EXCLUDED.status,
			decision = EXCLUDED.decision,
			updated  = EXCLUDED.updated
	`
	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.Status, rec.Decision, rec.Created, rec.Updated)
	if err != nil {
		return fmt.Errorf("put decision record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, decision, created, updated FROM decisions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.Status, &rec.Decision, &rec.Created, &rec.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get decision record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete decision record: %w", err)
	}
	return nil
}
