package sqlite

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS submissions (
		ref TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Store) Get(ctx context.Context, ref string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM submissions WHERE ref = ?`, ref).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return payload, true, nil
}

func (s *Store) Put(ctx context.Context, ref, payload string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO submissions (ref, payload) VALUES (?, ?) ON CONFLICT(ref) DO UPDATE SET payload = excluded.payload`, ref, payload)
	return err
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM submissions WHERE ref = ?`, ref)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
