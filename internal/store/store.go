// Package store persists accepted registry records in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/registry"
)

// ErrNotFound is returned by Get for a name with no stored record.
var ErrNotFound = errors.New("store: service not found")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path. ":memory:" keeps a
// private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps a ":memory:" database on a single connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `CREATE TABLE IF NOT EXISTS services (
		name       TEXT PRIMARY KEY,
		version    TEXT NOT NULL,
		backends   TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert stores svc unless the stored record already carries an equal or
// newer version. It reports whether the row changed.
func (s *Store) Upsert(ctx context.Context, svc registry.Service) (bool, error) {
	if svc.IsSentinel() {
		return false, nil
	}
	backends, err := json.Marshal(svc.Backends)
	if err != nil {
		return false, err
	}
	query := `INSERT INTO services (name, version, backends, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			backends = excluded.backends,
			updated_at = excluded.updated_at
		WHERE excluded.version > services.version`
	res, err := s.db.ExecContext(ctx, query,
		svc.Name, svc.Version.Encode(), string(backends), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("upsert %q: %w", svc.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the stored record for name.
func (s *Store) Get(ctx context.Context, name string) (registry.Service, error) {
	query := `SELECT name, version, backends FROM services WHERE name = ?`
	svc, err := scanService(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return registry.Service{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return svc, err
}

// All returns every stored record ordered by name.
func (s *Store) All(ctx context.Context) ([]registry.Service, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, version, backends FROM services ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []registry.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanService(row scanner) (registry.Service, error) {
	var name, version, backends string
	if err := row.Scan(&name, &version, &backends); err != nil {
		return registry.Service{}, err
	}
	ts, err := hlc.ParseTimestamp(version)
	if err != nil {
		return registry.Service{}, fmt.Errorf("row %q: %w", name, err)
	}
	svc := registry.Service{Name: name, Version: ts}
	if err := json.Unmarshal([]byte(backends), &svc.Backends); err != nil {
		return registry.Service{}, fmt.Errorf("row %q backends: %w", name, err)
	}
	return svc, nil
}
