package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect struct {
	name   string
	get    string
	upsert string
	delete string
	create string
}

var (
	sqliteDialect = dialect{
		name:   "sqlite",
		get:    `SELECT value FROM client_storage WHERE key = ?`,
		upsert: `INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		delete: `DELETE FROM client_storage WHERE key = ?`,
		create: `CREATE TABLE IF NOT EXISTS client_storage (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)`,
	}
	postgresDialect = dialect{
		name:   "postgres",
		get:    `SELECT value FROM client_storage WHERE key = $1`,
		upsert: `INSERT INTO client_storage (key, value, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		delete: `DELETE FROM client_storage WHERE key = $1`,
		create: `CREATE TABLE IF NOT EXISTS client_storage (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL)`,
	}
)

// SQLStorage persists values in a client_storage table.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) a SQLite database file and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; the driver serializes anyway
	db.SetMaxOpenConns(1)

	s := &SQLStorage{db: db, dialect: sqliteDialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ConnectPostgres connects to PostgreSQL and migrates the storage table.
func ConnectPostgres(ctx context.Context, connStr string) (*SQLStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLStorage{db: db, dialect: postgresDialect}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the storage table if it does not exist.
func (s *SQLStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.create); err != nil {
		return fmt.Errorf("failed to migrate %s storage: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, key, value, time.Now().UTC())
	return err
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.delete, key)
	return err
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
