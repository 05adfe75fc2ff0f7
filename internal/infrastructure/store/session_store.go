package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-storefront/internal/readmodel"
)

// SessionStore keeps issued refresh sessions keyed by the refresh token's
// hash. Sessions are not derived from events, so a durable deployment needs
// a durable SessionStore alongside its event store.
type SessionStore interface {
	Save(ctx context.Context, s *readmodel.SessionReadModel) error
	// Take removes the session and returns it. Concurrent callers with the
	// same id see it at most once.
	Take(ctx context.Context, id string) (*readmodel.SessionReadModel, bool, error)
}

// MemorySessionStore keeps sessions in the read store's sessions collection.
type MemorySessionStore struct {
	readStore ReadStoreInterface
}

func NewMemorySessionStore(readStore ReadStoreInterface) *MemorySessionStore {
	return &MemorySessionStore{readStore: readStore}
}

func (m *MemorySessionStore) Save(_ context.Context, s *readmodel.SessionReadModel) error {
	m.readStore.Set(CollectionSessions, s.ID, s)
	return nil
}

func (m *MemorySessionStore) Take(_ context.Context, id string) (*readmodel.SessionReadModel, bool, error) {
	data, ok := m.readStore.Take(CollectionSessions, id)
	if !ok {
		return nil, false, nil
	}
	return data.(*readmodel.SessionReadModel), true, nil
}

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	refresh_token_hash TEXT NOT NULL,
	expires_at         TIMESTAMPTZ NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	user_agent         TEXT NOT NULL DEFAULT ''
)`

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at, user_agent`

// PostgresSessionStore stores refresh sessions in the user_sessions table so
// they survive a restart.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

// Migrate creates the user_sessions table.
func (ps *PostgresSessionStore) Migrate(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, sessionsSchema); err != nil {
		return fmt.Errorf("failed to create user_sessions table: %w", err)
	}
	return nil
}

func (ps *PostgresSessionStore) Save(ctx context.Context, s *readmodel.SessionReadModel) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO user_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			refresh_token_hash = EXCLUDED.refresh_token_hash,
			expires_at = EXCLUDED.expires_at`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt, s.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Take deletes the row and returns it in one statement.
func (ps *PostgresSessionStore) Take(ctx context.Context, id string) (*readmodel.SessionReadModel, bool, error) {
	row := ps.db.QueryRowContext(ctx, `DELETE FROM user_sessions WHERE id = $1 RETURNING `+sessionColumns, id)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*readmodel.SessionReadModel, bool, error) {
	var s readmodel.SessionReadModel
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt, &s.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read session: %w", err)
	}
	return &s, true, nil
}
