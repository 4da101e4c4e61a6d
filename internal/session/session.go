// Package session manages the top-level Session row (spec §3): the
// grouping every agent, event, and mail row hangs off of. "The active
// session is the unique open one" (spec §3) — Open starts a new one,
// FindActive resumes the most recent unclosed one, Close stamps ended_at
// on process shutdown (spec §5).
package session

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Session is a single row of the sessions table.
type Session struct {
	ID        int64
	Name      string
	CreatedAt int64
	EndedAt   *int64
}

// Store is the Postgres-backed session repository.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open inserts and returns a brand-new session row.
func (s *Store) Open(ctx context.Context, name string) (*Session, error) {
	now := time.Now().Unix()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (name, created_at) VALUES ($1, $2) RETURNING id`,
		name, now,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "insert session", err)
	}
	return &Session{ID: id, Name: name, CreatedAt: now}, nil
}

// FindActive returns the most recently created session with no ended_at,
// or nil if every prior session was closed cleanly.
func (s *Store) FindActive(ctx context.Context) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, ended_at FROM sessions WHERE ended_at IS NULL ORDER BY id DESC LIMIT 1`,
	)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.Name, &sess.CreatedAt, &sess.EndedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, ikerr.Wrap(ikerr.IO, "find active session", err)
	}
	return &sess, nil
}

// Close stamps ended_at on the given session, marking it no longer active
// (spec §5 Shutdown: "closes the current session row (ended_at = now)").
func (s *Store) Close(ctx context.Context, id int64) error {
	now := time.Now().Unix()
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET ended_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "close session", err)
	}
	return nil
}
