// Package eventstore implements the append-only, Postgres-backed Event
// Store (spec §4.1): append/query_range/find_last_by_kind/
// find_most_recent_command, plus LISTEN/NOTIFY wiring for mailbox and
// agent-lifecycle wake-ups.
//
// Grounded on codeready-toolchain/tarsy's pkg/events/{publisher,listener}.go
// for the pgx pool + dedicated LISTEN connection pattern, adapted to the
// spec's single messages event-log table instead of tarsy's multi-channel
// event schema.
package eventstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Kind enumerates the event kinds spec §3 validates against.
type Kind string

const (
	KindClear       Kind = "clear"
	KindSystem      Kind = "system"
	KindUser        Kind = "user"
	KindAssistant   Kind = "assistant"
	KindToolCall    Kind = "tool_call"
	KindToolResult  Kind = "tool_result"
	KindMark        Kind = "mark"
	KindRewind      Kind = "rewind"
	KindAgentKilled Kind = "agent_killed"
	KindCommand     Kind = "command"
	KindFork        Kind = "fork"
	KindUsage       Kind = "usage"
	KindInterrupted Kind = "interrupted"
)

var validKinds = map[Kind]bool{
	KindClear: true, KindSystem: true, KindUser: true, KindAssistant: true,
	KindToolCall: true, KindToolResult: true, KindMark: true, KindRewind: true,
	KindAgentKilled: true, KindCommand: true, KindFork: true, KindUsage: true,
	KindInterrupted: true,
}

// Valid reports whether k is one of the enumerated event kinds.
func (k Kind) Valid() bool { return validKinds[k] }

// Event is a single row of the append-only log. The id order IS the agent's
// history order.
type Event struct {
	ID        int64
	SessionID int64
	AgentUUID *string
	Kind      Kind
	Content   *string
	Data      json.RawMessage
	CreatedAt time.Time
}

// Store is the Postgres-backed Event Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying pool so collaborating stores (registry,
// mailbox) can share it and begin transactions spanning multiple stores.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// BeginTx starts a transaction against the shared pool.
func (s *Store) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.DbConnect, "begin transaction", err)
	}
	return tx, nil
}

// Append inserts a new event and returns its id. tx may be nil to run
// against the shared pool directly, or a transaction begun via BeginTx when
// the caller needs the insert and a subsequent Notify to commit atomically.
func (s *Store) Append(ctx context.Context, tx pgx.Tx, sessionID int64, agentUUID *string, kind Kind, content *string, data any) (int64, error) {
	if !kind.Valid() {
		return 0, ikerr.Newf(ikerr.InvalidArg, "invalid event kind %q", kind)
	}

	var dataJSON []byte
	if data != nil {
		var err error
		dataJSON, err = json.Marshal(data)
		if err != nil {
			return 0, ikerr.Wrap(ikerr.Parse, "marshal event data", err)
		}
	}

	q := queryRower(tx, s.pool)
	var id int64
	row := q.QueryRow(ctx,
		`INSERT INTO messages (session_id, agent_uuid, kind, content, data) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		sessionID, agentUUID, string(kind), content, nullableJSON(dataJSON))
	if err := row.Scan(&id); err != nil {
		return 0, ikerr.Wrap(ikerr.IO, "append event", err)
	}
	return id, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func queryRower(tx pgx.Tx, pool *pgxpool.Pool) rowQuerier {
	if tx != nil {
		return tx
	}
	return pool
}

// Notify fires a Postgres NOTIFY on channel. Per the spec's contract,
// notifications only fire once the writer is not inside a transaction;
// callers that batch work in a transaction should pass that same tx so the
// notify commits atomically with the write that justified it.
func (s *Store) Notify(ctx context.Context, tx pgx.Tx, channel, payload string) error {
	var err error
	if tx != nil {
		_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, payload)
	} else {
		_, err = s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, payload)
	}
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "notify", err)
	}
	return nil
}

// QueryRange returns every event on agentUUID's log with id in
// (startExclusive, endInclusive]. endInclusive == 0 means unbounded ("to
// end"), the sentinel used by the replay engine for a leaf's own slice.
func (s *Store) QueryRange(ctx context.Context, agentUUID string, startExclusive, endInclusive int64) ([]Event, error) {
	var rows pgx.Rows
	var err error
	if endInclusive == 0 {
		rows, err = s.pool.Query(ctx,
			`SELECT id, session_id, agent_uuid, kind, content, data, created_at FROM messages
			 WHERE agent_uuid = $1 AND id > $2 ORDER BY id ASC`,
			agentUUID, startExclusive)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, session_id, agent_uuid, kind, content, data, created_at FROM messages
			 WHERE agent_uuid = $1 AND id > $2 AND id <= $3 ORDER BY id ASC`,
			agentUUID, startExclusive, endInclusive)
	}
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "query event range", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.AgentUUID, &kind, &e.Content, &e.Data, &e.CreatedAt); err != nil {
			return nil, ikerr.Wrap(ikerr.IO, "scan event", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "iterate event range", err)
	}
	return events, nil
}

// FindLastByKind returns the id of the most recent event of kind on
// agentUUID's log with id <= maxID (maxID == 0 means unbounded), or 0 if
// none exists.
func (s *Store) FindLastByKind(ctx context.Context, agentUUID string, kind Kind, maxID int64) (int64, error) {
	var id int64
	var row pgx.Row
	if maxID == 0 {
		row = s.pool.QueryRow(ctx,
			`SELECT id FROM messages WHERE agent_uuid = $1 AND kind = $2 ORDER BY id DESC LIMIT 1`,
			agentUUID, string(kind))
	} else {
		row = s.pool.QueryRow(ctx,
			`SELECT id FROM messages WHERE agent_uuid = $1 AND kind = $2 AND id <= $3 ORDER BY id DESC LIMIT 1`,
			agentUUID, string(kind), maxID)
	}
	if err := row.Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, ikerr.Wrap(ikerr.IO, "find last by kind", err)
	}
	return id, nil
}

// FindMostRecentCommand returns the data payload of the most recent
// `command` event on agentUUID's log whose data.command == commandName.
func (s *Store) FindMostRecentCommand(ctx context.Context, agentUUID, commandName string) (json.RawMessage, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT data FROM messages WHERE agent_uuid = $1 AND kind = $2 AND data->>'command' = $3
		 ORDER BY id DESC LIMIT 1`,
		agentUUID, string(KindCommand), commandName)
	var data json.RawMessage
	if err := row.Scan(&data); err != nil {
		if err == pgx.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, ikerr.Wrap(ikerr.IO, "find most recent command", err)
	}
	return data, true, nil
}

// Connect opens a fresh raw connection from the pool's configuration, for
// exclusive use by a LISTEN loop (the Wait Coordinator owns one such
// connection per blocking call, never sharing it with pooled query traffic).
func (s *Store) Connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.ConnectConfig(ctx, s.pool.Config().ConnConfig)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.DbConnect, "open listen connection", err)
	}
	return conn, nil
}
