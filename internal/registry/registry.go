// Package registry implements the Agent Registry (spec §4.2): the
// persistent record of every agent ever created.
package registry

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Status is an agent's lifecycle state.
type Status string

const (
	StatusRunning Status = "running"
	StatusDead    Status = "dead"
)

// Agent is a single registry row.
type Agent struct {
	UUID          string
	Name          *string
	ParentUUID    *string
	CreatedAt     int64
	ForkMessageID int64
	Status        Status
	EndedAt       *int64
	Idle          bool
	SessionID     int64
	Model         string
	Provider      string
	ThinkingLevel string
}

// Registry is the Postgres-backed Agent Registry.
type Registry struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Registry {
	return &Registry{pool: pool}
}

// Insert records a newly created agent. ForkMessageID > 0 iff ParentUUID is
// set, per spec §3's registry invariant; callers (the /fork command) are
// responsible for upholding it.
func (r *Registry) Insert(ctx context.Context, tx pgx.Tx, a Agent) error {
	exec := execer(tx, r.pool)
	_, err := exec.Exec(ctx,
		`INSERT INTO agents (uuid, name, parent_uuid, created_at, fork_message_id, status, ended_at, idle, session_id, model, provider, thinking_level)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.UUID, a.Name, a.ParentUUID, a.CreatedAt, a.ForkMessageID, string(a.Status), a.EndedAt, a.Idle, a.SessionID, a.Model, a.Provider, a.ThinkingLevel)
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "insert agent", err)
	}
	return nil
}

// MarkDead sets status=dead and ended_at=endedAt atomically. A dead agent is
// never resurrected: only a running row is updated, so a second call for the
// same uuid changes nothing and returns InvalidArg, keeping the first
// endedAt.
func (r *Registry) MarkDead(ctx context.Context, tx pgx.Tx, uuid string, endedAt int64) error {
	exec := execer(tx, r.pool)
	tag, err := exec.Exec(ctx,
		`UPDATE agents SET status = $1, ended_at = $2 WHERE uuid = $3 AND status = $4`,
		string(StatusDead), endedAt, uuid, string(StatusRunning))
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "mark agent dead", err)
	}
	if tag.RowsAffected() == 0 {
		return ikerr.Newf(ikerr.InvalidArg, "agent %s not found or already dead", uuid)
	}
	return nil
}

// SetIdle updates the idle flag.
func (r *Registry) SetIdle(ctx context.Context, uuid string, idle bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE agents SET idle = $1 WHERE uuid = $2`, idle, uuid)
	if err != nil {
		return ikerr.Wrap(ikerr.IO, "set idle", err)
	}
	return nil
}

// Get fetches a single agent by uuid.
func (r *Registry) Get(ctx context.Context, uuid string) (*Agent, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT uuid, name, parent_uuid, created_at, fork_message_id, status, ended_at, idle, session_id, model, provider, thinking_level
		 FROM agents WHERE uuid = $1`, uuid)
	var a Agent
	var status string
	if err := row.Scan(&a.UUID, &a.Name, &a.ParentUUID, &a.CreatedAt, &a.ForkMessageID, &status, &a.EndedAt, &a.Idle, &a.SessionID, &a.Model, &a.Provider, &a.ThinkingLevel); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ikerr.Newf(ikerr.InvalidArg, "agent %s not found", uuid)
		}
		return nil, ikerr.Wrap(ikerr.IO, "get agent", err)
	}
	a.Status = Status(status)
	return &a, nil
}

// GetLastEventID returns the id of the most recent message row on the
// agent's own log, or 0 if it has none yet.
func (r *Registry) GetLastEventID(ctx context.Context, uuid string) (int64, error) {
	row := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM messages WHERE agent_uuid = $1`, uuid)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, ikerr.Wrap(ikerr.IO, "get last event id", err)
	}
	return id, nil
}

// FindChildren returns every agent whose parent_uuid == uuid.
func (r *Registry) FindChildren(ctx context.Context, uuid string) ([]Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT uuid, name, parent_uuid, created_at, fork_message_id, status, ended_at, idle, session_id, model, provider, thinking_level
		 FROM agents WHERE parent_uuid = $1 ORDER BY created_at ASC`, uuid)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "find children", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

// ListAll returns every agent belonging to session, in creation order.
func (r *Registry) ListAll(ctx context.Context, sessionID int64) ([]Agent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT uuid, name, parent_uuid, created_at, fork_message_id, status, ended_at, idle, session_id, model, provider, thinking_level
		 FROM agents WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "list agents", err)
	}
	defer rows.Close()
	return scanAgents(rows)
}

// Descendants returns every transitive descendant of uuid (children,
// grandchildren, ...), used by cascade-kill (spec §4.2, §4.7 /kill).
func (r *Registry) Descendants(ctx context.Context, uuid string) ([]Agent, error) {
	var all []Agent
	frontier := []string{uuid}
	for len(frontier) > 0 {
		var next []string
		for _, id := range frontier {
			children, err := r.FindChildren(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, c := range children {
				all = append(all, c)
				next = append(next, c.UUID)
			}
		}
		frontier = next
	}
	return all, nil
}

func scanAgents(rows pgx.Rows) ([]Agent, error) {
	var agents []Agent
	for rows.Next() {
		var a Agent
		var status string
		if err := rows.Scan(&a.UUID, &a.Name, &a.ParentUUID, &a.CreatedAt, &a.ForkMessageID, &status, &a.EndedAt, &a.Idle, &a.SessionID, &a.Model, &a.Provider, &a.ThinkingLevel); err != nil {
			return nil, ikerr.Wrap(ikerr.IO, "scan agent", err)
		}
		a.Status = Status(status)
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "iterate agents", err)
	}
	return agents, nil
}

type execTx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func execer(tx pgx.Tx, pool *pgxpool.Pool) execTx {
	if tx != nil {
		return tx
	}
	return pool
}
