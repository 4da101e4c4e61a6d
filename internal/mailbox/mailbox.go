// Package mailbox implements the per-recipient FIFO mail queue (spec §4.3).
package mailbox

import (
	"fmt"
	"strings"
	"time"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/registry"
)

// Mail is a single pending message.
type Mail struct {
	ID        int64
	SessionID int64
	From      string
	To        string
	Body      string
	Timestamp int64
}

// Mailbox is the Postgres-backed mailbox.
type Mailbox struct {
	pool *pgxpool.Pool
	reg  *registry.Registry
}

// New wraps a connection pool and the registry used to validate recipients.
func New(pool *pgxpool.Pool, reg *registry.Registry) *Mailbox {
	return &Mailbox{pool: pool, reg: reg}
}

// ChannelFor returns the LISTEN/NOTIFY channel name for a recipient's
// mailbox, per spec §6's "mail:<uuid>" convention.
func ChannelFor(to string) string {
	return "mail:" + to
}

// Send validates the recipient, inserts the mail row, and fires
// notify("mail:<to>") in the same transaction so delivery and wake-up
// commit atomically.
func (m *Mailbox) Send(ctx context.Context, sessionID int64, from, to, body string) (int64, error) {
	if strings.TrimSpace(body) == "" {
		return 0, ikerr.New(ikerr.InvalidArg, "Message body cannot be empty")
	}

	recipient, err := m.reg.Get(ctx, to)
	if err != nil {
		return 0, err
	}
	if recipient.Status != registry.StatusRunning {
		return 0, ikerr.New(ikerr.InvalidArg, "Recipient agent is dead")
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return 0, ikerr.Wrap(ikerr.DbConnect, "begin mail transaction", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	row := tx.QueryRow(ctx,
		`INSERT INTO mail (session_id, from_uuid, to_uuid, body, timestamp) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		sessionID, from, to, body, time.Now().Unix())
	if err := row.Scan(&id); err != nil {
		return 0, ikerr.Wrap(ikerr.IO, "insert mail", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChannelFor(to), fmt.Sprintf("%d", id)); err != nil {
		return 0, ikerr.Wrap(ikerr.IO, "notify mail", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, ikerr.Wrap(ikerr.IO, "commit mail transaction", err)
	}
	return id, nil
}

// ConsumeNext atomically returns and deletes the oldest pending mail for to,
// regardless of sender. Returns ok=false if the mailbox is empty.
func (m *Mailbox) ConsumeNext(ctx context.Context, sessionID int64, to string) (Mail, bool, error) {
	row := m.pool.QueryRow(ctx,
		`DELETE FROM mail WHERE id = (
			SELECT id FROM mail WHERE session_id = $1 AND to_uuid = $2 ORDER BY id ASC LIMIT 1
		) RETURNING id, session_id, from_uuid, to_uuid, body, timestamp`,
		sessionID, to)
	return scanOneMail(row)
}

// ConsumeFrom atomically returns and deletes the oldest pending mail sent by
// `from` to `to`. Returns ok=false if no such mail is pending.
func (m *Mailbox) ConsumeFrom(ctx context.Context, sessionID int64, to, from string) (Mail, bool, error) {
	row := m.pool.QueryRow(ctx,
		`DELETE FROM mail WHERE id = (
			SELECT id FROM mail WHERE session_id = $1 AND to_uuid = $2 AND from_uuid = $3 ORDER BY id ASC LIMIT 1
		) RETURNING id, session_id, from_uuid, to_uuid, body, timestamp`,
		sessionID, to, from)
	return scanOneMail(row)
}

// Filter describes a non-consuming view of the mailbox, used by
// /filter-mail (spec §4.7).
type Filter struct {
	From  string // empty means any sender
	Since int64  // unix seconds; 0 means no lower bound
}

// PeekFilter lists pending mail for `to` matching filter without consuming
// it, newest first.
func (m *Mailbox) PeekFilter(ctx context.Context, sessionID int64, to string, filter Filter) ([]Mail, error) {
	query := `SELECT id, session_id, from_uuid, to_uuid, body, timestamp FROM mail WHERE session_id = $1 AND to_uuid = $2`
	args := []any{sessionID, to}
	if filter.From != "" {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND from_uuid = $%d", len(args))
	}
	if filter.Since > 0 {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	query += " ORDER BY id DESC"

	rows, err := m.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "peek mail", err)
	}
	defer rows.Close()

	var out []Mail
	for rows.Next() {
		var mail Mail
		if err := rows.Scan(&mail.ID, &mail.SessionID, &mail.From, &mail.To, &mail.Body, &mail.Timestamp); err != nil {
			return nil, ikerr.Wrap(ikerr.IO, "scan mail", err)
		}
		out = append(out, mail)
	}
	if err := rows.Err(); err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "iterate mail", err)
	}
	return out, nil
}

func scanOneMail(row pgx.Row) (Mail, bool, error) {
	var mail Mail
	if err := row.Scan(&mail.ID, &mail.SessionID, &mail.From, &mail.To, &mail.Body, &mail.Timestamp); err != nil {
		if err == pgx.ErrNoRows {
			return Mail{}, false, nil
		}
		return Mail{}, false, ikerr.Wrap(ikerr.IO, "consume mail", err)
	}
	return mail, true, nil
}
