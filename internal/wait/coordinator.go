// Package wait implements the Wait Coordinator (spec §4.8): reactive
// next-message and fan-in waits run on a dedicated worker goroutine with
// its own Event Store connection, grounded on tarsy's NotifyListener
// receive-loop (pkg/events/listener.go) — a short-timeout
// WaitForNotification poll loop instead of a single indefinite wait, so
// the interrupted flag and wall-clock deadline are both checked promptly.
package wait

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/mailbox"
	"github.com/dohr-michael/ikigai/internal/registry"
)

// pollInterval bounds how long a single WaitForNotification call blocks,
// so the loop wakes often enough to observe the interrupted flag and the
// overall deadline even with no NOTIFY traffic.
const pollInterval = 100 * time.Millisecond

// WaitResult is the outcome of Next.
type WaitResult struct {
	From        string
	Body        string
	TimedOut    bool
	Interrupted bool
}

// EntryStatus is a fan-in target's resolution state.
type EntryStatus string

const (
	EntryPending  EntryStatus = "pending"
	EntryReceived EntryStatus = "received"
	EntryIdle     EntryStatus = "idle"
	EntryDead     EntryStatus = "dead"
	EntryTimeout  EntryStatus = "timeout"
)

// Entry is one fan-in target's current state.
type Entry struct {
	Target    string
	AgentName string
	Status    EntryStatus
	Body      string
	From      string
}

// FanInResult is the outcome of FanIn.
type FanInResult struct {
	Entries     []Entry
	Interrupted bool
}

// Coordinator runs waits against the Event Store's LISTEN/NOTIFY channel.
type Coordinator struct {
	store       *eventstore.Store
	mail        *mailbox.Mailbox
	reg         *registry.Registry
	interrupted *atomic.Bool
}

// New builds a Coordinator sharing the process-wide interrupted flag (set
// by ESC in the input parser, per spec §4.8's cancellation contract).
func New(store *eventstore.Store, mail *mailbox.Mailbox, reg *registry.Registry, interrupted *atomic.Bool) *Coordinator {
	return &Coordinator{store: store, mail: mail, reg: reg, interrupted: interrupted}
}

// Next implements next(timeout_sec, me): block until a message addressed
// to me arrives, the timeout elapses, or the wait is interrupted.
func (c *Coordinator) Next(ctx context.Context, timeoutSec int, sessionID int64, me string) (WaitResult, error) {
	conn, err := c.store.Connect(ctx)
	if err != nil {
		return WaitResult{}, err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{mailbox.ChannelFor(me)}.Sanitize()); err != nil {
		return WaitResult{}, ikerr.Wrap(ikerr.IO, "listen mailbox channel", err)
	}

	deadline := time.Now().Add(time.Duration(timeoutSec) * time.Second)
	for {
		if c.interrupted.Load() {
			return WaitResult{Interrupted: true}, nil
		}
		if mail, ok, err := c.mail.ConsumeNext(ctx, sessionID, me); err != nil {
			return WaitResult{}, err
		} else if ok {
			return WaitResult{From: mail.From, Body: mail.Body}, nil
		}
		if !time.Now().Before(deadline) {
			return WaitResult{TimedOut: true}, nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, nextTick(deadline))
		_, err := conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil && ctx.Err() != nil {
			return WaitResult{}, ctx.Err()
		}
		// Any other WaitForNotification outcome (a real notification, the
		// per-tick timeout, or a transient error) falls through to the top
		// of the loop to recheck interrupted/deadline/mailbox state.
	}
}

// FanIn implements fanin(timeout_sec, me, targets): wait until every
// target resolves (received/idle/dead) or the timeout elapses.
func (c *Coordinator) FanIn(ctx context.Context, timeoutSec int, sessionID int64, me string, targets []string) (FanInResult, error) {
	conn, err := c.store.Connect(ctx)
	if err != nil {
		return FanInResult{}, err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{mailbox.ChannelFor(me)}.Sanitize()); err != nil {
		return FanInResult{}, ikerr.Wrap(ikerr.IO, "listen mailbox channel", err)
	}
	for _, target := range targets {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{lifecycleChannel(target)}.Sanitize()); err != nil {
			return FanInResult{}, ikerr.Wrap(ikerr.IO, "listen lifecycle channel", err)
		}
	}

	entries := make(map[string]*Entry, len(targets))
	for _, t := range targets {
		entries[t] = &Entry{Target: t, Status: EntryPending}
	}

	deadline := time.Now().Add(time.Duration(timeoutSec) * time.Second)
	for {
		if c.interrupted.Load() {
			return FanInResult{Entries: sortedEntries(entries, targets), Interrupted: true}, nil
		}
		if err := c.pollEntries(ctx, sessionID, me, entries); err != nil {
			return FanInResult{}, err
		}
		if allResolved(entries) {
			return FanInResult{Entries: sortedEntries(entries, targets)}, nil
		}
		if !time.Now().Before(deadline) {
			for _, e := range entries {
				if e.Status == EntryPending {
					e.Status = EntryTimeout
				}
			}
			return FanInResult{Entries: sortedEntries(entries, targets)}, nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, nextTick(deadline))
		_, err := conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil && ctx.Err() != nil {
			return FanInResult{}, ctx.Err()
		}
	}
}

func (c *Coordinator) pollEntries(ctx context.Context, sessionID int64, me string, entries map[string]*Entry) error {
	for target, e := range entries {
		if e.Status != EntryPending {
			continue
		}
		agent, err := c.reg.Get(ctx, target)
		if err != nil {
			e.Status = EntryDead
			continue
		}
		e.AgentName = agentDisplayName(agent)
		if agent.Status == registry.StatusDead {
			e.Status = EntryDead
			continue
		}
		if agent.Idle {
			e.Status = EntryIdle
			continue
		}
		mail, ok, err := c.mail.ConsumeFrom(ctx, sessionID, me, target)
		if err != nil {
			return err
		}
		if ok {
			e.Status = EntryReceived
			e.From = mail.From
			e.Body = mail.Body
		}
	}
	return nil
}

func agentDisplayName(a *registry.Agent) string {
	if a.Name == nil || *a.Name == "" {
		return "undefined"
	}
	return *a.Name
}

func lifecycleChannel(uuid string) string {
	return "agent_lifecycle:" + uuid
}

func allResolved(entries map[string]*Entry) bool {
	for _, e := range entries {
		if e.Status == EntryPending {
			return false
		}
	}
	return true
}

func sortedEntries(entries map[string]*Entry, order []string) []Entry {
	out := make([]Entry, 0, len(order))
	for _, t := range order {
		out = append(out, *entries[t])
	}
	return out
}

func nextTick(deadline time.Time) time.Duration {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return time.Millisecond
	}
	if remaining < pollInterval {
		return remaining
	}
	return pollInterval
}
