// Package agentsession implements the in-memory Agent Session (spec §4.5):
// the live agent owning messages, toolset filter, model config, and the
// atomic execution state.
package agentsession

import (
	"sync"
	"sync/atomic"

	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/message"
)

// State is the agent's execution state atom. Transitions occur only from
// the REPL thread (idle -> waiting_for_llm, executing_tool -> idle) or the
// worker thread (waiting_for_llm -> executing_tool after stream completes).
type State int32

const (
	StateIdle State = iota
	StateWaitingForLLM
	StateExecutingTool
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForLLM:
		return "waiting_for_llm"
	case StateExecutingTool:
		return "executing_tool"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Mark is a user-managed checkpoint on the message list.
type Mark struct {
	Label        string
	MessageCount int
}

// MaxToolsetFilter is the configured maximum toolset filter size (spec §4.7
// names this "implementation defined >=16"; SPEC_FULL supplement #3 fixes
// it at 32).
const MaxToolsetFilter = 32

// Session is one live agent: its conversation, toolset filter, model
// config, and execution state. Mutated only from the REPL thread; worker
// threads report results through a completion callback instead.
type Session struct {
	UUID string
	Name string

	mu       sync.Mutex
	messages []message.Message
	pinned   map[int]bool
	marks    []Mark
	toolset  []string // ordered whitelist; empty = all tools allowed

	Model         string
	Provider      string
	ThinkingLevel string

	dead atomic.Bool
	idle atomic.Bool

	state       atomic.Int32
	interrupted *atomic.Bool // shared process-wide flag, set by ESC
}

// New creates a Session for uuid, sharing the process-wide interrupted flag.
func New(uuid string, interrupted *atomic.Bool) *Session {
	return &Session{
		UUID:        uuid,
		pinned:      map[int]bool{},
		interrupted: interrupted,
	}
}

// AddMessage appends msg to the conversation.
func (s *Session) AddMessage(msg message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a snapshot of the current message list.
func (s *Session) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]message.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ClearMessages discards the in-memory message list (the caller is
// responsible for appending the `clear` event first, per /clear's
// persistence contract).
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.pinned = map[int]bool{}
}

// CloneMessagesFrom replaces this session's message list with a copy of
// src's, used by /fork when no prompt is given (full inheritance).
func (s *Session) CloneMessagesFrom(src *Session) {
	srcMessages := src.Messages()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append([]message.Message(nil), srcMessages...)
}

// PushMark records a checkpoint at the current message count.
func (s *Session) PushMark(label string) Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := Mark{Label: label, MessageCount: len(s.messages)}
	s.marks = append(s.marks, m)
	return m
}

// Marks returns a snapshot of the checkpoint stack.
func (s *Session) Marks() []Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Mark, len(s.marks))
	copy(out, s.marks)
	return out
}

// RewindTo truncates the message list back to the position recorded by the
// mark at markIndex (pops that mark and everything pushed after it).
func (s *Session) RewindTo(markIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if markIndex < 0 || markIndex >= len(s.marks) {
		return ikerr.Newf(ikerr.OutOfRange, "mark index %d out of range", markIndex)
	}
	n := s.marks[markIndex].MessageCount
	if n > len(s.messages) {
		return ikerr.Newf(ikerr.OutOfRange, "mark references %d messages but only %d exist", n, len(s.messages))
	}
	s.messages = s.messages[:n]
	s.marks = s.marks[:markIndex]
	return nil
}

// SetModel changes the model/provider/thinking-level triple. Rejecting
// during waiting_for_llm is the caller's (dispatcher's) responsibility,
// since only it can observe the state transition race safely.
func (s *Session) SetModel(model, provider, thinkingLevel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
	s.Provider = provider
	s.ThinkingLevel = thinkingLevel
}

// SetToolset replaces the toolset filter, deduplicating and capping at
// MaxToolsetFilter (spec §4.7, SPEC_FULL supplement #3).
func (s *Session) SetToolset(names []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		n = normalizeToolName(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
		if len(out) >= MaxToolsetFilter {
			break
		}
	}
	s.toolset = out
	return out
}

// Toolset returns the current toolset filter (empty ⇒ all tools allowed).
func (s *Session) Toolset() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.toolset))
	copy(out, s.toolset)
	return out
}

func normalizeToolName(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// ParseToolsetArgs splits a /toolset argument string on commas and/or
// whitespace, tolerating duplicates and stray spacing (spec §4.7).
func ParseToolsetArgs(arg string) []string {
	var names []string
	var cur []byte
	flush := func() {
		if len(cur) > 0 {
			names = append(names, string(cur))
			cur = nil
		}
	}
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		if c == ',' || c == ' ' || c == '\t' {
			flush()
			continue
		}
		cur = append(cur, c)
	}
	flush()
	return dedupe(names)
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Dead reports whether the agent has been marked dead.
func (s *Session) Dead() bool { return s.dead.Load() }

// MarkDead flags the session as dead; it is never resurrected.
func (s *Session) MarkDead() { s.dead.Store(true) }

// Idle reports the idle flag (distinct from State: an agent can be State
// idle without having explicitly yielded via /wait's idle semantics).
func (s *Session) Idle() bool { return s.idle.Load() }

// SetIdle updates the idle flag.
func (s *Session) SetIdle(v bool) { s.idle.Store(v) }

// State returns the current execution state atom.
func (s *Session) State() State { return State(s.state.Load()) }

// SetState transitions the execution state atom.
func (s *Session) SetState(v State) { s.state.Store(int32(v)) }

// Interrupted reports the shared process-wide interrupted flag.
func (s *Session) Interrupted() bool {
	return s.interrupted != nil && s.interrupted.Load()
}
