package repl

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dohr-michael/ikigai/internal/agentsession"
	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/mailbox"
	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
	"github.com/dohr-michael/ikigai/internal/registry"
	"github.com/dohr-michael/ikigai/internal/surface"
	"github.com/dohr-michael/ikigai/internal/wait"
)

// AgentNode bundles one agent's complete live state (spec §3's "Agent
// Session (in-memory)"): its conversation/model/toolset state, its
// scrollback, and its input buffer.
type AgentNode struct {
	Session    *agentsession.Session
	Scrollback *surface.Scrollback
	Input      *surface.InputBuffer
	ParentUUID *string // mirrors the registry row, kept in memory for /reap's ancestor-chain walk
}

// REPL is the REPL Core (spec §4.7): input dispatch, the slash-command
// registry, and the cooperative-worker discipline of spec §5 (at most one
// worker alive per agent session at a time; workers report results through
// a completion callback queued for the REPL thread rather than mutating
// session state directly).
type REPL struct {
	SessionID int64

	store     *eventstore.Store
	reg       *registry.Registry
	mail      *mailbox.Mailbox
	coord     *wait.Coordinator
	providers map[string]provider.Provider

	interrupted *atomic.Bool

	mu      sync.Mutex
	nodes   map[string]*AgentNode
	order   []string // creation order; first root is the default after a full /reap
	focused string
	busy    map[string]bool
	system  map[string]string // agent uuid -> system prompt override, set by /system

	defaultSystem string

	callbacks     chan func()
	commands      *CommandRegistry
	exitRequested atomic.Bool
}

// New builds a REPL Core with no agents yet; callers create or restore a
// root agent with NewRootAgent/RestoreAgent before calling Dispatch.
func New(store *eventstore.Store, reg *registry.Registry, mail *mailbox.Mailbox, coord *wait.Coordinator, providers map[string]provider.Provider, sessionID int64, interrupted *atomic.Bool) *REPL {
	r := &REPL{
		SessionID:   sessionID,
		store:       store,
		reg:         reg,
		mail:        mail,
		coord:       coord,
		providers:   providers,
		interrupted: interrupted,
		nodes:       map[string]*AgentNode{},
		busy:        map[string]bool{},
		system:      map[string]string{},
		callbacks:   make(chan func(), 64),
		commands:    NewCommandRegistry(),
	}
	r.registerCommands()
	return r
}

// SetDefaultSystem sets the fallback system prompt used for agents with no
// per-agent override (the config layer resolves this from
// `<data_dir>/prompts/system.md` when the config's system_message is unset).
func (r *REPL) SetDefaultSystem(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultSystem = s
}

func (r *REPL) systemPromptFor(uuid string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.system[uuid]; ok {
		return s
	}
	return r.defaultSystem
}

// Pump drains every worker completion callback queued so far, applying
// them on the calling goroutine. Spec §5 requires the focused-agent
// pointer, scrollback, and input surface to be written only by the REPL
// thread; callers run Pump from that same thread (typically once per
// input-read iteration).
func (r *REPL) Pump() {
	for {
		select {
		case cb := <-r.callbacks:
			cb()
		default:
			return
		}
	}
}

// Focused returns the currently focused agent node, or nil if none exists
// (e.g. every agent has been reaped).
func (r *REPL) Focused() *AgentNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[r.focused]
}

// FocusedUUID returns the focused agent's uuid, or "" if none.
func (r *REPL) FocusedUUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

func (r *REPL) node(uuid string) *AgentNode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[uuid]
}

func (r *REPL) addNode(uuid string, n *AgentNode, focus bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[uuid] = n
	r.order = append(r.order, uuid)
	if focus || r.focused == "" {
		r.focused = uuid
	}
}

// NewRootAgent creates a brand-new root agent (no parent), persists its
// registry row, and focuses it.
func (r *REPL) NewRootAgent(ctx context.Context, model, providerName, thinkingLevel string) (string, error) {
	uuid := registry.NewUUID()
	now := time.Now().Unix()
	if err := r.reg.Insert(ctx, nil, registry.Agent{
		UUID: uuid, CreatedAt: now, Status: registry.StatusRunning,
		SessionID: r.SessionID, Model: model, Provider: providerName, ThinkingLevel: thinkingLevel,
	}); err != nil {
		return "", err
	}
	sess := agentsession.New(uuid, r.interrupted)
	sess.SetModel(model, providerName, thinkingLevel)
	r.addNode(uuid, &AgentNode{Session: sess, Scrollback: surface.NewScrollback(), Input: surface.NewInputBuffer()}, true)
	return uuid, nil
}

// RestoreAgent rebuilds one agent's live Session from the durable event
// log (spec §4.4's Replay Engine) and registers it as a node. It does not
// move focus away from an already-focused agent; when no agent is focused,
// the new node becomes focused. Used by RestoreSession and by any future targeted
// "restore" path spec §4.4 alludes to.
func (r *REPL) RestoreAgent(ctx context.Context, agentUUID string) error {
	agent, err := r.reg.Get(ctx, agentUUID)
	if err != nil {
		return err
	}
	sess, err := agentsession.Restore(ctx, r.reg, r.store, agentUUID, r.interrupted)
	if err != nil {
		return err
	}
	sb := surface.NewScrollback()
	for _, m := range sess.Messages() {
		sb.AppendLine(renderHistoryLine(m))
	}
	r.addNode(agentUUID, &AgentNode{
		Session: sess, Scrollback: sb, Input: surface.NewInputBuffer(),
		ParentUUID: agent.ParentUUID,
	}, false)
	return nil
}

func renderHistoryLine(m message.Message) string {
	prefix := "you"
	switch m.Role {
	case message.RoleAssistant:
		prefix = "assistant"
	case message.RoleTool:
		prefix = "tool"
	}
	return prefix + ": " + m.Text()
}

// RestoreSession repopulates every agent registered under sessionID from
// the durable log, per spec §2 ("The Replay Engine runs at startup ... to
// repopulate every Agent Session from the durable log"). Focus lands on
// the first root agent found, or the first agent at all if none is a
// root. Returns the number of agents restored.
func (r *REPL) RestoreSession(ctx context.Context, sessionID int64) (int, error) {
	r.SessionID = sessionID
	agents, err := r.reg.ListAll(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	for _, a := range agents {
		if err := r.RestoreAgent(ctx, a.UUID); err != nil {
			return 0, err
		}
	}
	r.mu.Lock()
	r.focused = ""
	for _, uuid := range r.order {
		if r.nodes[uuid].ParentUUID == nil {
			r.focused = uuid
			break
		}
	}
	if r.focused == "" && len(r.order) > 0 {
		r.focused = r.order[0]
	}
	r.mu.Unlock()
	return len(agents), nil
}

// InterruptFocused sets the shared interrupted flag (spec §5: "a single
// process-wide interrupted flag is set by ESC"). Every blocking loop
// (the LLM stream reader in startLLMWorker, the wait worker) polls it at
// least once per iteration and unwinds promptly.
func (r *REPL) InterruptFocused() {
	r.interrupted.Store(true)
}

// ExitRequested reports whether /exit has been invoked. The outer
// cmd/ikigai loop polls this after each Dispatch and performs the actual
// shutdown (closing the session row, restoring terminal modes) since the
// REPL core has no terminal or process-lifecycle knowledge of its own.
func (r *REPL) ExitRequested() bool { return r.exitRequested.Load() }

// Dispatch routes one submitted input line: a leading '/' goes to the
// slash-command dispatcher, anything else is submitted as the focused
// agent's next user turn. The scrollback lines a command produces are
// captured and persisted as a `command` event, per §4.7's replay
// faithfulness requirement.
func (r *REPL) Dispatch(ctx context.Context, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if strings.HasPrefix(line, "/") {
		return r.dispatchCommand(ctx, line)
	}
	return "", r.SubmitUserTurn(ctx, line)
}

func (r *REPL) dispatchCommand(ctx context.Context, line string) (string, error) {
	name, args := SplitCommandLine(line)
	cmd, ok := r.commands.Lookup(name)
	if !ok {
		return "", ikerr.Newf(ikerr.InvalidArg, "unknown command /%s", name)
	}
	focused := r.FocusedUUID()
	out, err := cmd.Handler(ctx, r, args)
	if err != nil {
		return out, err
	}
	if focused != "" {
		r.recordCommandEvent(ctx, focused, name, args, out)
	}
	return out, nil
}

func (r *REPL) recordCommandEvent(ctx context.Context, agentUUID, name, args, output string) {
	data := map[string]string{"command": name, "args": args, "output": output}
	_, _ = r.store.Append(ctx, nil, r.SessionID, &agentUUID, eventstore.KindCommand, nil, data)
}

// SubmitUserTurn appends a user message to the focused agent, persists the
// event, and starts a worker to run the LLM turn. It refuses to start a
// second worker on an agent that already has one running (spec §5).
func (r *REPL) SubmitUserTurn(ctx context.Context, text string) error {
	uuid := r.FocusedUUID()
	node := r.node(uuid)
	if node == nil {
		return ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	if node.Session.State() != agentsession.StateIdle {
		return ikerr.New(ikerr.InvalidArg, "focused agent is busy")
	}

	msg := message.Message{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: text}}}
	node.Session.AddMessage(msg)
	if _, err := r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindUser, &text, nil); err != nil {
		return err
	}
	node.Scrollback.AppendLine("you: " + text)

	return r.startLLMWorker(ctx, uuid, node)
}

// startLLMWorker spawns the one-worker-per-agent LLM turn (spec §4.6,
// §5): it builds a Request from the session, streams the response on a
// separate goroutine that only buffers stream events locally, and marshals
// the finished turn back onto the REPL thread through r.callbacks so only
// the REPL goroutine ever mutates node.Session / node.Scrollback.
func (r *REPL) startLLMWorker(ctx context.Context, uuid string, node *AgentNode) error {
	r.mu.Lock()
	if r.busy[uuid] {
		r.mu.Unlock()
		return ikerr.New(ikerr.InvalidArg, "a worker is already running for this agent")
	}
	r.busy[uuid] = true
	r.mu.Unlock()

	node.Session.SetState(agentsession.StateWaitingForLLM)
	p, ok := r.providers[node.Session.Provider]
	if !ok {
		r.mu.Lock()
		delete(r.busy, uuid)
		r.mu.Unlock()
		node.Session.SetState(agentsession.StateIdle)
		return ikerr.Newf(ikerr.InvalidArg, "no provider registered for %q", node.Session.Provider)
	}

	req := provider.Request{
		Model:         node.Session.Model,
		Messages:      node.Session.Messages(),
		System:        r.systemPromptFor(uuid),
		ThinkingLevel: provider.ThinkingLevel(node.Session.ThinkingLevel),
	}

	go func() {
		var assembled message.Message
		assembled.Role = message.RoleAssistant
		var textBuf strings.Builder
		var finish provider.FinishReason
		var usage provider.Usage

		err := p.StartRequest(ctx, req, func(ev provider.StreamEvent) error {
			if r.interrupted.Load() {
				return ikerr.New(ikerr.InvalidArg, "interrupted")
			}
			switch ev.Kind {
			case provider.EventTextDelta:
				textBuf.WriteString(ev.Text)
			case provider.EventMessageDelta:
				finish = ev.FinishReason
				usage = ev.Usage
			case provider.EventMessageDone:
				usage = ev.Usage
			}
			return nil
		})

		r.callbacks <- func() {
			defer func() {
				r.mu.Lock()
				delete(r.busy, uuid)
				r.mu.Unlock()
			}()
			if err != nil {
				if r.interrupted.Load() {
					node.Session.SetState(agentsession.StateInterrupted)
					_, _ = r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindInterrupted, nil, nil)
					r.interrupted.Store(false)
					node.Session.SetState(agentsession.StateIdle)
					return
				}
				node.Scrollback.AppendLine("Error: " + err.Error())
				node.Session.SetState(agentsession.StateIdle)
				return
			}
			if textBuf.Len() > 0 {
				assembled.Blocks = append(assembled.Blocks, message.Text{Text: textBuf.String()})
			}
			node.Session.AddMessage(assembled)
			node.Scrollback.AppendLine("assistant: " + assembled.Text())

			content := assembled.Text()
			_, _ = r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindAssistant, &content, nil)
			usageData := map[string]any{
				"input_tokens": usage.InputTokens, "output_tokens": usage.OutputTokens,
				"thinking_tokens": usage.ThinkingTokens, "cached_tokens": usage.CachedTokens,
				"total_tokens": usage.TotalTokens,
				"finish_reason": string(finish),
			}
			_, _ = r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindUsage, nil, usageData)
			node.Session.SetState(agentsession.StateIdle)
		}
	}()
	return nil
}

