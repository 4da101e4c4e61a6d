package repl

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dohr-michael/ikigai/internal/agentsession"
	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/mailbox"
	"github.com/dohr-michael/ikigai/internal/message"
	"github.com/dohr-michael/ikigai/internal/provider"
	"github.com/dohr-michael/ikigai/internal/registry"
	"github.com/dohr-michael/ikigai/internal/surface"
)

// registerCommands wires up every core slash command (spec §4.7). Order of
// registration is /help's listing order.
func (r *REPL) registerCommands() {
	r.commands.Register(Command{Name: "help", Description: "list all registered commands", Handler: cmdHelp})
	r.commands.Register(Command{Name: "clear", Description: "discard the focused agent's message list", Handler: cmdClear})
	r.commands.Register(Command{Name: "fork", Description: "create a child agent from the focused agent", Handler: cmdFork})
	r.commands.Register(Command{Name: "kill", Description: "kill the focused agent (or a named one) and its descendants", Handler: cmdKill})
	r.commands.Register(Command{Name: "reap", Description: "remove dead agents from memory", Handler: cmdReap})
	r.commands.Register(Command{Name: "send", Description: `send mail: /send <uuid> "<body>"`, Handler: cmdSend})
	r.commands.Register(Command{Name: "wait", Description: "block until mail arrives or targets resolve", Handler: cmdWait})
	r.commands.Register(Command{Name: "agents", Description: "render the live agent tree", Handler: cmdAgents})
	r.commands.Register(Command{Name: "model", Description: "change the focused agent's model/thinking level", Handler: cmdModel})
	r.commands.Register(Command{Name: "mark", Description: "push a checkpoint on the message list", Handler: cmdMark})
	r.commands.Register(Command{Name: "rewind", Description: "rewind to a checkpoint", Handler: cmdRewind})
	r.commands.Register(Command{Name: "toolset", Description: "set or list the tool whitelist", Handler: cmdToolset})
	r.commands.Register(Command{Name: "filter-mail", Description: "list mailbox contents without consuming them", Handler: cmdFilterMail})
	r.commands.Register(Command{Name: "system", Description: "view or edit the system prompt", Handler: cmdSystem})
	r.commands.Register(Command{Name: "exit", Description: "shut down", Handler: cmdExit})
}

func cmdHelp(_ context.Context, r *REPL, _ string) (string, error) {
	return helpText(r.commands), nil
}

func cmdClear(ctx context.Context, r *REPL, _ string) (string, error) {
	uuid := r.FocusedUUID()
	node := r.node(uuid)
	if node == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindClear, nil, nil); err != nil {
		return "", err
	}
	node.Session.ClearMessages()
	return "cleared", nil
}

func cmdFork(ctx context.Context, r *REPL, args string) (string, error) {
	parentUUID := r.FocusedUUID()
	parent := r.node(parentUUID)
	if parent == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	lastID, err := r.reg.GetLastEventID(ctx, parentUUID)
	if err != nil {
		return "", err
	}

	childUUID := registry.NewUUID()
	now := time.Now().Unix()
	parentRef := parentUUID
	if err := r.reg.Insert(ctx, nil, registry.Agent{
		UUID: childUUID, ParentUUID: &parentRef, CreatedAt: now, ForkMessageID: lastID,
		Status: registry.StatusRunning, SessionID: r.SessionID,
		Model: parent.Session.Model, Provider: parent.Session.Provider, ThinkingLevel: parent.Session.ThinkingLevel,
	}); err != nil {
		return "", err
	}

	childSession := agentsession.New(childUUID, r.interrupted)
	childSession.SetModel(parent.Session.Model, parent.Session.Provider, parent.Session.ThinkingLevel)
	childSession.SetToolset(parent.Session.Toolset())
	args = strings.TrimSpace(args)
	if args != "" {
		childSession.AddMessage(message.Message{Role: message.RoleUser, Blocks: []message.Block{message.Text{Text: args}}})
	} else {
		childSession.CloneMessagesFrom(parent.Session)
	}

	payload := map[string]any{"parent": parentUUID, "child": childUUID, "fork_message_id": lastID, "toolset_filter": childSession.Toolset()}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &parentUUID, eventstore.KindFork, nil, payload); err != nil {
		return "", err
	}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &childUUID, eventstore.KindFork, nil, payload); err != nil {
		return "", err
	}

	r.addNode(childUUID, &AgentNode{
		Session: childSession, Scrollback: surface.NewScrollback(), Input: surface.NewInputBuffer(),
		ParentUUID: &parentRef,
	}, true)
	return fmt.Sprintf("forked %s -> %s", parentUUID, childUUID), nil
}

func cmdKill(ctx context.Context, r *REPL, args string) (string, error) {
	killerUUID := r.FocusedUUID()
	if killerUUID == "" {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	target := strings.TrimSpace(args)
	selfKill := target == ""
	if selfKill {
		target = killerUUID
		agent, err := r.reg.Get(ctx, target)
		if err != nil {
			return "", err
		}
		if agent.ParentUUID == nil {
			return "", ikerr.New(ikerr.InvalidArg, "root agents may not be killed")
		}
	}

	descendants, err := r.reg.Descendants(ctx, target)
	if err != nil {
		return "", err
	}
	now := time.Now().Unix()
	if err := r.reg.MarkDead(ctx, nil, target, now); err != nil {
		return "", err
	}
	if node := r.node(target); node != nil {
		node.Session.MarkDead()
	}
	for _, d := range descendants {
		if err := r.reg.MarkDead(ctx, nil, d.UUID, now); err != nil {
			return "", err
		}
		if node := r.node(d.UUID); node != nil {
			node.Session.MarkDead()
		}
	}

	payload := map[string]any{"cascade": true, "count": 1 + len(descendants)}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &killerUUID, eventstore.KindAgentKilled, nil, payload); err != nil {
		return "", err
	}

	if selfKill {
		agent, err := r.reg.Get(ctx, killerUUID)
		if err == nil && agent.ParentUUID != nil {
			r.mu.Lock()
			r.focused = *agent.ParentUUID
			r.mu.Unlock()
		}
	}
	return fmt.Sprintf("killed %d agent(s)", 1+len(descendants)), nil
}

func cmdReap(_ context.Context, r *REPL, args string) (string, error) {
	target := strings.TrimSpace(args)

	r.mu.Lock()
	defer r.mu.Unlock()

	remove := map[string]bool{}
	if target != "" {
		node, ok := r.nodes[target]
		if !ok || !node.Session.Dead() {
			return "", ikerr.Newf(ikerr.InvalidArg, "agent %s is not a known dead agent", target)
		}
		remove[target] = true
	} else {
		for uuid, node := range r.nodes {
			if node.Session.Dead() {
				remove[uuid] = true
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for uuid, node := range r.nodes {
			if remove[uuid] || node.ParentUUID == nil {
				continue
			}
			if remove[*node.ParentUUID] {
				remove[uuid] = true
				changed = true
			}
		}
	}

	removedFocused := remove[r.focused]
	for uuid := range remove {
		delete(r.nodes, uuid)
	}
	newOrder := make([]string, 0, len(r.order))
	for _, uuid := range r.order {
		if !remove[uuid] {
			newOrder = append(newOrder, uuid)
		}
	}
	r.order = newOrder

	if removedFocused {
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
	}
	return fmt.Sprintf("reaped %d agent(s)", len(remove)), nil
}

func cmdSend(ctx context.Context, r *REPL, args string) (string, error) {
	to, body, err := parseSendArgs(args)
	if err != nil {
		return "", err
	}
	from := r.FocusedUUID()
	if from == "" {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	if _, err := r.mail.Send(ctx, r.SessionID, from, to, body); err != nil {
		return "", err
	}
	return fmt.Sprintf("sent to %s", to), nil
}

func parseSendArgs(args string) (to, body string, err error) {
	args = strings.TrimSpace(args)
	sp := strings.IndexAny(args, " \t")
	if sp < 0 {
		return "", "", ikerr.New(ikerr.InvalidArg, `usage: /send <uuid> "<body>"`)
	}
	to = args[:sp]
	rest := strings.TrimSpace(args[sp+1:])
	rest = strings.TrimPrefix(rest, `"`)
	rest = strings.TrimSuffix(rest, `"`)
	if to == "" || rest == "" {
		return "", "", ikerr.New(ikerr.InvalidArg, "uuid and body are required")
	}
	return to, rest, nil
}

func cmdWait(ctx context.Context, r *REPL, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", ikerr.New(ikerr.InvalidArg, "usage: /wait <timeout_sec> [uuid...]")
	}
	timeoutSec, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", ikerr.Wrap(ikerr.Parse, "parse /wait timeout", err)
	}
	me := r.FocusedUUID()
	if me == "" {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	targets := fields[1:]

	if len(targets) == 0 {
		result, err := r.coord.Next(ctx, timeoutSec, r.SessionID, me)
		if err != nil {
			return "", err
		}
		switch {
		case result.Interrupted:
			r.interrupted.Store(false)
			return "wait interrupted", nil
		case result.TimedOut:
			return "Timeout", nil
		default:
			return fmt.Sprintf("%s: %s", result.From, result.Body), nil
		}
	}

	result, err := r.coord.FanIn(ctx, timeoutSec, r.SessionID, me, targets)
	if err != nil {
		return "", err
	}
	if result.Interrupted {
		r.interrupted.Store(false)
		return "wait interrupted", nil
	}
	var b strings.Builder
	for _, e := range result.Entries {
		fmt.Fprintf(&b, "%s (%s): %s\n", e.Target, e.AgentName, e.Status)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func cmdAgents(ctx context.Context, r *REPL, _ string) (string, error) {
	agents, err := r.reg.ListAll(ctx, r.SessionID)
	if err != nil {
		return "", err
	}
	return RenderAgentTree(agents, r.FocusedUUID()), nil
}

func cmdModel(_ context.Context, r *REPL, args string) (string, error) {
	node := r.node(r.FocusedUUID())
	if node == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	if node.Session.State() == agentsession.StateWaitingForLLM {
		return "", ikerr.New(ikerr.InvalidArg, "cannot change model while waiting for the LLM")
	}

	model, level, err := parseModelArgs(args)
	if err != nil {
		return "", err
	}
	if level == "" {
		level = string(provider.ThinkingMedium)
	} else if mt := provider.LookupThinking(model); mt.Family == provider.FamilyBudgetModel {
		if _, err := provider.BudgetTokens(model, provider.ThinkingLevel(level)); err != nil {
			return "", err
		}
	}

	providerName := modelProviderName(model)
	node.Session.SetModel(model, providerName, level)
	return fmt.Sprintf("model set to %s/%s (%s)", model, level, providerName), nil
}

func parseModelArgs(args string) (model, level string, err error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", ikerr.New(ikerr.InvalidArg, "usage: /model <model>[/<level>]")
	}
	if strings.HasSuffix(args, "/") {
		return "", "", ikerr.New(ikerr.InvalidArg, "malformed /model argument: trailing '/'")
	}
	model, level, _ = strings.Cut(args, "/")
	if model == "" {
		return "", "", ikerr.New(ikerr.InvalidArg, "malformed /model argument: empty model name")
	}
	if level != "" {
		switch provider.ThinkingLevel(level) {
		case provider.ThinkingMin, provider.ThinkingLow, provider.ThinkingMedium, provider.ThinkingHigh:
		default:
			return "", "", ikerr.Newf(ikerr.InvalidArg, "unknown thinking level %q", level)
		}
	}
	return model, level, nil
}

// modelProviderName infers a provider family from a model id's prefix.
// Unrecognized prefixes default to anthropic, the most permissive budget-
// model family.
func modelProviderName(model string) string {
	switch {
	case strings.HasPrefix(model, "claude-"):
		return "anthropic"
	case strings.HasPrefix(model, "gpt-"):
		return "openai"
	case strings.HasPrefix(model, "gemini-"):
		return "google"
	default:
		return "anthropic"
	}
}

func cmdMark(ctx context.Context, r *REPL, args string) (string, error) {
	uuid := r.FocusedUUID()
	node := r.node(uuid)
	if node == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	label := strings.TrimSpace(args)
	m := node.Session.PushMark(label)
	payload := map[string]any{"label": m.Label, "message_count": m.MessageCount}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindMark, nil, payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("mark %q at %d messages", m.Label, m.MessageCount), nil
}

func cmdRewind(ctx context.Context, r *REPL, args string) (string, error) {
	uuid := r.FocusedUUID()
	node := r.node(uuid)
	if node == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	marks := node.Session.Marks()
	if len(marks) == 0 {
		return "", ikerr.New(ikerr.InvalidArg, "no marks to rewind to")
	}
	idx := len(marks) - 1
	args = strings.TrimSpace(args)
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil {
			return "", ikerr.Wrap(ikerr.Parse, "parse /rewind argument", err)
		}
		idx = n
	}
	if err := node.Session.RewindTo(idx); err != nil {
		return "", err
	}
	payload := map[string]any{"mark_index": idx}
	if _, err := r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindRewind, nil, payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("rewound to mark %d", idx), nil
}

func cmdToolset(_ context.Context, r *REPL, args string) (string, error) {
	node := r.node(r.FocusedUUID())
	if node == nil {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	if strings.TrimSpace(args) == "" {
		toolset := node.Session.Toolset()
		if len(toolset) == 0 {
			return "toolset: (all tools enabled)", nil
		}
		return "toolset: " + strings.Join(toolset, ", "), nil
	}
	names := agentsession.ParseToolsetArgs(args)
	out := node.Session.SetToolset(names)
	return "toolset: " + strings.Join(out, ", "), nil
}

func cmdFilterMail(ctx context.Context, r *REPL, args string) (string, error) {
	me := r.FocusedUUID()
	if me == "" {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	filter, err := parseFilterMailArgs(time.Now(), args)
	if err != nil {
		return "", err
	}
	mails, err := r.mail.PeekFilter(ctx, r.SessionID, me, filter)
	if err != nil {
		return "", err
	}
	if len(mails) == 0 {
		return "(no mail)", nil
	}
	var b strings.Builder
	for _, m := range mails {
		fmt.Fprintf(&b, "[%d] %s -> %s: %s\n", m.Timestamp, m.From, m.To, m.Body)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func parseFilterMailArgs(now time.Time, args string) (mailbox.Filter, error) {
	var filter mailbox.Filter
	fields := strings.Fields(args)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "--from":
			if i+1 >= len(fields) {
				return filter, ikerr.New(ikerr.InvalidArg, "--from requires a uuid")
			}
			i++
			filter.From = fields[i]
		case "--since":
			if i+1 >= len(fields) {
				return filter, ikerr.New(ikerr.InvalidArg, "--since requires a duration")
			}
			i++
			since, err := ParseSince(now, fields[i])
			if err != nil {
				return filter, err
			}
			filter.Since = since
		default:
			return filter, ikerr.Newf(ikerr.InvalidArg, "unknown /filter-mail flag %q", fields[i])
		}
	}
	return filter, nil
}

func cmdSystem(ctx context.Context, r *REPL, args string) (string, error) {
	uuid := r.FocusedUUID()
	if uuid == "" {
		return "", ikerr.New(ikerr.InvalidArg, "no focused agent")
	}
	args = strings.TrimSpace(args)
	if args == "" {
		s := r.systemPromptFor(uuid)
		if s == "" {
			return "(no system prompt set)", nil
		}
		return s, nil
	}

	r.mu.Lock()
	r.system[uuid] = args
	r.mu.Unlock()
	if _, err := r.store.Append(ctx, nil, r.SessionID, &uuid, eventstore.KindSystem, &args, nil); err != nil {
		return "", err
	}
	return "system prompt updated", nil
}

func cmdExit(_ context.Context, r *REPL, _ string) (string, error) {
	r.exitRequested.Store(true)
	return "exiting", nil
}
