package repl

import (
	"context"
	"strings"
)

// Command is one slash command: its name, a one-line description for
// /help, and its handler.
type Command struct {
	Name        string
	Description string
	Handler     func(ctx context.Context, r *REPL, args string) (string, error)
}

// CommandRegistry holds every registered slash command, preserving
// registration order so /help lists them in a stable, author-chosen order
// rather than Go's randomized map iteration order.
type CommandRegistry struct {
	order []string
	byName map[string]Command
}

// NewCommandRegistry returns an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{byName: map[string]Command{}}
}

// Register adds cmd, keeping first-registration order for /help. Calling
// Register twice with the same name replaces the handler in place without
// changing its position in /help's listing.
func (c *CommandRegistry) Register(cmd Command) {
	if _, exists := c.byName[cmd.Name]; !exists {
		c.order = append(c.order, cmd.Name)
	}
	c.byName[cmd.Name] = cmd
}

// Lookup returns the command named name, if any.
func (c *CommandRegistry) Lookup(name string) (Command, bool) {
	cmd, ok := c.byName[name]
	return cmd, ok
}

// All returns every registered command in registration order.
func (c *CommandRegistry) All() []Command {
	out := make([]Command, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.byName[name])
	}
	return out
}

// SplitCommandLine splits a "/name rest of args" line into the bare
// command name (without the leading slash) and the remaining argument
// string (untrimmed of internal whitespace, just the leading/trailing
// space around the split point).
func SplitCommandLine(line string) (name, args string) {
	trimmed := strings.TrimPrefix(line, "/")
	name, args, _ = strings.Cut(trimmed, " ")
	return name, strings.TrimSpace(args)
}

// helpText renders /help's output: one line per registered command, in
// registration order, per SUPPLEMENTED FEATURE 1.
func helpText(reg *CommandRegistry) string {
	var b strings.Builder
	for _, cmd := range reg.All() {
		b.WriteString("/")
		b.WriteString(cmd.Name)
		b.WriteString(" — ")
		b.WriteString(cmd.Description)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}
