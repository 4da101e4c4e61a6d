package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/ikigai/internal/config"
	"github.com/dohr-michael/ikigai/internal/credentials"
	"github.com/dohr-michael/ikigai/internal/eventstore"
	"github.com/dohr-michael/ikigai/internal/ikerr"
	"github.com/dohr-michael/ikigai/internal/logging"
	"github.com/dohr-michael/ikigai/internal/mailbox"
	"github.com/dohr-michael/ikigai/internal/migrations"
	"github.com/dohr-michael/ikigai/internal/provider"
	"github.com/dohr-michael/ikigai/internal/provider/anthropic"
	"github.com/dohr-michael/ikigai/internal/provider/google"
	"github.com/dohr-michael/ikigai/internal/provider/openai"
	"github.com/dohr-michael/ikigai/internal/registry"
	"github.com/dohr-michael/ikigai/internal/repl"
	"github.com/dohr-michael/ikigai/internal/session"
	"github.com/dohr-michael/ikigai/internal/wait"
)

// NewReplCommand returns the explicit "repl" subcommand, an alias for the
// root's default action so `ikigai repl` and bare `ikigai` behave
// identically (matching the teacher's pattern of an explicit subcommand
// name for its own default surface, there "tui").
func NewReplCommand() *cli.Command {
	return &cli.Command{
		Name:   "repl",
		Usage:  "Start the interactive agent REPL (default)",
		Action: runREPL,
	}
}

// runREPL wires every core package (spec §2's component table) into a
// running session and drives the REPL Core's input loop until /exit or
// interrupt. On the way out driveTerminal restores the terminal mode and
// runREPL closes the session row; LLM or wait workers still running at
// that point are neither interrupted nor joined.
func runREPL(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logLevel := "info"
	if cmd.Bool("debug") {
		logLevel = "debug"
	}
	logger := logging.New(logging.Options{
		Level:  logging.ParseLevel(logLevel),
		Format: "text",
	})

	if err := migrations.Run(*cfg); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, migrations.DSN(*cfg))
	if err != nil {
		return ikerr.Wrap(ikerr.DbConnect, "open connection pool", err)
	}
	defer pool.Close()

	store := eventstore.New(pool)
	reg := registry.New(pool)
	mail := mailbox.New(pool, reg)
	sessions := session.New(pool)
	interrupted := &atomic.Bool{}
	coord := wait.New(store, mail, reg, interrupted)

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	active, err := sessions.FindActive(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		active, err = sessions.Open(ctx, "default")
		if err != nil {
			return err
		}
		logger.Info("opened session", "session_id", active.ID)
	} else {
		logger.Info("resuming session", "session_id", active.ID)
	}

	r := repl.New(store, reg, mail, coord, providers, active.ID, interrupted)
	if cfg.OpenAISystemMessage != nil {
		r.SetDefaultSystem(*cfg.OpenAISystemMessage)
	}

	restored, err := r.RestoreSession(ctx, active.ID)
	if err != nil {
		return err
	}
	if restored == 0 {
		providerName := modelProviderName(cfg.OpenAIModel)
		if _, err := r.NewRootAgent(ctx, cfg.OpenAIModel, providerName, "medium"); err != nil {
			return err
		}
	}

	defer func() {
		if err := sessions.Close(context.Background(), active.ID); err != nil {
			logger.Error("close session", "error", err)
		}
	}()

	return driveTerminal(ctx, r, logger)
}

// modelProviderName infers a provider from a model id's prefix, used only
// to pick the root agent's initial provider from config.openai_model at
// first launch. Unrecognized prefixes map to openai here, whereas
// internal/repl's own (unexported) inference maps them to anthropic.
func modelProviderName(model string) string {
	switch {
	case len(model) >= 7 && model[:7] == "claude-":
		return "anthropic"
	case len(model) >= 7 && model[:7] == "gemini-":
		return "google"
	default:
		return "openai"
	}
}

// buildProviders constructs one provider.Provider per credential actually
// configured (spec §6: "Credentials are loaded ... with env-var override
// per provider"); a provider with no credential is simply absent from the
// map. /model still accepts it; the agent's next LLM turn then fails with
// InvalidArg when its worker starts.
func buildProviders(ctx context.Context, cfg *config.Config) (map[string]provider.Provider, error) {
	creds, err := credentials.Load(config.CredentialsPath())
	if err != nil {
		return nil, err
	}

	out := map[string]provider.Provider{}
	if key, ok := creds.Get("anthropic"); ok {
		out["anthropic"] = anthropic.NewFromAPIKey(key)
	}
	if key, ok := creds.Get("openai"); ok {
		out["openai"] = openai.NewFromAPIKey(key)
	}
	if key, ok := creds.Get("google"); ok {
		client, err := google.NewFromAPIKey(ctx, key)
		if err != nil {
			return nil, err
		}
		out["google"] = client
	}
	return out, nil
}

// driveTerminal is the thin imperative loop that consumes the REPL Core's
// state (spec §1 places the actual renderer out of scope as "grapheme-aware
// scrollback/input buffer surfaces consuming the core's state"): it puts
// the terminal in raw mode, decodes bytes into Actions via
// internal/repl.ParseInput, feeds them to the focused agent's Input
// surface or the command dispatcher, and prints newly appended scrollback
// lines.
func driveTerminal(ctx context.Context, r *repl.REPL, logger *slog.Logger) error {
	fd := int(os.Stdin.Fd())
	var oldState *term.State
	if term.IsTerminal(fd) {
		var err error
		oldState, err = term.MakeRaw(fd)
		if err != nil {
			return ikerr.Wrap(ikerr.IO, "enable raw terminal mode", err)
		}
		defer term.Restore(fd, oldState)
	} else {
		logger.Debug("stdin is not a terminal; running without raw mode")
	}

	printed := map[string]int{}
	printScrollback := func() {
		node := r.Focused()
		if node == nil {
			return
		}
		lines := node.Scrollback.Lines()
		uuid := r.FocusedUUID()
		for i := printed[uuid]; i < len(lines); i++ {
			fmt.Print(lines[i].Raw + "\r\n")
		}
		printed[uuid] = len(lines)
	}

	reader := bufio.NewReader(os.Stdin)
	var pending []byte
	buf := make([]byte, 256)

	for !r.ExitRequested() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.Pump()
		printScrollback()

		n, err := reader.Read(buf)
		if err != nil {
			return nil
		}
		pending = append(pending, buf[:n]...)

		var actions []repl.Action
		actions, pending = repl.ParseInput(pending)

		node := r.Focused()
		if node == nil {
			continue
		}
		for _, a := range actions {
			switch a.Kind {
			case repl.ActionInsertRune:
				node.Input.InsertRune(a.Rune)
			case repl.ActionNewline:
				node.Input.InsertNewline()
			case repl.ActionBackspace:
				node.Input.Backspace()
			case repl.ActionDelete:
				node.Input.Delete()
			case repl.ActionWordDelete:
				node.Input.DeleteWordBackward()
			case repl.ActionCursorLeft:
				node.Input.CursorLeft()
			case repl.ActionCursorRight:
				node.Input.CursorRight()
			case repl.ActionCursorUp:
				node.Input.CursorUp()
			case repl.ActionCursorDown:
				node.Input.CursorDown()
			case repl.ActionLineStart:
				node.Input.CursorLineStart()
			case repl.ActionEscape:
				r.InterruptFocused()
			case repl.ActionSubmit:
				line := node.Input.Content()
				node.Input.Reset()
				out, err := r.Dispatch(ctx, line)
				if err != nil {
					node.Scrollback.AppendLine("Error: " + err.Error())
				} else if out != "" {
					node.Scrollback.AppendLine(out)
				}
			}
		}
	}
	printScrollback()
	return nil
}
