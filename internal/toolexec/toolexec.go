// Package toolexec specifies the interface of the per-tool executable
// contract (spec §1, out-of-scope — specified only): each tool is a spawned
// child process exposing a uniform JSON request/response protocol over the
// Model Context Protocol, grounded on the teacher's internal/mcp/server.go
// tool-registration shape.
package toolexec

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// CallRequest is the uniform request handed to a tool invocation.
type CallRequest struct {
	ToolName      string
	ArgumentsJSON string
}

// CallResult is the uniform response returned by a tool invocation.
type CallResult struct {
	Content string
	IsError bool
}

// Executor runs a named tool against its JSON argument payload and returns
// its result. Concrete implementations spawn a child process (or an
// in-process MCP server, as the teacher does for its bundled plugins) and
// speak the Model Context Protocol's CallTool request/response shape.
type Executor interface {
	Call(ctx context.Context, req CallRequest) (CallResult, error)
}

// Spec describes one tool's identity and input schema, mirroring
// mcpsdk.Tool's shape so a Registry can be built from either a live MCP
// server or a static manifest.
type Spec struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// mcpExecutor adapts an in-process mcpsdk server/session into an Executor,
// the same indirection the teacher's gateway uses to expose bundled
// plugins as MCP tools (internal/mcp/server.go's AddTool closures).
type mcpExecutor struct {
	session *mcpsdk.ClientSession
}

// NewMCPExecutor wraps an established MCP client session.
func NewMCPExecutor(session *mcpsdk.ClientSession) Executor {
	return &mcpExecutor{session: session}
}

// Call implements Executor by issuing a CallTool request over the session
// and collapsing its Content blocks down to a single uniform string, per
// spec §1's "uniform JSON request/response contract" for the tool surface.
func (e *mcpExecutor) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	var args map[string]any
	if req.ArgumentsJSON != "" {
		if err := json.Unmarshal([]byte(req.ArgumentsJSON), &args); err != nil {
			return CallResult{}, ikerr.Wrap(ikerr.Parse, "decode tool call arguments", err)
		}
	}
	res, err := e.session.CallTool(ctx, &mcpsdk.CallToolParams{Name: req.ToolName, Arguments: args})
	if err != nil {
		return CallResult{}, ikerr.Wrap(ikerr.IO, "call tool "+req.ToolName, err)
	}
	var text string
	for _, c := range res.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			text += tc.Text
		}
	}
	return CallResult{Content: text, IsError: res.IsError}, nil
}
