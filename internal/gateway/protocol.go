// Package gateway specifies, but does not implement, the terminal
// renderer/gateway bridge spec §1 places out of scope beyond its
// interface: "the concrete HTTP streaming transport (treated as a
// byte-stream callback protocol)". It gives coder/websocket a concrete
// home as the wire transport a remote renderer would speak against the
// REPL Core, grounded on the teacher's internal/gateway/ws/protocol.go
// frame envelope (request/response/event, adapted to ikigai's own
// methods instead of ozzie's task/session ones).
package gateway

import "encoding/json"

// FrameType tags a Frame's role in the request/response/event protocol.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// Method enumerates the renderer-facing operations a Bridge exposes,
// mapped onto the REPL Core's own surface (spec §4.7's Dispatch, §4.9's
// scrollback append).
type Method string

const (
	MethodSubmitInput  Method = "submit_input"  // renderer -> core: one Dispatch call
	MethodResizeWidth  Method = "resize_width"  // renderer -> core: EnsureLayout(width)
	MethodScrollbackAt Method = "scrollback_at" // core -> renderer event: a new appended Line
)

// Frame is the wire envelope exchanged over the websocket connection.
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
}

// MarshalFrame serializes a Frame to JSON bytes.
func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFrame deserializes JSON bytes into a Frame.
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}
