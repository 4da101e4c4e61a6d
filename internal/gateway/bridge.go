package gateway

import (
	"context"

	"github.com/coder/websocket"

	"github.com/dohr-michael/ikigai/internal/ikerr"
)

// Bridge is the out-of-scope renderer transport stub: a thin websocket
// wrapper a remote renderer would dial against to drive the REPL Core
// instead of a local raw-mode terminal loop. Grounded on the teacher's
// clients/ws/client.go Dial/ReadFrame/Close shape; ikigai's own
// cmd/ikigai drives the core directly and never constructs one of these,
// since spec §1 specifies only the interface for this component.
type Bridge struct {
	conn *websocket.Conn
}

// DialBridge connects to a renderer-facing websocket endpoint.
func DialBridge(ctx context.Context, url string) (*Bridge, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, ikerr.Wrap(ikerr.IO, "dial gateway bridge", err)
	}
	return &Bridge{conn: conn}, nil
}

// Send writes one Frame as a text message.
func (b *Bridge) Send(ctx context.Context, f Frame) error {
	data, err := MarshalFrame(f)
	if err != nil {
		return ikerr.Wrap(ikerr.Parse, "marshal gateway frame", err)
	}
	if err := b.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return ikerr.Wrap(ikerr.IO, "write gateway frame", err)
	}
	return nil
}

// Receive reads the next Frame from the connection.
func (b *Bridge) Receive(ctx context.Context) (Frame, error) {
	_, data, err := b.conn.Read(ctx)
	if err != nil {
		return Frame{}, ikerr.Wrap(ikerr.IO, "read gateway frame", err)
	}
	f, err := UnmarshalFrame(data)
	if err != nil {
		return Frame{}, ikerr.Wrap(ikerr.Parse, "unmarshal gateway frame", err)
	}
	return f, nil
}

// Close closes the underlying connection.
func (b *Bridge) Close() error {
	return b.conn.Close(websocket.StatusNormalClosure, "bye")
}
