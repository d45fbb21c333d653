package realtime

import (
	"sync"

	"github.com/gorilla/websocket"

	"ai-interview-engine/internal/realtime/protocol"
)

// wsClient adapts a gorilla WebSocket to the ClientConn interface. The
// relay writes from both loops, so writes are serialized here.
type wsClient struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func newWSClient(ws *websocket.Conn) *wsClient {
	return &wsClient{ws: ws}
}

func (c *wsClient) ReadFrame() (*protocol.ClientFrame, error) {
	var frame protocol.ClientFrame
	if err := c.ws.ReadJSON(&frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

func (c *wsClient) WriteFrame(f protocol.ServerFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(f)
}

// CloseWith sends a close control frame with the given code before
// closing the socket.
func (c *wsClient) CloseWith(code int, reason string) error {
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), closeDeadline())
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *wsClient) Close() error {
	return c.ws.Close()
}
