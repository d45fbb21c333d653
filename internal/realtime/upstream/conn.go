package upstream

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Conn is one realtime connection to the provider. ReadEvent may be
// called from one goroutine while WriteEvent is called from another;
// implementations serialize writes internally.
type Conn interface {
	ReadEvent() (*Event, error)
	WriteEvent(ev *Event) error
	Close() error
}

// Dialer opens provider connections.
type Dialer struct {
	URL    string
	APIKey string
	Model  string
}

// Dial opens a WebSocket connection to the provider for the configured
// model.
func (d *Dialer) Dial(ctx context.Context) (Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+d.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	url := d.URL
	if d.Model != "" {
		url += "?model=" + d.Model
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial upstream (status %d)", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "dial upstream")
	}
	return &wsConn{ws: ws}, nil
}

// wsConn adapts a gorilla WebSocket to the Conn interface. gorilla
// permits one concurrent reader and one concurrent writer; the mutex
// guards the writer side.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) ReadEvent() (*Event, error) {
	var ev Event
	if err := c.ws.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *wsConn) WriteEvent(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
