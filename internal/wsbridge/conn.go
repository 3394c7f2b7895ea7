package wsbridge

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn adapts a websocket connection to the bridge message interface.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// NewConn wraps ws. maxMessage bounds incoming frames when positive.
func NewConn(ws *websocket.Conn, maxMessage int64) *Conn {
	if maxMessage > 0 {
		ws.SetReadLimit(maxMessage)
	}
	return &Conn{ws: ws}
}

// Read returns the next text or binary frame. A normal close yields io.EOF.
func (c *Conn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
			return nil, io.EOF
		}
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// Write sends payload as a text frame.
func (c *Conn) Write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame and closes the socket.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}
