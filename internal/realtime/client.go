package realtime

import (
	"errors"
	"sync"
	"time"

	"realtimehub/pkg/logger"

	"github.com/gorilla/websocket"
)

var (
	ErrClientClosed   = errors.New("client is closed")
	ErrSendBufferFull = errors.New("client send buffer is full")
)

// Client is the gorilla/websocket transport behind a connection: a buffered
// send channel drained by the write pump, and a read side with deadline and
// pong-based keepalive. Push never blocks; a closed client or a full buffer
// is an error the broadcaster treats as a skip.
type Client struct {
	ws   *websocket.Conn
	send chan []byte

	writeTimeout time.Duration
	pongTimeout  time.Duration

	mu     sync.Mutex
	closed bool
}

func NewClient(ws *websocket.Conn, sendBuffer int, writeTimeout, pongTimeout time.Duration) *Client {
	return &Client{
		ws:           ws,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
	}
}

func (c *Client) Push(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close marks the client closed and closes the send channel, which makes
// the write pump emit a close frame and exit. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// beginRead arms the read deadline and pong handler; a dead peer fails the
// next read within pongTimeout. Call once before the read loop.
func (c *Client) beginRead() {
	c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
		return nil
	})
}

// ReadMessage blocks for the next inbound frame.
func (c *Client) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings. Runs until the send channel closes
// or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pongTimeout * 9 / 10)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
