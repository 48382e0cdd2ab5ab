package server

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/streamfan/stream"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	// pingInterval must be shorter than pongTimeout so a healthy peer is
	// never timed out between pings.
	pingInterval = 30 * time.Second
)

// client owns one upgraded socket. All writes go through Send under the write
// mutex; gorilla connections allow at most one concurrent writer.
type client struct {
	server *Server
	ws     *websocket.Conn
	conn   *stream.Connection

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(s *Server, ws *websocket.Conn) *client {
	return &client{
		server: s,
		ws:     ws,
		closed: make(chan struct{}),
	}
}

// Send implements stream.Sender.
func (c *client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// run processes inbound frames until the socket closes, then tears the
// connection down. The ping loop runs alongside and stops with the socket.
func (c *client) run(ctx context.Context) {
	defer c.dispose()

	go c.pingLoop()

	c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.server.shutdown:
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		c.conn.HandleMessage(ctx, message)
	}
}

func (c *client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-c.server.shutdown:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

// close interrupts the read loop. Teardown itself happens in run's deferred
// dispose, so disposal stays exactly-once.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

func (c *client) dispose() {
	c.close()
	c.conn.Dispose()
}
