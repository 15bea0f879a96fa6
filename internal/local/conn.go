package local

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// conn is a display window's socket. Writes are queued and flushed by a single writer
// goroutine, so that pushing to a slow window never blocks the caller.
type conn struct {
	ws   *websocket.Conn
	send chan []byte
	once sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:   ws,
		send: make(chan []byte, 32),
	}
}

// enqueue queues a message for delivery, dropping it if the window has fallen too far
// behind. Callers hold Transport.mu, which also guards close.
func (c *conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		fmt.Printf("LOCAL | Display socket %s is not keeping up; dropped a message\n", c.ws.RemoteAddr())
	}
}

func (c *conn) writeLoop() {
	for data := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
			fmt.Printf("LOCAL | Failed to write to display socket %s: %v\n", c.ws.RemoteAddr(), err)
			c.ws.Close()
			for range c.send {
			}
			return
		}
	}
}

// close stops the writer; callers hold Transport.mu
func (c *conn) close() {
	c.once.Do(func() {
		close(c.send)
		c.ws.Close()
	})
}
