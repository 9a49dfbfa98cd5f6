package socket

import (
	"sync"
	"sync/atomic"

	"github.com/totegamma/groupsync/core"
)

// Conn is the hub side of one live connection.
// Its outbound queue is bounded. When it is full the oldest message is
// dropped so a slow reader never blocks fan-out to others.
type Conn struct {
	ID string

	queue     chan core.ServerMessage
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

func newConn(id string, size int) *Conn {
	if size < 1 {
		size = 1
	}
	return &Conn{
		ID:    id,
		queue: make(chan core.ServerMessage, size),
		done:  make(chan struct{}),
	}
}

// Outbound is read by the connection writer
func (c *Conn) Outbound() <-chan core.ServerMessage {
	return c.queue
}

// Done is closed once the hub has released the connection
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Dropped returns how many messages were discarded on overflow
func (c *Conn) Dropped() int64 {
	return c.dropped.Load()
}

// Send enqueues a message. It never blocks and reports false only when
// the connection is already closed.
func (c *Conn) Send(msg core.ServerMessage) bool {
	for {
		select {
		case <-c.done:
			return false
		default:
		}

		select {
		case c.queue <- msg:
			return true
		default:
		}

		select {
		case <-c.queue:
			c.dropped.Add(1)
			droppedTotal.Inc()
		default:
		}
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
