package realtime

import (
	"context"
	"time"

	"github.com/totegamma/groupsync/core"
)

const DefaultBackoff = 3 * time.Second

// State of the single logical connection
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives messages of one topic
type Handler func(ctx context.Context, msg core.ServerMessage) error

// Token identifies one registration made by On
type Token struct {
	topic string
	id    uint64
}

// Config of a live client
type Config struct {
	URL string
	// Backoff is the wait between reconnect attempts
	Backoff time.Duration
	// MaxBackoff enables exponential growth up to this interval when larger than Backoff
	MaxBackoff time.Duration
}

type registration struct {
	id      uint64
	handler Handler
}
