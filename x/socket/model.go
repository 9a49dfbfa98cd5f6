package socket

import (
	"github.com/totegamma/groupsync/core"
)

// Envelope carries a relayed event between hub nodes
type Envelope struct {
	Node    string     `json:"node"`
	Version int        `json:"version"`
	Event   core.Event `json:"event"`
}
