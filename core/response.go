package core

type ResponseBase[T any] struct {
	Status  string `json:"status"`
	Content T      `json:"content"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Profile is the public information of a node
type Profile struct {
	NodeID   string   `json:"nodeID"`
	Version  string   `json:"version"`
	Relays   []string `json:"relays"`
	Kinds    []int    `json:"kinds"`
	Topics   []Topic  `json:"topics"`
	Nickname string   `json:"nickname,omitempty"`
	Contact  string   `json:"contact,omitempty"`
}
