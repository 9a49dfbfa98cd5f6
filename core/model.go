package core

import (
	"sort"
)

// Event is an immutable signed record observed on the event log.
// Two events with the same ID are the same event.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig,omitempty"`
}

// Filter selects events from an EventStore.
// Tags are tag-equality constraints: every key must match one of its values.
type Filter struct {
	IDs     []string
	Kinds   []int
	Authors []string
	Tags    map[string][]string
	Since   int64
	Until   int64
	Limit   int
}

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	About     string   `json:"about"`
	Picture   string   `json:"picture,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"createdAt"`
	CreatedBy string   `json:"createdBy"`
	UpdatedAt int64    `json:"updatedAt"`
}

// GroupMetadata is the decoded content of a group metadata event
type GroupMetadata struct {
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture,omitempty"`
}

type GroupFilter struct {
	Tags       []string
	TextSearch string
	Limit      int
}

type Role string

const (
	RoleMember  Role = "member"
	RoleAdmin   Role = "admin"
	RoleRemoved Role = "removed"
)

type Membership struct {
	Role    Role   `json:"role"`
	AddedAt int64  `json:"addedAt"`
	EventID string `json:"eventID"`
}

// MembershipSnapshot is the folded membership state of one group.
// Removed keys are kept in Entries so later merges stay order independent,
// but they are not counted in Size.
type MembershipSnapshot struct {
	GroupID string                `json:"groupID"`
	Entries map[string]Membership `json:"entries"`
	Size    int                   `json:"size"`
}

// Members returns active member keys in lexical order
func (s MembershipSnapshot) Members() []string {
	keys := make([]string, 0, len(s.Entries))
	for key, entry := range s.Entries {
		if entry.Role == RoleRemoved {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Admins returns active admin keys in lexical order
func (s MembershipSnapshot) Admins() []string {
	keys := make([]string, 0)
	for key, entry := range s.Entries {
		if entry.Role == RoleAdmin {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (s MembershipSnapshot) RoleOf(key string) (Role, bool) {
	entry, ok := s.Entries[key]
	if !ok || entry.Role == RoleRemoved {
		return "", false
	}
	return entry.Role, true
}

type Topic string

const (
	TopicGroupMetadata Topic = "group_metadata"
	TopicGroupMembers  Topic = "group_members"
	TopicFood          Topic = "food"
	TopicUnknown       Topic = "unknown"

	// TopicAll is the wildcard subscription
	TopicAll Topic = "all"
	// TopicConnection is local to a live client and never sent to the hub
	TopicConnection Topic = "connection"
)

// ClientMessage is sent from a live client to the hub
type ClientMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics,omitempty"`
	Event  *Event   `json:"event,omitempty"`
}

// ServerMessage is sent from the hub to a live client
type ServerMessage struct {
	Type   string   `json:"type"`
	Status string   `json:"status,omitempty"`
	Topics []string `json:"topics,omitempty"`
	Feed   string   `json:"feed,omitempty"`
	Data   *Event   `json:"data,omitempty"`
}
