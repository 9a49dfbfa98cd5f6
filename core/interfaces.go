//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=mock/services.go
package core

import (
	"context"
)

// EventStore is the external event log.
// Fetch already merges and deduplicates across every relay it knows.
type EventStore interface {
	Fetch(ctx context.Context, filter Filter) ([]Event, error)
	Publish(ctx context.Context, event Event) error
}

// Signer fills in ID and Sig of an event authored by event.PubKey
type Signer interface {
	Sign(ctx context.Context, event *Event) error
}

// Relayer accepts server originated events for live fan-out
type Relayer interface {
	Broadcast(ctx context.Context, event Event) int
}

type GroupService interface {
	CreateGroup(ctx context.Context, actorKey, name, about, picture string) (Group, error)
	FetchGroups(ctx context.Context, filter GroupFilter) ([]Group, error)
	FetchGroupByID(ctx context.Context, id string) (Group, error)
	FetchMembers(ctx context.Context, groupID string) (MembershipSnapshot, error)
	Join(ctx context.Context, groupID, actorKey string) (Event, error)
	Leave(ctx context.Context, groupID, actorKey string) (Event, error)
	Post(ctx context.Context, groupID, content, actorKey string) (Event, error)
}
