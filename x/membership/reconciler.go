// Package membership folds membership claims into group snapshots
package membership

import (
	"sort"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/topic"
)

type claim struct {
	event core.Event
	key   string
	role  core.Role
}

// Reconcile builds the membership snapshot of a group from its claims.
// Events that are not claims on groupID are ignored.
// The result does not depend on input order or duplicates.
func Reconcile(groupID string, events []core.Event) core.MembershipSnapshot {
	return Merge(core.MembershipSnapshot{GroupID: groupID}, events)
}

// Merge applies new claims on top of a snapshot.
// Merge(Reconcile(g, a), b) equals Reconcile(g, a ++ b).
func Merge(snapshot core.MembershipSnapshot, events []core.Event) core.MembershipSnapshot {
	result := core.MembershipSnapshot{
		GroupID: snapshot.GroupID,
		Entries: make(map[string]core.Membership, len(snapshot.Entries)),
	}
	for key, entry := range snapshot.Entries {
		result.Entries[key] = entry
	}

	for _, c := range claims(snapshot.GroupID, events) {
		current, ok := result.Entries[c.key]
		if ok && !newer(c.event, current) {
			continue
		}
		result.Entries[c.key] = core.Membership{
			Role:    c.role,
			AddedAt: c.event.CreatedAt,
			EventID: c.event.ID,
		}
	}

	for _, entry := range result.Entries {
		if entry.Role != core.RoleRemoved {
			result.Size++
		}
	}

	return result
}

// claims extracts deduplicated claims in ascending (createdAt, id) order
func claims(groupID string, events []core.Event) []claim {
	seen := make(map[string]struct{}, len(events))
	result := make([]claim, 0, len(events))

	for _, event := range events {
		if _, ok := seen[event.ID]; ok {
			continue
		}
		seen[event.ID] = struct{}{}

		switch v := topic.Parse(event).(type) {
		case topic.AdminClaim:
			if v.GroupID != groupID {
				continue
			}
			result = append(result, claim{event: event, key: event.PubKey, role: core.RoleAdmin})
		case topic.MembershipClaim:
			if v.GroupID != groupID {
				continue
			}
			result = append(result, claim{event: event, key: event.PubKey, role: v.Role})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return less(result[i].event, result[j].event)
	})

	return result
}

func less(a, b core.Event) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt < b.CreatedAt
	}
	return a.ID < b.ID
}

func newer(event core.Event, current core.Membership) bool {
	if event.CreatedAt != current.AddedAt {
		return event.CreatedAt > current.AddedAt
	}
	return event.ID > current.EventID
}
