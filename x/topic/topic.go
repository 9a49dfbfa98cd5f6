// Package topic classifies events into fan-out topics.
//
// Every node (the hub and every live client) must run the same Version.
// Changing the rules without rolling them out everywhere makes topic
// filtering disagree between participants.
package topic

import (
	"strings"

	"github.com/totegamma/groupsync/core"
)

const Version = 1

var foodHashtags = map[string]struct{}{
	"food":      {},
	"foodlog":   {},
	"diet":      {},
	"meal":      {},
	"mealprep":  {},
	"nutrition": {},
	"calories":  {},
	"keto":      {},
	"vegan":     {},
	"water":     {},
}

// Variant is one of GroupMetadata, MembershipClaim, AdminClaim, ContentPost or Unknown
type Variant interface {
	Topic() core.Topic
	Source() core.Event
	variant()
}

// GroupMetadata defines a group, or amends the group it references
type GroupMetadata struct {
	Event     core.Event
	GroupID   string
	Amendment bool
}

// MembershipClaim sets the author's role in a group
type MembershipClaim struct {
	Event   core.Event
	GroupID string
	Role    core.Role
}

// AdminClaim makes the author an admin of a group
type AdminClaim struct {
	Event   core.Event
	GroupID string
}

// ContentPost is a note carrying a food hashtag
type ContentPost struct {
	Event    core.Event
	GroupID  string
	Hashtags []string
}

type Unknown struct {
	Event core.Event
}

func (GroupMetadata) Topic() core.Topic   { return core.TopicGroupMetadata }
func (MembershipClaim) Topic() core.Topic { return core.TopicGroupMembers }
func (AdminClaim) Topic() core.Topic      { return core.TopicGroupMembers }
func (ContentPost) Topic() core.Topic     { return core.TopicFood }
func (Unknown) Topic() core.Topic         { return core.TopicUnknown }

func (v GroupMetadata) Source() core.Event   { return v.Event }
func (v MembershipClaim) Source() core.Event { return v.Event }
func (v AdminClaim) Source() core.Event      { return v.Event }
func (v ContentPost) Source() core.Event     { return v.Event }
func (v Unknown) Source() core.Event         { return v.Event }

func (GroupMetadata) variant()   {}
func (MembershipClaim) variant() {}
func (AdminClaim) variant()      {}
func (ContentPost) variant()     {}
func (Unknown) variant()         {}

// Parse maps an event to its variant. The first matching rule wins.
func Parse(event core.Event) Variant {
	groupID, _ := event.TagValue(core.TagGroup)

	switch event.Kind {
	case core.KindGroupMetadata:
		if groupID == "" {
			return GroupMetadata{Event: event, GroupID: event.ID}
		}
		return GroupMetadata{Event: event, GroupID: groupID, Amendment: true}
	case core.KindGroupAdmin:
		return AdminClaim{Event: event, GroupID: groupID}
	case core.KindGroupMember:
		return MembershipClaim{Event: event, GroupID: groupID, Role: memberRole(event)}
	case core.KindTextNote:
		hashtags := FoodHashtags(event)
		if len(hashtags) > 0 {
			return ContentPost{Event: event, GroupID: groupID, Hashtags: hashtags}
		}
	}

	return Unknown{Event: event}
}

// Classify returns the fan-out topic of an event
func Classify(event core.Event) core.Topic {
	return Parse(event).Topic()
}

// MessageType returns the wire message type used when fanning out a variant
func MessageType(v Variant) string {
	switch v := v.(type) {
	case GroupMetadata:
		if v.Amendment {
			return core.MessageGroupUpdated
		}
		return core.MessageGroupCreated
	case MembershipClaim, AdminClaim:
		return core.MessageGroupMembersUpdated
	case ContentPost:
		return core.MessageNewPost
	default:
		return core.MessageEvent
	}
}

// FoodHashtags returns the recognized food hashtags of an event, lower cased
func FoodHashtags(event core.Event) []string {
	found := make([]string, 0)
	for _, value := range event.TagValues(core.TagHashtag) {
		tag := strings.ToLower(strings.TrimPrefix(value, "#"))
		if _, ok := foodHashtags[tag]; ok {
			found = append(found, tag)
		}
	}
	return found
}

func memberRole(event core.Event) core.Role {
	role, ok := event.TagValue(core.TagRole)
	if !ok {
		return core.RoleMember
	}
	switch core.Role(strings.ToLower(role)) {
	case core.RoleAdmin:
		return core.RoleAdmin
	case core.RoleRemoved:
		return core.RoleRemoved
	default:
		return core.RoleMember
	}
}
