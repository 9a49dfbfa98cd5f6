package core

// event kinds
const (
	KindTextNote      = 1
	KindGroupMetadata = 39000
	KindGroupAdmin    = 39001
	KindGroupMember   = 39002
)

// tag names
const (
	TagGroup   = "e"
	TagHashtag = "t"
	TagRole    = "role"
	TagName    = "name"
	TagAbout   = "about"
	TagPicture = "picture"
)

// wire message types
const (
	MessageSubscribe  = "subscribe"
	MessageNostrEvent = "nostr_event"

	MessageConnection          = "connection"
	MessageSubscribed          = "subscribed"
	MessageGroupCreated        = "group_created"
	MessageGroupUpdated        = "group_updated"
	MessageGroupMembersUpdated = "group_members_updated"
	MessageNewPost             = "new_post"
	MessageEvent               = "event"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)
