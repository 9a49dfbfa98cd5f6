package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/totegamma/groupsync/core"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		event core.Event
		topic core.Topic
		typ   string
	}{
		{
			name:  "group definition",
			event: core.Event{ID: "g1", Kind: core.KindGroupMetadata, Content: `{"name":"keto"}`},
			topic: core.TopicGroupMetadata,
			typ:   core.MessageGroupCreated,
		},
		{
			name:  "group amendment",
			event: core.Event{ID: "g2", Kind: core.KindGroupMetadata, Tags: [][]string{{"e", "g1"}}},
			topic: core.TopicGroupMetadata,
			typ:   core.MessageGroupUpdated,
		},
		{
			name:  "admin claim",
			event: core.Event{ID: "a1", Kind: core.KindGroupAdmin, Tags: [][]string{{"e", "g1"}}},
			topic: core.TopicGroupMembers,
			typ:   core.MessageGroupMembersUpdated,
		},
		{
			name:  "membership claim",
			event: core.Event{ID: "m1", Kind: core.KindGroupMember, Tags: [][]string{{"e", "g1"}}},
			topic: core.TopicGroupMembers,
			typ:   core.MessageGroupMembersUpdated,
		},
		{
			name:  "food note",
			event: core.Event{ID: "n1", Kind: core.KindTextNote, Tags: [][]string{{"t", "Keto"}}},
			topic: core.TopicFood,
			typ:   core.MessageNewPost,
		},
		{
			name:  "plain note",
			event: core.Event{ID: "n2", Kind: core.KindTextNote, Tags: [][]string{{"t", "cats"}}},
			topic: core.TopicUnknown,
			typ:   core.MessageEvent,
		},
		{
			name:  "food hashtag on other kind",
			event: core.Event{ID: "r1", Kind: 7, Tags: [][]string{{"t", "food"}}},
			topic: core.TopicUnknown,
			typ:   core.MessageEvent,
		},
		{
			name:  "empty event",
			event: core.Event{},
			topic: core.TopicUnknown,
			typ:   core.MessageEvent,
		},
		{
			name:  "broken tags",
			event: core.Event{Kind: core.KindTextNote, Tags: [][]string{{}, {"t"}, nil}},
			topic: core.TopicUnknown,
			typ:   core.MessageEvent,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.topic, Classify(c.event))
			assert.Equal(t, c.typ, MessageType(Parse(c.event)))
		})
	}
}

func TestParseVariants(t *testing.T) {
	definition := Parse(core.Event{ID: "g1", Kind: core.KindGroupMetadata})
	if assert.IsType(t, GroupMetadata{}, definition) {
		assert.Equal(t, "g1", definition.(GroupMetadata).GroupID)
		assert.False(t, definition.(GroupMetadata).Amendment)
	}

	removed := Parse(core.Event{Kind: core.KindGroupMember, Tags: [][]string{{"e", "g1"}, {"role", "REMOVED"}}})
	if assert.IsType(t, MembershipClaim{}, removed) {
		assert.Equal(t, core.RoleRemoved, removed.(MembershipClaim).Role)
		assert.Equal(t, "g1", removed.(MembershipClaim).GroupID)
	}

	promoted := Parse(core.Event{Kind: core.KindGroupMember, Tags: [][]string{{"e", "g1"}, {"role", "admin"}}})
	assert.Equal(t, core.RoleAdmin, promoted.(MembershipClaim).Role)

	odd := Parse(core.Event{Kind: core.KindGroupMember, Tags: [][]string{{"role", "owner"}}})
	assert.Equal(t, core.RoleMember, odd.(MembershipClaim).Role)

	post := Parse(core.Event{Kind: core.KindTextNote, Tags: [][]string{{"e", "g1"}, {"t", "#Vegan"}, {"t", "cats"}, {"t", "water"}}})
	if assert.IsType(t, ContentPost{}, post) {
		assert.Equal(t, []string{"vegan", "water"}, post.(ContentPost).Hashtags)
		assert.Equal(t, "g1", post.(ContentPost).GroupID)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	event := core.Event{ID: "n1", Kind: core.KindTextNote, Tags: [][]string{{"t", "meal"}}}
	first := Classify(event)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Classify(event))
	}
}
