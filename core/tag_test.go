package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTags(t *testing.T) {
	event := Event{
		Tags: [][]string{
			{"d", "group1"},
			{"t", "food"},
			{"t", "ramen"},
			{"p"},
		},
	}

	value, ok := event.TagValue("d")
	assert.True(t, ok)
	assert.Equal(t, "group1", value)

	_, ok = event.TagValue("p")
	assert.False(t, ok)

	assert.Equal(t, []string{"food", "ramen"}, event.TagValues("t"))
	assert.Empty(t, event.TagValues("e"))
	assert.Equal(t, []string{"d:group1", "t:food", "t:ramen"}, event.TagRefs())
}

func TestNostrConversion(t *testing.T) {
	event := Event{
		ID:        "id",
		PubKey:    "pub",
		CreatedAt: 1700000000,
		Kind:      KindGroupMember,
		Tags:      [][]string{{"d", "group1"}, {"p", "alice", "member"}},
		Content:   "",
	}

	ev := event.ToNostr()
	assert.Equal(t, 1700000000, int(ev.CreatedAt))
	assert.Equal(t, "alice", ev.Tags[1][1])

	back := EventFromNostr(ev)
	assert.Equal(t, event, back)

	// the converted tags are copies
	ev.Tags[0][1] = "other"
	assert.Equal(t, "group1", event.Tags[0][1])
}

func TestFilterToNostr(t *testing.T) {
	filter := Filter{
		Kinds: []int{KindGroupMetadata},
		Tags:  map[string][]string{"d": {"group1"}},
		Since: 10,
		Limit: 5,
	}

	f := filter.ToNostr()
	assert.Equal(t, []int{KindGroupMetadata}, f.Kinds)
	assert.Equal(t, []string{"group1"}, f.Tags["d"])
	assert.NotNil(t, f.Since)
	assert.Nil(t, f.Until)
	assert.Equal(t, 5, f.Limit)
}
