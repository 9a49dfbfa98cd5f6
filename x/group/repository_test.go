package group

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/core/mock"
)

func TestDecodeMetadata(t *testing.T) {
	repo := NewRepository(nil, nil)

	metadata, err := repo.DecodeMetadata(ctx, core.Event{ID: "g1", Content: `{"name":"Keto","about":"carbs","picture":"p.png"}`})
	assert.NoError(t, err)
	assert.Equal(t, core.GroupMetadata{Name: "Keto", About: "carbs", Picture: "p.png"}, metadata)

	metadata, err = repo.DecodeMetadata(ctx, core.Event{ID: "g2", Content: "plain text group"})
	assert.Equal(t, "plain text group", metadata.Name)
	var malformed core.ErrorMalformedEvent
	if assert.True(t, errors.As(err, &malformed)) {
		assert.Equal(t, "g2", malformed.EventID)
	}

	metadata, err = repo.DecodeMetadata(ctx, core.Event{
		ID:      "g3",
		Content: `{"about":"from content"}`,
		Tags:    [][]string{{"name", "from tag"}, {"about", "ignored"}, {"picture", "q.png"}},
	})
	assert.NoError(t, err)
	assert.Equal(t, core.GroupMetadata{Name: "from tag", About: "from content", Picture: "q.png"}, metadata)
}

func TestFetchGroupEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	definition := core.Event{ID: "g1", Kind: core.KindGroupMetadata}
	amendment := core.Event{ID: "u1", Kind: core.KindGroupMetadata, Tags: [][]string{{"e", "g1"}}}

	mockStore := mock_core.NewMockEventStore(ctrl)
	mockStore.EXPECT().
		Fetch(gomock.Any(), core.Filter{IDs: []string{"g1"}, Kinds: []int{core.KindGroupMetadata}}).
		Return([]core.Event{definition}, nil)
	mockStore.EXPECT().
		Fetch(gomock.Any(), core.Filter{Kinds: []int{core.KindGroupMetadata}, Tags: map[string][]string{"e": {"g1"}}}).
		Return([]core.Event{amendment}, nil)
	mockStore.EXPECT().
		Fetch(gomock.Any(), core.Filter{IDs: []string{"g2"}, Kinds: []int{core.KindGroupMetadata}}).
		Return([]core.Event{}, nil)

	repo := NewRepository(mockStore, nil)

	events, err := repo.FetchGroupEvents(ctx, "g1")
	assert.NoError(t, err)
	assert.Equal(t, []core.Event{definition, amendment}, events)

	// no amendment lookup without a definition
	events, err = repo.FetchGroupEvents(ctx, "g2")
	assert.NoError(t, err)
	assert.Empty(t, events)
}
