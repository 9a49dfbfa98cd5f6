package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/core/mock"
	"github.com/totegamma/groupsync/x/group"
)

var ctx = context.Background()

func setup(t *testing.T, service core.GroupService) Client {
	h := group.NewHandler(service)

	e := echo.New()
	api := e.Group("/api/v1")
	api.GET("/groups", h.List)
	api.GET("/group/:id", h.Get)
	api.GET("/group/:id/members", h.Members)
	api.POST("/group", h.Create)
	api.POST("/group/:id/join", h.Join)
	api.POST("/group/:id/leave", h.Leave)
	api.POST("/group/:id/post", h.Post)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return NewClient(server.URL + "/")
}

func TestListAndGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_core.NewMockGroupService(ctrl)
	mockService.EXPECT().
		FetchGroups(gomock.Any(), core.GroupFilter{TextSearch: "keto diet", Tags: []string{"vegan"}, Limit: 3}).
		Return([]core.Group{{ID: "g1", Name: "Keto Club"}}, nil)
	mockService.EXPECT().FetchGroupByID(gomock.Any(), "g1").Return(core.Group{ID: "g1", Name: "Keto Club"}, nil)
	mockService.EXPECT().FetchGroupByID(gomock.Any(), "missing").Return(core.Group{}, core.NewErrorNotFound())
	mockService.EXPECT().FetchMembers(gomock.Any(), "g1").Return(core.MembershipSnapshot{
		GroupID: "g1",
		Entries: map[string]core.Membership{"bob": {Role: core.RoleAdmin, AddedAt: 300, EventID: "a1"}},
		Size:    1,
	}, nil)

	c := setup(t, mockService)

	groups, err := c.ListGroups(ctx, core.GroupFilter{TextSearch: "keto diet", Tags: []string{"vegan"}, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []core.Group{{ID: "g1", Name: "Keto Club"}}, groups)

	g, err := c.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Keto Club", g.Name)

	_, err = c.GetGroup(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrorNotFound{})

	snapshot, err := c.GetMembers(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, snapshot.Admins())
	assert.Equal(t, 1, snapshot.Size)
}

func TestMutations(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_core.NewMockGroupService(ctrl)
	mockService.EXPECT().
		CreateGroup(gomock.Any(), "carol", "Half", "", "").
		Return(core.Group{ID: "g2", Name: "Half"}, core.NewErrorPublish(core.Event{ID: "a2"}, true, errors.New("timeout")))
	mockService.EXPECT().Join(gomock.Any(), "g1", "bob").Return(core.Event{ID: "m1", Kind: core.KindGroupMember}, nil)
	mockService.EXPECT().Leave(gomock.Any(), "g1", "bob").Return(core.Event{}, core.NewErrorPermissionDenied())
	mockService.EXPECT().Post(gomock.Any(), "g1", "oatmeal", "bob").Return(core.Event{ID: "p1", Content: "oatmeal"}, nil)

	c := setup(t, mockService)

	g, err := c.CreateGroup(ctx, "carol", "Half", "", "")
	var publishErr core.ErrorPublish
	if assert.True(t, errors.As(err, &publishErr)) {
		assert.True(t, publishErr.Partial)
	}
	assert.Equal(t, "g2", g.ID)

	event, err := c.Join(ctx, "g1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "m1", event.ID)

	_, err = c.Leave(ctx, "g1", "bob")
	assert.ErrorIs(t, err, core.ErrorPermissionDenied{})

	event, err = c.Post(ctx, "g1", "oatmeal", "bob")
	require.NoError(t, err)
	assert.Equal(t, "oatmeal", event.Content)
}

func TestUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.GetGroup(ctx, "g1")
	assert.ErrorAs(t, err, &core.ErrorTransport{})
}
