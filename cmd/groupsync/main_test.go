package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/core/mock"
	"github.com/totegamma/groupsync/x/signer"
)

func TestSocketURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000/api/v1/socket", socketURL("http://localhost:8000/"))
	assert.Equal(t, "wss://diet.example.com/api/v1/socket", socketURL("https://diet.example.com"))
}

func TestWiring(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	config := core.Config{NodeID: "test", AllowUnsigned: true}.WithDefaults()

	mockStore := mock_core.NewMockEventStore(ctrl)
	mockStore.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	keyring, err := signer.NewKeyring(config)
	require.NoError(t, err)

	hub := SetupSocketService(nil, config)
	conn := hub.Open(ctx)
	_, err = hub.Subscribe(ctx, conn.ID, []string{"group_metadata", "group_members"})
	require.NoError(t, err)

	service := SetupGroupService(mockStore, nil, keyring, hub, config)
	created, err := service.CreateGroup(ctx, "alice", "Keto Club", "low carb", "")
	require.NoError(t, err)
	assert.Equal(t, "Keto Club", created.Name)
	assert.Equal(t, "alice", created.CreatedBy)

	first := <-conn.Outbound()
	assert.Equal(t, core.MessageGroupCreated, first.Type)
	assert.Equal(t, created.ID, first.Data.ID)

	second := <-conn.Outbound()
	assert.Equal(t, core.MessageGroupMembersUpdated, second.Type)

	assert.NotNil(t, SetupGroupHandler(mockStore, nil, keyring, hub, config))
}

func TestListenConfig(t *testing.T) {
	t.Setenv("GROUPSYNC_URL", "")
	previous := nodeURL
	nodeURL = "http://localhost:8000"
	t.Cleanup(func() { nodeURL = previous })

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "realtime:\n  url: wss://diet.example.com/api/v1/socket\n  backoff: 1s\n  maxBackoff: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cmd := &cobra.Command{Use: "listen"}
	addListenFlags(cmd)

	config, err := listenConfig(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "wss://diet.example.com/api/v1/socket", config.URL)
	assert.Equal(t, time.Second, config.Backoff)
	assert.Equal(t, 30*time.Second, config.MaxBackoff)

	require.NoError(t, cmd.Flags().Set("backoff", "2s"))
	require.NoError(t, cmd.Flags().Set("max-backoff", "1m"))
	config, err = listenConfig(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, config.Backoff)
	assert.Equal(t, time.Minute, config.MaxBackoff)

	// without a configuration file the node url is used
	config, err = listenConfig(&cobra.Command{Use: "listen"}, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/api/v1/socket", config.URL)
	assert.Zero(t, config.Backoff)
}
