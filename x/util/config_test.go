package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/groupsync/core"
)

const sample = `
server:
  dsn: host=localhost user=postgres dbname=groupsync
  redisAddr: localhost:6379
store:
  driver: postgres
  relays:
    - wss://relay.example.com
    - " "
  lookback: 720h
  timeout: 5s
  postHashtag: "#foodlog"
hub:
  nodeID: node-a
  queueSize: 16
  relayRate: 5
  relayBurst: 10
  enableBridge: true
realtime:
  url: wss://diet.example.com/api/v1/socket
  backoff: 1s
  maxBackoff: 1m
signer:
  allowUnsigned: true
profile:
  nickname: diet club
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	var config Config
	require.NoError(t, config.Load(writeConfig(t, sample)))

	assert.Equal(t, ":8000", config.Server.Listen)
	assert.Equal(t, DriverPostgres, config.Store.Driver)
	assert.True(t, config.Hub.EnableBridge)
	assert.Equal(t, "diet club", config.Profile.Nickname)

	runtime, err := config.Runtime()
	require.NoError(t, err)
	assert.Equal(t, "node-a", runtime.NodeID)
	assert.Equal(t, 720*time.Hour, runtime.Lookback)
	assert.Equal(t, 5*time.Second, runtime.StoreTimeout)
	assert.Equal(t, []string{"wss://relay.example.com"}, runtime.Relays)
	assert.Equal(t, "foodlog", runtime.PostHashtag)
	assert.Equal(t, core.DefaultFetchLimit, runtime.FetchLimit)
	assert.Equal(t, 16, runtime.QueueSize)
	assert.Equal(t, 5.0, runtime.RelayRate)
	assert.True(t, runtime.AllowUnsigned)

	live, err := config.LiveClient()
	require.NoError(t, err)
	assert.Equal(t, "wss://diet.example.com/api/v1/socket", live.URL)
	assert.Equal(t, time.Second, live.Backoff)
	assert.Equal(t, time.Minute, live.MaxBackoff)
}

func TestLoadDefaults(t *testing.T) {
	var config Config
	require.NoError(t, config.Load(writeConfig(t, "server:\n  listen: :9000\n")))
	assert.Equal(t, DriverRelay, config.Store.Driver)
	assert.NotEmpty(t, config.Hub.NodeID)

	runtime, err := config.Runtime()
	require.NoError(t, err)
	assert.Equal(t, core.DefaultLookback, runtime.Lookback)
	assert.Equal(t, core.DefaultPostHashtag, runtime.PostHashtag)
	assert.Equal(t, core.DefaultQueueSize, runtime.QueueSize)

	live, err := config.LiveClient()
	require.NoError(t, err)
	assert.Equal(t, "", live.URL)
	assert.Zero(t, live.Backoff)
	assert.Zero(t, live.MaxBackoff)
}

func TestLoadErrors(t *testing.T) {
	var config Config
	assert.Error(t, config.Load(filepath.Join(t.TempDir(), "missing.yaml")))

	config = Config{Store: Store{Lookback: "ninety days"}}
	_, err := config.Runtime()
	assert.Error(t, err)

	config = Config{Realtime: Realtime{MaxBackoff: "forever"}}
	_, err = config.LiveClient()
	assert.Error(t, err)
}
