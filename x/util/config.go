package util

import (
	"os"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/realtime"
)

// Config is the groupsync configuration file
type Config struct {
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
	Hub      Hub      `yaml:"hub"`
	Realtime Realtime `yaml:"realtime"`
	Signer   Signer   `yaml:"signer"`
	Profile  Profile  `yaml:"profile"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	Dsn           string `yaml:"dsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

// Store selects the event log. Driver is relay or postgres.
type Store struct {
	Driver      string   `yaml:"driver"`
	Relays      []string `yaml:"relays"`
	Lookback    string   `yaml:"lookback"`
	FetchLimit  int      `yaml:"fetchLimit"`
	Timeout     string   `yaml:"timeout"`
	PostHashtag string   `yaml:"postHashtag"`
}

type Hub struct {
	NodeID       string  `yaml:"nodeID"`
	QueueSize    int     `yaml:"queueSize"`
	RelayRate    float64 `yaml:"relayRate"`
	RelayBurst   int     `yaml:"relayBurst"`
	EnableBridge bool    `yaml:"enableBridge"`
}

type Realtime struct {
	URL        string `yaml:"url"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"maxBackoff"`
}

type Signer struct {
	SecretKeys    []string `yaml:"secretKeys"`
	AllowUnsigned bool     `yaml:"allowUnsigned"`
}

type Profile struct {
	Nickname string `yaml:"nickname" json:"nickname"`
	Contact  string `yaml:"contact" json:"contact"`
}

const (
	DriverRelay    = "relay"
	DriverPostgres = "postgres"
)

// Load loads config from given path
func (c *Config) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open configuration file")
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(c)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration file")
	}

	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverRelay
	}
	if c.Hub.NodeID == "" {
		c.Hub.NodeID, _ = os.Hostname()
	}

	return nil
}

// Runtime converts the file into the configuration used by the services
func (c Config) Runtime() (core.Config, error) {
	lookback, err := parseDuration(c.Store.Lookback)
	if err != nil {
		return core.Config{}, errors.Wrap(err, "store.lookback")
	}
	timeout, err := parseDuration(c.Store.Timeout)
	if err != nil {
		return core.Config{}, errors.Wrap(err, "store.timeout")
	}

	relays := make([]string, 0, len(c.Store.Relays))
	for _, relay := range c.Store.Relays {
		relay = strings.TrimSpace(relay)
		if relay != "" {
			relays = append(relays, relay)
		}
	}

	config := core.Config{
		NodeID:        c.Hub.NodeID,
		Lookback:      lookback,
		FetchLimit:    c.Store.FetchLimit,
		PostHashtag:   strings.TrimPrefix(c.Store.PostHashtag, "#"),
		Relays:        relays,
		StoreTimeout:  timeout,
		QueueSize:     c.Hub.QueueSize,
		RelayRate:     c.Hub.RelayRate,
		RelayBurst:    c.Hub.RelayBurst,
		SecretKeys:    c.Signer.SecretKeys,
		AllowUnsigned: c.Signer.AllowUnsigned,
	}

	return config.WithDefaults(), nil
}

// LiveClient converts the realtime section into a live client configuration.
// Zero values are left for the client to default.
func (c Config) LiveClient() (realtime.Config, error) {
	backoff, err := parseDuration(c.Realtime.Backoff)
	if err != nil {
		return realtime.Config{}, errors.Wrap(err, "realtime.backoff")
	}
	maxBackoff, err := parseDuration(c.Realtime.MaxBackoff)
	if err != nil {
		return realtime.Config{}, errors.Wrap(err, "realtime.maxBackoff")
	}

	return realtime.Config{
		URL:        strings.TrimSpace(c.Realtime.URL),
		Backoff:    backoff,
		MaxBackoff: maxBackoff,
	}, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}
