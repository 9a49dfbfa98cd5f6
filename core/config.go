package core

import (
	"time"
)

// Config is the runtime configuration shared by the services.
// It is derived from the yaml file loaded by the command.
type Config struct {
	NodeID string

	// directory
	Lookback    time.Duration
	FetchLimit  int
	PostHashtag string

	// event store
	Relays       []string
	StoreTimeout time.Duration

	// hub
	QueueSize  int
	RelayRate  float64
	RelayBurst int

	// signer
	SecretKeys    []string
	AllowUnsigned bool
}

const (
	DefaultLookback     = 90 * 24 * time.Hour
	DefaultFetchLimit   = 500
	DefaultPostHashtag  = "food"
	DefaultStoreTimeout = 10 * time.Second
	DefaultQueueSize    = 64
)

// WithDefaults fills zero values
func (c Config) WithDefaults() Config {
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.FetchLimit <= 0 {
		c.FetchLimit = DefaultFetchLimit
	}
	if c.PostHashtag == "" {
		c.PostHashtag = DefaultPostHashtag
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	return c
}
