// Package eventstore provides the event log implementations
package eventstore

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/groupsync/core"
)

var tracer = otel.Tracer("eventstore")

type relayStore struct {
	pool   *nostr.SimplePool
	urls   []string
	config core.Config
}

// NewRelayStore creates an event store backed by a pool of nostr relays.
// Fetch merges and deduplicates the answers of every relay.
func NewRelayStore(ctx context.Context, config core.Config) core.EventStore {
	config = config.WithDefaults()
	return &relayStore{
		pool:   nostr.NewSimplePool(ctx),
		urls:   config.Relays,
		config: config,
	}
}

func (s *relayStore) Fetch(ctx context.Context, filter core.Filter) ([]core.Event, error) {
	ctx, span := tracer.Start(ctx, "EventStore.Relay.Fetch")
	defer span.End()

	if len(s.urls) == 0 {
		return nil, core.NewErrorTransport("fetch", errors.New("no relays configured"))
	}

	nf := filter.ToNostr()

	var mu sync.Mutex
	var wg sync.WaitGroup
	merged := make(map[string]core.Event)
	failures := 0
	var lastErr error

	for _, url := range s.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			events, err := s.query(ctx, url, nf)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				slog.WarnContext(
					ctx, "relay query failed",
					slog.String("relay", url),
					slog.String("error", err.Error()),
					slog.String("module", "eventstore"),
				)
				return
			}
			for _, ev := range events {
				if _, ok := merged[ev.ID]; !ok {
					merged[ev.ID] = core.EventFromNostr(*ev)
				}
			}
		}(url)
	}
	wg.Wait()

	span.SetAttributes(
		attribute.Int("relays", len(s.urls)),
		attribute.Int("failures", failures),
		attribute.Int("events", len(merged)),
	)

	if failures == len(s.urls) {
		span.RecordError(lastErr)
		return nil, core.NewErrorTransport("fetch", lastErr)
	}

	events := make([]core.Event, 0, len(merged))
	for _, ev := range merged {
		events = append(events, ev)
	}
	sortNewestFirst(events)

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[:filter.Limit]
	}

	return events, nil
}

func (s *relayStore) query(ctx context.Context, url string, filter nostr.Filter) ([]*nostr.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	relay, err := s.pool.EnsureRelay(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect relay")
	}

	return relay.QuerySync(ctx, filter)
}

// Publish succeeds when at least one relay accepts the event
func (s *relayStore) Publish(ctx context.Context, event core.Event) error {
	ctx, span := tracer.Start(ctx, "EventStore.Relay.Publish")
	defer span.End()

	if len(s.urls) == 0 {
		return core.NewErrorTransport("publish", errors.New("no relays configured"))
	}

	ev := event.ToNostr()

	var mu sync.Mutex
	var wg sync.WaitGroup
	accepted := 0
	var lastErr error

	for _, url := range s.urls {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()

			err := s.publish(ctx, url, ev)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				slog.WarnContext(
					ctx, "relay rejected event",
					slog.String("relay", url),
					slog.String("event", ev.ID),
					slog.String("error", err.Error()),
					slog.String("module", "eventstore"),
				)
				return
			}
			accepted++
		}(url)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("accepted", accepted))

	if accepted == 0 {
		span.RecordError(lastErr)
		return core.NewErrorTransport("publish", lastErr)
	}
	return nil
}

func (s *relayStore) publish(ctx context.Context, url string, ev nostr.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.StoreTimeout)
	defer cancel()

	relay, err := s.pool.EnsureRelay(url)
	if err != nil {
		return errors.Wrap(err, "failed to connect relay")
	}

	return relay.Publish(ctx, ev)
}

func sortNewestFirst(events []core.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt > events[j].CreatedAt
		}
		return events[i].ID < events[j].ID
	})
}
