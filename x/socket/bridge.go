package socket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "groupsync:relay"

// Bridge shares relayed events between hub nodes
type Bridge interface {
	Publish(ctx context.Context, envelope Envelope) error
	Subscribe(ctx context.Context, deliver func(context.Context, Envelope))
}

type bridge struct {
	rdb *redis.Client
}

// NewBridge creates a redis pub/sub bridge. It returns nil when rdb is nil.
func NewBridge(rdb *redis.Client) Bridge {
	if rdb == nil {
		return nil
	}
	return &bridge{rdb: rdb}
}

func (b *bridge) Publish(ctx context.Context, envelope Envelope) error {
	ctx, span := tracer.Start(ctx, "Socket.Bridge.Publish")
	defer span.End()

	payload, err := json.Marshal(envelope)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to encode envelope")
	}

	err = b.rdb.Publish(ctx, relayChannel, payload).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to publish envelope")
	}
	return nil
}

// Subscribe blocks until ctx is done
func (b *bridge) Subscribe(ctx context.Context, deliver func(context.Context, Envelope)) {
	pubsub := b.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope Envelope
			err := json.Unmarshal([]byte(msg.Payload), &envelope)
			if err != nil {
				slog.WarnContext(
					ctx, "dropping undecodable envelope",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				continue
			}
			deliver(ctx, envelope)
		}
	}
}
