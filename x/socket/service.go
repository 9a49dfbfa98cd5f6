// Package socket is the hub for live update connections
package socket

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/exp/maps"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/topic"
)

var tracer = otel.Tracer("socket")

// Service owns the subscription table of every local connection
type Service interface {
	Open(ctx context.Context) *Conn
	Subscribe(ctx context.Context, connID string, topics []string) ([]string, error)
	Relay(ctx context.Context, connID string, event core.Event) (int, error)
	Broadcast(ctx context.Context, event core.Event) int
	Close(ctx context.Context, connID string) bool
	Topics(connID string) []string
	Count() int
	Start(ctx context.Context)
	UpdateMetrics()
}

type service struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	subs  map[string]map[string]struct{}

	bridge Bridge
	config core.Config
}

// NewService creates a new hub. bridge may be nil for a single node.
func NewService(bridge Bridge, config core.Config) Service {
	return &service{
		conns:  make(map[string]*Conn),
		subs:   make(map[string]map[string]struct{}),
		bridge: bridge,
		config: config.WithDefaults(),
	}
}

// Start runs the cross node bridge until ctx is done
func (s *service) Start(ctx context.Context) {
	if s.bridge == nil {
		return
	}
	go s.bridge.Subscribe(ctx, s.deliverRemote)
}

// Open registers a new connection with an empty subscription set
func (s *service) Open(ctx context.Context) *Conn {
	conn := newConn(xid.New().String(), s.config.QueueSize)

	s.mu.Lock()
	s.conns[conn.ID] = conn
	s.subs[conn.ID] = make(map[string]struct{})
	s.mu.Unlock()

	slog.DebugContext(
		ctx, "connection opened",
		slog.String("conn", conn.ID),
		slog.String("module", "socket"),
	)

	return conn
}

// Subscribe adds topics to the set of a connection and returns the whole set
func (s *service) Subscribe(ctx context.Context, connID string, topics []string) ([]string, error) {
	_, span := tracer.Start(ctx, "Socket.Service.Subscribe")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.subs[connID]
	if !ok {
		return nil, core.NewErrorNotFound()
	}

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}

	current := maps.Keys(set)
	sort.Strings(current)
	return current, nil
}

// Relay classifies an event received from connID and fans it out to every
// other connection subscribed to its topic or to the wildcard.
func (s *service) Relay(ctx context.Context, connID string, event core.Event) (int, error) {
	ctx, span := tracer.Start(ctx, "Socket.Service.Relay")
	defer span.End()

	variant := topic.Parse(event)
	span.SetAttributes(attribute.String("topic", string(variant.Topic())))

	s.mu.RLock()
	if _, ok := s.conns[connID]; !ok {
		s.mu.RUnlock()
		return 0, core.NewErrorNotFound()
	}
	delivered := s.fanout(connID, variant, event)
	s.mu.RUnlock()

	s.forward(ctx, event)
	return delivered, nil
}

// Broadcast fans out an event that did not come from a connection
func (s *service) Broadcast(ctx context.Context, event core.Event) int {
	ctx, span := tracer.Start(ctx, "Socket.Service.Broadcast")
	defer span.End()

	variant := topic.Parse(event)

	s.mu.RLock()
	delivered := s.fanout("", variant, event)
	s.mu.RUnlock()

	s.forward(ctx, event)
	return delivered
}

// Close releases a connection. Only the first call for an id has effect.
func (s *service) Close(ctx context.Context, connID string) bool {
	s.mu.Lock()
	conn, ok := s.conns[connID]
	if ok {
		delete(s.conns, connID)
		delete(s.subs, connID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	conn.close()

	slog.DebugContext(
		ctx, "connection closed",
		slog.String("conn", connID),
		slog.Int64("dropped", conn.Dropped()),
		slog.String("module", "socket"),
	)
	return true
}

func (s *service) Topics(connID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.subs[connID]
	if !ok {
		return nil
	}
	topics := maps.Keys(set)
	sort.Strings(topics)
	return topics
}

func (s *service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// fanout must be called with the read lock held
func (s *service) fanout(origin string, variant topic.Variant, event core.Event) int {
	feed := string(variant.Topic())
	msg := core.ServerMessage{
		Type: topic.MessageType(variant),
		Feed: feed,
		Data: &event,
	}

	delivered := 0
	for id, set := range s.subs {
		if id == origin {
			continue
		}
		_, hit := set[feed]
		_, all := set[string(core.TopicAll)]
		if !hit && !all {
			continue
		}
		if s.conns[id].Send(msg) {
			delivered++
		}
	}

	relayedTotal.WithLabelValues(feed).Inc()
	deliveredTotal.Add(float64(delivered))
	return delivered
}

func (s *service) forward(ctx context.Context, event core.Event) {
	if s.bridge == nil {
		return
	}
	err := s.bridge.Publish(ctx, Envelope{
		Node:    s.config.NodeID,
		Version: topic.Version,
		Event:   event,
	})
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to forward event to other nodes",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
	}
}

func (s *service) deliverRemote(ctx context.Context, envelope Envelope) {
	if envelope.Node == s.config.NodeID {
		return
	}
	if envelope.Version != topic.Version {
		slog.WarnContext(
			ctx, "classifier version mismatch between nodes",
			slog.String("node", envelope.Node),
			slog.Int("remote", envelope.Version),
			slog.Int("local", topic.Version),
			slog.String("module", "socket"),
		)
	}

	variant := topic.Parse(envelope.Event)

	s.mu.RLock()
	s.fanout("", variant, envelope.Event)
	s.mu.RUnlock()
}
