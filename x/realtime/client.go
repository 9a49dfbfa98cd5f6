// Package realtime is the live client side of the hub protocol.
// A Client owns one logical connection and keeps it alive until Teardown.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/groupsync/core"
)

var tracer = otel.Tracer("realtime")

const (
	handshakeTimeout  = 10 * time.Second
	writeTimeout      = 5 * time.Second
	disconnectTimeout = 30 * time.Second
)

// Client is a live update consumer.
// Handlers run synchronously on the connection goroutine. A handler must not
// call Teardown.
type Client interface {
	Connect(ctx context.Context) error
	Teardown()
	On(topic string, handler Handler) Token
	Off(token Token) bool
	Send(msg core.ClientMessage) error
	Relay(event core.Event) error
	State() State
}

type client struct {
	config Config
	dialer *websocket.Dialer

	mu       sync.Mutex
	state    State
	ws       *websocket.Conn
	handlers map[string][]registration
	nextID   uint64
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex
}

// NewClient creates a disconnected client
func NewClient(config Config) Client {
	if config.Backoff <= 0 {
		config.Backoff = DefaultBackoff
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	return &client{
		config:   config,
		dialer:   &dialer,
		handlers: make(map[string][]registration),
	}
}

// Connect starts the connection loop. It returns immediately; progress is
// reported on the connection topic.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}
	if c.config.URL == "" {
		return fmt.Errorf("realtime: empty url")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx, c.done)
	return nil
}

// Teardown cancels any pending reconnect, closes the transport and waits for
// the connection loop to exit.
func (c *client) Teardown() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On registers handler for topic. Handlers of one topic run in registration order.
// Registering the first handler of a topic subscribes to it on the hub.
func (c *client) On(topic string, handler Handler) Token {
	c.mu.Lock()
	c.nextID++
	token := Token{topic: topic, id: c.nextID}
	_, known := c.handlers[topic]
	c.handlers[topic] = append(c.handlers[topic], registration{id: token.id, handler: handler})
	connected := c.state == Connected
	c.mu.Unlock()

	if !known && connected && remote(topic) {
		err := c.Send(core.ClientMessage{Type: core.MessageSubscribe, Topics: []string{topic}})
		if err != nil {
			slog.Warn(
				"failed to subscribe",
				slog.String("topic", topic),
				slog.String("error", err.Error()),
				slog.String("module", "realtime"),
			)
		}
	}

	return token
}

// Off removes one registration. The hub keeps the subscription until the
// next reconnect.
func (c *client) Off(token Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	registrations := c.handlers[token.topic]
	for i, r := range registrations {
		if r.id != token.id {
			continue
		}
		remaining := append(registrations[:i:i], registrations[i+1:]...)
		if len(remaining) == 0 {
			delete(c.handlers, token.topic)
		} else {
			c.handlers[token.topic] = remaining
		}
		return true
	}
	return false
}

// Send writes a message to the hub. It fails with ErrorNotConnected unless connected.
func (c *client) Send(msg core.ClientMessage) error {
	c.mu.Lock()
	ws := c.ws
	state := c.state
	c.mu.Unlock()

	if state != Connected || ws == nil {
		return core.NewErrorNotConnected()
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := ws.WriteJSON(msg)
	if err != nil {
		return errors.Wrap(core.NewErrorTransport("send", err), "failed to write message")
	}
	return nil
}

// Relay hands a locally observed event to the hub for fan-out
func (c *client) Relay(event core.Event) error {
	return c.Send(core.ClientMessage{Type: core.MessageNostrEvent, Event: &event})
}

func (c *client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	policy := c.policy()

	for {
		c.setState(Connecting)

		ws, _, err := c.dialer.DialContext(ctx, c.config.URL, nil)
		if err != nil {
			c.setState(Disconnected)
			slog.WarnContext(
				ctx, "failed to connect",
				slog.String("url", c.config.URL),
				slog.String("error", err.Error()),
				slog.String("module", "realtime"),
			)
		} else {
			policy.Reset()
			c.serve(ctx, ws)
		}

		if ctx.Err() != nil {
			return
		}

		wait := policy.NextBackOff()
		reconnectTotal.Inc()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// serve runs one established connection until it fails or ctx is done
func (c *client) serve(ctx context.Context, ws *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() {
		ws.Close()
	})
	defer stop()

	ws.SetReadDeadline(time.Now().Add(disconnectTimeout))
	ws.SetPingHandler(func(data string) error {
		ws.SetReadDeadline(time.Now().Add(disconnectTimeout))
		err := ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.mu.Lock()
	c.ws = ws
	c.state = Connected
	topics := c.topics()
	c.mu.Unlock()

	slog.InfoContext(
		ctx, "connected",
		slog.String("url", c.config.URL),
		slog.String("module", "realtime"),
	)
	c.dispatch(ctx, core.ServerMessage{Type: core.MessageConnection, Status: core.StatusConnected})

	if len(topics) > 0 {
		err := c.Send(core.ClientMessage{Type: core.MessageSubscribe, Topics: topics})
		if err != nil {
			slog.WarnContext(
				ctx, "failed to resubscribe",
				slog.String("error", err.Error()),
				slog.String("module", "realtime"),
			)
		}
	}

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.WarnContext(
					ctx, "connection lost",
					slog.String("error", err.Error()),
					slog.String("module", "realtime"),
				)
			}
			break
		}
		ws.SetReadDeadline(time.Now().Add(disconnectTimeout))

		var msg core.ServerMessage
		err = json.Unmarshal(payload, &msg)
		if err != nil {
			slog.WarnContext(
				ctx, "ignoring malformed message",
				slog.String("error", err.Error()),
				slog.String("module", "realtime"),
			)
			continue
		}

		// the hub greeting duplicates the local connection message
		if msg.Type == core.MessageConnection {
			continue
		}
		c.dispatch(ctx, msg)
	}

	c.mu.Lock()
	c.ws = nil
	c.state = Disconnected
	c.mu.Unlock()
	ws.Close()

	c.dispatch(ctx, core.ServerMessage{Type: core.MessageConnection, Status: core.StatusDisconnected})
}

// dispatch invokes handlers of the message topic and then the wildcard handlers.
// A failing handler does not prevent the others from running.
func (c *client) dispatch(ctx context.Context, msg core.ServerMessage) {
	ctx, span := tracer.Start(ctx, "Realtime.Client.Dispatch")
	defer span.End()

	key := msg.Feed
	if key == "" {
		key = msg.Type
	}

	c.mu.Lock()
	targets := append([]registration(nil), c.handlers[key]...)
	if msg.Feed != "" && key != string(core.TopicAll) {
		targets = append(targets, c.handlers[string(core.TopicAll)]...)
	}
	c.mu.Unlock()

	for _, r := range targets {
		err := invoke(ctx, r.handler, msg)
		if err != nil {
			handlerErrorTotal.Inc()
			span.RecordError(err)
			slog.ErrorContext(
				ctx, "handler failed",
				slog.String("topic", key),
				slog.String("error", err.Error()),
				slog.String("module", "realtime"),
			)
		}
	}
}

func invoke(ctx context.Context, handler Handler, msg core.ServerMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler(ctx, msg)
}

func (c *client) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// topics must be called with mu held
func (c *client) topics() []string {
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		if remote(topic) {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

func (c *client) policy() backoff.BackOff {
	if c.config.MaxBackoff > c.config.Backoff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.config.Backoff
		b.MaxInterval = c.config.MaxBackoff
		b.MaxElapsedTime = 0
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(c.config.Backoff)
}

// remote reports whether a topic is subscribed on the hub
func remote(topic string) bool {
	switch topic {
	case string(core.TopicConnection), core.MessageSubscribed, "":
		return false
	}
	return true
}
