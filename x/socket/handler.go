package socket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/totegamma/groupsync/core"
)

const (
	pingInterval      = 10 * time.Second
	disconnectTimeout = 30 * time.Second
	writeTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler is handles websocket
type Handler interface {
	Connect(c echo.Context) error
}

type handler struct {
	service Service
	config  core.Config
}

// NewHandler is used for wire.go
func NewHandler(service Service, config core.Config) Handler {
	return &handler{service, config}
}

// Connect upgrades the request and serves one live connection until it closes
func (h handler) Connect(c echo.Context) error {
	ctx := c.Request().Context()

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.ErrorContext(
			ctx, "failed to upgrade websocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return nil
	}
	defer ws.Close()

	conn := h.service.Open(ctx)
	defer h.service.Close(ctx, conn.ID)

	conn.Send(core.ServerMessage{
		Type:   core.MessageConnection,
		Status: core.StatusConnected,
	})

	go h.writePump(ctx, ws, conn)

	ws.SetReadDeadline(time.Now().Add(disconnectTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(disconnectTimeout))
	})

	limiter := h.limiter()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(
					ctx, "connection lost",
					slog.String("conn", conn.ID),
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
			}
			break
		}
		ws.SetReadDeadline(time.Now().Add(disconnectTimeout))

		var msg core.ClientMessage
		err = json.Unmarshal(payload, &msg)
		if err != nil {
			slog.WarnContext(
				ctx, "ignoring malformed message",
				slog.String("conn", conn.ID),
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
			continue
		}

		switch msg.Type {
		case core.MessageSubscribe:
			topics, err := h.service.Subscribe(ctx, conn.ID, msg.Topics)
			if err != nil {
				return nil
			}
			conn.Send(core.ServerMessage{
				Type:   core.MessageSubscribed,
				Topics: topics,
			})
		case core.MessageNostrEvent:
			if msg.Event == nil {
				slog.WarnContext(
					ctx, "nostr_event without event",
					slog.String("conn", conn.ID),
					slog.String("module", "socket"),
				)
				continue
			}
			if !limiter.Allow() {
				rejectedTotal.Inc()
				slog.WarnContext(
					ctx, "rate limited",
					slog.String("conn", conn.ID),
					slog.String("event", msg.Event.ID),
					slog.String("module", "socket"),
				)
				continue
			}
			_, err := h.service.Relay(ctx, conn.ID, *msg.Event)
			if err != nil {
				return nil
			}
		default:
			slog.WarnContext(
				ctx, "unknown message type",
				slog.String("conn", conn.ID),
				slog.String("type", msg.Type),
				slog.String("module", "socket"),
			)
		}
	}

	return nil
}

func (h handler) limiter() *rate.Limiter {
	if h.config.RelayRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := h.config.RelayBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(h.config.RelayRate), burst)
}

// writePump is the only writer of data frames on ws
func (h handler) writePump(ctx context.Context, ws *websocket.Conn, conn *Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-conn.Done():
			ws.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout),
			)
			return
		case msg := <-conn.Outbound():
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(msg); err != nil {
				slog.WarnContext(
					ctx, "failed to write message",
					slog.String("conn", conn.ID),
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				ws.Close()
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				ws.Close()
				return
			}
		}
	}
}
