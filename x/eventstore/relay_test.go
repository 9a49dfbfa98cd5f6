package eventstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nbd-wtf/go-nostr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/groupsync/core"
)

var ctx = context.Background()

const unreachable = "ws://127.0.0.1:1"

// fakeRelay answers every REQ with its stored events
type fakeRelay struct {
	events    []nostr.Event
	accept    bool
	published chan nostr.Event
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg []json.RawMessage
		if json.Unmarshal(data, &msg) != nil || len(msg) < 2 {
			continue
		}
		var typ string
		json.Unmarshal(msg[0], &typ)

		switch typ {
		case "REQ":
			var subID string
			json.Unmarshal(msg[1], &subID)
			for _, ev := range f.events {
				ws.WriteJSON([]any{"EVENT", subID, ev})
			}
			ws.WriteJSON([]any{"EOSE", subID})
		case "EVENT":
			var ev nostr.Event
			json.Unmarshal(msg[1], &ev)
			if f.published != nil {
				f.published <- ev
			}
			ws.WriteJSON([]any{"OK", ev.ID, f.accept, ""})
		}
	}
}

func startRelay(t *testing.T, relay *fakeRelay) string {
	server := httptest.NewServer(relay)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func signed(t *testing.T, sk string, createdAt int64, content string) nostr.Event {
	ev := nostr.Event{
		CreatedAt: nostr.Timestamp(createdAt),
		Kind:      core.KindGroupMetadata,
		Tags:      nostr.Tags{},
		Content:   content,
	}
	require.NoError(t, ev.Sign(sk))
	return ev
}

func TestRelayFetchMerges(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	older := signed(t, sk, 100, `{"name":"old"}`)
	newer := signed(t, sk, 200, `{"name":"new"}`)

	a := startRelay(t, &fakeRelay{events: []nostr.Event{older, newer}})
	b := startRelay(t, &fakeRelay{events: []nostr.Event{older}})

	store := NewRelayStore(ctx, core.Config{Relays: []string{a, b, unreachable}, StoreTimeout: 3 * time.Second})

	events, err := store.Fetch(ctx, core.Filter{Kinds: []int{core.KindGroupMetadata}})
	require.NoError(t, err)
	if assert.Len(t, events, 2) {
		assert.Equal(t, newer.ID, events[0].ID)
		assert.Equal(t, older.ID, events[1].ID)
		assert.Equal(t, `{"name":"old"}`, events[1].Content)
	}

	events, err = store.Fetch(ctx, core.Filter{Kinds: []int{core.KindGroupMetadata}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRelayPublish(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	ev := signed(t, sk, 300, `{"name":"keto"}`)

	published := make(chan nostr.Event, 4)
	accepting := startRelay(t, &fakeRelay{accept: true, published: published})
	rejecting := startRelay(t, &fakeRelay{accept: false})

	store := NewRelayStore(ctx, core.Config{Relays: []string{accepting, rejecting, unreachable}, StoreTimeout: 3 * time.Second})
	require.NoError(t, store.Publish(ctx, core.EventFromNostr(ev)))

	select {
	case got := <-published:
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, ev.Sig, got.Sig)
	case <-time.After(3 * time.Second):
		t.Fatal("event not published")
	}

	store = NewRelayStore(ctx, core.Config{Relays: []string{rejecting}, StoreTimeout: 3 * time.Second})
	err := store.Publish(ctx, core.EventFromNostr(ev))
	var transport core.ErrorTransport
	assert.True(t, errors.As(err, &transport))
}

func TestRelayUnavailable(t *testing.T) {
	store := NewRelayStore(ctx, core.Config{StoreTimeout: time.Second})
	_, err := store.Fetch(ctx, core.Filter{})
	assert.ErrorAs(t, err, &core.ErrorTransport{})

	store = NewRelayStore(ctx, core.Config{Relays: []string{unreachable}, StoreTimeout: time.Second})
	_, err = store.Fetch(ctx, core.Filter{Kinds: []int{1}})
	assert.ErrorAs(t, err, &core.ErrorTransport{})
	assert.ErrorAs(t, store.Publish(ctx, core.Event{ID: "x"}), &core.ErrorTransport{})
}
