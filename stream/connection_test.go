package stream_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
	"github.com/c360/streamfan/stream/channels"
)

// sink collects outbound frames as decoded objects.
type sink struct {
	mu     sync.Mutex
	frames []model.JSONObject
}

func (s *sink) Send(data []byte) error {
	var frame model.JSONObject
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	s.mu.Lock()
	s.frames = append(s.frames, frame)
	s.mu.Unlock()
	return nil
}

func (s *sink) ofType(frameType string) []model.JSONObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.JSONObject
	for _, f := range s.frames {
		if typ, _ := model.GetString(f, "type"); typ == frameType {
			out = append(out, f)
		}
	}
	return out
}

type harness struct {
	bus  *eventbus.Bus
	conn *stream.Connection
	sink *sink
}

func newHarness(t *testing.T, user *model.User, token *model.AccessToken) *harness {
	t.Helper()

	bus := eventbus.New()
	registry := stream.NewRegistry()
	require.NoError(t, channels.RegisterAll(registry))

	s := &sink{}
	conn := stream.NewConnection(stream.Options{
		User:     user,
		Token:    token,
		Bus:      bus,
		Registry: registry,
		Services: stream.NopServices(),
		Sender:   s,
	})
	t.Cleanup(conn.Dispose)

	return &harness{bus: bus, conn: conn, sink: s}
}

func (h *harness) handle(t *testing.T, frame model.JSONObject) {
	t.Helper()
	raw, err := json.Marshal(frame)
	require.NoError(t, err)
	h.conn.HandleMessage(context.Background(), raw)
}

func localUser(id string) *model.User {
	return &model.User{ID: id, Username: id}
}

func TestNoteSubscriptionRefCounting(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	sub := model.JSONObject{"type": "subNote", "body": model.JSONObject{"id": "n1"}}
	unsub := model.JSONObject{"type": "unsubNote", "body": model.JSONObject{"id": "n1"}}

	// sub, sub, unsub leaves the listener attached.
	h.handle(t, sub)
	h.handle(t, sub)
	h.handle(t, unsub)
	assert.True(t, h.conn.HasNoteSubscription("n1"))
	assert.Equal(t, 1, h.bus.SubscriberCount(eventbus.NoteStream("n1")))

	// The final unsub detaches; a surplus unsub is a no-op.
	h.handle(t, unsub)
	assert.False(t, h.conn.HasNoteSubscription("n1"))
	assert.Equal(t, 0, h.bus.SubscriberCount(eventbus.NoteStream("n1")))
	h.handle(t, unsub)
	assert.False(t, h.conn.HasNoteSubscription("n1"))
}

func TestNoteSubscriptionForwardsUpdates(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	h.handle(t, model.JSONObject{"type": "s", "body": model.JSONObject{"id": "n1"}})

	h.bus.Publish(eventbus.NoteStream("n1"), eventbus.Event{
		Type: "reacted",
		Body: model.JSONObject{"reaction": "like"},
	})

	frames := h.sink.ofType("noteUpdated")
	require.Len(t, frames, 1)
	body, ok := model.AsObject(frames[0]["body"])
	require.True(t, ok)
	assert.Equal(t, "n1", body["id"])
	assert.Equal(t, "reacted", body["type"])
}

func TestChannelCapSilentlyDropsExcessConnects(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)

	for i := 0; i < 33; i++ {
		h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
			"channel": "channel",
			"id":      fmt.Sprintf("c%d", i),
			"params":  model.JSONObject{"channelId": "x"},
			"pong":    true,
		}})
	}

	assert.Equal(t, 32, h.conn.ChannelCount())
	assert.Len(t, h.sink.ofType("connected"), 32)
}

// The cap is checked before the channel name, so a full connection drops an
// unknown name silently instead of surfacing a lookup error.
func TestChannelCapAppliesBeforeNameResolution(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	for i := 0; i < 32; i++ {
		h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
			"channel": "channel",
			"id":      fmt.Sprintf("c%d", i),
			"params":  model.JSONObject{"channelId": "x"},
		}})
	}
	require.Equal(t, 32, h.conn.ChannelCount())

	err := h.conn.ConnectChannel(context.Background(), "x", "doesNotExist", nil, false)
	assert.NoError(t, err)

	// Below the cap the unknown name is the one hard error.
	fresh := newHarness(t, localUser("u1"), nil)
	err = fresh.conn.ConnectChannel(context.Background(), "x", "doesNotExist", nil, false)
	assert.ErrorIs(t, err, errors.ErrNoSuchChannel)
}

func TestConnectRequiresCredential(t *testing.T) {
	anon := newHarness(t, nil, nil)
	anon.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a", "pong": true,
	}})
	assert.Zero(t, anon.conn.ChannelCount())
	assert.Empty(t, anon.sink.ofType("connected"))

	authed := newHarness(t, localUser("u1"), nil)
	authed.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a", "pong": true,
	}})
	require.Equal(t, 1, authed.conn.ChannelCount())

	acks := authed.sink.ofType("connected")
	require.Len(t, acks, 1)
	body, ok := model.AsObject(acks[0]["body"])
	require.True(t, ok)
	assert.Equal(t, "a", body["id"])
}

func TestConnectTokenScopeRules(t *testing.T) {
	// Token lacking the channel's scope is rejected.
	lacking := newHarness(t, localUser("u1"), &model.AccessToken{ID: "t1", Permissions: []string{"write:notes"}})
	lacking.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a", "pong": true,
	}})
	assert.Zero(t, lacking.conn.ChannelCount())

	// Token carrying the scope is admitted.
	granted := newHarness(t, localUser("u1"), &model.AccessToken{ID: "t2", Permissions: []string{"read:account"}})
	granted.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a", "pong": true,
	}})
	assert.Equal(t, 1, granted.conn.ChannelCount())

	// A credential-gated channel with no scope rejects every token session.
	scopeless := newHarness(t, localUser("u1"), &model.AccessToken{ID: "t3", Permissions: []string{"read:account"}})
	scopeless.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "reversi", "id": "r", "pong": true,
	}})
	assert.Zero(t, scopeless.conn.ChannelCount())

	// read:account also covers the drive relay.
	drive := newHarness(t, localUser("u1"), &model.AccessToken{ID: "t4", Permissions: []string{"read:account"}})
	drive.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "drive", "id": "d", "pong": true,
	}})
	assert.Equal(t, 1, drive.conn.ChannelCount())
}

func TestShareableChannelConnectsOnce(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)

	for i := 0; i < 2; i++ {
		h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
			"channel": "main", "id": fmt.Sprintf("m%d", i), "pong": true,
		}})
	}

	assert.Equal(t, 1, h.conn.ChannelCount())
	assert.Len(t, h.sink.ofType("connected"), 1)
}

func TestDisconnectUnknownIDIsNoop(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a",
	}})

	h.handle(t, model.JSONObject{"type": "disconnect", "body": model.JSONObject{"id": "nope"}})
	assert.Equal(t, 1, h.conn.ChannelCount())

	h.handle(t, model.JSONObject{"type": "disconnect", "body": model.JSONObject{"id": "a"}})
	assert.Zero(t, h.conn.ChannelCount())
}

func TestMalformedFramesAreDropped(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)

	h.conn.HandleMessage(context.Background(), []byte("not json"))
	h.conn.HandleMessage(context.Background(), []byte(`{"body":{}}`))
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{"channel": 7, "id": "a"}})
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a", "pong": "yes",
	}})
	h.handle(t, model.JSONObject{"type": "mystery", "body": model.JSONObject{}})

	assert.Zero(t, h.conn.ChannelCount())
	assert.Empty(t, h.sink.frames)
}

func TestLocalTimelineDeliversLocalPublicNote(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "localTimeline", "id": "lt", "params": model.JSONObject{"withRenotes": true},
	}})
	require.Equal(t, 1, h.bus.SubscriberCount(eventbus.TopicNotes))

	h.bus.Publish(eventbus.TopicNotes, eventbus.Event{Type: "note", Body: &model.Note{
		ID:         "n1",
		UserID:     "u2",
		User:       localUser("u2"),
		Visibility: model.VisibilityPublic,
	}})

	frames := h.sink.ofType("channel")
	require.Len(t, frames, 1)
	body, ok := model.AsObject(frames[0]["body"])
	require.True(t, ok)
	assert.Equal(t, "lt", body["id"])
	assert.Equal(t, "note", body["type"])

	note, ok := model.AsObject(body["body"])
	require.True(t, ok)
	assert.Equal(t, "n1", note["id"])
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	a := newHarness(t, localUser("u1"), nil)
	b := newHarness(t, nil, nil)
	a.conn.Listen()
	b.conn.Listen()
	// Both harnesses share no bus, so publish on each.
	for _, h := range []*harness{a, b} {
		h.bus.Publish(eventbus.TopicBroadcast, eventbus.Event{
			Type: "maintenance",
			Body: model.JSONObject{"message": "restarting soon"},
		})
		require.Len(t, h.sink.ofType("maintenance"), 1)
	}
}

func TestDisposeDetachesEverything(t *testing.T) {
	h := newHarness(t, localUser("u1"), nil)
	h.conn.Listen()
	h.handle(t, model.JSONObject{"type": "subNote", "body": model.JSONObject{"id": "n1"}})
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "a",
	}})

	h.conn.Dispose()
	h.conn.Dispose() // second dispose is a no-op

	assert.Zero(t, h.bus.TopicCount())
	assert.Zero(t, h.conn.ChannelCount())

	// Frames after dispose are ignored.
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "main", "id": "b", "pong": true,
	}})
	assert.Empty(t, h.sink.ofType("connected"))
}

func TestChannelMessageRoutedToHandler(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.handle(t, model.JSONObject{"type": "connect", "body": model.JSONObject{
		"channel": "serverStats", "id": "st",
	}})

	received := make(chan model.JSONObject, 1)
	h.bus.Subscribe(eventbus.TopicRequestServerStatsLog, func(ev eventbus.Event) {
		if body, ok := model.AsObject(ev.Body); ok {
			received <- body
		}
	})

	h.handle(t, model.JSONObject{"type": "ch", "body": model.JSONObject{
		"id":   "st",
		"type": "requestLog",
		"body": model.JSONObject{"id": "log1", "length": float64(50)},
	}})

	select {
	case body := <-received:
		assert.Equal(t, "log1", body["id"])
	default:
		t.Fatal("requestLog was not republished")
	}
}
