package natsbridge

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamfan/eventbus"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "stream.fanout.notesStream", subjectFor("stream.fanout", "notesStream"))
	assert.Equal(t, "stream.fanout.mainStream:u1", subjectFor("stream.fanout", "mainStream:u1"))

	// NATS token separators in topic keys are escaped.
	assert.Equal(t, "stream.fanout.a_b", subjectFor("stream.fanout", "a.b"))
	assert.Equal(t, "stream.fanout.a_b", subjectFor("stream.fanout", "a>b"))
}

func newLocalBridge(bus *eventbus.Bus) *Bridge {
	return &Bridge{
		nodeID: "node-a",
		prefix: DefaultSubjectPrefix,
		bus:    bus,
		logger: slog.Default(),
	}
}

func TestOnRemoteMirrorsForeignEvents(t *testing.T) {
	bus := eventbus.New()
	b := newLocalBridge(bus)

	received := make(chan eventbus.Event, 1)
	bus.Subscribe("notesStream", func(ev eventbus.Event) {
		received <- ev
	})

	data, err := json.Marshal(envelope{
		Origin: "node-b",
		Topic:  "notesStream",
		Type:   "note",
		Body:   json.RawMessage(`{"id":"n1"}`),
	})
	require.NoError(t, err)
	b.onRemote(&nats.Msg{Subject: "stream.fanout.notesStream", Data: data})

	select {
	case ev := <-received:
		assert.Equal(t, "note", ev.Type)
		body, ok := ev.Body.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "n1", body["id"])
	default:
		t.Fatal("remote event was not mirrored")
	}
}

func TestOnRemoteDropsOwnOrigin(t *testing.T) {
	bus := eventbus.New()
	b := newLocalBridge(bus)

	delivered := false
	bus.Subscribe("notesStream", func(eventbus.Event) {
		delivered = true
	})

	data, err := json.Marshal(envelope{Origin: "node-a", Topic: "notesStream", Type: "note"})
	require.NoError(t, err)
	b.onRemote(&nats.Msg{Data: data})

	assert.False(t, delivered)
}

func TestOnRemoteDropsMalformed(t *testing.T) {
	bus := eventbus.New()
	b := newLocalBridge(bus)

	delivered := false
	bus.Subscribe("notesStream", func(eventbus.Event) {
		delivered = true
	})

	b.onRemote(&nats.Msg{Data: []byte("garbage")})

	assert.False(t, delivered)
}
