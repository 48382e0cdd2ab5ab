package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribePublish(t *testing.T) {
	bus := New()

	var got []Event
	sub := bus.Subscribe("t1", func(ev Event) {
		got = append(got, ev)
	})
	defer sub.Unsubscribe()

	bus.Publish("t1", Event{Type: "a", Body: 1})
	bus.Publish("t2", Event{Type: "b", Body: 2}) // different topic, not delivered

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Type)
}

func TestTopicLifecycle(t *testing.T) {
	bus := New()
	assert.Equal(t, 0, bus.TopicCount())

	s1 := bus.Subscribe("t", func(Event) {})
	s2 := bus.Subscribe("t", func(Event) {})
	assert.Equal(t, 1, bus.TopicCount())
	assert.Equal(t, 2, bus.SubscriberCount("t"))

	s1.Unsubscribe()
	assert.Equal(t, 1, bus.SubscriberCount("t"))

	// Topic is destroyed when the last subscriber detaches.
	s2.Unsubscribe()
	assert.Equal(t, 0, bus.TopicCount())
	assert.Equal(t, 0, bus.SubscriberCount("t"))
}

func TestUnsubscribeIdempotent(t *testing.T) {
	bus := New()

	var calls int
	sub := bus.Subscribe("t", func(Event) { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe() // no-op, no panic

	bus.Publish("t", Event{Type: "x"})
	assert.Equal(t, 0, calls)
}

func TestHandlerPanicIsolation(t *testing.T) {
	bus := New()

	var delivered int
	bus.Subscribe("t", func(Event) { panic("boom") })
	bus.Subscribe("t", func(Event) { delivered++ })

	assert.NotPanics(t, func() {
		bus.Publish("t", Event{Type: "x"})
	})
	assert.Equal(t, 1, delivered)
}

func TestUnsubscribeDuringDelivery(t *testing.T) {
	bus := New()

	var sub *Subscription
	var calls int
	sub = bus.Subscribe("t", func(Event) {
		calls++
		sub.Unsubscribe()
	})

	bus.Publish("t", Event{Type: "x"})
	bus.Publish("t", Event{Type: "x"})
	assert.Equal(t, 1, calls)
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := New()

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sub := bus.Subscribe("hot", func(Event) {
					delivered.Add(1)
				})
				bus.Publish("hot", Event{Type: "tick"})
				sub.Unsubscribe()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, bus.TopicCount())
	// Each goroutine's own publish sees at least its own subscription.
	assert.GreaterOrEqual(t, delivered.Load(), int64(1600))
}

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "mainStream:u1", MainStream("u1"))
	assert.Equal(t, "noteStream:n1", NoteStream("n1"))
	assert.Equal(t, "chatUserStream:a-b", ChatUserStream("a", "b"))
	assert.Equal(t, "reversiGameStream:g1", ReversiGameStream("g1"))
}
