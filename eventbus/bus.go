// Package eventbus provides the process-wide publish/subscribe fabric for
// realtime stream fanout. Topics are plain strings and exist only while at
// least one subscriber is attached.
package eventbus

import (
	"log/slog"
	"sync"
)

// TopicBroadcast is delivered to every connection unconditionally. It carries
// system-wide notices.
const TopicBroadcast = "broadcast"

// Event is an immutable tagged payload published to exactly one topic.
// Delivery is at-most-once per subscriber per publish; there is no persistence
// and no replay.
type Event struct {
	Type string `json:"type"`
	Body any    `json:"body"`
}

// Handler receives events published to a subscribed topic. A handler must not
// assume any ordering relative to other subscribers of the same topic.
type Handler func(ev Event)

// Subscription is the handle returned by Subscribe. Unsubscribing an already
// removed subscription is a no-op.
type Subscription struct {
	bus     *Bus
	topic   string
	id      uint64
	handler Handler
}

// Topic returns the topic this subscription is attached to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Unsubscribe detaches the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}

// Bus is a multi-producer/multi-consumer pub/sub fabric keyed by topic string.
// Subscribe and Unsubscribe are safe under concurrent calls from arbitrary
// connections without caller coordination.
type Bus struct {
	mu      sync.RWMutex
	topics  map[string]map[uint64]*Subscription
	nextID  uint64
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// WithMetrics enables Prometheus metrics for the bus.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) {
		b.metrics = m
	}
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics: make(map[string]map[uint64]*Subscription),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "eventbus")
	return b
}

// Subscribe registers a handler for a topic and returns its handle. The topic
// is created implicitly on the first subscription.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	b.mu.Lock()
	b.nextID++
	sub := &Subscription{bus: b, topic: topic, id: b.nextID, handler: handler}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[uint64]*Subscription)
		b.topics[topic] = subs
	}
	subs[sub.id] = sub
	topicCount := len(b.topics)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.subscriptions.Inc()
		b.metrics.topics.Set(float64(topicCount))
	}
	return sub
}

// unsubscribe removes a subscription; the topic is destroyed when its last
// subscriber detaches. Idempotent.
func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	subs, ok := b.topics[sub.topic]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, ok := subs[sub.id]; !ok {
		b.mu.Unlock()
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(b.topics, sub.topic)
	}
	topicCount := len(b.topics)
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.subscriptions.Dec()
		b.metrics.topics.Set(float64(topicCount))
	}
}

// Publish invokes every handler currently registered for the topic. A handler
// that panics is recovered and logged; it never prevents delivery to other
// handlers for the same event.
func (b *Bus) Publish(topic string, ev Event) {
	b.mu.RLock()
	subs := b.topics[topic]
	snapshot := make([]*Subscription, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.published.WithLabelValues(ev.Type).Inc()
	}

	for _, sub := range snapshot {
		b.deliver(topic, sub, ev)
	}
}

// deliver runs one handler inside an isolation boundary.
func (b *Bus) deliver(topic string, sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"topic", topic,
				"event_type", ev.Type,
				"panic", r)
			if b.metrics != nil {
				b.metrics.handlerPanics.Inc()
			}
		}
	}()
	sub.handler(ev)
}

// SubscriberCount returns the number of handlers attached to a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// TopicCount returns the number of live topics.
func (b *Bus) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}
