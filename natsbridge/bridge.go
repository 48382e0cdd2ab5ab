// Package natsbridge fans events out across processes. Each node republishes
// its local bus traffic onto NATS subjects and mirrors remote traffic back
// onto its local bus, so a subscriber sees every publish cluster-wide.
package natsbridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/eventbus"
)

// DefaultSubjectPrefix namespaces the bridge's subjects on the NATS side.
const DefaultSubjectPrefix = "stream.fanout"

// Config holds the bridge's connection settings.
type Config struct {
	URL string
	// SubjectPrefix defaults to DefaultSubjectPrefix.
	SubjectPrefix string
	// ConnectTimeout defaults to 5s.
	ConnectTimeout time.Duration
}

// envelope is the wire form of one bridged event. Origin carries the
// publishing node's id so a node never re-delivers its own traffic.
type envelope struct {
	Origin string          `json:"origin"`
	Topic  string          `json:"topic"`
	Type   string          `json:"type"`
	Body   json.RawMessage `json:"body"`
}

// Bridge connects one local bus to the cluster.
type Bridge struct {
	nodeID  string
	prefix  string
	bus     *eventbus.Bus
	conn    *nats.Conn
	sub     *nats.Subscription
	logger  *slog.Logger
	metrics *Metrics
}

// Options bundles the collaborators for New.
type Options struct {
	Config  Config
	Bus     *eventbus.Bus
	Logger  *slog.Logger
	Metrics *Metrics
}

// New connects to NATS and starts mirroring remote events onto the local bus.
func New(opts Options) (*Bridge, error) {
	if opts.Bus == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "natsbridge", "New", "validate bus")
	}

	cfg := opts.Config
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "natsbridge")

	b := &Bridge{
		nodeID:  uuid.NewString(),
		prefix:  cfg.SubjectPrefix,
		bus:     opts.Bus,
		logger:  logger,
		metrics: opts.Metrics,
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("streamfan-"+b.nodeID),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.WrapTransient(err, "natsbridge", "New", "connect to nats")
	}
	b.conn = conn

	sub, err := conn.Subscribe(cfg.SubjectPrefix+".>", b.onRemote)
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "natsbridge", "New", "subscribe to fanout subjects")
	}
	b.sub = sub

	logger.Info("bridge connected", "url", cfg.URL, "node_id", b.nodeID)
	return b, nil
}

// NodeID returns this node's origin identifier.
func (b *Bridge) NodeID() string { return b.nodeID }

// Publish delivers the event to the local bus and forwards it to the cluster.
// Emitters publish through the bridge instead of the bus directly; on nodes
// without a bridge the bus alone serves the same contract.
func (b *Bridge) Publish(ctx context.Context, topic string, ev eventbus.Event) error {
	b.bus.Publish(topic, ev)

	body, err := json.Marshal(ev.Body)
	if err != nil {
		return errors.WrapInvalid(err, "natsbridge", "Publish", "marshal event body")
	}
	data, err := json.Marshal(envelope{
		Origin: b.nodeID,
		Topic:  topic,
		Type:   ev.Type,
		Body:   body,
	})
	if err != nil {
		return errors.WrapInvalid(err, "natsbridge", "Publish", "marshal envelope")
	}

	if err := b.conn.Publish(subjectFor(b.prefix, topic), data); err != nil {
		b.metrics.publishFailed()
		return errors.WrapTransient(err, "natsbridge", "Publish", "publish to nats")
	}
	b.metrics.published()
	return nil
}

// onRemote mirrors one cluster event onto the local bus, dropping traffic this
// node originated.
func (b *Bridge) onRemote(msg *nats.Msg) {
	var env envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		b.logger.Warn("drop malformed envelope", "subject", msg.Subject, "error", err)
		b.metrics.dropped("malformed")
		return
	}
	if env.Origin == b.nodeID {
		b.metrics.dropped("own_origin")
		return
	}

	var body any
	if len(env.Body) > 0 {
		if err := json.Unmarshal(env.Body, &body); err != nil {
			b.logger.Warn("drop undecodable body", "topic", env.Topic, "error", err)
			b.metrics.dropped("malformed")
			return
		}
	}

	b.bus.Publish(env.Topic, eventbus.Event{Type: env.Type, Body: body})
	b.metrics.mirrored()
}

// Close drains the subscription and closes the connection.
func (b *Bridge) Close() error {
	if b.sub != nil {
		if err := b.sub.Drain(); err != nil {
			b.logger.Warn("drain subscription failed", "error", err)
		}
	}
	if b.conn != nil {
		if err := b.conn.Drain(); err != nil {
			b.conn.Close()
			return errors.WrapTransient(err, "natsbridge", "Close", "drain connection")
		}
	}
	return nil
}

// subjectFor maps a bus topic onto a NATS subject. Topic keys may contain
// characters NATS treats as token separators, so the topic rides as a single
// trailing token with separators escaped.
func subjectFor(prefix, topic string) string {
	escaped := make([]byte, 0, len(topic))
	for i := 0; i < len(topic); i++ {
		switch topic[i] {
		case '.', ' ', '*', '>':
			escaped = append(escaped, '_')
		default:
			escaped = append(escaped, topic[i])
		}
	}
	return prefix + "." + string(escaped)
}
