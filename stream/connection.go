package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
)

// DefaultMaxChannels bounds the active channel instances per connection.
const DefaultMaxChannels = 32

// DefaultStateRefreshInterval is how often the relationship snapshot is
// re-fetched for authenticated connections.
const DefaultStateRefreshInterval = 10 * time.Second

// Sender writes one serialized frame to the transport. Implementations own
// write serialization; send failures are theirs to surface through the read
// loop, not retried here.
type Sender interface {
	Send(data []byte) error
}

// Options configures a connection.
type Options struct {
	User     *model.User
	Token    *model.AccessToken
	Bus      *eventbus.Bus
	Registry *Registry
	Services *Services
	Sender   Sender
	Logger   *slog.Logger
	Metrics  *Metrics

	// MaxChannels defaults to DefaultMaxChannels when zero.
	MaxChannels int
	// StateRefreshInterval defaults to DefaultStateRefreshInterval when zero.
	StateRefreshInterval time.Duration
}

type noteSubscription struct {
	count int
	sub   *eventbus.Subscription
}

// Connection binds one WebSocket session to the event bus and a bounded set of
// channel instances, and enforces the channel admission policy.
//
// Inbound frames for one connection are handled sequentially by the transport
// read loop. The mutex exists because Dispose can race the read loop on socket
// close, and note/broadcast bus handlers fire from publisher goroutines.
type Connection struct {
	user     *model.User
	token    *model.AccessToken
	bus      *eventbus.Bus
	registry *Registry
	services *Services
	sender   Sender
	logger   *slog.Logger
	metrics  *Metrics

	maxChannels     int
	refreshInterval time.Duration

	state atomic.Pointer[UserState]

	mu           sync.Mutex
	channels     []Channel
	noteSubs     map[string]*noteSubscription
	broadcastSub *eventbus.Subscription
	disposed     bool

	refreshCancel context.CancelFunc
	refreshDone   chan struct{}

	disposeOnce sync.Once
}

// NewConnection creates a connection over an upgraded socket. Call Init and
// Listen before feeding frames, and Dispose exactly once on teardown.
func NewConnection(opts Options) *Connection {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.User != nil {
		logger = logger.With("user_id", opts.User.ID)
	}

	maxChannels := opts.MaxChannels
	if maxChannels <= 0 {
		maxChannels = DefaultMaxChannels
	}
	refreshInterval := opts.StateRefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = DefaultStateRefreshInterval
	}

	c := &Connection{
		user:            opts.User,
		token:           opts.Token,
		bus:             opts.Bus,
		registry:        opts.Registry,
		services:        opts.Services,
		sender:          opts.Sender,
		logger:          logger,
		metrics:         opts.Metrics,
		maxChannels:     maxChannels,
		refreshInterval: refreshInterval,
		noteSubs:        make(map[string]*noteSubscription),
	}
	c.state.Store(EmptyUserState())
	c.metrics.connectionOpened()
	return c
}

// User returns the authenticated user, or nil for anonymous sessions.
func (c *Connection) User() *model.User { return c.user }

// State returns the current relationship snapshot. Never nil; anonymous
// sessions see an empty snapshot.
func (c *Connection) State() *UserState {
	return c.state.Load()
}

// Init performs the first relationship-state fetch and, for authenticated
// sessions, arms the periodic refresh. A failed fetch keeps the previous
// snapshot; the connection stays up.
func (c *Connection) Init(ctx context.Context) {
	if c.user == nil {
		return
	}

	c.refreshState(ctx)

	refreshCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.refreshCancel = cancel
	c.refreshDone = make(chan struct{})
	go c.refreshLoop(refreshCtx)
}

func (c *Connection) refreshLoop(ctx context.Context) {
	defer close(c.refreshDone)

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refreshState(ctx)
		}
	}
}

func (c *Connection) refreshState(ctx context.Context) {
	state, err := FetchUserState(ctx, c.services.State, c.user.ID)
	if err != nil {
		c.logger.Warn("state refresh failed, keeping previous snapshot", "error", err)
		return
	}
	c.state.Store(state)
}

// Listen attaches the broadcast topic listener. System-wide notices reach
// every connection without an explicit subscription.
func (c *Connection) Listen() {
	sub := c.bus.Subscribe(eventbus.TopicBroadcast, func(ev eventbus.Event) {
		c.SendMessage(ev.Type, ev.Body)
	})

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.broadcastSub = sub
	c.mu.Unlock()
}

// HandleMessage dispatches one inbound client frame. Malformed frames and
// policy rejections are dropped without a reply; only an unknown channel name
// is treated as an error, and it aborts just that connect attempt.
func (c *Connection) HandleMessage(ctx context.Context, raw []byte) {
	var frame model.JSONObject
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	msgType, ok := model.GetString(frame, "type")
	if !ok {
		return
	}
	c.metrics.inboundFrame(msgType)
	body, _ := model.AsObject(frame["body"])

	switch msgType {
	case "readNotification":
		c.readNotification(ctx)
	case "subNote", "s", "sr":
		if id, ok := model.GetString(body, "id"); ok {
			c.subNote(id)
		}
	case "unsubNote", "un":
		if id, ok := model.GetString(body, "id"); ok {
			c.unsubNote(id)
		}
	case "connect":
		c.handleConnect(ctx, body)
	case "disconnect":
		if id, ok := model.GetString(body, "id"); ok {
			c.disconnectChannel(id)
		}
	case "channel", "ch":
		c.handleChannelMessage(ctx, body)
	default:
		// Unrecognized frame types are expected client noise.
	}
}

func (c *Connection) readNotification(ctx context.Context) {
	if c.user == nil {
		return
	}
	if err := c.services.Notifications.ReadAllNotification(ctx, c.user.ID); err != nil {
		c.logger.Warn("read all notifications failed", "error", err)
	}
}

func (c *Connection) handleConnect(ctx context.Context, body model.JSONObject) {
	if body == nil {
		return
	}
	channelName, ok := model.GetString(body, "channel")
	if !ok {
		return
	}
	id, ok := model.GetString(body, "id")
	if !ok {
		return
	}

	params := model.JSONObject{}
	if raw, exists := body["params"]; exists && raw != nil {
		obj, ok := model.AsObject(raw)
		if !ok {
			return
		}
		params = obj
	}
	pong, ok := model.OptionalBool(body, "pong", false)
	if !ok {
		return
	}

	if err := c.ConnectChannel(ctx, id, channelName, params, pong); err != nil {
		c.logger.Warn("channel connect failed", "channel", channelName, "error", err)
	}
}

// ConnectChannel runs the admission chain and instantiates a channel. Policy
// rejections return nil (silent drop); only an unknown channel name returns an
// error.
func (c *Connection) ConnectChannel(ctx context.Context, id, channelName string, params model.JSONObject, pong bool) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	if len(c.channels) >= c.maxChannels {
		c.mu.Unlock()
		c.metrics.connectRejected("channel_limit")
		c.logger.Debug("channel cap reached, dropping connect", "channel", channelName)
		return nil
	}

	// The registry is a fixed table after startup, so resolving under the
	// lock is cheap and keeps the cap check ahead of the name check.
	def, err := c.registry.Lookup(channelName)
	if err != nil {
		c.mu.Unlock()
		return errors.Wrap(err, "Connection", "ConnectChannel", "resolve channel")
	}
	if def.RequireCredential && c.user == nil {
		c.mu.Unlock()
		c.metrics.connectRejected("credential_required")
		return nil
	}
	if c.token != nil &&
		((def.Kind != "" && !c.token.HasPermission(def.Kind)) ||
			(def.Kind == "" && def.RequireCredential)) {
		c.mu.Unlock()
		c.metrics.connectRejected("insufficient_scope")
		return nil
	}
	if def.ShouldShare {
		for _, existing := range c.channels {
			if existing.Name() == channelName {
				c.mu.Unlock()
				c.metrics.connectRejected("duplicate_shared")
				return nil
			}
		}
	}

	ch := def.New(&Context{id: id, name: channelName, conn: c})
	c.channels = append(c.channels, ch)
	c.mu.Unlock()

	c.metrics.channelAdded()
	ch.Init(ctx, params)

	if pong {
		c.SendMessage("connected", model.JSONObject{"id": id})
	}
	return nil
}

func (c *Connection) disconnectChannel(id string) {
	c.mu.Lock()
	var target Channel
	for i, ch := range c.channels {
		if ch.ID() == id {
			target = ch
			c.channels = append(c.channels[:i], c.channels[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if target == nil {
		return
	}
	target.Dispose()
	c.metrics.channelsRemoved(1)
}

func (c *Connection) handleChannelMessage(ctx context.Context, body model.JSONObject) {
	if body == nil {
		return
	}
	id, ok := model.GetString(body, "id")
	if !ok {
		return
	}
	msgType, ok := model.GetString(body, "type")
	if !ok {
		return
	}

	c.mu.Lock()
	var target Channel
	for _, ch := range c.channels {
		if ch.ID() == id {
			target = ch
			break
		}
	}
	c.mu.Unlock()

	if handler, ok := target.(MessageHandler); ok {
		handler.OnMessage(ctx, msgType, body["body"])
	}
}

// subNote attaches a bus listener for the note topic on the 0 to 1 reference
// transition. Repeated subscribes from UI components sharing the socket only
// bump the count.
func (c *Connection) subNote(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return
	}
	if ns, exists := c.noteSubs[noteID]; exists {
		ns.count++
		return
	}

	sub := c.bus.Subscribe(eventbus.NoteStream(noteID), func(ev eventbus.Event) {
		c.SendMessage("noteUpdated", model.JSONObject{
			"id":   noteID,
			"type": ev.Type,
			"body": ev.Body,
		})
	})
	c.noteSubs[noteID] = &noteSubscription{count: 1, sub: sub}
	c.metrics.noteSubAttached()
}

// unsubNote detaches the listener on the 1 to 0 transition. Unknown ids and
// surplus unsubscribes are no-ops.
func (c *Connection) unsubNote(noteID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ns, exists := c.noteSubs[noteID]
	if !exists {
		return
	}
	ns.count--
	if ns.count > 0 {
		return
	}
	ns.sub.Unsubscribe()
	delete(c.noteSubs, noteID)
	c.metrics.noteSubDetached()
}

// SendMessage serializes an outbound frame and hands it to the transport.
func (c *Connection) SendMessage(msgType string, body any) {
	data, err := json.Marshal(model.JSONObject{"type": msgType, "body": body})
	if err != nil {
		c.logger.Error("marshal outbound frame failed", "frame_type", msgType, "error", err)
		return
	}
	if err := c.sender.Send(data); err != nil {
		c.logger.Debug("transport write failed", "frame_type", msgType, "error", err)
	}
}

// ChannelCount returns the number of active channel instances.
func (c *Connection) ChannelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// HasNoteSubscription reports whether the note topic currently has a listener.
func (c *Connection) HasNoteSubscription(noteID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.noteSubs[noteID]
	return ok
}

// Dispose tears the connection down exactly once: the refresh timer, the
// broadcast listener, every note subscription and every channel.
func (c *Connection) Dispose() {
	c.disposeOnce.Do(func() {
		if c.refreshCancel != nil {
			c.refreshCancel()
			<-c.refreshDone
		}

		c.mu.Lock()
		c.disposed = true
		broadcastSub := c.broadcastSub
		c.broadcastSub = nil
		noteSubs := c.noteSubs
		c.noteSubs = make(map[string]*noteSubscription)
		channels := c.channels
		c.channels = nil
		c.mu.Unlock()

		if broadcastSub != nil {
			broadcastSub.Unsubscribe()
		}
		for _, ns := range noteSubs {
			ns.sub.Unsubscribe()
			c.metrics.noteSubDetached()
		}
		for _, ch := range channels {
			ch.Dispose()
		}
		c.metrics.channelsRemoved(len(channels))
		c.metrics.connectionClosed()
	})
}
