package stream

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
)

// Channel is one topic-scoped subscription unit owned by a connection. A
// concrete variant attaches bus listeners in Init and must detach them all in
// Dispose.
//
// Init follows the silent-drop policy: when required parameters are absent or
// have the wrong type it returns without attaching anything, and the client
// observes no effect rather than an error.
type Channel interface {
	ID() string
	Name() string
	Init(ctx context.Context, params model.JSONObject)
	Dispose()
}

// MessageHandler is implemented by channels that accept in-band
// client-to-channel messages (chat read receipts, game actions). Handlers do
// their own shape validation and silently ignore malformed bodies.
type MessageHandler interface {
	OnMessage(ctx context.Context, msgType string, body any)
}

// Context gives a channel instance its identity and a read-only view of the
// owning connection.
type Context struct {
	id   string
	name string
	conn *Connection
}

// ID returns the client-supplied channel instance id.
func (c *Context) ID() string { return c.id }

// Name returns the channel class name the instance was created under.
func (c *Context) Name() string { return c.name }

// User returns the connection's authenticated user, or nil.
func (c *Context) User() *model.User { return c.conn.user }

// Token returns the connection's access token, or nil.
func (c *Context) Token() *model.AccessToken { return c.conn.token }

// State returns the current relationship-state snapshot. Never nil.
func (c *Context) State() *UserState { return c.conn.State() }

// Bus returns the process-wide event bus.
func (c *Context) Bus() *eventbus.Bus { return c.conn.bus }

// Services returns the external collaborators.
func (c *Context) Services() *Services { return c.conn.services }

// Logger returns a logger scoped to the channel instance.
func (c *Context) Logger() *slog.Logger {
	return c.conn.logger.With("channel", c.name, "channel_id", c.id)
}

// Base carries the shared behavior of all channel variants: bus subscription
// tracking with exactly-once detach, sending channel-scoped frames, and the
// standard mute/block filter. Variants embed it and add their topic policy.
type Base struct {
	*Context

	mu   sync.Mutex
	subs []*eventbus.Subscription
}

// NewBase wraps a channel context.
func NewBase(ctx *Context) Base {
	return Base{Context: ctx}
}

// Attach subscribes to a bus topic and tracks the subscription for Dispose.
func (b *Base) Attach(topic string, handler eventbus.Handler) {
	sub := b.Bus().Subscribe(topic, handler)
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()
}

// Dispose detaches every bus subscription the channel established. Safe to
// call on a channel whose Init attached nothing.
func (b *Base) Dispose() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Send emits a channel-scoped frame to the client: the outer frame type is
// "channel" and the body carries the instance id so the client can route it.
func (b *Base) Send(msgType string, body any) {
	b.conn.SendMessage("channel", model.JSONObject{
		"id":   b.id,
		"type": msgType,
		"body": body,
	})
}

// IsNoteMutedOrBlocked applies the standard delivery filter: instance mute,
// user mute, block-of-me and renote mute. Variants with channel-specific rules
// implement their own version and call it from their event handler.
func (b *Base) IsNoteMutedOrBlocked(note *model.Note) bool {
	state := b.State()

	if model.IsInstanceMuted(note, state.MutedInstances) {
		return true
	}
	if model.IsUserRelated(note, state.MutedUsers) {
		return true
	}
	if model.IsUserRelated(note, state.BlockingMe) {
		return true
	}
	if model.IsPureRenote(note) {
		if _, ok := state.RenoteMutedUsers[note.UserID]; ok {
			return true
		}
	}
	return false
}

// NoteFromEvent extracts a packed note from a bus event body.
func NoteFromEvent(ev eventbus.Event) (*model.Note, bool) {
	note, ok := ev.Body.(*model.Note)
	return note, ok && note != nil
}

// PopulateMyRenoteReaction lazily fills in the viewer's reaction on a pure
// renote's target before delivery. Failures are logged and the note is
// delivered without the reaction.
func (b *Base) PopulateMyRenoteReaction(ctx context.Context, note *model.Note) {
	user := b.User()
	if user == nil || !model.IsPureRenote(note) {
		return
	}
	if note.Renote == nil || len(note.Renote.Reactions) == 0 {
		return
	}

	reaction, err := b.Services().Notes.PopulateMyReaction(ctx, note.Renote, user.ID)
	if err != nil {
		b.Logger().Warn("populate my reaction failed", "note_id", note.Renote.ID, "error", err)
		return
	}
	note.Renote.MyReaction = reaction
}

// HiddenFromAnonymous reports whether the note or any of its targets requires
// a signed-in viewer while this session is anonymous.
func (b *Base) HiddenFromAnonymous(note *model.Note) bool {
	if b.User() != nil {
		return false
	}
	if note.User != nil && note.User.RequireSigninToViewContents {
		return true
	}
	if note.Renote != nil && note.Renote.User != nil && note.Renote.User.RequireSigninToViewContents {
		return true
	}
	if note.Reply != nil && note.Reply.User != nil && note.Reply.User.RequireSigninToViewContents {
		return true
	}
	return false
}
