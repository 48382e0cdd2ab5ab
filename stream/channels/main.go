package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// mainChannel relays a user's account stream: notifications, mentions, follow
// events and other per-account activity.
type mainChannel struct {
	stream.Base
}

// MainDefinition describes the "main" channel.
func MainDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "main",
		ShouldShare:       true,
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &mainChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *mainChannel) Init(ctx context.Context, params model.JSONObject) {
	c.Attach(eventbus.MainStream(c.User().ID), func(ev eventbus.Event) {
		c.onEvent(ctx, ev)
	})
}

func (c *mainChannel) onEvent(ctx context.Context, ev eventbus.Event) {
	switch ev.Type {
	case "notification":
		notification, ok := ev.Body.(*model.Notification)
		if !ok {
			return
		}
		state := c.State()
		if model.IsUserFromMutedInstance(notification.User, state.MutedInstances) {
			return
		}
		if notification.UserID != nil {
			if _, muted := state.MutedUsers[*notification.UserID]; muted {
				return
			}
			if _, blocked := state.BlockingMe[*notification.UserID]; blocked {
				return
			}
		}
		if notification.Note != nil && notification.Note.IsHidden {
			if packed := c.repack(ctx, notification.Note.ID); packed != nil {
				notification.Note = packed
			}
		}
		c.Send(ev.Type, notification)

	case "mention":
		note, ok := stream.NoteFromEvent(ev)
		if !ok {
			return
		}
		state := c.State()
		if model.IsInstanceMuted(note, state.MutedInstances) {
			return
		}
		if _, muted := state.MutedUsers[note.UserID]; muted {
			return
		}
		if note.IsHidden {
			if packed := c.repack(ctx, note.ID); packed != nil {
				note = packed
			}
		}
		c.Send(ev.Type, note)

	default:
		c.Send(ev.Type, ev.Body)
	}
}

// repack upgrades a hidden note to its full detail-packed form as seen by this
// viewer. Returns nil on failure and the caller forwards the hidden form.
func (c *mainChannel) repack(ctx context.Context, noteID string) *model.Note {
	packed, err := c.Services().Notes.Pack(ctx, noteID, c.User(), model.PackOpts{Detail: true})
	if err != nil {
		c.Logger().Warn("repack hidden note failed", "note_id", noteID, "error", err)
		return nil
	}
	return packed
}
