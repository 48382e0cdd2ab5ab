package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// channelChannel delivers notes posted into one named channel. A direct
// subscription is exempt from the viewer's own mute of that channel; only a
// boost out of a muted *other* channel is suppressed.
type channelChannel struct {
	stream.Base
	channelID string
}

// ChannelDefinition describes the "channel" channel.
func ChannelDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "channel",
		New: func(ctx *stream.Context) stream.Channel {
			return &channelChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *channelChannel) Init(ctx context.Context, params model.JSONObject) {
	channelID, ok := model.GetString(params, "channelId")
	if !ok {
		return
	}
	c.channelID = channelID

	c.Attach(eventbus.TopicNotes, func(ev eventbus.Event) {
		c.onNote(ctx, ev)
	})
}

func (c *channelChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}
	if note.ChannelID == nil || *note.ChannelID != c.channelID {
		return
	}
	if c.HiddenFromAnonymous(note) {
		return
	}
	if c.isNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}

// isNoteMutedOrBlocked extends the base filter with the renoted-channel rule.
// The subscribed channel's own mute state never applies here.
func (c *channelChannel) isNoteMutedOrBlocked(note *model.Note) bool {
	if c.IsNoteMutedOrBlocked(note) {
		return true
	}
	if note.Renote != nil && note.Renote.ChannelID != nil && *note.Renote.ChannelID != c.channelID {
		if _, muted := c.State().MutingChannels[*note.Renote.ChannelID]; muted {
			return true
		}
	}
	return false
}
