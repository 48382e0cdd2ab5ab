package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// homeTimelineChannel delivers notes from followed users and followed
// channels.
type homeTimelineChannel struct {
	stream.Base
	opts timelineParams
}

// HomeTimelineDefinition describes the "homeTimeline" channel.
func HomeTimelineDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "homeTimeline",
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &homeTimelineChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *homeTimelineChannel) Init(ctx context.Context, params model.JSONObject) {
	opts, ok := parseTimelineParams(params)
	if !ok {
		return
	}
	c.opts = opts

	c.Attach(eventbus.TopicNotes, func(ev eventbus.Event) {
		c.onNote(ctx, ev)
	})
}

func (c *homeTimelineChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	me := c.User()
	state := c.State()
	isMe := note.UserID == me.ID

	if note.ChannelID != nil {
		if _, following := state.FollowingChannels[*note.ChannelID]; !following {
			return
		}
	} else if !isMe && !state.IsFollowing(note.UserID) {
		return
	}

	if !visibleToViewer(note, me, state) {
		return
	}

	// Per-followee reply preference wins over the channel option.
	withReplies := c.opts.withReplies
	if follow, ok := state.Following[note.UserID]; ok && follow.WithReplies {
		withReplies = true
	}
	if dropReply(note, withReplies, me.ID) {
		return
	}
	if dropPureRenote(note, c.opts.withRenotes) {
		return
	}
	if dropFileless(note, c.opts.withFiles) {
		return
	}
	if renotedChannelMuted(note, state) {
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}
