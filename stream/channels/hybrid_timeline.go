package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// hybridTimelineChannel merges the home feed with local public notes.
type hybridTimelineChannel struct {
	stream.Base
	opts timelineParams
}

// HybridTimelineDefinition describes the "hybridTimeline" channel.
func HybridTimelineDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "hybridTimeline",
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &hybridTimelineChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *hybridTimelineChannel) Init(ctx context.Context, params model.JSONObject) {
	policies, err := c.Services().Roles.GetUserPolicies(ctx, c.User().ID)
	if err != nil {
		c.Logger().Warn("resolve policies failed", "error", err)
		return
	}
	if !policies.LTLAvailable {
		return
	}

	opts, ok := parseTimelineParams(params)
	if !ok {
		return
	}
	c.opts = opts

	c.Attach(eventbus.TopicNotes, func(ev eventbus.Event) {
		c.onNote(ctx, ev)
	})
}

func (c *hybridTimelineChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	me := c.User()
	state := c.State()
	isMe := note.UserID == me.ID

	// Accept own and followed notes, local public notes, and notes in
	// followed channels. Everything else is out of scope for this feed.
	accepted := false
	if note.ChannelID == nil {
		if isMe || state.IsFollowing(note.UserID) {
			accepted = true
		}
		if note.User != nil && note.User.IsLocal() && note.Visibility == model.VisibilityPublic {
			accepted = true
		}
	} else if _, following := state.FollowingChannels[*note.ChannelID]; following {
		accepted = true
	}
	if !accepted {
		return
	}

	if !visibleToViewer(note, me, state) {
		return
	}

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
