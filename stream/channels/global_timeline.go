package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// globalTimelineChannel delivers every public note outside named channels,
// local and remote alike.
type globalTimelineChannel struct {
	stream.Base
	opts timelineParams
}

// GlobalTimelineDefinition describes the "globalTimeline" channel.
func GlobalTimelineDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "globalTimeline",
		New: func(ctx *stream.Context) stream.Channel {
			return &globalTimelineChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *globalTimelineChannel) Init(ctx context.Context, params model.JSONObject) {
	var userID string
	if c.User() != nil {
		userID = c.User().ID
	}
	policies, err := c.Services().Roles.GetUserPolicies(ctx, userID)
	if err != nil {
		c.Logger().Warn("resolve policies failed", "error", err)
		return
	}
	if !policies.GTLAvailable {
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

func (c *globalTimelineChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	if note.Visibility != model.VisibilityPublic {
		return
	}
	if note.ChannelID != nil {
		return
	}
	if c.HiddenFromAnonymous(note) {
		return
	}

	var meID string
	if c.User() != nil {
		meID = c.User().ID
	}
	if dropReply(note, c.opts.withReplies, meID) {
		return
	}
	if dropPureRenote(note, c.opts.withRenotes) {
		return
	}
	if dropFileless(note, c.opts.withFiles) {
		return
	}
	if renotedChannelMuted(note, c.State()) {
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}
