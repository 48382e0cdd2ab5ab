package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// localTimelineChannel delivers public notes authored on this instance outside
// any named channel.
type localTimelineChannel struct {
	stream.Base
	opts timelineParams
}

// LocalTimelineDefinition describes the "localTimeline" channel.
func LocalTimelineDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "localTimeline",
		New: func(ctx *stream.Context) stream.Channel {
			return &localTimelineChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *localTimelineChannel) Init(ctx context.Context, params model.JSONObject) {
	if !c.timelineAvailable(ctx) {
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

func (c *localTimelineChannel) timelineAvailable(ctx context.Context) bool {
	var userID string
	if c.User() != nil {
		userID = c.User().ID
	}
	policies, err := c.Services().Roles.GetUserPolicies(ctx, userID)
	if err != nil {
		c.Logger().Warn("resolve policies failed", "error", err)
		return false
	}
	return policies.LTLAvailable
}

func (c *localTimelineChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	if note.User == nil || !note.User.IsLocal() {
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
