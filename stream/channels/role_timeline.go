package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// roleTimelineChannel delivers public notes from members of one role. The
// role's explorability is re-checked at every delivery, not just at connect,
// so revoking it takes effect immediately.
type roleTimelineChannel struct {
	stream.Base
	roleID string
}

// RoleTimelineDefinition describes the "roleTimeline" channel.
func RoleTimelineDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "roleTimeline",
		New: func(ctx *stream.Context) stream.Channel {
			return &roleTimelineChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *roleTimelineChannel) Init(ctx context.Context, params model.JSONObject) {
	roleID, ok := model.GetString(params, "roleId")
	if !ok {
		return
	}
	c.roleID = roleID

	c.Attach(eventbus.RoleTimelineStream(roleID), func(ev eventbus.Event) {
		c.onEvent(ctx, ev)
	})
}

func (c *roleTimelineChannel) onEvent(ctx context.Context, ev eventbus.Event) {
	if ev.Type != "note" {
		c.Send(ev.Type, ev.Body)
		return
	}

	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	explorable, err := c.Services().Roles.IsExplorable(ctx, c.roleID)
	if err != nil {
		c.Logger().Warn("check role explorable failed", "role_id", c.roleID, "error", err)
		return
	}
	if !explorable {
		return
	}
	if note.Visibility != model.VisibilityPublic {
		return
	}
	if c.HiddenFromAnonymous(note) {
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}
