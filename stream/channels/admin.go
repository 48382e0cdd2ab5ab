package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// adminChannel relays moderation events to an administrator session.
type adminChannel struct {
	stream.Base
}

// AdminDefinition describes the "admin" channel.
func AdminDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "admin",
		ShouldShare:       true,
		RequireCredential: true,
		Kind:              "read:admin:stream",
		New: func(ctx *stream.Context) stream.Channel {
			return &adminChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *adminChannel) Init(ctx context.Context, params model.JSONObject) {
	if !c.User().IsAdmin {
		return
	}
	c.Attach(eventbus.AdminStream(c.User().ID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}
