package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// reversiChannel relays match-making events for the viewer.
type reversiChannel struct {
	stream.Base
}

// ReversiDefinition describes the "reversi" channel.
func ReversiDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "reversi",
		ShouldShare:       true,
		RequireCredential: true,
		New: func(ctx *stream.Context) stream.Channel {
			return &reversiChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *reversiChannel) Init(ctx context.Context, params model.JSONObject) {
	c.Attach(eventbus.ReversiStream(c.User().ID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}
