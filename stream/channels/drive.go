package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// driveChannel relays file and folder events for the viewer's drive.
type driveChannel struct {
	stream.Base
}

// DriveDefinition describes the "drive" channel.
func DriveDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "drive",
		ShouldShare:       true,
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &driveChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *driveChannel) Init(ctx context.Context, params model.JSONObject) {
	c.Attach(eventbus.DriveStream(c.User().ID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}
