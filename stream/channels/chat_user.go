package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// chatUserChannel relays one-on-one chat events and applies read receipts the
// client sends in-band.
type chatUserChannel struct {
	stream.Base
	otherID string
}

// ChatUserDefinition describes the "chatUser" channel.
func ChatUserDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "chatUser",
		RequireCredential: true,
		Kind:              "read:chat",
		New: func(ctx *stream.Context) stream.Channel {
			return &chatUserChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *chatUserChannel) Init(ctx context.Context, params model.JSONObject) {
	otherID, ok := model.GetString(params, "otherId")
	if !ok {
		return
	}
	c.otherID = otherID

	c.Attach(eventbus.ChatUserStream(c.User().ID, otherID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}

func (c *chatUserChannel) OnMessage(ctx context.Context, msgType string, body any) {
	if msgType != "read" || c.otherID == "" {
		return
	}
	if err := c.Services().Chat.ReadUserChatMessage(ctx, c.User().ID, c.otherID); err != nil {
		c.Logger().Warn("apply chat read receipt failed", "other_id", c.otherID, "error", err)
	}
}
