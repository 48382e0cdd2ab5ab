package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// chatRoomChannel relays chat events for one room.
type chatRoomChannel struct {
	stream.Base
	roomID string
}

// ChatRoomDefinition describes the "chatRoom" channel.
func ChatRoomDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "chatRoom",
		RequireCredential: true,
		Kind:              "read:chat",
		New: func(ctx *stream.Context) stream.Channel {
			return &chatRoomChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *chatRoomChannel) Init(ctx context.Context, params model.JSONObject) {
	roomID, ok := model.GetString(params, "roomId")
	if !ok {
		return
	}
	c.roomID = roomID

	c.Attach(eventbus.ChatRoomStream(roomID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}

func (c *chatRoomChannel) OnMessage(ctx context.Context, msgType string, body any) {
	if msgType != "read" || c.roomID == "" {
		return
	}
	if err := c.Services().Chat.ReadRoomChatMessage(ctx, c.User().ID, c.roomID); err != nil {
		c.Logger().Warn("apply room read receipt failed", "room_id", c.roomID, "error", err)
	}
}
