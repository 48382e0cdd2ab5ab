package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// serverStatsChannel relays periodic host statistics. A client can request a
// replay of the emitter's recent log with an in-band requestLog message.
type serverStatsChannel struct {
	stream.Base
}

// ServerStatsDefinition describes the "serverStats" channel.
func ServerStatsDefinition() *stream.Definition {
	return &stream.Definition{
		Name:        "serverStats",
		ShouldShare: true,
		New: func(ctx *stream.Context) stream.Channel {
			return &serverStatsChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *serverStatsChannel) Init(ctx context.Context, params model.JSONObject) {
	c.Attach(eventbus.TopicServerStats, func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}

func (c *serverStatsChannel) OnMessage(ctx context.Context, msgType string, body any) {
	if msgType != "requestLog" {
		return
	}
	obj, ok := model.AsObject(body)
	if !ok {
		return
	}
	id, ok := model.GetString(obj, "id")
	if !ok {
		return
	}

	c.Bus().Publish(eventbus.TopicRequestServerStatsLog, eventbus.Event{
		Type: "requestLog",
		Body: model.JSONObject{"id": id, "length": obj["length"]},
	})
}
