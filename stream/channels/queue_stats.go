package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// queueStatsChannel relays periodic job-queue statistics, with the same
// requestLog replay hook as serverStats.
type queueStatsChannel struct {
	stream.Base
}

// QueueStatsDefinition describes the "queueStats" channel.
func QueueStatsDefinition() *stream.Definition {
	return &stream.Definition{
		Name:        "queueStats",
		ShouldShare: true,
		New: func(ctx *stream.Context) stream.Channel {
			return &queueStatsChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *queueStatsChannel) Init(ctx context.Context, params model.JSONObject) {
	c.Attach(eventbus.TopicQueueStats, func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}

func (c *queueStatsChannel) OnMessage(ctx context.Context, msgType string, body any) {
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

	c.Bus().Publish(eventbus.TopicRequestQueueStatsLog, eventbus.Event{
		Type: "requestLog",
		Body: model.JSONObject{"id": id, "length": obj["length"]},
	})
}
