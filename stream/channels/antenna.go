package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// antennaChannel relays notes matched by one antenna. Each note is repacked
// for the viewer at delivery time so visibility and reactions are current.
type antennaChannel struct {
	stream.Base
	antennaID string
}

// AntennaDefinition describes the "antenna" channel.
func AntennaDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "antenna",
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &antennaChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *antennaChannel) Init(ctx context.Context, params model.JSONObject) {
	antennaID, ok := model.GetString(params, "antennaId")
	if !ok {
		return
	}
	c.antennaID = antennaID

	c.Attach(eventbus.AntennaStream(antennaID), func(ev eventbus.Event) {
		c.onEvent(ctx, ev)
	})
}

func (c *antennaChannel) onEvent(ctx context.Context, ev eventbus.Event) {
	if ev.Type != "note" {
		c.Send(ev.Type, ev.Body)
		return
	}

	matched, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}
	note, err := c.Services().Notes.Pack(ctx, matched.ID, c.User(), model.PackOpts{Detail: true})
	if err != nil {
		c.Logger().Warn("pack antenna note failed", "note_id", matched.ID, "error", err)
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}
	c.Send("note", note)
}
