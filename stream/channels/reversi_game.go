package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// reversiGameChannel relays in-game events for one game and routes typed game
// actions to the rules service. Spectating needs no credential; the rules
// service decides whether an action is legal for the acting user.
type reversiGameChannel struct {
	stream.Base
	gameID string
}

// reversiSettingKeys is the set of game settings a player may update through
// the channel. Anything else is dropped before reaching the rules service.
var reversiSettingKeys = map[string]struct{}{
	"map":                  {},
	"bw":                   {},
	"isLlotheo":            {},
	"canPutEverywhere":     {},
	"loopedBoard":          {},
	"timeLimitForEachTurn": {},
}

// ReversiGameDefinition describes the "reversiGame" channel.
func ReversiGameDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "reversiGame",
		New: func(ctx *stream.Context) stream.Channel {
			return &reversiGameChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *reversiGameChannel) Init(ctx context.Context, params model.JSONObject) {
	gameID, ok := model.GetString(params, "gameId")
	if !ok {
		return
	}
	c.gameID = gameID

	c.Attach(eventbus.ReversiGameStream(gameID), func(ev eventbus.Event) {
		c.Send(ev.Type, ev.Body)
	})
}

func (c *reversiGameChannel) OnMessage(ctx context.Context, msgType string, body any) {
	if c.gameID == "" {
		return
	}
	user := c.User()
	if user == nil {
		return
	}

	var err error
	switch msgType {
	case "ready":
		ready, ok := body.(bool)
		if !ok {
			return
		}
		err = c.Services().Reversi.GameReady(ctx, c.gameID, user, ready)

	case "updateSettings":
		obj, ok := model.AsObject(body)
		if !ok {
			return
		}
		key, ok := model.GetString(obj, "key")
		if !ok {
			return
		}
		if _, allowed := reversiSettingKeys[key]; !allowed {
			return
		}
		value, exists := obj["value"]
		if !exists {
			return
		}
		err = c.Services().Reversi.UpdateSettings(ctx, c.gameID, user, key, value)

	case "cancel":
		err = c.Services().Reversi.CancelGame(ctx, c.gameID, user)

	case "putStone":
		obj, ok := model.AsObject(body)
		if !ok {
			return
		}
		pos, ok := obj["pos"].(float64)
		if !ok {
			return
		}
		id, ok := model.GetString(obj, "id")
		if !ok {
			return
		}
		err = c.Services().Reversi.PutStone(ctx, c.gameID, user, int(pos), id)

	case "claimTimeIsUp":
		err = c.Services().Reversi.CheckTimeout(ctx, c.gameID)

	default:
		return
	}

	if err != nil {
		c.Logger().Warn("game action failed", "action", msgType, "game_id", c.gameID, "error", err)
	}
}
