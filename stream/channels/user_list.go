package channels

import (
	"context"
	"sync"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// userListChannel delivers notes from members of one of the viewer's lists.
// Membership is tracked live through the list's membership stream.
type userListChannel struct {
	stream.Base
	opts   timelineParams
	listID string

	mu      sync.RWMutex
	members map[string]struct{}
}

// UserListDefinition describes the "userList" channel.
func UserListDefinition() *stream.Definition {
	return &stream.Definition{
		Name:              "userList",
		RequireCredential: true,
		Kind:              "read:account",
		New: func(ctx *stream.Context) stream.Channel {
			return &userListChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *userListChannel) Init(ctx context.Context, params model.JSONObject) {
	listID, ok := model.GetString(params, "listId")
	if !ok {
		return
	}
	opts, ok := parseTimelineParams(params)
	if !ok {
		return
	}
	c.listID = listID
	c.opts = opts

	members, exists, err := c.Services().Lists.MemberIDs(ctx, listID, c.User().ID)
	if err != nil {
		c.Logger().Warn("resolve list members failed", "list_id", listID, "error", err)
		return
	}
	if !exists {
		return
	}
	c.members = make(map[string]struct{}, len(members))
	for _, id := range members {
		c.members[id] = struct{}{}
	}

	c.Attach(eventbus.UserListStream(listID), c.onListEvent)
	c.Attach(eventbus.TopicNotes, func(ev eventbus.Event) {
		c.onNote(ctx, ev)
	})
}

func (c *userListChannel) onListEvent(ev eventbus.Event) {
	body, ok := model.AsObject(ev.Body)
	if !ok {
		return
	}
	userID, ok := model.GetString(body, "userId")
	if !ok {
		if user, ok := body["user"].(*model.User); ok && user != nil {
			userID = user.ID
		} else {
			return
		}
	}

	c.mu.Lock()
	switch ev.Type {
	case "userAdded":
		c.members[userID] = struct{}{}
	case "userRemoved":
		delete(c.members, userID)
	}
	c.mu.Unlock()
}

func (c *userListChannel) isMember(userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[userID]
	return ok
}

func (c *userListChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}

	me := c.User()
	state := c.State()

	if !c.isMember(note.UserID) {
		return
	}
	if !visibleToViewer(note, me, state) {
		return
	}
	if dropReply(note, c.opts.withReplies, me.ID) {
		return
	}
	if dropPureRenote(note, c.opts.withRenotes) {
		return
	}
	if dropFileless(note, c.opts.withFiles) {
		return
	}
	if renotedChannelMuted(note, state) {
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}
