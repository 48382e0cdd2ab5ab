// Package stream implements the realtime fanout core: per-socket connections,
// channel subscriptions and the user-state snapshots their filters read.
package stream

import (
	"context"

	"github.com/c360/streamfan/model"
)

// NoteEntityService packs notes for delivery. It fronts the persistence layer
// and is treated as an opaque network/storage-backed collaborator.
type NoteEntityService interface {
	// Pack loads and serializes a note as seen by viewer. viewer may be nil.
	Pack(ctx context.Context, noteID string, viewer *model.User, opts model.PackOpts) (*model.Note, error)
	// PopulateMyReaction returns the viewer's reaction to the note, or nil.
	PopulateMyReaction(ctx context.Context, note *model.Note, viewerID string) (*string, error)
}

// NotificationService marks notifications as read.
type NotificationService interface {
	ReadAllNotification(ctx context.Context, userID string) error
}

// RoleService answers policy questions for timeline gating.
type RoleService interface {
	// GetUserPolicies resolves policies for a user; userID may be empty for
	// anonymous sessions.
	GetUserPolicies(ctx context.Context, userID string) (model.RolePolicies, error)
	// IsExplorable reports whether the role's timeline is publicly visible.
	IsExplorable(ctx context.Context, roleID string) (bool, error)
}

// ChatService applies chat read receipts.
type ChatService interface {
	ReadUserChatMessage(ctx context.Context, readerID, otherID string) error
	ReadRoomChatMessage(ctx context.Context, readerID, roomID string) error
}

// ReversiService validates and applies game actions. Rule enforcement lives
// behind this interface; the channel does shape validation and the settings
// key allow-list.
type ReversiService interface {
	GameReady(ctx context.Context, gameID string, user *model.User, ready bool) error
	UpdateSettings(ctx context.Context, gameID string, user *model.User, key string, value any) error
	CancelGame(ctx context.Context, gameID string, user *model.User) error
	PutStone(ctx context.Context, gameID string, user *model.User, pos int, id string) error
	CheckTimeout(ctx context.Context, gameID string) error
}

// ListService resolves user-list membership for the userList channel.
type ListService interface {
	// MemberIDs returns the list's member user ids; exists is false when the
	// list does not belong to the owner or does not exist.
	MemberIDs(ctx context.Context, listID, ownerID string) (members []string, exists bool, err error)
}

// Services bundles the external collaborators a connection hands to its
// channels.
type Services struct {
	Notes         NoteEntityService
	Notifications NotificationService
	Roles         RoleService
	Chat          ChatService
	Reversi       ReversiService
	Lists         ListService
	State         StateProvider
}
