package stream

import (
	"context"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/model"
)

// NopServices returns a Services bundle whose collaborators do nothing. It is
// the integration point a deployment replaces with real backends; the fanout
// core runs against it for development and tests.
func NopServices() *Services {
	return &Services{
		Notes:         nopNotes{},
		Notifications: nopNotifications{},
		Roles:         nopRoles{},
		Chat:          nopChat{},
		Reversi:       nopReversi{},
		Lists:         nopLists{},
		State:         NopStateProvider{},
	}
}

type nopNotes struct{}

func (nopNotes) Pack(context.Context, string, *model.User, model.PackOpts) (*model.Note, error) {
	return nil, errors.WrapInvalid(errors.ErrInvalidData, "stream", "Pack", "pack note without backend")
}

func (nopNotes) PopulateMyReaction(context.Context, *model.Note, string) (*string, error) {
	return nil, nil
}

type nopNotifications struct{}

func (nopNotifications) ReadAllNotification(context.Context, string) error { return nil }

type nopRoles struct{}

func (nopRoles) GetUserPolicies(context.Context, string) (model.RolePolicies, error) {
	return model.RolePolicies{GTLAvailable: true, LTLAvailable: true}, nil
}

func (nopRoles) IsExplorable(context.Context, string) (bool, error) { return true, nil }

type nopChat struct{}

func (nopChat) ReadUserChatMessage(context.Context, string, string) error { return nil }
func (nopChat) ReadRoomChatMessage(context.Context, string, string) error { return nil }

type nopReversi struct{}

func (nopReversi) GameReady(context.Context, string, *model.User, bool) error { return nil }
func (nopReversi) UpdateSettings(context.Context, string, *model.User, string, any) error {
	return nil
}
func (nopReversi) CancelGame(context.Context, string, *model.User) error          { return nil }
func (nopReversi) PutStone(context.Context, string, *model.User, int, string) error { return nil }
func (nopReversi) CheckTimeout(context.Context, string) error                     { return nil }

type nopLists struct{}

func (nopLists) MemberIDs(context.Context, string, string) ([]string, bool, error) {
	return nil, false, nil
}

// NopStateProvider yields empty relationship data for every user.
type NopStateProvider struct{}

// FetchProfile implements StateProvider.
func (NopStateProvider) FetchProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	return &model.UserProfile{UserID: userID}, nil
}

// FetchFollowing implements StateProvider.
func (NopStateProvider) FetchFollowing(context.Context, string) (map[string]model.FollowStatus, error) {
	return map[string]model.FollowStatus{}, nil
}

// FetchFollowingChannels implements StateProvider.
func (NopStateProvider) FetchFollowingChannels(context.Context, string) ([]string, error) {
	return nil, nil
}

// FetchMutingChannels implements StateProvider.
func (NopStateProvider) FetchMutingChannels(context.Context, string) ([]string, error) {
	return nil, nil
}

// FetchMutedUsers implements StateProvider.
func (NopStateProvider) FetchMutedUsers(context.Context, string) ([]string, error) {
	return nil, nil
}

// FetchBlockingMe implements StateProvider.
func (NopStateProvider) FetchBlockingMe(context.Context, string) ([]string, error) {
	return nil, nil
}

// FetchRenoteMutedUsers implements StateProvider.
func (NopStateProvider) FetchRenoteMutedUsers(context.Context, string) ([]string, error) {
	return nil, nil
}
