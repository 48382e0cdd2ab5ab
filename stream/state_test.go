package stream

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamfan/model"
)

type fakeStateProvider struct {
	NopStateProvider

	profile      *model.UserProfile
	following    map[string]model.FollowStatus
	mutedUsers   []string
	blockingMe   []string
	fetchCount   int
	followingErr error
}

func (p *fakeStateProvider) FetchProfile(_ context.Context, userID string) (*model.UserProfile, error) {
	p.fetchCount++
	if p.profile != nil {
		return p.profile, nil
	}
	return &model.UserProfile{UserID: userID}, nil
}

func (p *fakeStateProvider) FetchFollowing(context.Context, string) (map[string]model.FollowStatus, error) {
	if p.followingErr != nil {
		return nil, p.followingErr
	}
	return p.following, nil
}

func (p *fakeStateProvider) FetchMutedUsers(context.Context, string) ([]string, error) {
	return p.mutedUsers, nil
}

func (p *fakeStateProvider) FetchBlockingMe(context.Context, string) ([]string, error) {
	return p.blockingMe, nil
}

func TestFetchUserState(t *testing.T) {
	provider := &fakeStateProvider{
		profile:    &model.UserProfile{UserID: "u1", MutedInstances: []string{"bad.example"}},
		following:  map[string]model.FollowStatus{"u2": {WithReplies: true}},
		mutedUsers: []string{"u3"},
		blockingMe: []string{"u4"},
	}

	state, err := FetchUserState(context.Background(), provider, "u1")
	require.NoError(t, err)

	assert.True(t, state.IsFollowing("u2"))
	assert.False(t, state.IsFollowing("u9"))
	assert.Contains(t, state.MutedUsers, "u3")
	assert.Contains(t, state.BlockingMe, "u4")
	assert.Contains(t, state.MutedInstances, "bad.example")
}

func TestFetchUserStatePropagatesError(t *testing.T) {
	provider := &fakeStateProvider{followingErr: stderrors.New("db down")}

	_, err := FetchUserState(context.Background(), provider, "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch following")
}

func TestCachedStateProviderSharesFetches(t *testing.T) {
	provider := &fakeStateProvider{}
	cached := NewCachedStateProvider(context.Background(), provider, time.Minute)
	defer cached.Close()

	_, err := cached.FetchProfile(context.Background(), "u1")
	require.NoError(t, err)
	_, err = cached.FetchProfile(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.fetchCount)
}

func TestEmptyUserState(t *testing.T) {
	state := EmptyUserState()

	assert.NotNil(t, state.Following)
	assert.NotNil(t, state.MutedUsers)
	assert.False(t, state.IsFollowing("anyone"))
}
