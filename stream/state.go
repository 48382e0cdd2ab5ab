package stream

import (
	"context"
	"time"

	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/pkg/cache"
)

// UserState is a connection's snapshot of the authenticated user's
// relationships. It is replaced wholesale on every refresh and must be treated
// as read-only by channels; readers may observe a snapshot up to one refresh
// interval stale.
type UserState struct {
	Profile           *model.UserProfile
	Following         map[string]model.FollowStatus
	FollowingChannels map[string]struct{}
	MutingChannels    map[string]struct{}
	MutedUsers        map[string]struct{}
	BlockingMe        map[string]struct{}
	RenoteMutedUsers  map[string]struct{}
	MutedInstances    map[string]struct{}
}

// EmptyUserState returns a snapshot with no relationships, used for anonymous
// sessions and before the first fetch completes.
func EmptyUserState() *UserState {
	return &UserState{
		Following:         map[string]model.FollowStatus{},
		FollowingChannels: map[string]struct{}{},
		MutingChannels:    map[string]struct{}{},
		MutedUsers:        map[string]struct{}{},
		BlockingMe:        map[string]struct{}{},
		RenoteMutedUsers:  map[string]struct{}{},
		MutedInstances:    map[string]struct{}{},
	}
}

// IsFollowing reports whether the user follows the given user id.
func (s *UserState) IsFollowing(userID string) bool {
	_, ok := s.Following[userID]
	return ok
}

// StateProvider fetches the relationship data backing a UserState snapshot.
// Implementations front the persistence layer.
type StateProvider interface {
	FetchProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	FetchFollowing(ctx context.Context, userID string) (map[string]model.FollowStatus, error)
	FetchFollowingChannels(ctx context.Context, userID string) ([]string, error)
	FetchMutingChannels(ctx context.Context, userID string) ([]string, error)
	FetchMutedUsers(ctx context.Context, userID string) ([]string, error)
	FetchBlockingMe(ctx context.Context, userID string) ([]string, error)
	FetchRenoteMutedUsers(ctx context.Context, userID string) ([]string, error)
}

// FetchUserState assembles a full snapshot from the provider.
func FetchUserState(ctx context.Context, provider StateProvider, userID string) (*UserState, error) {
	profile, err := provider.FetchProfile(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch profile")
	}
	following, err := provider.FetchFollowing(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch following")
	}
	followingChannels, err := provider.FetchFollowingChannels(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch following channels")
	}
	mutingChannels, err := provider.FetchMutingChannels(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch muting channels")
	}
	mutedUsers, err := provider.FetchMutedUsers(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch muted users")
	}
	blockingMe, err := provider.FetchBlockingMe(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch blocking users")
	}
	renoteMuted, err := provider.FetchRenoteMutedUsers(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "FetchUserState", "fetch renote muted users")
	}

	state := &UserState{
		Profile:           profile,
		Following:         following,
		FollowingChannels: toSet(followingChannels),
		MutingChannels:    toSet(mutingChannels),
		MutedUsers:        toSet(mutedUsers),
		BlockingMe:        toSet(blockingMe),
		RenoteMutedUsers:  toSet(renoteMuted),
		MutedInstances:    map[string]struct{}{},
	}
	if profile != nil {
		state.MutedInstances = toSet(profile.MutedInstances)
	}
	return state, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// CachedStateProvider wraps a StateProvider with per-user TTL caches so that
// multiple connections of one user share fetches. The TTL bounds staleness the
// same way the connection refresh interval does.
type CachedStateProvider struct {
	upstream StateProvider

	profiles          *cache.TTL[*model.UserProfile]
	following         *cache.TTL[map[string]model.FollowStatus]
	followingChannels *cache.TTL[[]string]
	mutingChannels    *cache.TTL[[]string]
	mutedUsers        *cache.TTL[[]string]
	blockingMe        *cache.TTL[[]string]
	renoteMuted       *cache.TTL[[]string]
}

// NewCachedStateProvider creates the shared cache layer. The cleanup interval
// follows the TTL so dead entries do not outlive disconnected users for long.
func NewCachedStateProvider(ctx context.Context, upstream StateProvider, ttl time.Duration) *CachedStateProvider {
	cleanup := 2 * ttl
	return &CachedStateProvider{
		upstream:          upstream,
		profiles:          cache.NewTTL[*model.UserProfile](ctx, ttl, cleanup),
		following:         cache.NewTTL[map[string]model.FollowStatus](ctx, ttl, cleanup),
		followingChannels: cache.NewTTL[[]string](ctx, ttl, cleanup),
		mutingChannels:    cache.NewTTL[[]string](ctx, ttl, cleanup),
		mutedUsers:        cache.NewTTL[[]string](ctx, ttl, cleanup),
		blockingMe:        cache.NewTTL[[]string](ctx, ttl, cleanup),
		renoteMuted:       cache.NewTTL[[]string](ctx, ttl, cleanup),
	}
}

// FetchProfile implements StateProvider.
func (p *CachedStateProvider) FetchProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	return p.profiles.GetOrFetch(ctx, userID, func(ctx context.Context) (*model.UserProfile, error) {
		return p.upstream.FetchProfile(ctx, userID)
	})
}

// FetchFollowing implements StateProvider.
func (p *CachedStateProvider) FetchFollowing(ctx context.Context, userID string) (map[string]model.FollowStatus, error) {
	return p.following.GetOrFetch(ctx, userID, func(ctx context.Context) (map[string]model.FollowStatus, error) {
		return p.upstream.FetchFollowing(ctx, userID)
	})
}

// FetchFollowingChannels implements StateProvider.
func (p *CachedStateProvider) FetchFollowingChannels(ctx context.Context, userID string) ([]string, error) {
	return p.followingChannels.GetOrFetch(ctx, userID, func(ctx context.Context) ([]string, error) {
		return p.upstream.FetchFollowingChannels(ctx, userID)
	})
}

// FetchMutingChannels implements StateProvider.
func (p *CachedStateProvider) FetchMutingChannels(ctx context.Context, userID string) ([]string, error) {
	return p.mutingChannels.GetOrFetch(ctx, userID, func(ctx context.Context) ([]string, error) {
		return p.upstream.FetchMutingChannels(ctx, userID)
	})
}

// FetchMutedUsers implements StateProvider.
func (p *CachedStateProvider) FetchMutedUsers(ctx context.Context, userID string) ([]string, error) {
	return p.mutedUsers.GetOrFetch(ctx, userID, func(ctx context.Context) ([]string, error) {
		return p.upstream.FetchMutedUsers(ctx, userID)
	})
}

// FetchBlockingMe implements StateProvider.
func (p *CachedStateProvider) FetchBlockingMe(ctx context.Context, userID string) ([]string, error) {
	return p.blockingMe.GetOrFetch(ctx, userID, func(ctx context.Context) ([]string, error) {
		return p.upstream.FetchBlockingMe(ctx, userID)
	})
}

// FetchRenoteMutedUsers implements StateProvider.
func (p *CachedStateProvider) FetchRenoteMutedUsers(ctx context.Context, userID string) ([]string, error) {
	return p.renoteMuted.GetOrFetch(ctx, userID, func(ctx context.Context) ([]string, error) {
		return p.upstream.FetchRenoteMutedUsers(ctx, userID)
	})
}

// Close stops the cache cleanup goroutines.
func (p *CachedStateProvider) Close() {
	p.profiles.Close()
	p.following.Close()
	p.followingChannels.Close()
	p.mutingChannels.Close()
	p.mutedUsers.Close()
	p.blockingMe.Close()
	p.renoteMuted.Close()
}
