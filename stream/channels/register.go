package channels

import (
	"github.com/c360/streamfan/errors"
	"github.com/c360/streamfan/stream"
)

// RegisterAll installs every channel variant into the registry. The channel
// set is closed; this is the single place a new variant is wired in.
func RegisterAll(registry *stream.Registry) error {
	definitions := []*stream.Definition{
		MainDefinition(),
		HomeTimelineDefinition(),
		LocalTimelineDefinition(),
		HybridTimelineDefinition(),
		GlobalTimelineDefinition(),
		UserListDefinition(),
		HashtagDefinition(),
		RoleTimelineDefinition(),
		AntennaDefinition(),
		ChannelDefinition(),
		DriveDefinition(),
		ServerStatsDefinition(),
		QueueStatsDefinition(),
		AdminDefinition(),
		ChatUserDefinition(),
		ChatRoomDefinition(),
		ReversiDefinition(),
		ReversiGameDefinition(),
	}

	for _, def := range definitions {
		if err := registry.Register(def); err != nil {
			return errors.Wrap(err, "channels", "RegisterAll", "register "+def.Name)
		}
	}
	return nil
}
