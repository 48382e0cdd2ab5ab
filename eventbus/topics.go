package eventbus

// Topic name constructors. Per-entity streams are keyed by the entity id so a
// publish reaches only the sessions that attached to that entity.

// TopicNotes is the firehose of freshly packed notes; timeline channels
// subscribe here and filter client-side.
const TopicNotes = "notesStream"

// TopicServerStats and TopicQueueStats carry periodic process statistics.
const (
	TopicServerStats = "serverStatsStream"
	TopicQueueStats  = "queueStatsStream"
)

// TopicRequestServerStatsLog and TopicRequestQueueStatsLog are the reverse
// direction: a stats channel asks the emitter to replay its recent log.
const (
	TopicRequestServerStatsLog = "requestServerStatsLog"
	TopicRequestQueueStatsLog  = "requestQueueStatsLog"
)

// MainStream is the per-user stream of notifications, mentions and other
// account events.
func MainStream(userID string) string { return "mainStream:" + userID }

// NoteStream carries live updates (reactions, deletions, poll votes) for one
// note.
func NoteStream(noteID string) string { return "noteStream:" + noteID }

// AntennaStream carries notes matched by one antenna.
func AntennaStream(antennaID string) string { return "antennaStream:" + antennaID }

// RoleTimelineStream carries notes authored by members of one role.
func RoleTimelineStream(roleID string) string { return "roleTimelineStream:" + roleID }

// UserListStream carries membership changes for one user list.
func UserListStream(listID string) string { return "userListStream:" + listID }

// DriveStream carries file/folder events for one user's drive.
func DriveStream(userID string) string { return "driveStream:" + userID }

// AdminStream carries moderation events for one administrator.
func AdminStream(userID string) string { return "adminStream:" + userID }

// ReversiStream carries match-making events for one user.
func ReversiStream(userID string) string { return "reversiStream:" + userID }

// ReversiGameStream carries in-game events for one game.
func ReversiGameStream(gameID string) string { return "reversiGameStream:" + gameID }

// ChatUserStream carries one-on-one chat events between two users. The key is
// directional: the first id is the session owner.
func ChatUserStream(userID, otherID string) string {
	return "chatUserStream:" + userID + "-" + otherID
}

// ChatRoomStream carries chat events for one room.
func ChatRoomStream(roomID string) string { return "chatRoomStream:" + roomID }
