// Package channels implements the concrete channel variants a client can
// connect to: timelines, per-entity streams and interactive channels.
package channels

import (
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// timelineParams is the option set shared by the timeline variants. Clients
// omit fields freely; an explicit null means the default.
type timelineParams struct {
	withRenotes bool
	withReplies bool
	withFiles   bool
}

// parseTimelineParams extracts the shared timeline options. A field with a
// non-boolean, non-null value invalidates the whole connect.
func parseTimelineParams(params model.JSONObject) (timelineParams, bool) {
	p := timelineParams{}
	var ok bool
	if p.withRenotes, ok = model.OptionalBool(params, "withRenotes", true); !ok {
		return p, false
	}
	if p.withReplies, ok = model.OptionalBool(params, "withReplies", false); !ok {
		return p, false
	}
	if p.withFiles, ok = model.OptionalBool(params, "withFiles", false); !ok {
		return p, false
	}
	return p, true
}

// visibleToViewer applies the followers/specified visibility rules. Public and
// home notes pass unconditionally; the open timelines restrict visibility
// further before calling this.
func visibleToViewer(note *model.Note, viewer *model.User, state *stream.UserState) bool {
	switch note.Visibility {
	case "followers":
		if viewer == nil {
			return false
		}
		return note.UserID == viewer.ID || state.IsFollowing(note.UserID)
	case "specified":
		if viewer == nil {
			return false
		}
		if note.UserID == viewer.ID {
			return true
		}
		for _, id := range note.VisibleUserIDs {
			if id == viewer.ID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// dropReply reports whether a reply should be withheld under the withReplies
// option. Self-replies, and replies the viewer authored or received, always
// pass.
func dropReply(note *model.Note, withReplies bool, viewerID string) bool {
	if note.Reply == nil || withReplies {
		return false
	}
	reply := note.Reply
	if reply.UserID == note.UserID {
		return false
	}
	if viewerID != "" && (note.UserID == viewerID || reply.UserID == viewerID) {
		return false
	}
	return true
}

// dropPureRenote reports whether a plain boost should be withheld under the
// withRenotes option. Quotes always pass.
func dropPureRenote(note *model.Note, withRenotes bool) bool {
	return !withRenotes && model.IsPureRenote(note)
}

// dropFileless reports whether a note without attachments should be withheld
// under the withFiles option.
func dropFileless(note *model.Note, withFiles bool) bool {
	return withFiles && len(note.FileIDs) == 0
}

// renotedChannelMuted reports whether the note boosts content out of a channel
// the viewer mutes. Timelines suppress such boosts; a direct channel
// subscription does not (its own mute never applies there).
func renotedChannelMuted(note *model.Note, state *stream.UserState) bool {
	if note.Renote == nil || note.Renote.ChannelID == nil {
		return false
	}
	_, muted := state.MutingChannels[*note.Renote.ChannelID]
	return muted
}
