// Package model defines the wire-level entities flowing through the fanout
// fabric. These mirror the serialized ("packed") forms produced by the entity
// services; the fanout core never loads them from storage itself.
package model

import "strings"

// JSONObject is an arbitrary JSON object decoded from a client frame or an
// event body.
type JSONObject = map[string]any

// AsObject returns v as a JSONObject if it is one.
func AsObject(v any) (JSONObject, bool) {
	obj, ok := v.(map[string]any)
	return obj, ok
}

// GetString extracts a string field from a JSON object. The second return is
// false when the field is absent or has the wrong type.
func GetString(obj JSONObject, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok
}

// GetBool extracts a boolean field from a JSON object.
func GetBool(obj JSONObject, key string) (bool, bool) {
	b, ok := obj[key].(bool)
	return b, ok
}

// OptionalBool reads an optional boolean field with a default. Absent and
// explicit null both yield the default; any other non-boolean type fails.
func OptionalBool(obj JSONObject, key string, def bool) (bool, bool) {
	v, exists := obj[key]
	if !exists || v == nil {
		return def, true
	}
	b, ok := v.(bool)
	if !ok {
		return def, false
	}
	return b, true
}

// User is the packed form of an account as seen by the stream layer.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	// Host is nil for local users.
	Host                        *string `json:"host"`
	IsAdmin                     bool    `json:"isAdmin,omitempty"`
	RequireSigninToViewContents bool    `json:"requireSigninToViewContents,omitempty"`
}

// IsLocal reports whether the user belongs to this instance.
func (u *User) IsLocal() bool {
	return u.Host == nil
}

// AccessToken carries the permission scopes granted to a third-party token.
type AccessToken struct {
	ID          string   `json:"id"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the token grants the named scope.
func (t *AccessToken) HasPermission(kind string) bool {
	for _, p := range t.Permissions {
		if p == kind {
			return true
		}
	}
	return false
}

// UserProfile holds per-user settings the stream layer filters on.
type UserProfile struct {
	UserID         string   `json:"userId"`
	MutedInstances []string `json:"mutedInstances"`
}

// FollowStatus records per-followee options for one following relation.
type FollowStatus struct {
	WithReplies bool `json:"withReplies"`
}

// Note is the packed form of a note. Renote and Reply are populated one level
// deep, matching what the entity service emits onto the note stream.
type Note struct {
	ID             string         `json:"id"`
	CreatedAt      string         `json:"createdAt,omitempty"`
	UserID         string         `json:"userId"`
	User           *User          `json:"user"`
	Text           *string        `json:"text,omitempty"`
	CW             *string        `json:"cw,omitempty"`
	Visibility     string         `json:"visibility"`
	VisibleUserIDs []string       `json:"visibleUserIds,omitempty"`
	LocalOnly      bool           `json:"localOnly,omitempty"`
	ChannelID      *string        `json:"channelId,omitempty"`
	ReplyID        *string        `json:"replyId,omitempty"`
	RenoteID       *string        `json:"renoteId,omitempty"`
	Reply          *Note          `json:"reply,omitempty"`
	Renote         *Note          `json:"renote,omitempty"`
	FileIDs        []string       `json:"fileIds,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	PollID         *string        `json:"pollId,omitempty"`
	Reactions      map[string]int `json:"reactions,omitempty"`
	MyReaction     *string        `json:"myReaction,omitempty"`
	IsHidden       bool           `json:"isHidden,omitempty"`
}

// VisibilityPublic is the only visibility relayed on open timelines.
const VisibilityPublic = "public"

// IsRenote reports whether the note renotes another note.
func IsRenote(note *Note) bool {
	return note.RenoteID != nil
}

// IsQuote reports whether a renote adds its own content (text, CW, poll or
// files), which makes it a quote rather than a plain boost.
func IsQuote(note *Note) bool {
	if !IsRenote(note) {
		return false
	}
	return note.Text != nil || note.CW != nil || note.PollID != nil || len(note.FileIDs) > 0
}

// IsPureRenote reports whether the note is a boost with no content of its own.
func IsPureRenote(note *Note) bool {
	return IsRenote(note) && !IsQuote(note)
}

// IsUserRelated reports whether the note's author, or the author of its reply
// or renote target, is in the given user id set.
func IsUserRelated(note *Note, userIDs map[string]struct{}) bool {
	if note == nil || len(userIDs) == 0 {
		return false
	}
	if _, ok := userIDs[note.UserID]; ok {
		return true
	}
	if note.Reply != nil {
		if _, ok := userIDs[note.Reply.UserID]; ok {
			return true
		}
	}
	if note.Renote != nil {
		if _, ok := userIDs[note.Renote.UserID]; ok {
			return true
		}
	}
	return false
}

// IsInstanceMuted reports whether the note, its reply target or its renote
// target originates from a muted instance.
func IsInstanceMuted(note *Note, mutedInstances map[string]struct{}) bool {
	if note == nil || len(mutedInstances) == 0 {
		return false
	}
	if hostMuted(note.User, mutedInstances) {
		return true
	}
	if note.Reply != nil && hostMuted(note.Reply.User, mutedInstances) {
		return true
	}
	if note.Renote != nil && hostMuted(note.Renote.User, mutedInstances) {
		return true
	}
	return false
}

// IsUserFromMutedInstance reports whether the user is hosted on a muted
// instance. Used for events keyed on an actor rather than a note, such as
// notifications.
func IsUserFromMutedInstance(u *User, mutedInstances map[string]struct{}) bool {
	return hostMuted(u, mutedInstances)
}

func hostMuted(u *User, mutedInstances map[string]struct{}) bool {
	if u == nil || u.Host == nil {
		return false
	}
	_, ok := mutedInstances[*u.Host]
	return ok
}

// NormalizeTag canonicalizes a hashtag for comparison.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Notification is the packed form of a notification event on the main stream.
type Notification struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	UserID *string `json:"userId,omitempty"`
	User   *User   `json:"user,omitempty"`
	Note   *Note   `json:"note,omitempty"`
}

// RolePolicies is the subset of role policies the stream layer enforces.
type RolePolicies struct {
	GTLAvailable bool `json:"gtlAvailable"`
	LTLAvailable bool `json:"ltlAvailable"`
}

// PackOpts controls how the entity service packs a note.
type PackOpts struct {
	Detail bool
}
