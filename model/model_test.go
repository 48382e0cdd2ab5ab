package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestIsPureRenote(t *testing.T) {
	renoteID := "n0"

	plain := &Note{ID: "n1", RenoteID: &renoteID}
	assert.True(t, IsPureRenote(plain))

	quote := &Note{ID: "n2", RenoteID: &renoteID, Text: strptr("look at this")}
	assert.False(t, IsPureRenote(quote))

	withFiles := &Note{ID: "n3", RenoteID: &renoteID, FileIDs: []string{"f1"}}
	assert.False(t, IsPureRenote(withFiles))

	original := &Note{ID: "n4", Text: strptr("hello")}
	assert.False(t, IsPureRenote(original))
}

func TestIsUserRelated(t *testing.T) {
	ids := map[string]struct{}{"u2": {}}

	assert.True(t, IsUserRelated(&Note{UserID: "u2"}, ids))
	assert.True(t, IsUserRelated(&Note{UserID: "u1", Reply: &Note{UserID: "u2"}}, ids))
	assert.True(t, IsUserRelated(&Note{UserID: "u1", Renote: &Note{UserID: "u2"}}, ids))
	assert.False(t, IsUserRelated(&Note{UserID: "u1"}, ids))
	assert.False(t, IsUserRelated(&Note{UserID: "u2"}, nil))
}

func TestIsInstanceMuted(t *testing.T) {
	muted := map[string]struct{}{"bad.example": {}}
	badHost := strptr("bad.example")

	assert.True(t, IsInstanceMuted(&Note{User: &User{Host: badHost}}, muted))
	assert.True(t, IsInstanceMuted(&Note{User: &User{}, Renote: &Note{User: &User{Host: badHost}}}, muted))
	assert.False(t, IsInstanceMuted(&Note{User: &User{}}, muted))
	// Local users have no host and are never instance-muted.
	assert.False(t, IsInstanceMuted(&Note{User: &User{Host: nil}}, muted))
}

func TestAccessTokenHasPermission(t *testing.T) {
	tok := &AccessToken{Permissions: []string{"read:account", "read:chat"}}
	assert.True(t, tok.HasPermission("read:account"))
	assert.False(t, tok.HasPermission("read:admin:stream"))
}

func TestOptionalBool(t *testing.T) {
	obj := JSONObject{"a": true, "b": nil, "c": "nope"}

	v, ok := OptionalBool(obj, "a", false)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = OptionalBool(obj, "b", true)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = OptionalBool(obj, "missing", true)
	assert.True(t, ok)
	assert.True(t, v)

	_, ok = OptionalBool(obj, "c", false)
	assert.False(t, ok)
}
