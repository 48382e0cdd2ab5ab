package channels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/streamfan/model"
)

func strptr(s string) *string { return &s }

func TestParseTimelineParams(t *testing.T) {
	p, ok := parseTimelineParams(model.JSONObject{})
	require.True(t, ok)
	assert.True(t, p.withRenotes)
	assert.False(t, p.withReplies)
	assert.False(t, p.withFiles)

	p, ok = parseTimelineParams(model.JSONObject{"withRenotes": false, "withFiles": true})
	require.True(t, ok)
	assert.False(t, p.withRenotes)
	assert.True(t, p.withFiles)

	// Explicit null falls back to the default.
	p, ok = parseTimelineParams(model.JSONObject{"withRenotes": nil})
	require.True(t, ok)
	assert.True(t, p.withRenotes)

	// Wrong type invalidates the connect.
	_, ok = parseTimelineParams(model.JSONObject{"withRenotes": "yes"})
	assert.False(t, ok)
}

func TestParseTagQuery(t *testing.T) {
	query, ok := parseTagQuery([]any{[]any{"A", "b"}, []any{"C"}})
	require.True(t, ok)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, query)

	_, ok = parseTagQuery("nope")
	assert.False(t, ok)
	_, ok = parseTagQuery([]any{[]any{1}})
	assert.False(t, ok)
	_, ok = parseTagQuery([]any{"flat"})
	assert.False(t, ok)
}

func TestMatchesTagQuery(t *testing.T) {
	query := [][]string{{"a", "b"}, {"c"}}

	// Group AND-match, case-insensitive.
	assert.True(t, matchesTagQuery(query, []string{"A", "B"}))
	assert.True(t, matchesTagQuery(query, []string{"c", "z"}))

	// A lone "a" satisfies neither group.
	assert.False(t, matchesTagQuery(query, []string{"a"}))
	assert.False(t, matchesTagQuery(query, nil))
}

func TestDropReply(t *testing.T) {
	reply := &model.Note{ID: "n1", UserID: "author", Reply: &model.Note{ID: "n0", UserID: "other"}}

	assert.True(t, dropReply(reply, false, "viewer"))
	assert.False(t, dropReply(reply, true, "viewer"))

	// Replies to the viewer, and from the viewer, always pass.
	toViewer := &model.Note{UserID: "author", Reply: &model.Note{UserID: "viewer"}}
	assert.False(t, dropReply(toViewer, false, "viewer"))
	fromViewer := &model.Note{UserID: "viewer", Reply: &model.Note{UserID: "other"}}
	assert.False(t, dropReply(fromViewer, false, "viewer"))

	// Self-replies pass.
	selfReply := &model.Note{UserID: "author", Reply: &model.Note{UserID: "author"}}
	assert.False(t, dropReply(selfReply, false, "viewer"))
}

func TestDropPureRenote(t *testing.T) {
	boost := &model.Note{RenoteID: strptr("n0"), Renote: &model.Note{ID: "n0"}}
	quote := &model.Note{RenoteID: strptr("n0"), Text: strptr("hot take")}

	assert.True(t, dropPureRenote(boost, false))
	assert.False(t, dropPureRenote(boost, true))
	assert.False(t, dropPureRenote(quote, false))
}
