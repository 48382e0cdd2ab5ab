package channels

import (
	"context"

	"github.com/c360/streamfan/eventbus"
	"github.com/c360/streamfan/model"
	"github.com/c360/streamfan/stream"
)

// hashtagChannel delivers notes matching a tag query in disjunctive normal
// form: the note matches when at least one AND-group of tags is fully
// contained in its tag set. Matching is case-insensitive.
type hashtagChannel struct {
	stream.Base
	query [][]string
}

// HashtagDefinition describes the "hashtag" channel.
func HashtagDefinition() *stream.Definition {
	return &stream.Definition{
		Name: "hashtag",
		New: func(ctx *stream.Context) stream.Channel {
			return &hashtagChannel{Base: stream.NewBase(ctx)}
		},
	}
}

func (c *hashtagChannel) Init(ctx context.Context, params model.JSONObject) {
	query, ok := parseTagQuery(params["q"])
	if !ok || len(query) == 0 {
		return
	}
	c.query = query

	c.Attach(eventbus.TopicNotes, func(ev eventbus.Event) {
		c.onNote(ctx, ev)
	})
}

// parseTagQuery decodes a JSON array of arrays of strings, normalizing each
// tag. Any other shape invalidates the whole query.
func parseTagQuery(raw any) ([][]string, bool) {
	groups, ok := raw.([]any)
	if !ok {
		return nil, false
	}

	query := make([][]string, 0, len(groups))
	for _, g := range groups {
		rawTags, ok := g.([]any)
		if !ok {
			return nil, false
		}
		tags := make([]string, 0, len(rawTags))
		for _, t := range rawTags {
			s, ok := t.(string)
			if !ok {
				return nil, false
			}
			tags = append(tags, model.NormalizeTag(s))
		}
		if len(tags) > 0 {
			query = append(query, tags)
		}
	}
	return query, true
}

func (c *hashtagChannel) onNote(ctx context.Context, ev eventbus.Event) {
	note, ok := stream.NoteFromEvent(ev)
	if !ok {
		return
	}
	if !matchesTagQuery(c.query, note.Tags) {
		return
	}
	if c.HiddenFromAnonymous(note) {
		return
	}
	if c.IsNoteMutedOrBlocked(note) {
		return
	}

	c.PopulateMyRenoteReaction(ctx, note)
	c.Send("note", note)
}

func matchesTagQuery(query [][]string, noteTags []string) bool {
	if len(noteTags) == 0 {
		return false
	}
	tagSet := make(map[string]struct{}, len(noteTags))
	for _, t := range noteTags {
		tagSet[model.NormalizeTag(t)] = struct{}{}
	}

	for _, group := range query {
		all := true
		for _, tag := range group {
			if _, ok := tagSet[tag]; !ok {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}
