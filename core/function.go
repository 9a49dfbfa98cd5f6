package core

import (
	"github.com/nbd-wtf/go-nostr"
)

// TagValue returns the value of the first tag named key
func (e Event) TagValue(key string) (string, bool) {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == key {
			return tag[1], true
		}
	}
	return "", false
}

func (e Event) TagValues(key string) []string {
	values := make([]string, 0)
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == key {
			values = append(values, tag[1])
		}
	}
	return values
}

// TagRefs flattens tags into "name:value" pairs
func (e Event) TagRefs() []string {
	refs := make([]string, 0, len(e.Tags))
	for _, tag := range e.Tags {
		if len(tag) < 2 {
			continue
		}
		refs = append(refs, tag[0]+":"+tag[1])
	}
	return refs
}

func (e Event) ToNostr() nostr.Event {
	tags := make(nostr.Tags, 0, len(e.Tags))
	for _, tag := range e.Tags {
		tags = append(tags, nostr.Tag(append([]string(nil), tag...)))
	}
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: nostr.Timestamp(e.CreatedAt),
		Kind:      e.Kind,
		Tags:      tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

func EventFromNostr(ev nostr.Event) Event {
	tags := make([][]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		tags = append(tags, append([]string(nil), tag...))
	}
	return Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		CreatedAt: int64(ev.CreatedAt),
		Kind:      ev.Kind,
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

func (f Filter) ToNostr() nostr.Filter {
	filter := nostr.Filter{
		IDs:     f.IDs,
		Kinds:   f.Kinds,
		Authors: f.Authors,
		Limit:   f.Limit,
	}
	if len(f.Tags) > 0 {
		filter.Tags = nostr.TagMap{}
		for key, values := range f.Tags {
			filter.Tags[key] = values
		}
	}
	if f.Since > 0 {
		since := nostr.Timestamp(f.Since)
		filter.Since = &since
	}
	if f.Until > 0 {
		until := nostr.Timestamp(f.Until)
		filter.Until = &until
	}
	return filter
}
