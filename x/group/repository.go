//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=mock/repository.go
package group

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"

	"github.com/totegamma/groupsync/core"
)

// Repository is the interface for group event access
type Repository interface {
	FetchMetadata(ctx context.Context, since int64, limit int) ([]core.Event, error)
	FetchGroupEvents(ctx context.Context, groupID string) ([]core.Event, error)
	FetchMembershipEvents(ctx context.Context, groupID string) ([]core.Event, error)
	Publish(ctx context.Context, event core.Event) error
	DecodeMetadata(ctx context.Context, event core.Event) (core.GroupMetadata, error)
}

type repository struct {
	store core.EventStore
	mc    *memcache.Client
}

// NewRepository creates a new group repository
func NewRepository(store core.EventStore, mc *memcache.Client) Repository {
	return &repository{store: store, mc: mc}
}

// FetchMetadata returns every metadata event created after since
func (r *repository) FetchMetadata(ctx context.Context, since int64, limit int) ([]core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Repository.FetchMetadata")
	defer span.End()

	events, err := r.store.Fetch(ctx, core.Filter{
		Kinds: []int{core.KindGroupMetadata},
		Since: since,
		Limit: limit,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return events, nil
}

// FetchGroupEvents returns the defining event of a group and its amendments
func (r *repository) FetchGroupEvents(ctx context.Context, groupID string) ([]core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Repository.FetchGroupEvents")
	defer span.End()

	definitions, err := r.store.Fetch(ctx, core.Filter{
		IDs:   []string{groupID},
		Kinds: []int{core.KindGroupMetadata},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if len(definitions) == 0 {
		return definitions, nil
	}

	amendments, err := r.store.Fetch(ctx, core.Filter{
		Kinds: []int{core.KindGroupMetadata},
		Tags:  map[string][]string{core.TagGroup: {groupID}},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return append(definitions, amendments...), nil
}

func (r *repository) FetchMembershipEvents(ctx context.Context, groupID string) ([]core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Repository.FetchMembershipEvents")
	defer span.End()

	events, err := r.store.Fetch(ctx, core.Filter{
		Kinds: []int{core.KindGroupAdmin, core.KindGroupMember},
		Tags:  map[string][]string{core.TagGroup: {groupID}},
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return events, nil
}

func (r *repository) Publish(ctx context.Context, event core.Event) error {
	ctx, span := tracer.Start(ctx, "Group.Repository.Publish")
	defer span.End()

	err := r.store.Publish(ctx, event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// DecodeMetadata decodes the content of a metadata event.
// Non JSON content becomes the name and is reported as ErrorMalformedEvent
// together with the fallback value. Results are cached by event id.
func (r *repository) DecodeMetadata(ctx context.Context, event core.Event) (core.GroupMetadata, error) {
	ctx, span := tracer.Start(ctx, "Group.Repository.DecodeMetadata")
	defer span.End()

	cacheKey := "group:meta:" + event.ID
	if r.mc != nil && event.ID != "" {
		item, err := r.mc.Get(cacheKey)
		if err == nil {
			var cached core.GroupMetadata
			if err := json.Unmarshal(item.Value, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var metadata core.GroupMetadata
	var decodeErr error
	err := json.Unmarshal([]byte(event.Content), &metadata)
	if err != nil {
		metadata = core.GroupMetadata{Name: event.Content}
		decodeErr = core.NewErrorMalformedEvent(event.ID, errors.Wrap(err, "content is not a metadata object"))
		span.RecordError(decodeErr)
	}

	if metadata.Name == "" {
		metadata.Name, _ = event.TagValue(core.TagName)
	}
	if metadata.About == "" {
		metadata.About, _ = event.TagValue(core.TagAbout)
	}
	if metadata.Picture == "" {
		metadata.Picture, _ = event.TagValue(core.TagPicture)
	}

	if r.mc != nil && event.ID != "" {
		value, err := json.Marshal(metadata)
		if err == nil {
			err = r.mc.Set(&memcache.Item{Key: cacheKey, Value: value})
		}
		if err != nil {
			slog.DebugContext(
				ctx, "failed to cache group metadata",
				slog.String("error", err.Error()),
				slog.String("module", "group"),
			)
		}
	}

	return metadata, decodeErr
}
