package eventstore

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/groupsync/core"
)

type postgresStore struct {
	db *gorm.DB
}

// NewPostgresStore creates an event store backed by the events table
func NewPostgresStore(db *gorm.DB) core.EventStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) Fetch(ctx context.Context, filter core.Filter) ([]core.Event, error) {
	ctx, span := tracer.Start(ctx, "EventStore.Postgres.Fetch")
	defer span.End()

	query := s.db.WithContext(ctx).Model(&core.EventRecord{})

	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}
	if len(filter.Kinds) > 0 {
		query = query.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Authors) > 0 {
		query = query.Where("pub_key IN ?", filter.Authors)
	}

	keys := make([]string, 0, len(filter.Tags))
	for key := range filter.Tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		refs := make([]string, 0, len(filter.Tags[key]))
		for _, value := range filter.Tags[key] {
			refs = append(refs, key+":"+value)
		}
		query = query.Where("refs && ?", pq.Array(refs))
	}

	if filter.Since > 0 {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Until > 0 {
		query = query.Where("created_at <= ?", filter.Until)
	}

	query = query.Order("created_at desc").Order("id asc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var records []core.EventRecord
	err := query.Find(&records).Error
	if err != nil {
		span.RecordError(err)
		return nil, core.NewErrorTransport("fetch", err)
	}

	events := make([]core.Event, 0, len(records))
	for _, record := range records {
		event, err := eventFromRecord(record)
		if err != nil {
			span.RecordError(err)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// Publish stores the event. Storing the same id again is a no-op.
func (s *postgresStore) Publish(ctx context.Context, event core.Event) error {
	ctx, span := tracer.Start(ctx, "EventStore.Postgres.Publish")
	defer span.End()

	record, err := recordFromEvent(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error
	if err != nil {
		span.RecordError(err)
		return core.NewErrorTransport("publish", err)
	}
	return nil
}

func recordFromEvent(event core.Event) (core.EventRecord, error) {
	tags := event.Tags
	if tags == nil {
		tags = [][]string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return core.EventRecord{}, errors.Wrap(err, "failed to encode tags")
	}

	return core.EventRecord{
		ID:        event.ID,
		PubKey:    event.PubKey,
		Timestamp: event.CreatedAt,
		Kind:      event.Kind,
		Tags:      string(encoded),
		Refs:      pq.StringArray(event.TagRefs()),
		Content:   event.Content,
		Sig:       event.Sig,
	}, nil
}

func eventFromRecord(record core.EventRecord) (core.Event, error) {
	var tags [][]string
	err := json.Unmarshal([]byte(record.Tags), &tags)
	if err != nil {
		return core.Event{}, core.NewErrorMalformedEvent(record.ID, err)
	}

	return core.Event{
		ID:        record.ID,
		PubKey:    record.PubKey,
		CreatedAt: record.Timestamp,
		Kind:      record.Kind,
		Tags:      tags,
		Content:   record.Content,
		Sig:       record.Sig,
	}, nil
}
