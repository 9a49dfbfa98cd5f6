// Package group is the directory of groups and their members
package group

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/groupsync/core"
	"github.com/totegamma/groupsync/x/membership"
)

var tracer = otel.Tracer("group")

type service struct {
	repository Repository
	signer     core.Signer
	relayer    core.Relayer
	config     core.Config
}

// NewService creates a new group service.
// relayer may be nil when live fan-out is not wired.
func NewService(repository Repository, signer core.Signer, relayer core.Relayer, config core.Config) core.GroupService {
	return &service{
		repository: repository,
		signer:     signer,
		relayer:    relayer,
		config:     config.WithDefaults(),
	}
}

// CreateGroup publishes a metadata event and an admin claim for the creator.
// When only the metadata event is published the group is returned
// together with an ErrorPublish marked Partial.
func (s *service) CreateGroup(ctx context.Context, actorKey, name, about, picture string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.CreateGroup")
	defer span.End()

	if actorKey == "" {
		return core.Group{}, core.NewErrorPermissionDenied()
	}

	content, err := encodeMetadata(core.GroupMetadata{Name: name, About: about, Picture: picture})
	if err != nil {
		span.RecordError(err)
		return core.Group{}, err
	}

	metadata := core.Event{
		PubKey:    actorKey,
		CreatedAt: time.Now().Unix(),
		Kind:      core.KindGroupMetadata,
		Tags:      [][]string{},
		Content:   content,
	}
	err = s.emit(ctx, &metadata, false)
	if err != nil {
		span.RecordError(err)
		return core.Group{}, err
	}

	group := core.Group{
		ID:        metadata.ID,
		Name:      name,
		About:     about,
		Picture:   picture,
		Tags:      []string{},
		CreatedAt: metadata.CreatedAt,
		CreatedBy: actorKey,
		UpdatedAt: metadata.CreatedAt,
	}
	span.SetAttributes(attribute.String("group", group.ID))

	admin := core.Event{
		PubKey:    actorKey,
		CreatedAt: metadata.CreatedAt,
		Kind:      core.KindGroupAdmin,
		Tags:      [][]string{{core.TagGroup, group.ID}, {core.TagRole, string(core.RoleAdmin)}},
	}
	err = s.emit(ctx, &admin, true)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(
			ctx, "group created without admin claim",
			slog.String("group", group.ID),
			slog.String("error", err.Error()),
			slog.String("module", "group"),
		)
		return group, err
	}

	return group, nil
}

// FetchGroups lists groups defined within the lookback window
func (s *service) FetchGroups(ctx context.Context, filter core.GroupFilter) ([]core.Group, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.FetchGroups")
	defer span.End()

	since := time.Now().Add(-s.config.Lookback).Unix()
	events, err := s.repository.FetchMetadata(ctx, since, s.config.FetchLimit)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to fetch group metadata")
	}

	query := strings.ToLower(strings.TrimSpace(filter.TextSearch))

	groups := make([]core.Group, 0)
	for _, r := range s.resolve(ctx, events) {
		if query != "" && !matchText(r.group, query) {
			continue
		}
		if len(filter.Tags) > 0 && !matchTags(r.effective, filter.Tags) {
			continue
		}
		groups = append(groups, r.group)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CreatedAt != groups[j].CreatedAt {
			return groups[i].CreatedAt > groups[j].CreatedAt
		}
		return groups[i].ID < groups[j].ID
	})

	if filter.Limit > 0 && len(groups) > filter.Limit {
		groups = groups[:filter.Limit]
	}

	span.SetAttributes(attribute.Int("count", len(groups)))
	return groups, nil
}

func (s *service) FetchGroupByID(ctx context.Context, id string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.FetchGroupByID")
	defer span.End()

	events, err := s.repository.FetchGroupEvents(ctx, id)
	if err != nil {
		span.RecordError(err)
		return core.Group{}, errors.Wrap(err, "failed to fetch group")
	}

	for _, r := range s.resolve(ctx, events) {
		if r.group.ID == id {
			return r.group, nil
		}
	}

	return core.Group{}, core.NewErrorNotFound()
}

func (s *service) FetchMembers(ctx context.Context, groupID string) (core.MembershipSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.FetchMembers")
	defer span.End()

	events, err := s.repository.FetchMembershipEvents(ctx, groupID)
	if err != nil {
		span.RecordError(err)
		return core.MembershipSnapshot{}, errors.Wrap(err, "failed to fetch membership events")
	}

	return membership.Reconcile(groupID, events), nil
}

func (s *service) Join(ctx context.Context, groupID, actorKey string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.Join")
	defer span.End()

	event, err := s.claim(ctx, groupID, actorKey, core.RoleMember)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}

	return event, nil
}

// Leave publishes a membership claim with the removed role
func (s *service) Leave(ctx context.Context, groupID, actorKey string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.Leave")
	defer span.End()

	event, err := s.claim(ctx, groupID, actorKey, core.RoleRemoved)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}

	return event, nil
}

// Post publishes a note tagged to the group and to the feed hashtag
func (s *service) Post(ctx context.Context, groupID, content, actorKey string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Group.Service.Post")
	defer span.End()

	if actorKey == "" {
		return core.Event{}, core.NewErrorPermissionDenied()
	}

	event := core.Event{
		PubKey:    actorKey,
		CreatedAt: time.Now().Unix(),
		Kind:      core.KindTextNote,
		Tags:      [][]string{{core.TagGroup, groupID}, {core.TagHashtag, s.config.PostHashtag}},
		Content:   content,
	}
	err := s.emit(ctx, &event, false)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}

	return event, nil
}

func (s *service) claim(ctx context.Context, groupID, actorKey string, role core.Role) (core.Event, error) {
	if actorKey == "" {
		return core.Event{}, core.NewErrorPermissionDenied()
	}

	event := core.Event{
		PubKey:    actorKey,
		CreatedAt: time.Now().Unix(),
		Kind:      core.KindGroupMember,
		Tags:      [][]string{{core.TagGroup, groupID}, {core.TagRole, string(role)}},
	}
	err := s.emit(ctx, &event, false)
	if err != nil {
		return core.Event{}, err
	}

	return event, nil
}

// emit signs and publishes an event, then hands it to the live relayer.
// Publish failures are returned as ErrorPublish, no retry is made.
func (s *service) emit(ctx context.Context, event *core.Event, partial bool) error {
	err := s.signer.Sign(ctx, event)
	if err != nil {
		return err
	}

	err = s.repository.Publish(ctx, *event)
	if err != nil {
		return core.NewErrorPublish(*event, partial, err)
	}

	if s.relayer != nil {
		s.relayer.Broadcast(ctx, *event)
	}

	return nil
}

// resolve builds groups from metadata events.
// An amendment applies only when it comes from the creator of the group,
// the latest one by (createdAt, id) wins.
func (s *service) resolve(ctx context.Context, events []core.Event) []resolved {
	seen := make(map[string]struct{}, len(events))
	definitions := make([]core.Event, 0)
	amendments := make([]core.Event, 0)

	for _, event := range events {
		if event.Kind != core.KindGroupMetadata {
			continue
		}
		if _, ok := seen[event.ID]; ok {
			continue
		}
		seen[event.ID] = struct{}{}

		if _, ok := event.TagValue(core.TagGroup); ok {
			amendments = append(amendments, event)
		} else {
			definitions = append(definitions, event)
		}
	}

	effective := make(map[string]core.Event, len(definitions))
	for _, definition := range definitions {
		effective[definition.ID] = definition
	}
	for _, amendment := range amendments {
		groupID, _ := amendment.TagValue(core.TagGroup)
		current, ok := effective[groupID]
		if !ok || amendment.PubKey != current.PubKey {
			continue
		}
		if later(amendment, current) {
			effective[groupID] = amendment
		}
	}

	results := make([]resolved, 0, len(definitions))
	for _, definition := range definitions {
		event := effective[definition.ID]
		metadata, err := s.repository.DecodeMetadata(ctx, event)
		if err != nil {
			slog.DebugContext(
				ctx, "tolerating malformed group metadata",
				slog.String("event", event.ID),
				slog.String("error", err.Error()),
				slog.String("module", "group"),
			)
		}

		results = append(results, resolved{
			group: core.Group{
				ID:        definition.ID,
				Name:      metadata.Name,
				About:     metadata.About,
				Picture:   metadata.Picture,
				Tags:      event.TagValues(core.TagHashtag),
				CreatedAt: definition.CreatedAt,
				CreatedBy: definition.PubKey,
				UpdatedAt: event.CreatedAt,
			},
			effective: event,
		})
	}

	return results
}

func later(a, b core.Event) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

func matchText(group core.Group, query string) bool {
	return strings.Contains(strings.ToLower(group.Name), query) ||
		strings.Contains(strings.ToLower(group.About), query)
}

// matchTags reports whether any tag value of the event is in wanted
func matchTags(event core.Event, wanted []string) bool {
	values := make(map[string]struct{}, len(event.Tags))
	for _, tag := range event.Tags {
		if len(tag) < 2 {
			continue
		}
		values[strings.ToLower(tag[1])] = struct{}{}
	}
	for _, tag := range wanted {
		if _, ok := values[strings.ToLower(tag)]; ok {
			return true
		}
	}
	return false
}
