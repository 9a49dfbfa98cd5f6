package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/groupsync/core"
)

const (
	defaultTimeout = 10 * time.Second
)

var tracer = otel.Tracer("client")

// Client talks to the REST api of a groupsync node
type Client interface {
	ListGroups(ctx context.Context, filter core.GroupFilter) ([]core.Group, error)
	GetGroup(ctx context.Context, id string) (core.Group, error)
	GetMembers(ctx context.Context, id string) (core.MembershipSnapshot, error)
	CreateGroup(ctx context.Context, actor, name, about, picture string) (core.Group, error)
	Join(ctx context.Context, groupID, actor string) (core.Event, error)
	Leave(ctx context.Context, groupID, actor string) (core.Event, error)
	Post(ctx context.Context, groupID, content, actor string) (core.Event, error)
	GetProfile(ctx context.Context) (core.Profile, error)
}

type client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the node at base, e.g. http://localhost:8000
func NewClient(base string) Client {
	return &client{
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *client) ListGroups(ctx context.Context, filter core.GroupFilter) ([]core.Group, error) {
	ctx, span := tracer.Start(ctx, "Client.ListGroups")
	defer span.End()

	query := url.Values{}
	if filter.TextSearch != "" {
		query.Set("q", filter.TextSearch)
	}
	if len(filter.Tags) > 0 {
		query.Set("tags", strings.Join(filter.Tags, ","))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	path := "/api/v1/groups"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var groups []core.Group
	err := c.do(ctx, http.MethodGet, path, nil, &groups)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return groups, nil
}

func (c *client) GetGroup(ctx context.Context, id string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Client.GetGroup")
	defer span.End()

	var group core.Group
	err := c.do(ctx, http.MethodGet, "/api/v1/group/"+url.PathEscape(id), nil, &group)
	if err != nil {
		span.RecordError(err)
		return core.Group{}, err
	}
	return group, nil
}

func (c *client) GetMembers(ctx context.Context, id string) (core.MembershipSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Client.GetMembers")
	defer span.End()

	var snapshot core.MembershipSnapshot
	err := c.do(ctx, http.MethodGet, "/api/v1/group/"+url.PathEscape(id)+"/members", nil, &snapshot)
	if err != nil {
		span.RecordError(err)
		return core.MembershipSnapshot{}, err
	}
	return snapshot, nil
}

// CreateGroup returns the group together with the error when only the
// definition could be published.
func (c *client) CreateGroup(ctx context.Context, actor, name, about, picture string) (core.Group, error) {
	ctx, span := tracer.Start(ctx, "Client.CreateGroup")
	defer span.End()

	body := map[string]string{
		"actor":   actor,
		"name":    name,
		"about":   about,
		"picture": picture,
	}

	var group core.Group
	err := c.do(ctx, http.MethodPost, "/api/v1/group", body, &group)
	if err != nil {
		span.RecordError(err)
		var publishErr core.ErrorPublish
		if errors.As(err, &publishErr) && group.ID != "" {
			publishErr.Partial = true
			return group, publishErr
		}
		return core.Group{}, err
	}
	return group, nil
}

func (c *client) Join(ctx context.Context, groupID, actor string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Client.Join")
	defer span.End()

	var event core.Event
	err := c.do(ctx, http.MethodPost, "/api/v1/group/"+url.PathEscape(groupID)+"/join", map[string]string{"actor": actor}, &event)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}
	return event, nil
}

func (c *client) Leave(ctx context.Context, groupID, actor string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Client.Leave")
	defer span.End()

	var event core.Event
	err := c.do(ctx, http.MethodPost, "/api/v1/group/"+url.PathEscape(groupID)+"/leave", map[string]string{"actor": actor}, &event)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}
	return event, nil
}

func (c *client) Post(ctx context.Context, groupID, content, actor string) (core.Event, error) {
	ctx, span := tracer.Start(ctx, "Client.Post")
	defer span.End()

	body := map[string]string{
		"actor":   actor,
		"content": content,
	}

	var event core.Event
	err := c.do(ctx, http.MethodPost, "/api/v1/group/"+url.PathEscape(groupID)+"/post", body, &event)
	if err != nil {
		span.RecordError(err)
		return core.Event{}, err
	}
	return event, nil
}

func (c *client) GetProfile(ctx context.Context) (core.Profile, error) {
	ctx, span := tracer.Start(ctx, "Client.GetProfile")
	defer span.End()

	var profile core.Profile
	err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, &profile)
	if err != nil {
		span.RecordError(err)
		return core.Profile{}, err
	}
	return profile, nil
}

// do sends a request and decodes the content of the response into out.
// out is filled even for an error response when it carries content.
func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewErrorTransport(method+" "+path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.NewErrorTransport(method+" "+path, err)
	}

	var envelope core.ResponseBase[json.RawMessage]
	err = json.Unmarshal(raw, &envelope)
	if err != nil {
		return errors.Wrapf(err, "unexpected response (%d)", resp.StatusCode)
	}

	if len(envelope.Content) > 0 && string(envelope.Content) != "null" {
		err = json.Unmarshal(envelope.Content, out)
		if err != nil {
			return errors.Wrap(err, "failed to decode content")
		}
	}

	if resp.StatusCode < 300 {
		return nil
	}

	message := envelope.Message
	if message == "" {
		message = envelope.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return core.NewErrorNotFound()
	case http.StatusForbidden:
		return core.NewErrorPermissionDenied()
	case http.StatusBadGateway:
		return core.NewErrorPublish(core.Event{}, false, errors.New(message))
	case http.StatusServiceUnavailable:
		return core.NewErrorTransport(method+" "+path, errors.New(message))
	default:
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, message)
	}
}
