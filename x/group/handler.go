package group

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/groupsync/core"
)

// Handler is the interface for handling HTTP requests
type Handler interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Members(c echo.Context) error
	Create(c echo.Context) error
	Join(c echo.Context) error
	Leave(c echo.Context) error
	Post(c echo.Context) error
}

type handler struct {
	service core.GroupService
}

// NewHandler creates a new handler
func NewHandler(service core.GroupService) Handler {
	return &handler{service: service}
}

// List returns groups matching ?q=, ?tags= and ?limit=
func (h handler) List(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.List")
	defer span.End()

	filter := core.GroupFilter{
		TextSearch: c.QueryParam("q"),
	}

	if tags := c.QueryParam("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid limit"})
		}
		filter.Limit = limit
	}

	groups, err := h.service.FetchGroups(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": groups})
}

func (h handler) Get(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Get")
	defer span.End()

	group, err := h.service.FetchGroupByID(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": group})
}

func (h handler) Members(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Members")
	defer span.End()

	snapshot, err := h.service.FetchMembers(ctx, c.Param("id"))
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": snapshot})
}

func (h handler) Create(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Create")
	defer span.End()

	var request createRequest
	err := c.Bind(&request)
	if err != nil {
		span.RecordError(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid request"})
	}
	if request.Actor == "" || strings.TrimSpace(request.Name) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "actor and name are required"})
	}

	group, err := h.service.CreateGroup(ctx, request.Actor, request.Name, request.About, request.Picture)
	if err != nil {
		span.RecordError(err)
		var publishErr core.ErrorPublish
		if errors.As(err, &publishErr) && publishErr.Partial {
			return c.JSON(http.StatusBadGateway, echo.Map{"status": "error", "message": err.Error(), "content": group})
		}
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": group})
}

func (h handler) Join(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Join")
	defer span.End()

	var request actionRequest
	err := c.Bind(&request)
	if err != nil || request.Actor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "actor is required"})
	}

	event, err := h.service.Join(ctx, c.Param("id"), request.Actor)
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": event})
}

func (h handler) Leave(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Leave")
	defer span.End()

	var request actionRequest
	err := c.Bind(&request)
	if err != nil || request.Actor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "actor is required"})
	}

	event, err := h.service.Leave(ctx, c.Param("id"), request.Actor)
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "content": event})
}

func (h handler) Post(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Group.Handler.Post")
	defer span.End()

	var request postRequest
	err := c.Bind(&request)
	if err != nil || request.Actor == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "actor is required"})
	}
	if strings.TrimSpace(request.Content) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "content is required"})
	}

	event, err := h.service.Post(ctx, c.Param("id"), request.Content, request.Actor)
	if err != nil {
		span.RecordError(err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{"status": "ok", "content": event})
}

func respondError(c echo.Context, err error) error {
	var notFound core.ErrorNotFound
	var denied core.ErrorPermissionDenied
	var publish core.ErrorPublish
	var transport core.ErrorTransport

	switch {
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"status": "error", "message": "group not found"})
	case errors.As(err, &denied):
		return c.JSON(http.StatusForbidden, echo.Map{"status": "error", "message": err.Error()})
	case errors.As(err, &publish):
		return c.JSON(http.StatusBadGateway, echo.Map{"status": "error", "message": err.Error()})
	case errors.As(err, &transport):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "error", "message": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": err.Error()})
	}
}
