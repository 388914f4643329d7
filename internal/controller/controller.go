package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"stream-analytics-service/internal/model"
	"stream-analytics-service/internal/service"
)

const (
	defaultDays  = 7
	defaultLimit = 10
)

// EventController exposes HTTP handlers for the ingest and analytics
// endpoints.
type EventController interface {
	CreateEvent(c *fiber.Ctx) error
	GetTotalTips(c *fiber.Ctx) error
	GetTopChatters(c *fiber.Ctx) error
	GetTopTippers(c *fiber.Ctx) error
	Search(c *fiber.Ctx) error
}

type eventController struct {
	events    service.EventService
	analytics service.AnalyticsService
}

// NewEventController builds an EventController.
func NewEventController(events service.EventService, analytics service.AnalyticsService) EventController {
	return &eventController{events: events, analytics: analytics}
}

// CreateEvent accepts a single platform event payload.
func (h *eventController) CreateEvent(c *fiber.Ctx) error {
	var req model.EventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	event, err := h.events.BuildEvent(req)
	if err != nil {
		return serviceError(err)
	}

	h.events.ProcessEvent(c.Context(), event)

	return c.SendStatus(fiber.StatusAccepted)
}

type tipsRequest struct {
	Days int `json:"days"`
}

// GetTotalTips returns the token sum over the requested window. Captured
// backend failures still return 200 with success=false in the body.
func (h *eventController) GetTotalTips(c *fiber.Ctx) error {
	req := tipsRequest{Days: defaultDays}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	resp, err := h.analytics.GetTotalTips(c.Context(), req.Days)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(resp)
}

type rankingRequest struct {
	Days  int `json:"days"`
	Limit int `json:"limit"`
}

// GetTopChatters returns the users with the most chat messages.
func (h *eventController) GetTopChatters(c *fiber.Ctx) error {
	req := rankingRequest{Days: defaultDays, Limit: defaultLimit}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	resp, err := h.analytics.GetTopChatters(c.Context(), req.Days, req.Limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(resp)
}

// GetTopTippers returns the users with the highest tipped totals.
func (h *eventController) GetTopTippers(c *fiber.Ctx) error {
	req := rankingRequest{Days: defaultDays, Limit: defaultLimit}
	if err := parseOptionalBody(c, &req); err != nil {
		return err
	}

	resp, err := h.analytics.GetTopTippers(c.Context(), req.Days, req.Limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(resp)
}

// Search runs the generic parameterized query path.
func (h *eventController) Search(c *fiber.Ctx) error {
	var req model.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}

	resp, err := h.analytics.ExecuteSearch(c.Context(), req)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(resp)
}

// parseOptionalBody fills req from the body when one is present; an empty
// body keeps the defaults already in req.
func parseOptionalBody(c *fiber.Ctx, req any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json payload")
	}
	return nil
}

// serviceError maps the error taxonomy onto HTTP statuses: validation
// problems are the caller's to fix (400), everything else that escapes the
// service layer is a server fault (500).
func serviceError(err error) error {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		return fiber.NewError(fiber.StatusBadRequest, validation.Message)
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}
