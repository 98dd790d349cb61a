package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/commercekit/slack-relay/internal/domain"
)

type EventService interface {
	List(ctx context.Context) ([]domain.SlackNotificationEvent, error)
	Register(ctx context.Context, eventName string, value json.RawMessage) (*domain.SlackNotificationEvent, error)
	Unregister(ctx context.Context, id string) (*domain.SlackNotificationEvent, error)
}

// EventHandler exposes the managed event subscriptions under /admin.
type EventHandler struct {
	service EventService
}

func NewEventHandler(service EventService) (*EventHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("event service is required")
	}
	return &EventHandler{service: service}, nil
}

func RegisterEventRoutes(router fiber.Router, service EventService) error {
	h, err := NewEventHandler(service)
	if err != nil {
		return err
	}

	admin := router.Group("/admin/slack/events")
	admin.Get("/", h.ListEvents)
	admin.Post("/", h.CreateEvent)
	admin.Delete("/:id", h.DeleteEvent)

	return nil
}

type createEventRequest struct {
	EventName string          `json:"eventName"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type eventResponse struct {
	ID        string          `json:"id"`
	EventName string          `json:"eventName"`
	Value     json.RawMessage `json:"value,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

type listEventsResponse struct {
	Data []eventResponse `json:"data"`
}

func (h *EventHandler) ListEvents(c *fiber.Ctx) error {
	events, err := h.service.List(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]eventResponse, 0, len(events))
	for i := range events {
		responses = append(responses, toEventResponse(&events[i]))
	}
	return c.Status(fiber.StatusOK).JSON(listEventsResponse{Data: responses})
}

func (h *EventHandler) CreateEvent(c *fiber.Ctx) error {
	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.service.Register(c.Context(), req.EventName, req.Value)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toEventResponse(record))
}

func (h *EventHandler) DeleteEvent(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	record, err := h.service.Unregister(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toEventResponse(record))
}

func toEventResponse(event *domain.SlackNotificationEvent) eventResponse {
	if event == nil {
		return eventResponse{}
	}

	return eventResponse{
		ID:        event.ID,
		EventName: event.EventName,
		Value:     event.Value,
		CreatedAt: event.CreatedAt,
	}
}
