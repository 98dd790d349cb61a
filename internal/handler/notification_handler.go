package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationService interface {
	List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error)
	Resend(ctx context.Context, notificationID string) (*domain.NotificationRecord, error)
}

type NotificationHandler struct {
	service NotificationService
}

func NewNotificationHandler(service NotificationService) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification service is required")
	}
	return &NotificationHandler{service: service}, nil
}

func RegisterNotificationRoutes(router fiber.Router, service NotificationService) error {
	h, err := NewNotificationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications", h.ListNotifications)
	v1.Post("/notifications/:id/resend", h.ResendNotification)

	return nil
}

type notificationResponse struct {
	ID            string    `json:"id"`
	EventName     string    `json:"eventName"`
	TemplateID    string    `json:"templateId"`
	CorrelationID string    `json:"correlationId"`
	Destination   string    `json:"destination"`
	Status        string    `json:"status"`
	ResendOfID    *string   `json:"resendOfId,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	records, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: toNotificationResponses(records),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *NotificationHandler) ResendNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	record, err := h.service.Resend(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toNotificationResponse(record))
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseDeliveryStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if eventName := strings.TrimSpace(c.Query("event")); eventName != "" {
		params.EventName = &eventName
	}

	return params, nil
}

func toNotificationResponses(records []domain.NotificationRecord) []notificationResponse {
	responses := make([]notificationResponse, 0, len(records))
	for i := range records {
		responses = append(responses, toNotificationResponse(&records[i]))
	}
	return responses
}

func toNotificationResponse(record *domain.NotificationRecord) notificationResponse {
	if record == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:            record.ID,
		EventName:     record.EventName,
		TemplateID:    record.TemplateID,
		CorrelationID: record.CorrelationID,
		Destination:   record.Destination,
		Status:        record.Status.String(),
		ResendOfID:    record.ResendOfID,
		CreatedAt:     record.CreatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
