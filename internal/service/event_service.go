package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/repository"
	"github.com/commercekit/slack-relay/internal/template"
)

const eventIDPrefix = "slack_event_"

// EventService manages the persisted event subscriptions: each stored record
// keeps a dispatcher attached for its event name across restarts. Events
// without a dedicated template dispatch through the generic descriptor and
// render as title-only messages.
type EventService struct {
	events   repository.SlackEventRepository
	registry *template.Registry
	mux      *Multiplexer
	logger   *zap.Logger
	newID    func() string
}

func NewEventService(
	events repository.SlackEventRepository,
	registry *template.Registry,
	mux *Multiplexer,
	logger *zap.Logger,
) (*EventService, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("template registry is required")
	}
	if mux == nil {
		return nil, fmt.Errorf("multiplexer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventService{
		events:   events,
		registry: registry,
		mux:      mux,
		logger:   logger,
		newID: func() string {
			return eventIDPrefix + uuid.NewString()
		},
	}, nil
}

// Bootstrap re-attaches a dispatcher for every stored event record. Called
// once at startup, after the built-in templates are attached.
func (s *EventService) Bootstrap(ctx context.Context) error {
	records, err := s.events.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stored events: %w", err)
	}

	var errs []error
	for _, record := range records {
		if err := s.attach(record.EventName); err != nil {
			errs = append(errs, fmt.Errorf("event %q: %w", record.EventName, err))
			continue
		}
		s.logger.Info("stored event attached",
			zap.String("id", record.ID),
			zap.String("event", record.EventName),
		)
	}
	return errors.Join(errs...)
}

func (s *EventService) List(ctx context.Context) ([]domain.SlackNotificationEvent, error) {
	return s.events.List(ctx)
}

// Register stores a new event subscription and attaches its dispatcher. An
// already-registered event name yields domain.ErrConflict.
func (s *EventService) Register(ctx context.Context, eventName string, value json.RawMessage) (*domain.SlackNotificationEvent, error) {
	eventName = strings.TrimSpace(eventName)

	record := &domain.SlackNotificationEvent{
		ID:        s.newID(),
		EventName: eventName,
		Value:     value,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, record); err != nil {
		return nil, err
	}

	if err := s.attach(eventName); err != nil {
		return nil, err
	}

	s.logger.Info("event registered",
		zap.String("id", record.ID),
		zap.String("event", eventName),
	)
	return record, nil
}

// Unregister removes a stored subscription and returns the removed record.
// The dispatcher is detached only when the event is claimed by the generic
// template: an event with a dedicated built-in keeps dispatching with or
// without a managed record.
func (s *EventService) Unregister(ctx context.Context, id string) (*domain.SlackNotificationEvent, error) {
	record, err := s.events.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	if d, ok := s.registry.Resolve(record.EventName); !ok || d.Name == template.GenericName(record.EventName) {
		s.mux.Detach(record.EventName)
	}
	s.logger.Info("event unregistered",
		zap.String("id", record.ID),
		zap.String("event", record.EventName),
	)
	return record, nil
}

// attach makes sure the event resolves to a template, falling back to the
// generic one, then attaches its dispatcher.
func (s *EventService) attach(eventName string) error {
	if _, ok := s.registry.Resolve(eventName); !ok {
		if err := s.registry.Register(template.GenericDescriptor(eventName)); err != nil {
			return err
		}
	}
	return s.mux.Attach(eventName)
}
