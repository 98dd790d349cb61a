package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/commercekit/slack-relay/internal/bus"
	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/observability"
	"github.com/commercekit/slack-relay/internal/template"
)

// Multiplexer attaches one dispatcher per event name to the bus. Each
// dispatcher enriches the raw event payload through the template's prepare
// step and re-emits the result as a prepared-notification envelope for the
// delivery side.
//
// Descriptors resolve at dispatch time, not attach time, so a template
// registered later for an already-attached event takes effect on the next
// occurrence.
type Multiplexer struct {
	bus      bus.EventBus
	registry *template.Registry
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.RWMutex
	active map[string]struct{}
	// subscriberIDs pins the bus subscription tag first used for each event
	// name. Reusing it keeps one subscription per event even when a
	// different-named descriptor later overrides the event, and across
	// detach/attach cycles.
	subscriberIDs map[string]string
}

func NewMultiplexer(eventBus bus.EventBus, registry *template.Registry, logger *zap.Logger) (*Multiplexer, error) {
	if eventBus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("template registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Multiplexer{
		bus:           eventBus,
		registry:      registry,
		logger:        logger,
		active:        make(map[string]struct{}),
		subscriberIDs: make(map[string]string),
	}, nil
}

func (m *Multiplexer) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

// AttachAll attaches a dispatcher for every event name in the registry.
func (m *Multiplexer) AttachAll() error {
	var errs []error
	for _, eventName := range m.registry.Events() {
		if err := m.Attach(eventName); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Attach subscribes a dispatcher for one event name. Attaching the same event
// twice is a no-op: the subscription tag is pinned per event name, so the bus
// replaces the handler instead of adding a second one.
func (m *Multiplexer) Attach(eventName string) error {
	d, ok := m.registry.Resolve(eventName)
	if !ok {
		return fmt.Errorf("%w: no template registered for event %q", domain.ErrNotFound, eventName)
	}

	m.mu.Lock()
	subscriberID, pinned := m.subscriberIDs[eventName]
	if !pinned {
		subscriberID = d.SubscriberID()
		m.subscriberIDs[eventName] = subscriberID
	}
	m.active[eventName] = struct{}{}
	m.mu.Unlock()

	return m.bus.Subscribe(eventName, m.dispatch, bus.SubscribeOptions{
		SubscriberID: subscriberID,
	})
}

// Detach deactivates the dispatcher for an event name. The bus subscription
// stays in place; subsequent deliveries are acknowledged and dropped.
func (m *Multiplexer) Detach(eventName string) {
	m.mu.Lock()
	delete(m.active, eventName)
	m.mu.Unlock()
}

func (m *Multiplexer) isActive(eventName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[eventName]
	return ok
}

func (m *Multiplexer) dispatch(ctx context.Context, eventName string, raw json.RawMessage) error {
	if !m.isActive(eventName) {
		m.logger.Debug("dropping event for detached dispatcher", zap.String("event", eventName))
		return nil
	}

	var payload domain.EventPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		m.logger.Warn("dropping event with undecodable payload",
			zap.String("event", eventName),
			zap.Error(err),
		)
		return nil
	}

	d, ok := m.registry.Resolve(eventName)
	if !ok {
		m.logger.Warn("no template for attached event", zap.String("event", eventName))
		return nil
	}

	m.metrics.IncEventDispatched(eventName)
	ctx = observability.WithCorrelationID(ctx, payload.ID)

	snapshot, err := d.Prepare(ctx, eventName, payload)
	if err != nil {
		if errors.Is(err, domain.ErrSuppressed) {
			m.metrics.IncEventSuppressed(eventName)
			m.logger.Debug("event suppressed",
				zap.String("event", eventName),
				zap.String("recordId", payload.ID),
			)
			return nil
		}
		m.logger.Error("failed to prepare event",
			zap.String("event", eventName),
			zap.String("template", d.Name),
			zap.String("recordId", payload.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to prepare event %q: %w", eventName, err)
	}

	envelope := domain.Envelope{
		TemplateID: d.Name,
		EventName:  eventName,
		RecordID:   snapshot.RecordID(),
		Data:       snapshot,
	}
	if err := m.bus.Emit(ctx, domain.EventNotificationPrepared, envelope); err != nil {
		return fmt.Errorf("failed to emit prepared notification for %q: %w", eventName, err)
	}

	m.logger.Debug("event prepared",
		zap.String("event", eventName),
		zap.String("template", d.Name),
		zap.String("recordId", snapshot.RecordID()),
	)
	return nil
}
