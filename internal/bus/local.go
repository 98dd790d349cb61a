package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LocalBus is an in-process EventBus. Emit delivers to every subscriber of
// the event name inline on the caller's goroutine; handler errors are joined
// and returned to the emitter. Used when no broker is configured, and in
// tests.
type LocalBus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]map[string]Handler
}

var _ EventBus = (*LocalBus)(nil)

func NewLocalBus(logger *zap.Logger) *LocalBus {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LocalBus{
		logger:   logger,
		handlers: make(map[string]map[string]Handler),
	}
}

func (b *LocalBus) Subscribe(eventName string, handler Handler, opts SubscribeOptions) error {
	eventName = strings.TrimSpace(eventName)
	if eventName == "" {
		return fmt.Errorf("event name is required")
	}
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	subscriberID := strings.TrimSpace(opts.SubscriberID)
	if subscriberID == "" {
		return fmt.Errorf("subscriber id is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, ok := b.handlers[eventName]
	if !ok {
		subscribers = make(map[string]Handler)
		b.handlers[eventName] = subscribers
	}
	subscribers[subscriberID] = handler

	return nil
}

func (b *LocalBus) Emit(ctx context.Context, eventName string, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %q: %w", eventName, err)
	}

	b.mu.RLock()
	subscribers := b.handlers[eventName]
	ids := make([]string, 0, len(subscribers))
	for id := range subscribers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(subscribers))
	sort.Strings(ids)
	for _, id := range ids {
		handlers = append(handlers, subscribers[id])
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("no subscribers for event", zap.String("event", eventName))
		return nil
	}

	var errs []error
	for i, handler := range handlers {
		if err := handler(ctx, eventName, raw); err != nil {
			errs = append(errs, fmt.Errorf("subscriber %q: %w", ids[i], err))
		}
	}

	return errors.Join(errs...)
}

// SubscriberCount reports how many distinct subscribers an event name has.
func (b *LocalBus) SubscriberCount(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}
