// Package template holds the compiled-in notification templates: for each
// event name, a prepare step that enriches the terse event payload into a
// snapshot, and a format step that renders the snapshot into a structured
// message. Templates register into a Registry at startup; later
// registrations override earlier ones per event name, which is how callers
// shadow built-ins.
package template

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/platform"
)

// Providers are the narrow record-retrieval ports prepare steps consume.
type Providers interface {
	RetrieveOrder(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.OrderSnapshot, error)
	RetrieveReturn(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ReturnSnapshot, error)
	RetrieveSwap(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.SwapSnapshot, error)
	RetrieveClaim(ctx context.Context, id string, q platform.RetrieveQuery) (*domain.ClaimSnapshot, error)
}

// Options parameterize formatting for a destination channel.
type Options struct {
	// Channel is the destination channel id or name.
	Channel string
	// BackendURL is the admin UI base used for deep links inside messages.
	BackendURL string
}

// PrepareFn enriches an event payload into a snapshot. It returns
// domain.ErrSuppressed when the event must produce no notification.
type PrepareFn func(ctx context.Context, eventName string, payload domain.EventPayload) (domain.Snapshot, error)

// FormatFn renders a snapshot into a structured message. It must be pure:
// no I/O, no mutation of the snapshot.
type FormatFn func(eventName string, data domain.Snapshot, opts Options) (domain.StructuredMessage, error)

// Descriptor pairs the prepare and format steps registered for one or more
// event names.
type Descriptor struct {
	Name    string
	Events  []string
	Prepare PrepareFn
	Format  FormatFn
}

// SubscriberID is the stable bus subscription tag for this template, so
// repeated bootstraps re-use the existing subscription.
func (d Descriptor) SubscriberID() string {
	return "slack-relay-" + d.Name
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: template name is required", domain.ErrValidation)
	}
	if len(d.Events) == 0 {
		return fmt.Errorf("%w: template %q declares no events", domain.ErrValidation, d.Name)
	}
	seen := make(map[string]struct{}, len(d.Events))
	for _, event := range d.Events {
		if strings.TrimSpace(event) == "" {
			return fmt.Errorf("%w: template %q declares an empty event name", domain.ErrValidation, d.Name)
		}
		if _, dup := seen[event]; dup {
			return fmt.Errorf("%w: template %q declares event %q twice", domain.ErrValidation, d.Name, event)
		}
		seen[event] = struct{}{}
	}
	if d.Prepare == nil {
		return fmt.Errorf("%w: template %q has no prepare function", domain.ErrValidation, d.Name)
	}
	if d.Format == nil {
		return fmt.Errorf("%w: template %q has no format function", domain.ErrValidation, d.Name)
	}
	return nil
}

// Registry maps event names to template descriptors. It is built during
// startup and read-only during dispatch, so concurrent resolves are safe.
type Registry struct {
	mu      sync.RWMutex
	byEvent map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byEvent: make(map[string]Descriptor)}
}

// Register indexes a descriptor under every event name it declares.
// Last write wins: a later registration for an already-claimed event name
// replaces the earlier one. This is intentional; it lets callers override
// built-in templates.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range d.Events {
		r.byEvent[event] = d
	}
	return nil
}

// RegisterAll registers every descriptor, collecting per-descriptor failures
// instead of aborting: one malformed template must not take down the rest.
func (r *Registry) RegisterAll(descs ...Descriptor) error {
	var errs []error
	for _, d := range descs {
		if err := r.Register(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Resolve returns the descriptor currently claiming an event name.
func (r *Registry) Resolve(eventName string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byEvent[eventName]
	return d, ok
}

// Events returns every registered event name, sorted for deterministic
// attach order.
func (r *Registry) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]string, 0, len(r.byEvent))
	for event := range r.byEvent {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// MergeFormatters overlays caller-supplied formatters, one event name each.
// For a known event the custom formatter replaces the built-in one while the
// prepare step is kept; the override is narrowed to that single event so a
// sibling event claimed by the same descriptor keeps its built-in formatter.
// For unknown events a generic descriptor is created around the custom
// formatter.
func (r *Registry) MergeFormatters(custom map[string]FormatFn) error {
	var errs []error
	for event, format := range custom {
		if format == nil {
			errs = append(errs, fmt.Errorf("%w: custom formatter for %q is nil", domain.ErrValidation, event))
			continue
		}

		d, ok := r.Resolve(event)
		if !ok {
			d = GenericDescriptor(event)
		}
		if len(d.Events) > 1 {
			d.Name = d.Name + "-" + strings.ReplaceAll(event, ".", "-")
			d.Events = []string{event}
		}
		d.Format = format

		if err := r.Register(d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Builtins returns the descriptors for every event family the relay formats
// out of the box.
func Builtins(providers Providers) []Descriptor {
	return []Descriptor{
		OrdersDescriptor(providers),
		ReturnsDescriptor(providers),
		SwapsDescriptor(providers),
		ClaimsDescriptor(providers),
	}
}

// GenericName is the descriptor name GenericDescriptor gives an event, so
// callers can tell a generic claim apart from a dedicated template.
func GenericName(eventName string) string {
	return "event-" + strings.ReplaceAll(eventName, ".", "-")
}

// GenericDescriptor backs a dynamically registered event that has no
// dedicated template: prepare passes the record id through and format
// produces the title-only fallback message.
func GenericDescriptor(eventName string) Descriptor {
	return Descriptor{
		Name:   GenericName(eventName),
		Events: []string{eventName},
		Prepare: func(ctx context.Context, event string, payload domain.EventPayload) (domain.Snapshot, error) {
			if payload.NoNotification {
				return nil, domain.ErrSuppressed
			}
			return &domain.GenericSnapshot{ID: payload.ID}, nil
		},
		Format: FallbackFormat,
	}
}
