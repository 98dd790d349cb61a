package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/commercekit/slack-relay/internal/bus"
	"github.com/commercekit/slack-relay/internal/domain"
	"github.com/commercekit/slack-relay/internal/observability"
	"github.com/commercekit/slack-relay/internal/ratelimit"
	"github.com/commercekit/slack-relay/internal/repository"
	"github.com/commercekit/slack-relay/internal/slack"
	"github.com/commercekit/slack-relay/internal/template"
)

const (
	senderSubscriberID = "slack-relay-sender"
	defaultSendTimeout = 10 * time.Second
)

// SlackPoster is the outbound port the sender posts through.
type SlackPoster interface {
	PostMessage(ctx context.Context, msg slack.Message) (*slack.PostResponse, error)
}

// Sender consumes prepared-notification envelopes, formats them through the
// claiming template and posts the result to Slack. Every delivery attempt is
// recorded with its raw payload, so failed or stale deliveries can be
// reposted verbatim without re-running enrichment or formatting.
//
// An ok:false acknowledgement from Slack is terminal: the failure is recorded
// and never retried by the sender itself; Resend is the operator-driven
// recovery path. A transport-level failure (unreachable API, timeout) is
// recorded too, but the error propagates so the bus's retry policy decides.
type Sender struct {
	bus           bus.EventBus
	registry      *template.Registry
	slack         SlackPoster
	notifications repository.NotificationRepository
	rateLimiter   ratelimit.RateLimiter
	logger        *zap.Logger
	metrics       *observability.Metrics

	opts        template.Options
	sendTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

func NewSender(
	eventBus bus.EventBus,
	registry *template.Registry,
	poster SlackPoster,
	notifications repository.NotificationRepository,
	rateLimiter ratelimit.RateLimiter,
	opts template.Options,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*Sender, error) {
	if eventBus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("template registry is required")
	}
	if poster == nil {
		return nil, fmt.Errorf("slack poster is required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if opts.Channel == "" {
		return nil, fmt.Errorf("%w: destination channel is required", domain.ErrValidation)
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		bus:           eventBus,
		registry:      registry,
		slack:         poster,
		notifications: notifications,
		rateLimiter:   rateLimiter,
		logger:        logger,
		opts:          opts,
		sendTimeout:   sendTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}, nil
}

func (s *Sender) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Attach subscribes the sender to prepared-notification envelopes.
func (s *Sender) Attach() error {
	return s.bus.Subscribe(domain.EventNotificationPrepared, s.handleEnvelope, bus.SubscribeOptions{
		SubscriberID: senderSubscriberID,
	})
}

func (s *Sender) handleEnvelope(ctx context.Context, _ string, raw json.RawMessage) error {
	var envelope domain.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		s.logger.Warn("dropping undecodable envelope", zap.Error(err))
		return nil
	}

	msg := s.format(envelope)
	_, err := s.Send(ctx, envelope.EventName, envelope.TemplateID, msg)
	return err
}

// format renders the envelope through the claiming template. A missing or
// failing formatter degrades to the title-only fallback so every prepared
// event still produces a message.
func (s *Sender) format(envelope domain.Envelope) domain.StructuredMessage {
	d, ok := s.registry.Resolve(envelope.EventName)
	if !ok {
		return template.FallbackMessage(envelope.EventName, envelope.RecordID)
	}

	msg, err := d.Format(envelope.EventName, envelope.Data, s.opts)
	if err != nil {
		s.logger.Warn("formatter failed, using fallback message",
			zap.String("event", envelope.EventName),
			zap.String("template", d.Name),
			zap.Error(err),
		)
		return template.FallbackMessage(envelope.EventName, envelope.RecordID)
	}
	return msg
}

// Send posts one structured message and records the outcome. An ok:false
// acknowledgement is a recorded terminal state, not an error; transport
// failures and bookkeeping problems return an error.
func (s *Sender) Send(ctx context.Context, eventName, templateID string, msg domain.StructuredMessage) (*domain.DeliveryResult, error) {
	record, err := s.deliver(ctx, eventName, templateID, msg, nil)
	if err != nil {
		return nil, err
	}

	return &domain.DeliveryResult{
		Destination: record.Destination,
		Status:      record.Status,
		Payload:     msg,
	}, nil
}

// Resend reposts a stored payload verbatim, without re-running enrichment or
// formatting, and records the repost as a new delivery linked to the
// original.
func (s *Sender) Resend(ctx context.Context, notificationID string) (*domain.NotificationRecord, error) {
	original, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	var msg domain.StructuredMessage
	if err := json.Unmarshal(original.Payload, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode stored payload for %q: %w", notificationID, err)
	}

	return s.deliver(ctx, original.EventName, original.TemplateID, msg, &original.ID)
}

// List returns stored delivery records, newest first.
func (s *Sender) List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error) {
	return s.notifications.List(ctx, params)
}

func (s *Sender) deliver(
	ctx context.Context,
	eventName, templateID string,
	msg domain.StructuredMessage,
	resendOfID *string,
) (*domain.NotificationRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	log := observability.WithContextLogger(s.logger, ctx)

	if err := s.rateLimiter.Wait(ctx, s.opts.Channel); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	post := slack.Message{
		Channel: s.opts.Channel,
		Text:    msg.Text,
		Blocks:  msg.Blocks,
	}

	postStart := s.now()
	resp, postErr := s.slack.PostMessage(ctx, post)
	s.metrics.ObserveSlackPostDuration(s.opts.Channel, s.now().Sub(postStart))

	status := domain.DeliverySent
	reason := ""
	switch {
	case postErr != nil:
		status = domain.DeliveryFailed
		reason = "transport_error"
	case resp == nil || !resp.OK:
		status = domain.DeliveryFailed
		reason = "slack_error"
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message payload: %w", err)
	}

	record := &domain.NotificationRecord{
		ID:            s.newID(),
		EventName:     eventName,
		TemplateID:    templateID,
		CorrelationID: msg.CorrelationID,
		Destination:   s.opts.Channel,
		Status:        status,
		Payload:       payload,
		ResendOfID:    resendOfID,
	}
	if err := s.notifications.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to record delivery: %w", err)
	}

	if status == domain.DeliverySent {
		s.metrics.IncNotificationSent(eventName)
		log.Info("notification sent",
			zap.String("event", eventName),
			zap.String("notificationId", record.ID),
			zap.String("channel", s.opts.Channel),
		)
	} else {
		s.metrics.IncNotificationFailed(eventName, reason)
		fields := []zap.Field{
			zap.String("event", eventName),
			zap.String("notificationId", record.ID),
			zap.String("channel", s.opts.Channel),
			zap.String("reason", reason),
		}
		if postErr != nil {
			fields = append(fields, zap.Error(postErr))
		} else if resp != nil {
			fields = append(fields, zap.String("slackError", resp.Error))
		}
		log.Error("notification failed", fields...)
	}

	// The audit row is written either way, but a transport failure still
	// surfaces to the caller so a brokered bus can requeue the envelope.
	if postErr != nil {
		return nil, fmt.Errorf("failed to post to slack: %w", postErr)
	}

	return record, nil
}
