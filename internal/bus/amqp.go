package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	eventsExchangeName = "commerce.events"
	dlxExchangeName    = "slack-relay.dlx"
	reconnectBackoff   = time.Second
	maxBackoff         = 30 * time.Second
	dialTimeout        = 15 * time.Second
)

// AMQPBus is an EventBus backed by a RabbitMQ topic exchange. Each
// subscription gets a durable queue named after its subscriber id, so
// re-running bootstrap binds to the same queue instead of creating a
// duplicate subscription. Handler errors nack with requeue; undecodable
// deliveries are dead-lettered.
type AMQPBus struct {
	url    string
	logger *zap.Logger

	connMu      sync.RWMutex
	reconnectMu sync.Mutex
	conn        *amqp.Connection

	subMu   sync.Mutex
	subs    map[string]*amqpSubscription
	group   *errgroup.Group
	runCtx  context.Context
	started bool
}

type amqpSubscription struct {
	eventName    string
	subscriberID string

	mu      sync.RWMutex
	handler Handler
}

func (s *amqpSubscription) queueName() string {
	return fmt.Sprintf("%s.%s", s.subscriberID, s.eventName)
}

func (s *amqpSubscription) handle(ctx context.Context, eventName string, payload json.RawMessage) error {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	return handler(ctx, eventName, payload)
}

var _ EventBus = (*AMQPBus)(nil)

func NewAMQPBus(url string, logger *zap.Logger) (*AMQPBus, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &AMQPBus{
		url:    url,
		logger: logger,
		subs:   make(map[string]*amqpSubscription),
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *AMQPBus) Subscribe(eventName string, handler Handler, opts SubscribeOptions) error {
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

	key := subscriberID + "|" + eventName

	b.subMu.Lock()
	defer b.subMu.Unlock()

	if existing, ok := b.subs[key]; ok {
		existing.mu.Lock()
		existing.handler = handler
		existing.mu.Unlock()
		return nil
	}

	sub := &amqpSubscription{
		eventName:    eventName,
		subscriberID: subscriberID,
		handler:      handler,
	}
	b.subs[key] = sub

	if b.started {
		b.consumeInGroup(sub)
	}

	return nil
}

// Start runs a consume loop per subscription until ctx is canceled.
// Subscriptions added after Start begin consuming immediately.
func (b *AMQPBus) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	b.subMu.Lock()
	if b.started {
		b.subMu.Unlock()
		return fmt.Errorf("bus already started")
	}
	b.group, b.runCtx = errgroup.WithContext(ctx)
	b.started = true
	subs := make([]*amqpSubscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	for _, sub := range subs {
		b.consumeInGroup(sub)
	}
	b.subMu.Unlock()

	return b.group.Wait()
}

func (b *AMQPBus) consumeInGroup(sub *amqpSubscription) {
	ctx := b.runCtx
	b.group.Go(func() error {
		b.logger.Info("bus subscription started",
			zap.String("event", sub.eventName),
			zap.String("subscriberId", sub.subscriberID),
		)
		b.consumeLoop(ctx, sub)
		return nil
	})
}

func (b *AMQPBus) Emit(ctx context.Context, eventName string, payload any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(eventName) == "" {
		return fmt.Errorf("event name is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for %q: %w", eventName, err)
	}

	ch, err := b.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         raw,
	}

	if err := ch.PublishWithContext(ctx, eventsExchangeName, eventName, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish event %q: %w", eventName, err)
	}

	return nil
}

func (b *AMQPBus) Close() error {
	b.connMu.Lock()
	conn := b.conn
	b.conn = nil
	b.connMu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

func (b *AMQPBus) consumeLoop(ctx context.Context, sub *amqpSubscription) {
	backoff := reconnectBackoff
	for {
		err := b.consumeOnce(ctx, sub)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		b.logger.Warn("bus consume interrupted",
			zap.String("queue", sub.queueName()),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (b *AMQPBus) consumeOnce(ctx context.Context, sub *amqpSubscription) error {
	ch, err := b.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	queueName := sub.queueName()
	if err := declareSubscriptionQueue(ch, queueName, sub.eventName); err != nil {
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := b.handleDelivery(ctx, sub, d); err != nil {
				return err
			}
		}
	}
}

func (b *AMQPBus) handleDelivery(ctx context.Context, sub *amqpSubscription, d amqp.Delivery) error {
	if !json.Valid(d.Body) {
		b.logger.Warn("rejecting delivery: invalid JSON",
			zap.String("queue", sub.queueName()),
			zap.String("routingKey", d.RoutingKey),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject invalid delivery: %w", rejectErr)
		}
		return nil
	}

	if err := sub.handle(ctx, d.RoutingKey, json.RawMessage(d.Body)); err != nil {
		b.logger.Error("subscriber failed, requeueing",
			zap.String("event", sub.eventName),
			zap.String("subscriberId", sub.subscriberID),
			zap.Error(err),
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}

	return nil
}

func (b *AMQPBus) channel(ctx context.Context) (*amqp.Channel, error) {
	if err := b.ensureConnected(ctx); err != nil {
		return nil, err
	}

	b.connMu.RLock()
	conn := b.conn
	b.connMu.RUnlock()

	ch, err := conn.Channel()
	if err != nil {
		if errReconnect := b.reconnectWithBackoff(ctx); errReconnect != nil {
			return nil, errReconnect
		}

		b.connMu.RLock()
		conn = b.conn
		b.connMu.RUnlock()

		ch, err = conn.Channel()
		if err != nil {
			return nil, fmt.Errorf("failed to create amqp channel after reconnect: %w", err)
		}
	}

	if err := declareExchanges(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}

	return ch, nil
}

func (b *AMQPBus) ensureConnected(ctx context.Context) error {
	b.connMu.RLock()
	conn := b.conn
	b.connMu.RUnlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	return b.reconnectWithBackoff(ctx)
}

func (b *AMQPBus) reconnectWithBackoff(ctx context.Context) error {
	b.reconnectMu.Lock()
	defer b.reconnectMu.Unlock()

	b.connMu.RLock()
	conn := b.conn
	b.connMu.RUnlock()
	if conn != nil && !conn.IsClosed() {
		return nil
	}

	wait := reconnectBackoff
	for {
		newConn, err := amqp.Dial(b.url)
		if err == nil {
			b.connMu.Lock()
			oldConn := b.conn
			b.conn = newConn
			b.connMu.Unlock()

			if oldConn != nil && !oldConn.IsClosed() {
				_ = oldConn.Close()
			}

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("amqp reconnect canceled: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

func declareExchanges(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(eventsExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare events exchange: %w", err)
	}
	if err := ch.ExchangeDeclare(dlxExchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}
	return nil
}

func declareSubscriptionQueue(ch *amqp.Channel, queueName, eventName string) error {
	dlqName := "dlq." + queueName

	if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlq %q: %w", dlqName, err)
	}
	if err := ch.QueueBind(dlqName, queueName, dlxExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq %q: %w", dlqName, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": queueName,
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
	}
	if err := ch.QueueBind(queueName, eventName, eventsExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", queueName, err)
	}

	return nil
}
