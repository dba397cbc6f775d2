package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

// AMQPSettings configures the broker source.
type AMQPSettings struct {
	URL              string
	Exchange         string
	Queue            string
	RoutingKey       string
	Prefetch         int
	ReconnectBackoff time.Duration
	MaxBackoff       time.Duration
}

// AMQPSource consumes donation payloads from a durable queue bound to a topic
// exchange and reconnects with doubling backoff.
type AMQPSource struct {
	settings AMQPSettings
	emit     EmitFunc
	logger   zerolog.Logger
}

func NewAMQPSource(settings AMQPSettings, emit EmitFunc, logger zerolog.Logger) (*AMQPSource, error) {
	clean, err := sanitizeURL(settings.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp source: %w", err)
	}
	settings.URL = clean
	if settings.ReconnectBackoff <= 0 {
		settings.ReconnectBackoff = time.Second
	}
	if settings.MaxBackoff < settings.ReconnectBackoff {
		settings.MaxBackoff = settings.ReconnectBackoff
	}
	return &AMQPSource{
		settings: settings,
		emit:     emit,
		logger:   logger.With().Str("component", "amqp").Str("queue", settings.Queue).Logger(),
	}, nil
}

func (s *AMQPSource) Name() string { return "amqp" }

// Run consumes until ctx is cancelled. Connection failures are retried.
func (s *AMQPSource) Run(ctx context.Context) error {
	backoff := s.settings.ReconnectBackoff
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			s.logger.Info().Msg("amqp: source stopped")
			return nil
		}
		if connected {
			backoff = s.settings.ReconnectBackoff
		}
		s.logger.Error().Err(err).Dur("backoff", backoff).Msg("amqp: connection lost, reconnecting")

		select {
		case <-ctx.Done():
			s.logger.Info().Msg("amqp: source stopped")
			return nil
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff, s.settings.MaxBackoff)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// consume runs one connection. connected reports whether the consumer got as
// far as receiving deliveries.
func (s *AMQPSource) consume(ctx context.Context) (connected bool, err error) {
	conn, err := amqp.Dial(s.settings.URL)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(s.settings.Exchange, "topic", true, false, false, false, nil); err != nil {
		return false, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(s.settings.Queue, true, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, s.settings.RoutingKey, s.settings.Exchange, false, nil); err != nil {
		return false, fmt.Errorf("bind queue: %w", err)
	}
	if s.settings.Prefetch > 0 {
		if err := ch.Qos(s.settings.Prefetch, 0, false); err != nil {
			return false, fmt.Errorf("qos: %w", err)
		}
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("consume: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	s.logger.Info().Str("exchange", s.settings.Exchange).Str("routing_key", s.settings.RoutingKey).Msg("amqp: consuming")

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return true, errors.New("connection closed")
			}
			return true, amqpErr
		case d, ok := <-msgs:
			if !ok {
				return true, errors.New("delivery channel closed")
			}
			s.handleDelivery(ctx, d)
		}
	}
}

type ackAction int

const (
	ackDone ackAction = iota
	ackRequeue
	ackReject
)

// handleDelivery acks emitted donations, rejects malformed payloads and
// requeues on transient failures.
func (s *AMQPSource) handleDelivery(ctx context.Context, d amqp.Delivery) {
	action := s.process(ctx, d.Body)
	var err error
	switch action {
	case ackDone:
		err = d.Ack(false)
	case ackRequeue:
		err = d.Nack(false, true)
	case ackReject:
		err = d.Nack(false, false)
	}
	if err != nil {
		s.logger.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("amqp: acknowledge failed")
	}
}

func (s *AMQPSource) process(ctx context.Context, body []byte) ackAction {
	donations, err := DecodeDonations(body)
	if err != nil {
		s.logger.Warn().Err(err).Msg("amqp: malformed payload dropped")
		return ackReject
	}
	for _, d := range donations {
		if _, err := s.emit(ctx, d); err != nil {
			if errors.Is(err, domain.ErrInvalidDonation) {
				s.logger.Warn().Err(err).Msg("amqp: invalid donation dropped")
				return ackReject
			}
			s.logger.Error().Err(err).Msg("amqp: emit failed, requeueing")
			return ackRequeue
		}
	}
	return ackDone
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", fmt.Errorf("invalid AMQP scheme: %q", parsed.Scheme)
	}
	if parsed.Path == "" {
		clean += "/"
	}
	return clean, nil
}
