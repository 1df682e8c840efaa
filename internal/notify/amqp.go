package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig names the topic exchange events are published to.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// AMQPNotifier publishes events to a durable topic exchange with publisher
// confirms. The routing key is "<RoutingKey>.<type>".
type AMQPNotifier struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	config  AMQPConfig
	logger  *slog.Logger
}

func NewAMQPNotifier(cfg AMQPConfig, logger *slog.Logger) (*AMQPNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	n := &AMQPNotifier{conn: conn, config: cfg, logger: logger}
	if err := n.setupChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return n, nil
}

func (n *AMQPNotifier) setupChannel() error {
	ch, err := n.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		n.config.Exchange, // name
		"topic",           // type
		true,              // durable
		false,             // auto-delete
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	n.channel = ch
	return nil
}

func (n *AMQPNotifier) Name() string { return "amqp" }

// RoutingKey returns the routing key an event of type t is published under.
func (n *AMQPNotifier) RoutingKey(t EventType) string {
	if n.config.RoutingKey == "" {
		return string(t)
	}
	return n.config.RoutingKey + "." + string(t)
}

func (n *AMQPNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel == nil || n.channel.IsClosed() {
		if err := n.setupChannel(); err != nil {
			return err
		}
	}

	confirm, err := n.channel.PublishWithDeferredConfirmWithContext(ctx,
		n.config.Exchange,
		n.RoutingKey(e.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    e.OccurredAt,
			Type:         string(e.Type),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for publish confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s event", e.Type)
	}

	n.logger.Debug("event published", "type", e.Type, "routing_key", n.RoutingKey(e.Type))
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.channel != nil {
		n.channel.Close()
	}
	return n.conn.Close()
}
