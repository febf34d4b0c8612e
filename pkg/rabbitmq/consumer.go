package rabbitmq

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Handler processes one message. Errors are logged; the message is not redelivered.
type Handler func(topic string, msg mqtt.Message) error

// Subscription is one topic filter and its QoS.
type Subscription struct {
	Topic string
	QoS   byte
}

// Consumer subscribes a handler to one or more topic filters.
type Consumer struct {
	client  mqtt.Client
	subs    []Subscription
	handler Handler
	log     *zap.Logger
	wait    time.Duration
}

func NewConsumer(client mqtt.Client, subs []Subscription, handler Handler, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{client: client, subs: subs, handler: handler, log: log, wait: 5 * time.Second}
}

// Consume subscribes every filter, blocks until ctx ends, then unsubscribes.
// It fails fast if any subscription is refused.
func (c *Consumer) Consume(ctx context.Context) error {
	topics := make([]string, 0, len(c.subs))
	for _, s := range c.subs {
		filter := s.Topic
		tok := c.client.Subscribe(filter, s.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			if err := c.handler(msg.Topic(), msg); err != nil {
				c.log.Warn("mqtt handler error", zap.String("topic", msg.Topic()), zap.Error(err))
			}
		})
		if !tok.WaitTimeout(c.wait) {
			c.unsubscribe(topics)
			return fmt.Errorf("subscribe %s: timeout", filter)
		}
		if err := tok.Error(); err != nil {
			c.unsubscribe(topics)
			return fmt.Errorf("subscribe %s: %w", filter, err)
		}
		topics = append(topics, filter)
		c.log.Info("subscribed", zap.String("topic", filter), zap.Uint8("qos", s.QoS))
	}

	<-ctx.Done()
	c.unsubscribe(topics)
	return nil
}

func (c *Consumer) unsubscribe(topics []string) {
	if len(topics) == 0 {
		return
	}
	c.client.Unsubscribe(topics...).WaitTimeout(c.wait)
}
