package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher sends JSON messages to a fixed QoS.
type Publisher struct {
	client mqtt.Client
	qos    byte
	wait   time.Duration
}

func NewPublisher(client mqtt.Client, qos byte) *Publisher {
	return &Publisher{client: client, qos: qos, wait: 5 * time.Second}
}

// PublishJSON marshals v and publishes it to topic, waiting for the broker ack.
func (p *Publisher) PublishJSON(topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", topic, err)
	}
	tok := p.client.Publish(topic, p.qos, false, body)
	if !tok.WaitTimeout(p.wait) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}
