// Package rabbitmq connects to the RabbitMQ MQTT plugin and wraps
// subscriptions and JSON publishing on top of the paho client.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string

	MaxRetries  int
	MaxElapsed  time.Duration
	WaitTimeout time.Duration
}

func (c Config) Broker() string { return fmt.Sprintf("tcp://%s:%d", c.Host, c.Port) }

// Connect dials the broker with exponential backoff and disconnects when ctx ends.
func Connect(ctx context.Context, cfg Config, log *zap.Logger) (mqtt.Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 10 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker())
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.MaxElapsed

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		tok := client.Connect()
		if !tok.WaitTimeout(cfg.WaitTimeout) {
			return fmt.Errorf("connect timeout after %s", cfg.WaitTimeout)
		}
		if err := tok.Error(); err != nil {
			log.Warn("mqtt connect failed", zap.String("broker", cfg.Broker()), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}
	log.Info("connected to MQTT broker", zap.String("broker", cfg.Broker()))

	go func() {
		<-ctx.Done()
		Close(client, log)
	}()
	return client, nil
}

func Close(client mqtt.Client, log *zap.Logger) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		if log != nil {
			log.Info("mqtt connection closed")
		}
	}
}
