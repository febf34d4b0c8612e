package stationsim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ritheshan/agri/pkg/rabbitmq"
)

// TopicPrefix is followed by the station id.
const TopicPrefix = "weather/observations/"

type Simulator struct {
	gen *Generator
	pub *rabbitmq.Publisher
	log *zap.Logger
}

func NewSimulator(gen *Generator, pub *rabbitmq.Publisher, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{gen: gen, pub: pub, log: log}
}

// PublishOnce sends one reading and returns the topic it went to.
func (s *Simulator) PublishOnce() (string, error) {
	obs := s.gen.Next()
	topic := TopicPrefix + obs.StationID
	if err := s.pub.PublishJSON(topic, obs); err != nil {
		return topic, err
	}
	s.log.Debug("station: published",
		zap.String("station", obs.StationID),
		zap.Float64("temp", obs.Temp),
		zap.Float64("humidity", obs.Humidity),
		zap.Float64("rain", obs.Rain))
	return topic, nil
}

// Run publishes every interval until ctx is done.
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.PublishOnce(); err != nil {
			s.log.Warn("station: publish failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
