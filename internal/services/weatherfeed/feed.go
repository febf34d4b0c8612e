// Package weatherfeed keeps the latest observation of every field weather
// station, fed over MQTT, so the dashboard has live data when the weather
// backend is down.
package weatherfeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/pkg/dedup"
	"github.com/ritheshan/agri/pkg/rabbitmq"
)

// TopicFilter matches weather/observations/<station>.
const TopicFilter = "weather/observations/#"

// Ingest results, also used as metric labels.
const (
	ResultAccepted  = "accepted"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultStale     = "stale"
)

var ErrInvalidObservation = errors.New("invalid observation")

type Feed struct {
	log     *zap.Logger
	rec     telemetry.Recorder
	metrics *telemetry.Metrics
	dedup   *dedup.Deduper
	maxAge  time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	latest map[string]messages.WeatherObservation
}

// New keeps observations usable for maxAge; older ones are ignored by Nearest.
func New(maxAge time.Duration, log *zap.Logger, rec telemetry.Recorder, metrics *telemetry.Metrics) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = telemetry.Nop{}
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Feed{
		log:     log,
		rec:     rec,
		metrics: metrics,
		dedup:   dedup.New(10*time.Minute, 10000),
		maxAge:  maxAge,
		now:     time.Now,
		latest:  make(map[string]messages.WeatherObservation),
	}
}

// Subscriptions is what the consumer should subscribe for this feed.
func Subscriptions() []rabbitmq.Subscription {
	return []rabbitmq.Subscription{{Topic: TopicFilter, QoS: 1}}
}

// HandleMessage is a rabbitmq.Handler.
func (f *Feed) HandleMessage(topic string, msg mqtt.Message) error {
	result, err := f.ingest(topic, msg.Payload())
	f.metrics.CountObservation(result)
	return err
}

func (f *Feed) ingest(topic string, payload []byte) (string, error) {
	// QoS 1 may redeliver the same payload
	if !f.dedup.ShouldProcess(dedup.Key(payload)) {
		return ResultDuplicate, nil
	}

	var obs messages.WeatherObservation
	if err := json.Unmarshal(payload, &obs); err != nil {
		return ResultInvalid, fmt.Errorf("%w: %v", ErrInvalidObservation, err)
	}
	if obs.StationID == "" {
		obs.StationID = path.Base(topic)
	}
	if err := validate(obs); err != nil {
		return ResultInvalid, err
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = f.now().UTC()
	}

	f.mu.Lock()
	prev, ok := f.latest[obs.StationID]
	if ok && !obs.Timestamp.After(prev.Timestamp) {
		f.mu.Unlock()
		return ResultStale, nil
	}
	f.latest[obs.StationID] = obs
	f.mu.Unlock()

	f.rec.Record(messages.AdvisoryEvent{
		EventType: messages.EventObservationIngest,
		Source:    "weatherfeed",
		Tags:      map[string]string{"station": obs.StationID},
		Fields: map[string]float64{
			"temp": obs.Temp, "humidity": obs.Humidity, "rain": obs.Rain,
			"wind_speed": obs.WindSpeed, "pressure": obs.Pressure,
		},
		Timestamp: obs.Timestamp,
	})
	f.log.Debug("observation accepted", zap.String("station", obs.StationID), zap.Float64("temp", obs.Temp))
	return ResultAccepted, nil
}

func validate(obs messages.WeatherObservation) error {
	switch {
	case obs.StationID == "" || obs.StationID == "." || obs.StationID == "/":
		return fmt.Errorf("%w: no station id", ErrInvalidObservation)
	case !(geo.Coordinates{Latitude: obs.Latitude, Longitude: obs.Longitude}).Valid():
		return fmt.Errorf("%w: station %s coordinates out of range", ErrInvalidObservation, obs.StationID)
	case obs.Humidity < 0 || obs.Humidity > 100:
		return fmt.Errorf("%w: station %s humidity %v", ErrInvalidObservation, obs.StationID, obs.Humidity)
	case obs.Rain < 0 || obs.WindSpeed < 0 || obs.Visibility < 0:
		return fmt.Errorf("%w: station %s negative reading", ErrInvalidObservation, obs.StationID)
	}
	return nil
}

func (f *Feed) Latest(stationID string) (messages.WeatherObservation, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	obs, ok := f.latest[stationID]
	return obs, ok
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.latest)
}

// Nearest returns the closest fresh observation within maxKm and its distance.
func (f *Feed) Nearest(c geo.Coordinates, maxKm float64) (messages.WeatherObservation, float64, bool) {
	cutoff := f.now().Add(-f.maxAge)
	f.mu.RLock()
	defer f.mu.RUnlock()

	var (
		best     messages.WeatherObservation
		bestDist float64
		found    bool
	)
	for _, obs := range f.latest {
		if obs.Timestamp.Before(cutoff) {
			continue
		}
		d := geo.DistanceKm(c, geo.Coordinates{Latitude: obs.Latitude, Longitude: obs.Longitude})
		if d > maxKm {
			continue
		}
		if !found || d < bestDist || (d == bestDist && obs.StationID < best.StationID) {
			best, bestDist, found = obs, d, true
		}
	}
	return best, bestDist, found
}
