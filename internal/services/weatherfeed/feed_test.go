package weatherfeed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/pkg/rabbitmq"
	"github.com/ritheshan/agri/pkg/rabbitmq/rabbitmqtest"
)

var t0 = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

type recorded struct{ events []messages.AdvisoryEvent }

func (r *recorded) Record(evt messages.AdvisoryEvent) { r.events = append(r.events, evt) }

func newFeed(t *testing.T) (*Feed, *recorded, *telemetry.Metrics) {
	t.Helper()
	rec := &recorded{}
	m := telemetry.NewMetrics()
	f := New(time.Hour, nil, rec, m)
	f.now = func() time.Time { return t0 }
	return f, rec, m
}

func deliver(t *testing.T, f *Feed, topic string, obs any) error {
	t.Helper()
	body, err := json.Marshal(obs)
	require.NoError(t, err)
	return f.HandleMessage(topic, rabbitmqtest.Message{TopicName: topic, Body: body, QoSLevel: 1})
}

func delhiStation(id string, temp float64, at time.Time) messages.WeatherObservation {
	return messages.WeatherObservation{
		StationID: id, Latitude: 28.62, Longitude: 77.21,
		Temp: temp, Humidity: 55, WindSpeed: 3, Pressure: 1008, Visibility: 8, Timestamp: at,
	}
}

func TestHandleMessage_KeepsNewestPerStation(t *testing.T) {
	f, rec, m := newFeed(t)

	require.NoError(t, deliver(t, f, "weather/observations/st-1", delhiStation("st-1", 30, t0.Add(-10*time.Minute))))
	require.NoError(t, deliver(t, f, "weather/observations/st-1", delhiStation("st-1", 32, t0)))
	// older reading arriving late
	require.NoError(t, deliver(t, f, "weather/observations/st-1", delhiStation("st-1", 29, t0.Add(-20*time.Minute))))

	obs, ok := f.Latest("st-1")
	require.True(t, ok)
	assert.Equal(t, 32.0, obs.Temp)
	assert.Equal(t, 1, f.Len())
	assert.Len(t, rec.events, 2)
	assert.Equal(t, messages.EventObservationIngest, rec.events[0].EventType)
	assert.Equal(t, "st-1", rec.events[0].Tags["station"])

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Observations.WithLabelValues(ResultAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Observations.WithLabelValues(ResultStale)))
}

func TestHandleMessage_DropsRedelivery(t *testing.T) {
	f, rec, m := newFeed(t)
	obs := delhiStation("st-1", 30, t0)

	require.NoError(t, deliver(t, f, "weather/observations/st-1", obs))
	require.NoError(t, deliver(t, f, "weather/observations/st-1", obs))

	assert.Len(t, rec.events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Observations.WithLabelValues(ResultDuplicate)))
}

func TestHandleMessage_StationFromTopicAndDefaultTimestamp(t *testing.T) {
	f, _, _ := newFeed(t)
	obs := delhiStation("", 30, time.Time{})

	require.NoError(t, deliver(t, f, "weather/observations/roof-7", obs))

	got, ok := f.Latest("roof-7")
	require.True(t, ok)
	assert.Equal(t, t0, got.Timestamp)
}

func TestHandleMessage_Invalid(t *testing.T) {
	cases := map[string]any{
		"not json":      "{",
		"bad latitude":  messages.WeatherObservation{StationID: "x", Latitude: 95, Longitude: 10},
		"bad humidity":  messages.WeatherObservation{StationID: "x", Latitude: 10, Longitude: 10, Humidity: 120},
		"negative rain": messages.WeatherObservation{StationID: "x", Latitude: 10, Longitude: 10, Rain: -1},
		"negative wind": messages.WeatherObservation{StationID: "x", Latitude: 10, Longitude: 10, WindSpeed: -2},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			f, rec, m := newFeed(t)
			var err error
			if s, ok := payload.(string); ok {
				err = f.HandleMessage("weather/observations/x", rabbitmqtest.Message{TopicName: "weather/observations/x", Body: []byte(s)})
			} else {
				err = deliver(t, f, "weather/observations/x", payload)
			}
			assert.ErrorIs(t, err, ErrInvalidObservation)
			assert.Zero(t, f.Len())
			assert.Empty(t, rec.events)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Observations.WithLabelValues(ResultInvalid)))
		})
	}
}

func TestNearest(t *testing.T) {
	f, _, _ := newFeed(t)
	near := delhiStation("near", 31, t0)
	far := delhiStation("far", 28, t0)
	far.Latitude, far.Longitude = 28.9, 77.5 // ~40 km
	stale := delhiStation("stale", 40, t0.Add(-2*time.Hour))
	stale.Latitude, stale.Longitude = 28.6139, 77.2090
	mumbai := delhiStation("mumbai", 33, t0)
	mumbai.Latitude, mumbai.Longitude = 19.07, 72.87

	for _, o := range []messages.WeatherObservation{near, far, stale, mumbai} {
		require.NoError(t, deliver(t, f, "weather/observations/"+o.StationID, o))
	}

	obs, km, ok := f.Nearest(geo.DefaultCoordinates, 50)
	require.True(t, ok)
	assert.Equal(t, "near", obs.StationID)
	assert.Less(t, km, 2.0)

	_, _, ok = f.Nearest(geo.Coordinates{Latitude: 13.08, Longitude: 80.27}, 50)
	assert.False(t, ok, "no station near Chennai")

	obs, _, ok = f.Nearest(geo.Coordinates{Latitude: 19.0, Longitude: 72.8}, 50)
	require.True(t, ok)
	assert.Equal(t, "mumbai", obs.StationID)
}

func TestFeed_ConsumesFromBroker(t *testing.T) {
	f, _, _ := newFeed(t)
	client := rabbitmqtest.NewClient()
	c := rabbitmq.NewConsumer(client, Subscriptions(), f.HandleMessage, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Consume(ctx) }()
	require.Eventually(t, func() bool { return len(client.Subscribed()) == 1 }, time.Second, 5*time.Millisecond)

	pub := rabbitmq.NewPublisher(client, 1)
	require.NoError(t, pub.PublishJSON("weather/observations/st-9", delhiStation("st-9", 27, t0)))

	cancel()
	require.NoError(t, <-done)
	_, ok := f.Latest("st-9")
	assert.True(t, ok)
}
