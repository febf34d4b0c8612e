package telemetry

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/ritheshan/agri/internal/model/messages"
)

const measurement = "advisory_event"

// EventToPoint maps an event onto the advisory_event measurement.
// Influx rejects points without fields, so bare events carry count=1.
func EventToPoint(evt messages.AdvisoryEvent) *write.Point {
	tags := map[string]string{
		"event_type": evt.EventType,
		"source":     evt.Source,
	}
	for k, v := range evt.Tags {
		if k == "event_type" || k == "source" || v == "" {
			continue
		}
		tags[k] = v
	}

	fields := make(map[string]interface{}, len(evt.Fields)+1)
	for k, v := range evt.Fields {
		fields[k] = v
	}
	if len(fields) == 0 {
		fields["count"] = int64(1)
	}

	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return influxdb2.NewPoint(measurement, tags, fields, ts.UTC())
}
