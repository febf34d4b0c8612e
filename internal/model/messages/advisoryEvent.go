package messages

import "time"

// Event types recorded by the telemetry writer.
const (
	EventLogin             = "session.login"
	EventRegister          = "session.register"
	EventLogout            = "session.logout"
	EventPortfolioComputed = "portfolio.computed"
	EventUpstreamFailure   = "upstream.failure"
	EventGestureCompleted  = "widget.gesture"
	EventObservationIngest = "weather.observation"
)

// AdvisoryEvent is a single telemetry record. Tags are indexed, Fields are values.
type AdvisoryEvent struct {
	EventType string             `json:"event_type"`
	Source    string             `json:"source"`
	Tags      map[string]string  `json:"tags,omitempty"`
	Fields    map[string]float64 `json:"fields,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
