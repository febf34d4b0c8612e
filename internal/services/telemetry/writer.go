package telemetry

import (
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/model/messages"
)

// Recorder accepts telemetry events. Implementations must not block the caller.
type Recorder interface {
	Record(evt messages.AdvisoryEvent)
}

// Nop discards events; used when InfluxDB is not configured.
type Nop struct{}

func (Nop) Record(messages.AdvisoryEvent) {}

// PointSink is the part of the Influx non-blocking WriteAPI the writer needs.
type PointSink interface {
	WritePoint(point *write.Point)
	Errors() <-chan error
}

// Writer sends events to Influx and tracks the last asynchronous write error for /healthz.
type Writer struct {
	sink PointSink
	log  *zap.Logger
	now  func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

// NewWriter starts draining the sink's error channel; the goroutine exits when the channel closes.
func NewWriter(sink PointSink, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Writer{
		sink:    sink,
		log:     log,
		now:     time.Now,
		lastErr: time.Now().Add(-24 * time.Hour),
		counts:  make(map[string]int64),
	}
	go w.drain(sink.Errors())
	return w
}

func (w *Writer) drain(errs <-chan error) {
	for err := range errs {
		if err == nil {
			continue
		}
		w.mu.Lock()
		w.lastErr = w.now()
		w.mu.Unlock()
		w.log.Warn("influx write error", zap.Error(err))
	}
}

func (w *Writer) Record(evt messages.AdvisoryEvent) {
	if w == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = w.now()
	}
	w.sink.WritePoint(EventToPoint(evt))
	w.mu.Lock()
	w.counts[evt.EventType]++
	w.mu.Unlock()
}

// LastErrorAge is the time since the last failed write. A nil writer reports a very large age.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return w.now().Sub(t)
}

func (w *Writer) Count(eventType string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[eventType]
}
