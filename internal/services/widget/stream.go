package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/telemetry"
)

const maxFrameBytes = 4096

var defaultViewport = Size{Width: 1280, Height: 800}

// Snapshot is sent back after every frame.
type Snapshot struct {
	Geometry
	Anchored bool   `json:"anchored"`
	Gesture  string `json:"gesture"`
	Viewport Size   `json:"viewport"`
	Error    string `json:"error,omitempty"`
}

func snapshotOf(c *Controller) Snapshot {
	return Snapshot{
		Geometry: c.Geometry(),
		Anchored: c.Geometry().Anchored(),
		Gesture:  c.Active().String(),
		Viewport: c.Viewport(),
	}
}

// StreamHandler serves GET /api/widget/stream. Each connection owns one
// controller and applies frames in arrival order on the reading goroutine.
type StreamHandler struct {
	log     *zap.Logger
	rec     telemetry.Recorder
	metrics *telemetry.Metrics
	origins []string
}

func NewStreamHandler(log *zap.Logger, rec telemetry.Recorder, metrics *telemetry.Metrics, origins []string) *StreamHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = telemetry.Nop{}
	}
	return &StreamHandler{log: log, rec: rec, metrics: metrics, origins: origins}
}

// viewportFromQuery reads vw/vh; missing or invalid values fall back to a desktop default.
func viewportFromQuery(r *http.Request) Size {
	vp := defaultViewport
	q := r.URL.Query()
	if w, err := strconv.ParseFloat(q.Get("vw"), 64); err == nil && w > 0 {
		vp.Width = w
	}
	if h, err := strconv.ParseFloat(q.Get("vh"), 64); err == nil && h > 0 {
		vp.Height = h
	}
	return vp
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("widget: websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected close")
	conn.SetReadLimit(maxFrameBytes)

	ctrl := NewController(viewportFromQuery(r), DefaultSize)
	disp := NewDispatcher(ctrl, func(kind GestureKind, g Geometry) {
		h.metrics.CountGesture(kind.String())
		h.rec.Record(messages.AdvisoryEvent{
			EventType: messages.EventGestureCompleted,
			Source:    "widget",
			Tags:      map[string]string{"kind": kind.String()},
			Fields: map[string]float64{
				"x": g.Position.X, "y": g.Position.Y,
				"width": g.Size.Width, "height": g.Size.Height,
			},
		})
	})

	err = h.serve(r.Context(), conn, disp)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		h.log.Debug("widget: stream ended", zap.Error(err))
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (h *StreamHandler) serve(ctx context.Context, conn *websocket.Conn, disp *Dispatcher) error {
	if err := wsjson.Write(ctx, conn, snapshotOf(disp.Controller())); err != nil {
		return err
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		var ev Event
		var derr error
		if err := json.Unmarshal(data, &ev); err != nil {
			derr = errors.New("malformed frame")
		} else {
			_, derr = disp.Dispatch(ev)
		}
		snap := snapshotOf(disp.Controller())
		if derr != nil {
			snap.Error = derr.Error()
		}
		if err := wsjson.Write(ctx, conn, snap); err != nil {
			return err
		}
	}
}
