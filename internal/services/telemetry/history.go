package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/pkg/jsonutil"
)

// Querier is the part of the Influx QueryAPI History needs.
type Querier interface {
	Query(ctx context.Context, query string) (*api.QueryTableResult, error)
}

type HistoryPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// HistoryFields are the observation fields that can be charted.
var HistoryFields = map[string]bool{"temp": true, "humidity": true, "rain": true, "wind_speed": true, "pressure": true}

var stationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,64}$`)

// History reads back station observations recorded as advisory events.
type History struct {
	q       Querier
	bucket  string
	timeout time.Duration
	log     *zap.Logger
}

func NewHistory(q Querier, bucket string, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{q: q, bucket: bucket, timeout: 3 * time.Second, log: log}
}

type historyParams struct {
	Station string
	Field   string
	Minutes int
	Limit   int
}

func parseHistory(r *http.Request) (historyParams, error) {
	q := r.URL.Query()
	get := func(k string, def, lo, hi int) int {
		if v := strings.TrimSpace(q.Get(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return max(lo, min(n, hi))
			}
		}
		return def
	}
	p := historyParams{
		Station: chi.URLParam(r, "id"),
		Field:   strings.TrimSpace(q.Get("field")),
		Minutes: get("minutes", 24*60, 1, 7*24*60),
		Limit:   get("limit", 200, 1, 1000),
	}
	if p.Field == "" {
		p.Field = "temp"
	}
	if !stationIDPattern.MatchString(p.Station) {
		return p, fmt.Errorf("invalid station id")
	}
	if !HistoryFields[p.Field] {
		return p, fmt.Errorf("unknown field %q", p.Field)
	}
	return p, nil
}

func buildHistoryFlux(bucket string, p historyParams) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.event_type == %q)
  |> filter(fn: (r) => r.station == %q and r._field == %q)
  |> keep(columns: ["_time","_value"])
  |> sort(columns: ["_time"], desc: true)
  |> limit(n:%d)
`, bucket, p.Minutes, measurement, messages.EventObservationIngest, p.Station, p.Field, p.Limit)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Station returns the newest points first.
func (h *History) Station(ctx context.Context, p historyParams) ([]HistoryPoint, error) {
	res, err := h.q.Query(ctx, buildHistoryFlux(h.bucket, p))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Close() }()

	out := make([]HistoryPoint, 0, p.Limit)
	for res.Next() {
		rec := res.Record()
		v, ok := toFloat(rec.Value())
		if !ok {
			continue
		}
		out = append(out, HistoryPoint{Time: rec.Time().UTC(), Value: v})
	}
	return out, res.Err()
}

// ServeHTTP handles GET /stations/{id}/history?field=temp&minutes=1440&limit=200.
func (h *History) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.q == nil {
		jsonutil.WriteError(w, http.StatusServiceUnavailable, "history is not enabled")
		return
	}
	p, err := parseHistory(r)
	if err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	points, err := h.Station(ctx, p)
	if err != nil {
		h.log.Warn("history query failed", zap.String("station", p.Station), zap.Error(err))
		jsonutil.WriteError(w, http.StatusBadGateway, "history query failed")
		return
	}
	jsonutil.Write(w, http.StatusOK, map[string]any{"station": p.Station, "field": p.Field, "points": points})
}
