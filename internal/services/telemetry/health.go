package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/ritheshan/agri/pkg/jsonutil"
)

// Probe checks one dependency. Optional probes only degrade /healthz.
type Probe struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

type probeResult struct {
	ok       bool
	required bool
}

func runProbes(ctx context.Context, probes []Probe) map[string]probeResult {
	out := make(map[string]probeResult, len(probes))
	for _, p := range probes {
		ok := p.Check == nil || p.Check(ctx) == nil
		out[p.Name] = probeResult{ok: ok, required: p.Required}
	}
	return out
}

// Ready reports whether every required probe passes and no write error happened within minErrAge.
func Ready(ctx context.Context, probes []Probe, w *Writer, minErrAge time.Duration) bool {
	for _, res := range runProbes(ctx, probes) {
		if res.required && !res.ok {
			return false
		}
	}
	return w.LastErrorAge() > minErrAge
}

type healthHandler struct {
	probes  []Probe
	writer  *Writer
	timeout time.Duration
}

func NewHealthHandler(probes []Probe, w *Writer) http.Handler {
	return &healthHandler{probes: probes, writer: w, timeout: 2 * time.Second}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status          string          `json:"status"`
		Checks          map[string]bool `json:"checks"`
		LastWriteErrorS float64         `json:"last_write_error_age_sec"`
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := runProbes(ctx, h.probes)
	st := status{
		Checks:          make(map[string]bool, len(results)),
		LastWriteErrorS: h.writer.LastErrorAge().Seconds(),
	}
	requiredDown, anyDown := false, false
	for name, res := range results {
		st.Checks[name] = res.ok
		if !res.ok {
			anyDown = true
			if res.required {
				requiredDown = true
			}
		}
	}
	switch {
	case requiredDown:
		st.Status = "down"
	case anyDown || h.writer.LastErrorAge() <= 30*time.Second:
		st.Status = "degraded"
	default:
		st.Status = "ok"
	}
	jsonutil.Write(w, http.StatusOK, st)
}

type readyHandler struct {
	probes   []Probe
	writer   *Writer
	minError time.Duration
}

// NewReadyHandler answers 200 only when Ready holds, 503 otherwise.
func NewReadyHandler(probes []Probe, w *Writer, minOkErrorAge time.Duration) http.Handler {
	return &readyHandler{probes: probes, writer: w, minError: minOkErrorAge}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	ready := Ready(ctx, h.probes, h.writer, h.minError)
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	jsonutil.Write(w, code, struct {
		Ready bool `json:"ready"`
	}{ready})
}
