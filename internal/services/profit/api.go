package profit

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	ents "github.com/ritheshan/agri/internal/model/entities"
	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/pkg/jsonutil"
)

// API exposes the profit model over HTTP. It keeps no state: the browser owns
// the crop list and sends it with every request.
type API struct {
	log     *zap.Logger
	rec     telemetry.Recorder
	metrics *telemetry.Metrics
	ids     IDSource
}

func NewAPI(log *zap.Logger, rec telemetry.Recorder, metrics *telemetry.Metrics, ids IDSource) *API {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = telemetry.Nop{}
	}
	if ids == nil {
		ids = NewID
	}
	return &API{log: log, rec: rec, metrics: metrics, ids: ids}
}

// Routes mounts the handlers on r, typically under /api/profit.
func (a *API) Routes(r chi.Router) {
	r.Get("/catalog", a.handleCatalog)
	r.Post("/portfolio", a.handlePortfolio)
	r.Post("/crops", a.handleAddCrop)
	r.Delete("/crops/{id}", a.handleRemoveCrop)
	r.Post("/analysis", a.handleAnalysis)
}

type portfolioRequest struct {
	Entries []ents.CropEntry `json:"entries"`
	Sort    string           `json:"sort,omitempty"`
}

type portfolioResponse struct {
	Entries []ents.CropEntry `json:"entries,omitempty"`
	Metrics []CropMetrics    `json:"metrics"`
	Ranked  []CropMetrics    `json:"ranked,omitempty"`
	Summary Summary          `json:"summary"`
}

type addCropRequest struct {
	Entries []ents.CropEntry `json:"entries"`
	Crop    CropDraft        `json:"crop"`
}

type analysisRequest struct {
	Selections []Selection `json:"selections"`
}

type singleAnalysis struct {
	Analysis Analysis `json:"analysis"`
}

// ValidateEntries checks entries coming back from the client the same way a
// draft is checked. Ids are required and unique.
func ValidateEntries(entries []ents.CropEntry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return &ValidationError{Field: fmt.Sprintf("entries[%d].id", i), Reason: "required"}
		}
		if _, dup := seen[e.ID]; dup {
			return &ValidationError{Field: fmt.Sprintf("entries[%d].id", i), Reason: "duplicate id"}
		}
		seen[e.ID] = struct{}{}

		d := CropDraft{
			Name:                 e.Name,
			AreaAcres:            &e.AreaAcres,
			CostPerAcre:          &e.CostPerAcre,
			ExpectedYieldPerAcre: &e.ExpectedYieldPerAcre,
			MarketPricePerUnit:   &e.MarketPricePerUnit,
			Season:               string(e.Season),
		}
		if _, err := Validate(d); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return &ValidationError{Field: fmt.Sprintf("entries[%d].%s", i, ve.Field), Reason: ve.Reason}
			}
			return err
		}
	}
	return nil
}

func (a *API) writeValidation(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		jsonutil.WriteFieldError(w, http.StatusUnprocessableEntity, ve.Field, ve.Error())
		return
	}
	jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
}

func (a *API) portfolioComputed(entries []ents.CropEntry, sum Summary) {
	a.metrics.CountPortfolio()
	a.rec.Record(messages.AdvisoryEvent{
		EventType: messages.EventPortfolioComputed,
		Source:    "profit",
		Fields: map[string]float64{
			"crops":            float64(len(entries)),
			"total_investment": sum.TotalInvestment,
			"total_profit":     sum.TotalProfit,
		},
	})
}

func (a *API) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	jsonutil.Write(w, http.StatusOK, map[string]any{"crops": Catalog()})
}

func (a *API) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := jsonutil.Decode(r, &req, 0); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateEntries(req.Entries); err != nil {
		a.writeValidation(w, err)
		return
	}

	metrics, sum := ComputePortfolio(req.Entries)
	resp := portfolioResponse{Metrics: metrics, Summary: sum}
	switch req.Sort {
	case "":
	case "profit":
		resp.Ranked = RankByProfit(metrics)
	default:
		jsonutil.WriteFieldError(w, http.StatusBadRequest, "sort", "unsupported sort "+req.Sort)
		return
	}
	a.portfolioComputed(req.Entries, sum)
	jsonutil.Write(w, http.StatusOK, resp)
}

func (a *API) handleAddCrop(w http.ResponseWriter, r *http.Request) {
	var req addCropRequest
	if err := jsonutil.Decode(r, &req, 0); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateEntries(req.Entries); err != nil {
		a.writeValidation(w, err)
		return
	}
	next, added, err := AddCrop(req.Entries, req.Crop, a.ids)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			jsonutil.WriteFieldError(w, http.StatusUnprocessableEntity, "crop."+ve.Field, ve.Error())
			return
		}
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.log.Debug("profit: crop added", zap.String("id", added.ID), zap.String("name", added.Name))

	metrics, sum := ComputePortfolio(next)
	a.portfolioComputed(next, sum)
	jsonutil.Write(w, http.StatusCreated, portfolioResponse{Entries: next, Metrics: metrics, Summary: sum})
}

func (a *API) handleRemoveCrop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req portfolioRequest
	if err := jsonutil.Decode(r, &req, 0); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateEntries(req.Entries); err != nil {
		a.writeValidation(w, err)
		return
	}
	next := RemoveCrop(req.Entries, id)
	metrics, sum := ComputePortfolio(next)
	a.portfolioComputed(next, sum)
	// entries is always present so the client can replace its list, even when empty
	jsonutil.Write(w, http.StatusOK, map[string]any{"entries": next, "metrics": metrics, "summary": sum})
}

func (a *API) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := jsonutil.Decode(r, &req, 0); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	multi, err := AnalyzeMany(req.Selections)
	if errors.Is(err, ErrNoSelections) {
		jsonutil.WriteFieldError(w, http.StatusUnprocessableEntity, "selections", err.Error())
		return
	}
	if err != nil {
		a.writeValidation(w, err)
		return
	}
	if len(multi.Crops) == 1 {
		jsonutil.Write(w, http.StatusOK, singleAnalysis{Analysis: multi.Crops[0]})
		return
	}
	jsonutil.Write(w, http.StatusOK, multi)
}
