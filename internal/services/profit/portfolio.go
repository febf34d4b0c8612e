// Package profit computes per-crop and portfolio profit metrics for the
// multi-crop comparator. Everything here is pure: inputs are never mutated
// and results depend only on the arguments.
package profit

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	ents "github.com/ritheshan/agri/internal/model/entities"
)

// ValidationError reports the first field of a crop draft that cannot be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CropDraft is the user-entered form before validation. Nil numbers are missing fields.
type CropDraft struct {
	Name                 string   `json:"name" yaml:"name"`
	AreaAcres            *float64 `json:"area_acres" yaml:"area_acres"`
	CostPerAcre          *float64 `json:"cost_per_acre" yaml:"cost_per_acre"`
	ExpectedYieldPerAcre *float64 `json:"expected_yield_per_acre" yaml:"expected_yield_per_acre"`
	MarketPricePerUnit   *float64 `json:"market_price_per_unit" yaml:"market_price_per_unit"`
	Season               string   `json:"season" yaml:"season"`
}

// IDSource generates entry ids. Tests swap it for a deterministic sequence.
type IDSource func() string

// NewID returns a time-ordered UUIDv7, falling back to v4 if the clock source fails.
func NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// CropMetrics are derived for display and never stored.
type CropMetrics struct {
	CropID           string      `json:"crop_id"`
	Name             string      `json:"name"`
	Season           ents.Season `json:"season"`
	AreaAcres        float64     `json:"area_acres"`
	TotalCost        float64     `json:"total_cost"`
	TotalYield       float64     `json:"total_yield"`
	TotalRevenue     float64     `json:"total_revenue"`
	Profit           float64     `json:"profit"`
	ProfitPercentage float64     `json:"profit_percentage"`
}

// Summary aggregates a portfolio.
type Summary struct {
	TotalInvestment     float64 `json:"total_investment"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalProfit         float64 `json:"total_profit"`
	AvgProfitPercentage float64 `json:"avg_profit_percentage"`
}

// MaxTotal bounds every derived per-crop total (cost, yield, revenue) so sums
// over any request-sized portfolio stay finite.
const MaxTotal = 1e15

// Validate turns a draft into an entry without an id.
func Validate(d CropDraft) (ents.CropEntry, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ents.CropEntry{}, &ValidationError{Field: "name", Reason: "required"}
	}
	area, err := requireNumber("area_acres", d.AreaAcres, true)
	if err != nil {
		return ents.CropEntry{}, err
	}
	cost, err := requireNumber("cost_per_acre", d.CostPerAcre, false)
	if err != nil {
		return ents.CropEntry{}, err
	}
	yield, err := requireNumber("expected_yield_per_acre", d.ExpectedYieldPerAcre, false)
	if err != nil {
		return ents.CropEntry{}, err
	}
	price, err := requireNumber("market_price_per_unit", d.MarketPricePerUnit, false)
	if err != nil {
		return ents.CropEntry{}, err
	}
	if !withinTotal(area*cost, area*yield, area*yield*price) {
		return ents.CropEntry{}, &ValidationError{Field: "area_acres", Reason: "too large"}
	}
	season, err := ents.ParseSeason(d.Season)
	if err != nil {
		return ents.CropEntry{}, &ValidationError{Field: "season", Reason: "must be one of Kharif, Rabi, Zaid"}
	}
	return ents.CropEntry{
		Name:                 name,
		AreaAcres:            area,
		CostPerAcre:          cost,
		ExpectedYieldPerAcre: yield,
		MarketPricePerUnit:   price,
		Season:               season,
	}, nil
}

func requireNumber(field string, v *float64, strictlyPositive bool) (float64, error) {
	if v == nil {
		return 0, &ValidationError{Field: field, Reason: "required"}
	}
	n := *v
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &ValidationError{Field: field, Reason: "must be a finite number"}
	}
	if strictlyPositive && n <= 0 {
		return 0, &ValidationError{Field: field, Reason: "must be greater than zero"}
	}
	if n < 0 {
		return 0, &ValidationError{Field: field, Reason: "must not be negative"}
	}
	return n, nil
}

func withinTotal(totals ...float64) bool {
	for _, t := range totals {
		if math.IsNaN(t) || t > MaxTotal {
			return false
		}
	}
	return true
}

// AddCrop validates the draft and returns a new list with the entry appended.
// On error the returned list is entries itself, unchanged.
func AddCrop(entries []ents.CropEntry, d CropDraft, ids IDSource) ([]ents.CropEntry, ents.CropEntry, error) {
	e, err := Validate(d)
	if err != nil {
		return entries, ents.CropEntry{}, err
	}
	if ids == nil {
		ids = NewID
	}
	e.ID = ids()
	for contains(entries, e.ID) {
		e.ID = ids()
	}

	out := make([]ents.CropEntry, 0, len(entries)+1)
	out = append(out, entries...)
	out = append(out, e)
	return out, e, nil
}

func contains(entries []ents.CropEntry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// RemoveCrop returns a new list without id. Unknown ids are a no-op.
func RemoveCrop(entries []ents.CropEntry, id string) []ents.CropEntry {
	out := make([]ents.CropEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// ComputeMetrics applies the per-crop formulas. A zero total cost yields a
// profit percentage of 0 instead of NaN or ±Inf.
func ComputeMetrics(e ents.CropEntry) CropMetrics {
	totalCost := e.AreaAcres * e.CostPerAcre
	totalYield := e.AreaAcres * e.ExpectedYieldPerAcre
	totalRevenue := totalYield * e.MarketPricePerUnit
	profit := totalRevenue - totalCost

	return CropMetrics{
		CropID:           e.ID,
		Name:             e.Name,
		Season:           e.Season,
		AreaAcres:        e.AreaAcres,
		TotalCost:        totalCost,
		TotalYield:       totalYield,
		TotalRevenue:     totalRevenue,
		Profit:           profit,
		ProfitPercentage: percentOf(profit, totalCost),
	}
}

// ComputePortfolio maps ComputeMetrics over entries in insertion order and sums the results.
func ComputePortfolio(entries []ents.CropEntry) ([]CropMetrics, Summary) {
	metrics := make([]CropMetrics, 0, len(entries))
	var sum Summary
	for _, e := range entries {
		m := ComputeMetrics(e)
		metrics = append(metrics, m)
		sum.TotalInvestment += m.TotalCost
		sum.TotalRevenue += m.TotalRevenue
		sum.TotalProfit += m.Profit
	}
	sum.AvgProfitPercentage = percentOf(sum.TotalProfit, sum.TotalInvestment)
	return metrics, sum
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
