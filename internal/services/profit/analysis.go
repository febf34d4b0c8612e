package profit

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoSelections = errors.New("no crops selected")

// CostInputs are per-acre costs in rupees; MarketPrice is per kg.
type CostInputs struct {
	LandSize       float64 `json:"land_size" yaml:"land_size"`
	SeedCost       float64 `json:"seed_cost" yaml:"seed_cost"`
	FertilizerCost float64 `json:"fertilizer_cost" yaml:"fertilizer_cost"`
	LaborCost      float64 `json:"labor_cost" yaml:"labor_cost"`
	IrrigationCost float64 `json:"irrigation_cost" yaml:"irrigation_cost"`
	PesticideCost  float64 `json:"pesticide_cost" yaml:"pesticide_cost"`
	MarketPrice    float64 `json:"market_price" yaml:"market_price"`
}

// DefaultInputs mirrors the calculator form defaults.
func DefaultInputs() CostInputs {
	return CostInputs{
		LandSize:       1,
		SeedCost:       15000,
		FertilizerCost: 8000,
		LaborCost:      12000,
		IrrigationCost: 5000,
		PesticideCost:  3000,
		MarketPrice:    25,
	}
}

type CostBreakdown struct {
	Seeds      float64 `json:"seeds"`
	Fertilizer float64 `json:"fertilizer"`
	Labor      float64 `json:"labor"`
	Irrigation float64 `json:"irrigation"`
	Pesticide  float64 `json:"pesticide"`
}

// Crop cycle used for the cash-flow projection: costs are spread evenly over
// the first growingMonths, sales over the following salesMonths.
const (
	timelineMonths = 12
	growingMonths  = 4
	salesMonths    = 4
)

// CashFlowPoint is the cumulative position at the end of a month (1-based).
type CashFlowPoint struct {
	Month             int     `json:"month"`
	CumulativeCost    float64 `json:"cumulative_cost"`
	CumulativeRevenue float64 `json:"cumulative_revenue"`
}

type Analysis struct {
	Crop           CatalogCrop     `json:"crop"`
	TotalCosts     float64         `json:"total_costs"`
	GrossRevenue   float64         `json:"gross_revenue"`
	NetProfit      float64         `json:"net_profit"`
	ProfitMargin   float64         `json:"profit_margin"`
	ProfitPerAcre  float64         `json:"profit_per_acre"`
	EstimatedYield float64         `json:"estimated_yield"` // tonnes
	BreakEvenPrice float64         `json:"break_even_price"`
	CostBreakdown  CostBreakdown   `json:"cost_breakdown"`
	Timeline       []CashFlowPoint `json:"timeline"`
}

// CashFlow projects cumulative cost and revenue over a year.
func CashFlow(totalCost, grossRevenue float64) []CashFlowPoint {
	out := make([]CashFlowPoint, timelineMonths)
	for i := range out {
		m := i + 1
		p := CashFlowPoint{Month: m, CumulativeCost: totalCost, CumulativeRevenue: grossRevenue}
		switch {
		case m <= growingMonths:
			p.CumulativeCost = totalCost * float64(m) / growingMonths
			p.CumulativeRevenue = 0
		case m <= growingMonths+salesMonths:
			p.CumulativeRevenue = grossRevenue * float64(m-growingMonths) / salesMonths
		}
		out[i] = p
	}
	return out
}

// AnalyzeCrop expands one crop and its inputs into revenue, margin and break-even figures.
// Every ratio is 0 when its denominator is 0.
func AnalyzeCrop(crop CatalogCrop, in CostInputs) Analysis {
	land := in.LandSize
	breakdown := CostBreakdown{
		Seeds:      in.SeedCost * land,
		Fertilizer: in.FertilizerCost * land,
		Labor:      in.LaborCost * land,
		Irrigation: in.IrrigationCost * land,
		Pesticide:  in.PesticideCost * land,
	}
	total := breakdown.Seeds + breakdown.Fertilizer + breakdown.Labor + breakdown.Irrigation + breakdown.Pesticide
	yieldT := crop.YieldTonnesPerAcre * land
	gross := yieldT * 1000 * in.MarketPrice
	net := gross - total

	a := Analysis{
		Crop:           crop,
		TotalCosts:     total,
		GrossRevenue:   gross,
		NetProfit:      net,
		ProfitMargin:   percentOf(net, gross),
		EstimatedYield: yieldT,
		CostBreakdown:  breakdown,
		Timeline:       CashFlow(total, gross),
	}
	if land != 0 {
		a.ProfitPerAcre = net / land
	}
	if yieldT != 0 {
		a.BreakEvenPrice = total / (yieldT * 1000)
	}
	return a
}

// Selection picks a catalog crop for the multi-crop comparison.
// A zero MarketPrice means the crop's default price.
type Selection struct {
	CropID string     `json:"crop_id" yaml:"crop_id"`
	Inputs CostInputs `json:"inputs" yaml:"inputs"`
}

type MultiAnalysis struct {
	Crops           []Analysis `json:"crops"`
	TotalProfit     float64    `json:"total_profit"`
	TotalRevenue    float64    `json:"total_revenue"`
	TotalCosts      float64    `json:"total_costs"`
	AvgProfitMargin float64    `json:"avg_profit_margin"`
	Best            Analysis   `json:"best_crop"`
	Worst           Analysis   `json:"worst_crop"`
}

// AnalyzeMany compares selections; best and worst are by profit per acre, first wins on ties.
func AnalyzeMany(selections []Selection) (MultiAnalysis, error) {
	if len(selections) == 0 {
		return MultiAnalysis{}, ErrNoSelections
	}
	var out MultiAnalysis
	out.Crops = make([]Analysis, 0, len(selections))
	for i, s := range selections {
		crop, ok := LookupCrop(s.CropID)
		if !ok {
			return MultiAnalysis{}, &ValidationError{Field: fmt.Sprintf("selections[%d].crop_id", i), Reason: "unknown crop " + s.CropID}
		}
		in := s.Inputs
		if in.MarketPrice == 0 {
			in.MarketPrice = crop.DefaultPricePerKg
		}
		if err := checkInputs(crop, in); err != nil {
			return MultiAnalysis{}, &ValidationError{Field: fmt.Sprintf("selections[%d].inputs.%s", i, err.Field), Reason: err.Reason}
		}
		a := AnalyzeCrop(crop, in)
		out.Crops = append(out.Crops, a)
		out.TotalProfit += a.NetProfit
		out.TotalRevenue += a.GrossRevenue
		out.TotalCosts += a.TotalCosts
	}
	out.AvgProfitMargin = percentOf(out.TotalProfit, out.TotalRevenue)

	out.Best, out.Worst = out.Crops[0], out.Crops[0]
	for _, a := range out.Crops[1:] {
		if a.ProfitPerAcre > out.Best.ProfitPerAcre {
			out.Best = a
		}
		if a.ProfitPerAcre < out.Worst.ProfitPerAcre {
			out.Worst = a
		}
	}
	return out, nil
}

// checkInputs rejects negative or non-finite inputs, and inputs whose totals
// would exceed MaxTotal.
func checkInputs(crop CatalogCrop, in CostInputs) *ValidationError {
	fields := []struct {
		name string
		v    float64
	}{
		{"land_size", in.LandSize},
		{"seed_cost", in.SeedCost},
		{"fertilizer_cost", in.FertilizerCost},
		{"labor_cost", in.LaborCost},
		{"irrigation_cost", in.IrrigationCost},
		{"pesticide_cost", in.PesticideCost},
		{"market_price", in.MarketPrice},
	}
	for _, f := range fields {
		switch {
		case math.IsNaN(f.v) || math.IsInf(f.v, 0):
			return &ValidationError{Field: f.name, Reason: "must be a finite number"}
		case f.v < 0:
			return &ValidationError{Field: f.name, Reason: "must not be negative"}
		}
	}
	perAcre := in.SeedCost + in.FertilizerCost + in.LaborCost + in.IrrigationCost + in.PesticideCost
	if !withinTotal(perAcre*in.LandSize, crop.YieldTonnesPerAcre*in.LandSize*1000*in.MarketPrice) {
		return &ValidationError{Field: "land_size", Reason: "too large"}
	}
	return nil
}
