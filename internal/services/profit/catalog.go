package profit

import "strings"

// CatalogCrop carries the reference agronomy used by the detailed analysis.
type CatalogCrop struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	YieldTonnesPerAcre float64 `json:"yield_tonnes_per_acre"`
	GrowingPeriod      string  `json:"growing_period"`
	MarketDemand       string  `json:"market_demand"`
	DefaultPricePerKg  float64 `json:"default_price_per_kg"`
}

var catalog = []CatalogCrop{
	{ID: "potato", Name: "Potato", YieldTonnesPerAcre: 25, GrowingPeriod: "90-120 days", MarketDemand: "High", DefaultPricePerKg: 25},
	{ID: "rice", Name: "Rice", YieldTonnesPerAcre: 6, GrowingPeriod: "120-150 days", MarketDemand: "Very High", DefaultPricePerKg: 35},
	{ID: "wheat", Name: "Wheat", YieldTonnesPerAcre: 4, GrowingPeriod: "120-140 days", MarketDemand: "High", DefaultPricePerKg: 28},
	{ID: "tomato", Name: "Tomato", YieldTonnesPerAcre: 30, GrowingPeriod: "90-110 days", MarketDemand: "High", DefaultPricePerKg: 20},
	{ID: "sugarcane", Name: "Sugarcane", YieldTonnesPerAcre: 50, GrowingPeriod: "365 days", MarketDemand: "Medium", DefaultPricePerKg: 3},
	{ID: "cotton", Name: "Cotton", YieldTonnesPerAcre: 1.5, GrowingPeriod: "180-200 days", MarketDemand: "Medium", DefaultPricePerKg: 120},
}

// Catalog returns a copy of the reference crops.
func Catalog() []CatalogCrop {
	out := make([]CatalogCrop, len(catalog))
	copy(out, catalog)
	return out
}

// LookupCrop finds a catalog crop by id, case-insensitively.
func LookupCrop(id string) (CatalogCrop, bool) {
	id = strings.TrimSpace(id)
	for _, c := range catalog {
		if strings.EqualFold(c.ID, id) {
			return c, true
		}
	}
	return CatalogCrop{}, false
}
