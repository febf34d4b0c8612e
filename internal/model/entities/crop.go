package entities

import (
	"fmt"
	"strings"
)

// Season is the Indian cropping season a crop is planted in.
type Season string

const (
	SeasonKharif Season = "Kharif" // monsoon
	SeasonRabi   Season = "Rabi"   // winter
	SeasonZaid   Season = "Zaid"   // summer
)

// Seasons lists the accepted seasons in display order.
var Seasons = []Season{SeasonKharif, SeasonRabi, SeasonZaid}

// ParseSeason matches case-insensitively; empty input defaults to Kharif.
func ParseSeason(s string) (Season, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SeasonKharif, nil
	}
	for _, known := range Seasons {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// CropEntry is one row of the profit comparator.
type CropEntry struct {
	ID                   string  `json:"id" yaml:"id"`
	Name                 string  `json:"name" yaml:"name"`
	AreaAcres            float64 `json:"area_acres" yaml:"area_acres"`
	CostPerAcre          float64 `json:"cost_per_acre" yaml:"cost_per_acre"`
	ExpectedYieldPerAcre float64 `json:"expected_yield_per_acre" yaml:"expected_yield_per_acre"`
	MarketPricePerUnit   float64 `json:"market_price_per_unit" yaml:"market_price_per_unit"`
	Season               Season  `json:"season" yaml:"season"`
}
