package profit

import "sort"

// RankByProfit returns a copy sorted by descending profit. Ties keep insertion order.
func RankByProfit(metrics []CropMetrics) []CropMetrics {
	out := make([]CropMetrics, len(metrics))
	copy(out, metrics)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Profit > out[j].Profit })
	return out
}
