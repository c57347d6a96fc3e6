package services

import (
	"math"
	"sort"

	"github.com/evemgr/pricing-core/internal/esi"
)

// fixedPercentile is the percentile computed for every snapshot, on both
// sides of the book. The settings store carries configurable per-side
// percentiles (0.99 buy, 0.01 sell) but the computation has always used the
// fixed 5th percentile regardless.
const fixedPercentile = 0.05

// OrderStats is the aggregate over one side of a type's order book.
type OrderStats struct {
	Min        float64
	Max        float64
	Avg        float64
	Median     float64
	Percentile float64
	StdDev     float64
	Volume     int64
	OrderCount int
}

// HistoryStats is the daily rollup across both sides of the book.
type HistoryStats struct {
	AvgBuy      float64
	AvgSell     float64
	MaxBuy      float64
	MinSell     float64
	TotalVolume int64
}

// ComputeOrderStats aggregates a single side of the order book. The average
// is weighted by remaining volume; median, percentile, and standard
// deviation treat each order as one observation.
func ComputeOrderStats(orders []esi.MarketOrder) OrderStats {
	if len(orders) == 0 {
		return OrderStats{}
	}

	prices := make([]float64, 0, len(orders))
	var weightedSum float64
	var totalVolume int64
	for _, order := range orders {
		prices = append(prices, order.Price)
		weightedSum += order.Price * float64(order.VolumeRemain)
		totalVolume += order.VolumeRemain
	}
	sort.Float64s(prices)

	avg := 0.0
	if totalVolume > 0 {
		avg = weightedSum / float64(totalVolume)
	}

	return OrderStats{
		Min:        prices[0],
		Max:        prices[len(prices)-1],
		Avg:        avg,
		Median:     Percentile(prices, 0.5),
		Percentile: Percentile(prices, fixedPercentile),
		StdDev:     stdDev(prices),
		Volume:     totalVolume,
		OrderCount: len(orders),
	}
}

// Percentile returns the p-th percentile of a sorted slice using linear
// interpolation between the two nearest ranks. p is in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	rank := p * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// stdDev is the population standard deviation of the given prices.
func stdDev(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))

	var variance float64
	for _, p := range prices {
		diff := p - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(prices)))
}

// HistoryRollup builds the daily summary for a type from the full order
// book. Averages are unweighted; MaxBuy and MinSell track the best price on
// each side; TotalVolume sums the remaining volume of both sides.
func HistoryRollup(buyOrders, sellOrders []esi.MarketOrder) HistoryStats {
	var rollup HistoryStats

	if len(buyOrders) > 0 {
		var sum float64
		for _, order := range buyOrders {
			sum += order.Price
			if order.Price > rollup.MaxBuy {
				rollup.MaxBuy = order.Price
			}
			rollup.TotalVolume += order.VolumeRemain
		}
		rollup.AvgBuy = sum / float64(len(buyOrders))
	}

	if len(sellOrders) > 0 {
		var sum float64
		rollup.MinSell = sellOrders[0].Price
		for _, order := range sellOrders {
			sum += order.Price
			if order.Price < rollup.MinSell {
				rollup.MinSell = order.Price
			}
			rollup.TotalVolume += order.VolumeRemain
		}
		rollup.AvgSell = sum / float64(len(sellOrders))
	}

	return rollup
}
