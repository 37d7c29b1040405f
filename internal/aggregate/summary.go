// Package aggregate computes per-market summary statistics over matched fill
// groups, correcting for the feed's double emission of every logical trade.
package aggregate

import (
	"math"
	"sort"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// Summarize returns one summary row per group, sorted by descending fill
// count.
//
// The feed emits two raw events per logical trade (one per asset leg), so the
// raw fill count and volume are exactly double the real trading activity.
// TotalFills and the volume figures are halved; the price statistics are
// ratios over individual fills and are left uncorrected.
func Summarize(groups []domain.MarketGroup) []domain.MarketSummary {
	summaries := make([]domain.MarketSummary, 0, len(groups))
	for _, group := range groups {
		if len(group.Fills) == 0 {
			continue
		}
		summaries = append(summaries, summarizeGroup(group))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalFills > summaries[j].TotalFills
	})

	return summaries
}

// summarizeGroup computes the statistics for one non-empty group. Fills are
// already sorted by timestamp descending, so the current price is the first
// element and the time range spans from the last element to the first.
func summarizeGroup(group domain.MarketGroup) domain.MarketSummary {
	rawCount := len(group.Fills)

	var volumeSum, priceSum float64
	minPrice := math.Inf(1)
	maxPrice := math.Inf(-1)
	for _, fill := range group.Fills {
		volumeSum += fill.Amount
		priceSum += fill.Price
		if fill.Price < minPrice {
			minPrice = fill.Price
		}
		if fill.Price > maxPrice {
			maxPrice = fill.Price
		}
	}

	totalFills := float64(rawCount) / 2
	totalVolume := round2(volumeSum / 2)

	avgVolume := 0.0
	if totalFills > 0 {
		avgVolume = round2(totalVolume / totalFills)
	}

	return domain.MarketSummary{
		BaseName:     group.BaseName,
		IsBinary:     group.IsBinary,
		TotalFills:   totalFills,
		TotalVolume:  totalVolume,
		AvgVolume:    avgVolume,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		AvgPrice:     round6(priceSum / float64(rawCount)),
		CurrentPrice: group.Fills[0].Price,
		EarliestUnix: group.Fills[rawCount-1].TimestampUnix,
		LatestUnix:   group.Fills[0].TimestampUnix,
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }
