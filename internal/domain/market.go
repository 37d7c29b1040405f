package domain

import "time"

// TokenOutcomes maps an outcome token id to its human label, formatted as
// "<market question> - <outcome name>". Supplied by the metadata resolver and
// read-only to the engine.
type TokenOutcomes map[string]string

// MarketGroup is a set of fills that belong to one underlying market. A binary
// group merges the two complementary outcome tokens of the same market; a
// non-binary group holds a single outcome that found no complement. Fills are
// ordered by timestamp descending and carry a NetAction when the group is
// binary.
type MarketGroup struct {
	BaseName string          `json:"base_name"`
	IsBinary bool            `json:"is_binary"`
	Fills    []ProcessedFill `json:"fills"`
}

// MarketSummary is one aggregate row per MarketGroup. The subgraph emits two
// raw events per logical trade, so TotalFills and the volume figures are
// halved relative to the raw fill list; the price statistics are ratios and
// need no correction.
type MarketSummary struct {
	BaseName     string  `json:"base_name"`
	IsBinary     bool    `json:"is_binary"`
	TotalFills   float64 `json:"total_fills"`
	TotalVolume  float64 `json:"total_volume"`
	AvgVolume    float64 `json:"avg_volume"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	EarliestUnix int64   `json:"earliest_unix"`
	LatestUnix   int64   `json:"latest_unix"`
}

// MarketReport is the full output of one analysis run for a market slug: the
// flat chronological fill list, the matched market groups, and their summary
// rows. These three artifacts are the entire public surface handed to export
// collaborators.
type MarketReport struct {
	Slug        string          `json:"slug"`
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Outcomes    TokenOutcomes   `json:"outcomes"`
	Fills       []ProcessedFill `json:"fills"`
	Groups      []MarketGroup   `json:"groups"`
	Summaries   []MarketSummary `json:"summaries"`
}
