// Package pricing derives price, amount, and side for raw fills against a
// target outcome token. All functions are pure and stateless.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// QuoteAssetID is the sentinel asset id of the quote currency (USDC). Every
// priceable fill has it on exactly one leg; a fill with outcome tokens on both
// legs cannot be priced against a single token and is excluded.
const QuoteAssetID = "0"

// fixedPointScale converts the feed's 6-implied-decimal integer amounts to
// token or quote units.
const fixedPointScale = 1_000_000

// ptLocation formats fill timestamps in US Pacific time next to the raw unix
// value. Resolved once; time.LoadLocation only fails on a broken zoneinfo
// install, in which case UTC is used.
var ptLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// DerivePrice returns the quote-per-unit price of the target token for a fill.
// ok is false when neither leg is the quote currency (a token-for-token
// trade), in which case the fill must be excluded rather than priced at zero.
func DerivePrice(fill domain.RawFill, tokenID string) (price float64, ok bool) {
	switch {
	case fill.MakerAssetID == tokenID && fill.TakerAssetID == QuoteAssetID:
		// Maker sells the token for quote currency.
		if fill.MakerAmountFilled == 0 {
			return 0, true
		}
		return float64(fill.TakerAmountFilled) / float64(fill.MakerAmountFilled), true
	case fill.TakerAssetID == tokenID && fill.MakerAssetID == QuoteAssetID:
		// Taker buys the token with quote currency.
		if fill.TakerAmountFilled == 0 {
			return 0, true
		}
		return float64(fill.MakerAmountFilled) / float64(fill.TakerAmountFilled), true
	default:
		return 0, false
	}
}

// DeriveAmount returns the traded amount in token units: the size of whichever
// leg carries the target token, or 0 when the token appears on neither leg.
func DeriveAmount(fill domain.RawFill, tokenID string) float64 {
	switch tokenID {
	case fill.MakerAssetID:
		return float64(fill.MakerAmountFilled) / fixedPointScale
	case fill.TakerAssetID:
		return float64(fill.TakerAmountFilled) / fixedPointScale
	default:
		return 0
	}
}

// DeriveSide returns the trade direction relative to the target token: the
// taker acquiring it is a BUY, the maker giving it up is a SELL.
func DeriveSide(fill domain.RawFill, tokenID string) domain.Side {
	switch tokenID {
	case fill.TakerAssetID:
		return domain.SideBuy
	case fill.MakerAssetID:
		return domain.SideSell
	default:
		return domain.SideUnknown
	}
}

// ProcessFills converts the raw fill history of one token into ProcessedFill
// records labelled with the token's outcome. Token-for-token fills are
// dropped; price is rounded to 6 and amount to 2 decimal places.
func ProcessFills(fills []domain.RawFill, tokenID, outcomeLabel string) []domain.ProcessedFill {
	processed := make([]domain.ProcessedFill, 0, len(fills))
	for _, fill := range fills {
		price, ok := DerivePrice(fill, tokenID)
		if !ok {
			continue
		}

		ts := time.Unix(fill.Timestamp, 0)
		processed = append(processed, domain.ProcessedFill{
			Outcome:         outcomeLabel,
			TokenID:         tokenID,
			TimestampUnix:   fill.Timestamp,
			TimestampPST:    ts.In(ptLocation).Format("2006-01-02 15:04:05 MST"),
			Price:           round(price, 6),
			Amount:          round(DeriveAmount(fill, tokenID), 2),
			Side:            DeriveSide(fill, tokenID),
			TransactionHash: fill.TransactionHash,
			OrderHash:       fill.OrderHash,
			Maker:           fill.Maker,
			Taker:           fill.Taker,
		})
	}
	return processed
}

// ProcessMarketFills processes every token's fill history and returns one
// flat list sorted by timestamp descending. Tokens are concatenated in sorted
// id order and the sort is stable, so the output is deterministic for a given
// input snapshot, including exact-timestamp ties.
func ProcessMarketFills(tokenFills map[string][]domain.RawFill, tokenOutcomes domain.TokenOutcomes) []domain.ProcessedFill {
	tokenIDs := make([]string, 0, len(tokenFills))
	for tokenID := range tokenFills {
		tokenIDs = append(tokenIDs, tokenID)
	}
	sort.Strings(tokenIDs)

	var all []domain.ProcessedFill
	for _, tokenID := range tokenIDs {
		outcome, ok := tokenOutcomes[tokenID]
		if !ok {
			continue
		}
		all = append(all, ProcessFills(tokenFills[tokenID], tokenID, outcome)...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].TimestampUnix > all[j].TimestampUnix
	})

	return all
}

// round rounds x to the given number of decimal places.
func round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
