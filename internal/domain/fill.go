package domain

// Side is the direction of a fill relative to the outcome token under
// analysis: the taker acquiring the token is a BUY, the maker selling it is a
// SELL. Fills where the token appears on neither leg are UNKNOWN.
type Side string

const (
	SideBuy     Side = "BUY"
	SideSell    Side = "SELL"
	SideUnknown Side = "UNKNOWN"
)

// RawFill is an on-chain order-filled event exactly as the subgraph emits it.
// Amounts are fixed-point integers with 6 implied decimal places. One logical
// trade produces two RawFill records, one per asset leg.
type RawFill struct {
	TransactionHash   string `json:"transactionHash"`
	OrderHash         string `json:"orderHash"`
	Timestamp         int64  `json:"timestamp"`
	Maker             string `json:"maker"`
	MakerAssetID      string `json:"makerAssetId"`
	MakerAmountFilled int64  `json:"makerAmountFilled"`
	Taker             string `json:"taker"`
	TakerAssetID      string `json:"takerAssetId"`
	TakerAmountFilled int64  `json:"takerAmountFilled"`
	Fee               int64  `json:"fee"`
}

// ProcessedFill is a RawFill resolved against a single outcome token: price in
// quote currency per token unit, traded token amount, and trade side. Exactly
// one ProcessedFill exists per priceable RawFill; token-for-token trades are
// dropped upstream because they carry no quote leg to price against.
type ProcessedFill struct {
	Outcome         string  `json:"outcome"`
	TokenID         string  `json:"token_id"`
	TimestampUnix   int64   `json:"timestamp_unix"`
	TimestampPST    string  `json:"timestamp_pst"`
	Price           float64 `json:"price"`
	Amount          float64 `json:"amount"`
	Side            Side    `json:"side"`
	NetAction       string  `json:"net_action,omitempty"`
	TransactionHash string  `json:"transaction_hash"`
	OrderHash       string  `json:"order_hash"`
	Maker           string  `json:"maker"`
	Taker           string  `json:"taker"`
}
