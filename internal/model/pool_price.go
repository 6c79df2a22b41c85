package model

// PoolPrice is one priced direction of a pool at a block.
type PoolPrice struct {
	Pool         string  `json:"pool"`
	Kind         string  `json:"kind"`
	BlockNumber  uint64  `json:"block_number"`
	Timestamp    uint64  `json:"timestamp"`
	BaseToken    string  `json:"base_token"`
	QuoteToken   string  `json:"quote_token"`
	Price        float64 `json:"price"`
	BaseReserve  string  `json:"base_reserve"`
	QuoteReserve string  `json:"quote_reserve"`
	PricedAt     string  `json:"priced_at"`
}
