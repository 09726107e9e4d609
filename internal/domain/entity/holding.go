package entity

// Holding is one canonicalized asset balance within one wallet on one chain.
// Constructed fresh per analysis request from a single provider snapshot and
// never mutated after allocation percentages are assigned.
type Holding struct {
	Chain          ChainKey `json:"chain"`
	TokenAddress   string   `json:"tokenAddress,omitempty"`
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name,omitempty"`
	Amount         float64  `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	ValueUSD       float64  `json:"valueUsd"`
	ValueUSD24hAgo *float64 `json:"valueUsd24hAgo,omitempty"`
	IsNative       bool     `json:"isNative"`
	IsVerified     bool     `json:"isVerified"`
	AllocationPct  float64  `json:"allocationPct"`
}
