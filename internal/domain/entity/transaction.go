package entity

import "time"

// TransferDirection classifies a transaction relative to the queried address.
type TransferDirection string

const (
	DirectionIn       TransferDirection = "in"
	DirectionOut      TransferDirection = "out"
	DirectionInternal TransferDirection = "internal"
)

// Transaction is one canonicalized on-chain transfer event.
type Transaction struct {
	Hash         string            `json:"hash"`
	Chain        ChainKey          `json:"chain"`
	Timestamp    time.Time         `json:"timestamp"`
	Direction    TransferDirection `json:"direction"`
	Counterparty string            `json:"counterparty,omitempty"`
	Symbol       string            `json:"symbol,omitempty"`
	Amount       *float64          `json:"amount,omitempty"`
	ValueUSD     *float64          `json:"valueUsd,omitempty"`
	GasFeeUSD    *float64          `json:"gasFeeUsd,omitempty"`
}

// DedupKey is the composite key under which duplicate raw records collapse.
func (t Transaction) DedupKey() string {
	return string(t.Chain) + ":" + t.Hash
}
