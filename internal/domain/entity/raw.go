package entity

import "time"

// RawBalance is the provider-shaped intermediate balance record. Each
// adapter converts its own wire schema into this shape; every field is
// optional because no upstream guarantees presence. Canonical code never
// branches on which provider produced a record.
type RawBalance struct {
	Chain            string // provider's chain identifier, resolved via the alias table
	TokenAddress     string // empty for native assets
	Symbol           string
	Name             string
	BalanceFormatted string   // decimal-formatted amount string, e.g. "1.5"
	BalanceDecimal   *float64 // pre-divided decimal quantity
	BalanceRaw       string   // raw integer amount, divided by 10^decimals
	Decimals         *int
	QuoteUSD         *float64 // directly reported current USD value
	Quote24hUSD      *float64 // absolute USD value one day prior
	QuoteDelta24hUSD *float64 // 24h absolute USD delta (current minus prior)
	QuoteRate        *float64 // provider-reported unit price
	IsNative         bool
	IsSpam           bool
	Verified         *bool // trust flag; absent defaults to trusted
}

// RawParty is a structured sender/recipient object as some providers ship it.
type RawParty struct {
	Address string
	Label   string
}

// RawTokenTransfer is one token-transfer sub-event embedded in a raw
// transaction. Providers may emit the parent transaction once per entry.
type RawTokenTransfer struct {
	From      string
	To        string
	Symbol    string
	AmountRaw string
	Decimals  *int
	ValueUSD  *float64
}

// RawTxContent holds nested payload fields some providers wrap the actual
// transfer data in.
type RawTxContent struct {
	Hash string
	From string
	To   string
}

// RawTransaction is the provider-shaped intermediate transaction record.
type RawTransaction struct {
	Chain       string
	Hash        string
	AltHash     string
	BlockHash   string
	BlockHeight uint64
	Timestamp   time.Time
	FromParty   *RawParty
	From        string
	To          string
	ToParty     *RawParty
	Content     *RawTxContent
	Meta        map[string]string
	Transfers   []RawTokenTransfer
	Symbol      string
	ValueRaw    string
	Decimals    *int
	ValueUSD    *float64
	GasFeeUSD   *float64
}
