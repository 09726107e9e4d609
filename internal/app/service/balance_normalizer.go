package service

import (
	"sort"
	"strings"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"
	"chainfolio/internal/pkg/utils"
)

const (
	// Ceilings for the spoofed-token heuristic: a non-native, unverified
	// asset whose total value or unit price exceeds these is suppressed.
	unverifiedValueCeilingUSD     = 10000.0
	unverifiedUnitPriceCeilingUSD = 5000.0
)

// maxTokenDecimals bounds provider-reported precision. Values outside
// [0, 255] are treated as absent so the chain default applies instead of
// a wrapped conversion.
const maxTokenDecimals = 255

// BalanceNormalizer converts provider-shaped raw balance records into
// canonical Holdings. Normalization is pure over its inputs plus the
// primed price oracle; the same raw payload always yields the same
// canonical records.
type BalanceNormalizer struct {
	oracle port.PriceOracle
	logger port.Logger
}

// NewBalanceNormalizer creates a new BalanceNormalizer.
func NewBalanceNormalizer(oracle port.PriceOracle, logger port.Logger) *BalanceNormalizer {
	return &BalanceNormalizer{oracle: oracle, logger: logger}
}

// Normalize converts one raw balance record into a Holding, or nil when a
// filtering rule suppresses it. The record's own chain identifier wins
// over the adapter's chain hint; the hint is only used when the record
// carries no identifier at all.
func (n *BalanceNormalizer) Normalize(raw entity.RawBalance, chainHint entity.ChainKey) *entity.Holding {
	chain := networkdefinition.Canonicalize(raw.Chain)
	if chain == "" {
		chain = chainHint
	}

	decimals := networkdefinition.DefaultDecimals(chain)
	if raw.Decimals != nil && *raw.Decimals >= 0 && *raw.Decimals <= maxTokenDecimals {
		decimals = uint8(*raw.Decimals)
	}

	amount := n.resolveAmount(raw, decimals)
	unitPrice := n.resolveUnitPrice(raw, chain)
	valueUSD := n.resolveValueUSD(raw, amount, unitPrice)

	if raw.IsSpam {
		n.logger.Debug("Suppressing provider-flagged token", "chain", chain, "symbol", raw.Symbol)
		return nil
	}
	if amount <= valueEpsilon && valueUSD <= valueEpsilon {
		return nil
	}

	verified := raw.Verified == nil || *raw.Verified
	if !raw.IsNative && !verified {
		if unitPrice == 0 && amount > valueEpsilon {
			unitPrice = valueUSD / amount
		}
		if valueUSD > unverifiedValueCeilingUSD || unitPrice > unverifiedUnitPriceCeilingUSD {
			n.logger.Warn("Suppressing unverified high-value token",
				"chain", chain, "symbol", raw.Symbol, "valueUsd", valueUSD, "unitPrice", unitPrice)
			return nil
		}
	}

	return &entity.Holding{
		Chain:          chain,
		TokenAddress:   strings.ToLower(raw.TokenAddress),
		Symbol:         raw.Symbol,
		Name:           raw.Name,
		Amount:         amount,
		Decimals:       decimals,
		ValueUSD:       valueUSD,
		ValueUSD24hAgo: resolvePriorValue(raw, valueUSD),
		IsNative:       raw.IsNative,
		IsVerified:     verified,
	}
}

// NormalizeAll normalizes a raw snapshot and applies the post-processing
// invariant: Holdings sorted descending by USD value with allocation
// percentages summing to 100 (or all zero below the epsilon).
func (n *BalanceNormalizer) NormalizeAll(raws []entity.RawBalance, chainHint entity.ChainKey) []entity.Holding {
	holdings := make([]entity.Holding, 0, len(raws))
	for _, raw := range raws {
		if h := n.Normalize(raw, chainHint); h != nil {
			holdings = append(holdings, *h)
		}
	}
	return FinalizeHoldings(holdings)
}

// resolveAmount applies the amount precedence: decimal-formatted string,
// then pre-divided decimal quantity, then raw integer over 10^decimals.
func (n *BalanceNormalizer) resolveAmount(raw entity.RawBalance, decimals uint8) float64 {
	if v, ok := utils.ParseDecimalString(raw.BalanceFormatted); ok {
		return v
	}
	if raw.BalanceDecimal != nil && *raw.BalanceDecimal >= 0 {
		return *raw.BalanceDecimal
	}
	if raw.BalanceRaw != "" {
		v, err := utils.RawToDecimal(raw.BalanceRaw, decimals)
		if err != nil {
			n.logger.Warn("Unresolvable raw balance amount", "symbol", raw.Symbol, "error", err)
			return 0
		}
		return v
	}
	return 0
}

func (n *BalanceNormalizer) resolveUnitPrice(raw entity.RawBalance, chain entity.ChainKey) float64 {
	if raw.QuoteRate != nil && *raw.QuoteRate > 0 {
		return *raw.QuoteRate
	}
	if n.oracle == nil {
		return 0
	}
	contract := ""
	if !raw.IsNative {
		contract = strings.ToLower(raw.TokenAddress)
	}
	if price, ok := n.oracle.PriceFor(chain, contract); ok {
		return price
	}
	return 0
}

// resolveValueUSD applies the USD precedence: direct quote, then unit
// price times amount, then zero.
func (n *BalanceNormalizer) resolveValueUSD(raw entity.RawBalance, amount, unitPrice float64) float64 {
	if raw.QuoteUSD != nil && *raw.QuoteUSD > 0 {
		return *raw.QuoteUSD
	}
	if unitPrice > 0 && amount > 0 {
		return unitPrice * amount
	}
	return 0
}

// resolvePriorValue derives the 24h-ago USD value. An absolute prior quote
// wins; otherwise a reported 24h delta is subtracted from the current
// value. A negative result is treated as unknown rather than impossible.
func resolvePriorValue(raw entity.RawBalance, valueUSD float64) *float64 {
	if raw.Quote24hUSD != nil && *raw.Quote24hUSD >= 0 {
		prior := *raw.Quote24hUSD
		return &prior
	}
	if raw.QuoteDelta24hUSD != nil {
		prior := valueUSD - *raw.QuoteDelta24hUSD
		if prior >= 0 {
			return &prior
		}
	}
	return nil
}

// FinalizeHoldings sorts a Holding set descending by USD value and assigns
// allocation percentages. When the total is below the epsilon every
// percentage is zero.
func FinalizeHoldings(holdings []entity.Holding) []entity.Holding {
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].ValueUSD > holdings[j].ValueUSD
	})

	var total float64
	for i := range holdings {
		total += holdings[i].ValueUSD
	}
	for i := range holdings {
		if total > valueEpsilon {
			holdings[i].AllocationPct = holdings[i].ValueUSD / total * 100
		} else {
			holdings[i].AllocationPct = 0
		}
	}
	return holdings
}
