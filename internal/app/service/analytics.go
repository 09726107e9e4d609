package service

import (
	"fmt"

	"chainfolio/internal/domain/entity"
)

// valueEpsilon is the threshold below which USD totals are treated as zero
// across the normalizers and the analytics engine.
const valueEpsilon = 1e-9

// Classification thresholds. The risk classifier and the insight rules
// must read the same values; keeping them in one block prevents drift.
const (
	stableRatioConservative = 0.40 // inclusive on the Conservative side
	stableRatioModerate     = 0.15
	stableRatioLowReserve   = 0.10
	concentrationPct        = 45.0
	momentumStrongPct       = 5.0
)

// stableAssetSymbols is the fixed set of recognized stable-value assets
// used as the denominator for risk classification.
var stableAssetSymbols = map[string]struct{}{
	"USDC": {},
	"USDT": {},
	"DAI":  {},
}

// AnalyticsEngine derives the portfolio summary and insights from a
// canonical Holding set. Pure and deterministic: same holdings, same
// output.
type AnalyticsEngine struct{}

// ComputeSummary derives net worth, 24h change and the risk level.
// Holdings with an unknown prior value contribute zero change.
func (AnalyticsEngine) ComputeSummary(holdings []entity.Holding) entity.PortfolioSummary {
	var netWorth, netWorth24hAgo, stableValue float64
	for _, h := range holdings {
		netWorth += h.ValueUSD
		if h.ValueUSD24hAgo != nil {
			netWorth24hAgo += *h.ValueUSD24hAgo
		} else {
			netWorth24hAgo += h.ValueUSD
		}
		if _, stable := stableAssetSymbols[h.Symbol]; stable {
			stableValue += h.ValueUSD
		}
	}

	change := netWorth - netWorth24hAgo
	var changePct float64
	if netWorth24hAgo > valueEpsilon {
		changePct = change / netWorth24hAgo * 100
	}

	var stableRatio float64
	if netWorth > valueEpsilon {
		stableRatio = stableValue / netWorth
	}

	return entity.PortfolioSummary{
		NetWorth:          netWorth,
		NetWorth24hAgo:    netWorth24hAgo,
		NetWorthChange:    change,
		NetWorthChangePct: changePct,
		StableRatio:       stableRatio,
		RiskLevel:         classifyRisk(netWorth, stableRatio),
	}
}

// classifyRisk buckets by stable-asset share. An empty portfolio carries
// no information and defaults to Moderate.
func classifyRisk(netWorth, stableRatio float64) entity.RiskLevel {
	if netWorth <= valueEpsilon {
		return entity.RiskModerate
	}
	switch {
	case stableRatio >= stableRatioConservative:
		return entity.RiskConservative
	case stableRatio >= stableRatioModerate:
		return entity.RiskModerate
	default:
		return entity.RiskAggressive
	}
}

// GenerateInsights evaluates the fixed, order-stable rule list. Each rule
// appends zero or one insight; rules are independent.
func (AnalyticsEngine) GenerateInsights(summary entity.PortfolioSummary, holdings []entity.Holding) []string {
	if summary.NetWorth <= valueEpsilon {
		return []string{"No balance detected for this address."}
	}

	insights := make([]string, 0, 4)

	if summary.StableRatio >= stableRatioConservative {
		insights = append(insights, fmt.Sprintf(
			"%.0f%% of the portfolio sits in stablecoins, a solid cushion against market swings.",
			summary.StableRatio*100))
	} else if summary.StableRatio <= stableRatioLowReserve {
		insights = append(insights, fmt.Sprintf(
			"Stablecoin reserves are thin (%.0f%%), leaving little downside protection.",
			summary.StableRatio*100))
	}

	if len(holdings) > 0 && holdings[0].AllocationPct >= concentrationPct {
		insights = append(insights, fmt.Sprintf(
			"%s alone accounts for %.0f%% of the portfolio; concentration in a single asset amplifies drawdowns.",
			holdings[0].Symbol, holdings[0].AllocationPct))
	}

	switch {
	case summary.NetWorthChangePct >= momentumStrongPct:
		insights = append(insights, fmt.Sprintf(
			"Strong daily momentum: up %.1f%% (%+.2f USD) over the last 24 hours.",
			summary.NetWorthChangePct, summary.NetWorthChange))
	case summary.NetWorthChange > 0:
		insights = append(insights, fmt.Sprintf(
			"Modest gain of %.2f USD (%.1f%%) over the last 24 hours.",
			summary.NetWorthChange, summary.NetWorthChangePct))
	case summary.NetWorthChangePct <= -momentumStrongPct:
		insights = append(insights, fmt.Sprintf(
			"Sharp 24h drawdown: down %.1f%% (%.2f USD).",
			-summary.NetWorthChangePct, -summary.NetWorthChange))
	case summary.NetWorthChange < 0:
		insights = append(insights, fmt.Sprintf(
			"Slight 24h decline of %.2f USD (%.1f%%).",
			-summary.NetWorthChange, -summary.NetWorthChangePct))
	}

	if summary.RiskLevel == entity.RiskConservative && summary.NetWorthChange > 0 {
		insights = append(insights, "The conservative allocation is gaining value while staying defensive.")
	}

	return insights
}
