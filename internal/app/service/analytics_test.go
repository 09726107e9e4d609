package service

import (
	"strings"
	"testing"

	"chainfolio/internal/domain/entity"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestComputeSummaryNetWorthAndChange(t *testing.T) {
	engine := AnalyticsEngine{}

	summary := engine.ComputeSummary([]entity.Holding{
		{Symbol: "ETH", ValueUSD: 6000, ValueUSD24hAgo: floatPtr(5000)},
		{Symbol: "USDC", ValueUSD: 4000, ValueUSD24hAgo: floatPtr(4000)},
	})

	assert.Equal(t, 10000.0, summary.NetWorth)
	assert.Equal(t, 9000.0, summary.NetWorth24hAgo)
	assert.Equal(t, 1000.0, summary.NetWorthChange)
	assert.InDelta(t, 11.111, summary.NetWorthChangePct, 0.001)
	assert.InDelta(t, 0.4, summary.StableRatio, 1e-12)
}

func TestComputeSummaryUnknownPriorContributesZeroChange(t *testing.T) {
	engine := AnalyticsEngine{}

	summary := engine.ComputeSummary([]entity.Holding{
		{Symbol: "ETH", ValueUSD: 5000}, // prior unknown
		{Symbol: "DAI", ValueUSD: 1000, ValueUSD24hAgo: floatPtr(900)},
	})

	assert.Equal(t, 6000.0, summary.NetWorth)
	assert.Equal(t, 100.0, summary.NetWorthChange)
}

func TestClassifyRiskBoundaries(t *testing.T) {
	cases := []struct {
		name        string
		stableRatio float64
		want        entity.RiskLevel
	}{
		{"exactly at the conservative boundary", 0.40, entity.RiskConservative},
		{"just above conservative", 0.45, entity.RiskConservative},
		{"just below conservative", 0.399, entity.RiskModerate},
		{"exactly at the moderate boundary", 0.15, entity.RiskModerate},
		{"below moderate", 0.149, entity.RiskAggressive},
		{"no stables at all", 0, entity.RiskAggressive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyRisk(1000, tc.stableRatio))
		})
	}
}

func TestClassifyRiskEmptyPortfolioDefaultsToModerate(t *testing.T) {
	assert.Equal(t, entity.RiskModerate, classifyRisk(0, 0))

	summary := AnalyticsEngine{}.ComputeSummary(nil)
	assert.Equal(t, entity.RiskModerate, summary.RiskLevel)
	assert.Zero(t, summary.NetWorth)
}

func TestRiskNeverDecreasesAsStableShareShrinks(t *testing.T) {
	rank := map[entity.RiskLevel]int{
		entity.RiskConservative: 0,
		entity.RiskModerate:     1,
		entity.RiskAggressive:   2,
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("lower stable ratio never lowers risk", prop.ForAll(
		func(a, b float64) bool {
			hi, lo := a, b
			if hi < lo {
				hi, lo = lo, hi
			}
			return rank[classifyRisk(1000, lo)] >= rank[classifyRisk(1000, hi)]
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestGenerateInsightsRules(t *testing.T) {
	engine := AnalyticsEngine{}

	t.Run("empty portfolio short-circuits", func(t *testing.T) {
		insights := engine.GenerateInsights(entity.PortfolioSummary{}, nil)
		assert.Equal(t, []string{"No balance detected for this address."}, insights)
	})

	t.Run("high stable share produces the cushion insight", func(t *testing.T) {
		summary := entity.PortfolioSummary{NetWorth: 1000, StableRatio: 0.5, RiskLevel: entity.RiskConservative}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "USDC", AllocationPct: 50}})
		assert.True(t, containsSubstring(insights, "cushion"))
	})

	t.Run("thin stable reserves are called out", func(t *testing.T) {
		summary := entity.PortfolioSummary{NetWorth: 1000, StableRatio: 0.05, RiskLevel: entity.RiskAggressive}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "ETH", AllocationPct: 40}})
		assert.True(t, containsSubstring(insights, "thin"))
	})

	t.Run("concentration above the threshold is flagged", func(t *testing.T) {
		summary := entity.PortfolioSummary{NetWorth: 1000, StableRatio: 0.2}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "PEPE", AllocationPct: 60}})
		assert.True(t, containsSubstring(insights, "concentration"))
	})

	t.Run("strong positive momentum is reported", func(t *testing.T) {
		summary := entity.PortfolioSummary{
			NetWorth: 1000, NetWorthChange: 80, NetWorthChangePct: 8.7, StableRatio: 0.2,
		}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "ETH", AllocationPct: 30}})
		assert.True(t, containsSubstring(insights, "Strong daily momentum"))
	})

	t.Run("sharp drawdown is reported", func(t *testing.T) {
		summary := entity.PortfolioSummary{
			NetWorth: 1000, NetWorthChange: -90, NetWorthChangePct: -8.3, StableRatio: 0.2,
		}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "ETH", AllocationPct: 30}})
		assert.True(t, containsSubstring(insights, "drawdown"))
	})

	t.Run("conservative gainer receives the reinforcement line", func(t *testing.T) {
		summary := entity.PortfolioSummary{
			NetWorth: 1000, NetWorthChange: 10, NetWorthChangePct: 1,
			StableRatio: 0.5, RiskLevel: entity.RiskConservative,
		}
		insights := engine.GenerateInsights(summary, []entity.Holding{{Symbol: "USDC", AllocationPct: 50}})
		assert.True(t, containsSubstring(insights, "staying defensive"))
	})
}

func TestGenerateInsightsDeterministicOrder(t *testing.T) {
	engine := AnalyticsEngine{}
	summary := entity.PortfolioSummary{
		NetWorth: 1000, NetWorthChange: 100, NetWorthChangePct: 11.1,
		StableRatio: 0.5, RiskLevel: entity.RiskConservative,
	}
	holdings := []entity.Holding{{Symbol: "USDC", AllocationPct: 50}}

	first := engine.GenerateInsights(summary, holdings)
	second := engine.GenerateInsights(summary, holdings)
	assert.Equal(t, first, second)

	// Stable-share rule fires before concentration, momentum, reinforcement.
	assert.Len(t, first, 4)
	assert.Contains(t, first[0], "cushion")
	assert.Contains(t, first[1], "concentration")
	assert.Contains(t, first[2], "momentum")
	assert.Contains(t, first[3], "defensive")
}

func containsSubstring(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
