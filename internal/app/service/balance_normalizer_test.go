package service

import (
	"context"
	"testing"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// stubOracle serves fixed prices keyed by chain:contract, with an empty
// contract meaning the native asset.
type stubOracle struct {
	prices map[string]float64
	primed []port.PriceRequest
}

func (o *stubOracle) Prime(_ context.Context, requests []port.PriceRequest) {
	o.primed = append(o.primed, requests...)
}

func (o *stubOracle) PriceFor(chain entity.ChainKey, contract string) (float64, bool) {
	price, ok := o.prices[string(chain)+":"+contract]
	return price, ok
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestNormalizeRawBalanceDividesByDecimals(t *testing.T) {
	n := NewBalanceNormalizer(&stubOracle{}, nopLogger{})

	h := n.Normalize(entity.RawBalance{
		Chain:      "eth-mainnet",
		Symbol:     "ETH",
		BalanceRaw: "1500000000000000000",
		Decimals:   intPtr(18),
		QuoteUSD:   floatPtr(4500),
		IsNative:   true,
	}, "")

	require.NotNil(t, h)
	assert.Equal(t, entity.ChainKey("ethereum"), h.Chain)
	assert.InDelta(t, 1.5, h.Amount, 1e-12)
	assert.Equal(t, 4500.0, h.ValueUSD)
	assert.True(t, h.IsVerified)
}

func TestNormalizeAmountPrecedence(t *testing.T) {
	n := NewBalanceNormalizer(&stubOracle{}, nopLogger{})

	// Formatted string wins over both decimal and raw representations.
	h := n.Normalize(entity.RawBalance{
		Chain:            "ethereum",
		Symbol:           "USDC",
		BalanceFormatted: "12.5",
		BalanceDecimal:   floatPtr(99),
		BalanceRaw:       "7000000",
		Decimals:         intPtr(6),
		QuoteUSD:         floatPtr(12.5),
	}, "")
	require.NotNil(t, h)
	assert.Equal(t, 12.5, h.Amount)

	// Pre-divided decimal wins over raw.
	h = n.Normalize(entity.RawBalance{
		Chain:          "ethereum",
		Symbol:         "USDC",
		BalanceDecimal: floatPtr(42),
		BalanceRaw:     "7000000",
		Decimals:       intPtr(6),
		QuoteUSD:       floatPtr(42),
	}, "")
	require.NotNil(t, h)
	assert.Equal(t, 42.0, h.Amount)
}

func TestNormalizeUsdPrecedence(t *testing.T) {
	oracle := &stubOracle{prices: map[string]float64{
		"ethereum:0xtoken": 2.0,
	}}
	n := NewBalanceNormalizer(oracle, nopLogger{})

	// Direct quote wins even when an oracle price exists.
	h := n.Normalize(entity.RawBalance{
		Chain:          "ethereum",
		TokenAddress:   "0xTOKEN",
		Symbol:         "TKN",
		BalanceDecimal: floatPtr(10),
		QuoteUSD:       floatPtr(500),
	}, "")
	require.NotNil(t, h)
	assert.Equal(t, 500.0, h.ValueUSD)

	// Without a quote the oracle price times amount applies.
	h = n.Normalize(entity.RawBalance{
		Chain:          "ethereum",
		TokenAddress:   "0xTOKEN",
		Symbol:         "TKN",
		BalanceDecimal: floatPtr(10),
	}, "")
	require.NotNil(t, h)
	assert.Equal(t, 20.0, h.ValueUSD)

	// No quote and no oracle price leaves the value at zero.
	h = n.Normalize(entity.RawBalance{
		Chain:          "ethereum",
		TokenAddress:   "0xother",
		Symbol:         "UNK",
		BalanceDecimal: floatPtr(10),
	}, "")
	require.NotNil(t, h)
	assert.Equal(t, 0.0, h.ValueUSD)
}

func TestNormalizeFilters(t *testing.T) {
	n := NewBalanceNormalizer(&stubOracle{}, nopLogger{})

	t.Run("spam flag suppresses the record", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:          "ethereum",
			Symbol:         "FREE",
			BalanceDecimal: floatPtr(1000),
			QuoteUSD:       floatPtr(5),
			IsSpam:         true,
		}, "")
		assert.Nil(t, h)
	})

	t.Run("dust with zero amount and zero value is dropped", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:  "ethereum",
			Symbol: "ZERO",
		}, "")
		assert.Nil(t, h)
	})

	t.Run("unverified token above the value ceiling is dropped", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:          "ethereum",
			TokenAddress:   "0xscam",
			Symbol:         "SCAM",
			BalanceDecimal: floatPtr(1),
			QuoteUSD:       floatPtr(50000),
			Verified:       boolPtr(false),
		}, "")
		assert.Nil(t, h)
	})

	t.Run("unverified token above the unit price ceiling is dropped", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:          "ethereum",
			TokenAddress:   "0xscam",
			Symbol:         "SCAM",
			BalanceDecimal: floatPtr(0.5),
			QuoteRate:      floatPtr(9000),
			QuoteUSD:       floatPtr(4500),
			Verified:       boolPtr(false),
		}, "")
		assert.Nil(t, h)
	})

	t.Run("unverified token below both ceilings survives", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:          "ethereum",
			TokenAddress:   "0xsmall",
			Symbol:         "SMALL",
			BalanceDecimal: floatPtr(100),
			QuoteUSD:       floatPtr(250),
			Verified:       boolPtr(false),
		}, "")
		require.NotNil(t, h)
		assert.False(t, h.IsVerified)
	})

	t.Run("native assets bypass the verification ceiling", func(t *testing.T) {
		h := n.Normalize(entity.RawBalance{
			Chain:          "ethereum",
			Symbol:         "ETH",
			BalanceDecimal: floatPtr(100),
			QuoteUSD:       floatPtr(450000),
			IsNative:       true,
			Verified:       boolPtr(false),
		}, "")
		assert.NotNil(t, h)
	})
}

func TestNormalizeDecimalsOutOfRangeFallsBackToChainDefault(t *testing.T) {
	n := NewBalanceNormalizer(&stubOracle{}, nopLogger{})

	// 300 does not fit a uint8; the chain default (18) must apply instead
	// of a wrapped conversion.
	h := n.Normalize(entity.RawBalance{
		Chain:      "ethereum",
		Symbol:     "ETH",
		BalanceRaw: "1500000000000000000",
		Decimals:   intPtr(300),
		QuoteUSD:   floatPtr(4500),
		IsNative:   true,
	}, "")

	require.NotNil(t, h)
	assert.Equal(t, uint8(18), h.Decimals)
	assert.InDelta(t, 1.5, h.Amount, 1e-12)
}

func TestResolvePriorValue(t *testing.T) {
	t.Run("absolute prior quote wins over delta", func(t *testing.T) {
		prior := resolvePriorValue(entity.RawBalance{
			Quote24hUSD:      floatPtr(90),
			QuoteDelta24hUSD: floatPtr(5),
		}, 100)
		require.NotNil(t, prior)
		assert.Equal(t, 90.0, *prior)
	})

	t.Run("delta backs out the prior value", func(t *testing.T) {
		prior := resolvePriorValue(entity.RawBalance{
			QuoteDelta24hUSD: floatPtr(20),
		}, 100)
		require.NotNil(t, prior)
		assert.Equal(t, 80.0, *prior)
	})

	t.Run("negative back-out means unknown", func(t *testing.T) {
		prior := resolvePriorValue(entity.RawBalance{
			QuoteDelta24hUSD: floatPtr(150),
		}, 100)
		assert.Nil(t, prior)
	})

	t.Run("no prior data means unknown", func(t *testing.T) {
		assert.Nil(t, resolvePriorValue(entity.RawBalance{}, 100))
	})
}

func TestNormalizeAllSortsAndAllocates(t *testing.T) {
	n := NewBalanceNormalizer(&stubOracle{}, nopLogger{})

	holdings := n.NormalizeAll([]entity.RawBalance{
		{Chain: "ethereum", Symbol: "USDC", BalanceDecimal: floatPtr(4000), QuoteUSD: floatPtr(4000)},
		{Chain: "ethereum", Symbol: "ETH", BalanceDecimal: floatPtr(2), QuoteUSD: floatPtr(6000), IsNative: true},
	}, "")

	require.Len(t, holdings, 2)
	assert.Equal(t, "ETH", holdings[0].Symbol)
	assert.InDelta(t, 60.0, holdings[0].AllocationPct, 1e-9)
	assert.InDelta(t, 40.0, holdings[1].AllocationPct, 1e-9)
}

func TestAllocationPercentagesSumToHundred(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("allocations sum to 100 for any non-dust value set", prop.ForAll(
		func(values []float64) bool {
			holdings := make([]entity.Holding, len(values))
			for i, v := range values {
				holdings[i] = entity.Holding{Symbol: "X", ValueUSD: v}
			}
			holdings = FinalizeHoldings(holdings)

			var total, pct float64
			for _, h := range holdings {
				total += h.ValueUSD
				pct += h.AllocationPct
			}
			if total <= valueEpsilon {
				return pct == 0
			}
			return pct > 99.999 && pct < 100.001
		},
		gen.SliceOfN(5, gen.Float64Range(0.01, 1e9)),
	))

	properties.Property("output is sorted descending by USD value", prop.ForAll(
		func(values []float64) bool {
			holdings := make([]entity.Holding, len(values))
			for i, v := range values {
				holdings[i] = entity.Holding{Symbol: "X", ValueUSD: v}
			}
			holdings = FinalizeHoldings(holdings)
			for i := 1; i < len(holdings); i++ {
				if holdings[i-1].ValueUSD < holdings[i].ValueUSD {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Float64Range(0, 1e6)),
	))

	properties.TestingRun(t)
}
