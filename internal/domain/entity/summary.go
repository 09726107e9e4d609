package entity

// RiskLevel classifies a portfolio by its stable-asset share.
type RiskLevel string

const (
	RiskConservative RiskLevel = "Conservative"
	RiskModerate     RiskLevel = "Moderate"
	RiskAggressive   RiskLevel = "Aggressive"
)

// PortfolioSummary is derived from a Holding set, never stored as-is.
type PortfolioSummary struct {
	NetWorth          float64   `json:"netWorth"`
	NetWorth24hAgo    float64   `json:"netWorth24hAgo"`
	NetWorthChange    float64   `json:"netWorthChange"`
	NetWorthChangePct float64   `json:"netWorthChangePct"`
	StableRatio       float64   `json:"stableRatio"`
	RiskLevel         RiskLevel `json:"riskLevel"`
}

// PortfolioReport is the finished derived payload served at the HTTP
// boundary and held in the cache.
type PortfolioReport struct {
	Address  string           `json:"address"`
	Summary  PortfolioSummary `json:"summary"`
	Holdings []Holding        `json:"holdings"`
	Insights []string         `json:"insights"`
}
