package restapi

import (
	"errors"
	"net/http"
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/app/service"
	"chainfolio/internal/config"
	"chainfolio/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

const defaultLookback = 30 * 24 * time.Hour

// maxLookbackDays caps the days query parameter at ten years so an
// arbitrarily long digit string cannot overflow the duration math.
const maxLookbackDays = 3650

// APIPortfolioResponse is the response shape of the portfolio endpoint.
type APIPortfolioResponse struct {
	Data struct {
		Portfolio *entity.PortfolioReport `json:"portfolio"`
	} `json:"data"`
	StatusMessage string `json:"status_message"`
}

// APITransactionsResponse is the response shape of the transactions endpoint.
type APITransactionsResponse struct {
	Data struct {
		Transactions []entity.Transaction `json:"transactions"`
	} `json:"data"`
	StatusMessage string `json:"status_message"`
}

// APIErrorResponse carries a failure message for 4xx/5xx responses.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// PortfolioHandler serves the read endpoints.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	logger           port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(ps port.PortfolioService, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: ps,
		logger:           logger,
	}
}

// GetPortfolioHandler handles GET /api/v1/portfolio?address=<input>.
//
// Error classes map to distinct statuses: bad input is 400, missing
// provider configuration is 503, and a total upstream failure degrades to
// a well-formed empty report with 200 so clients never have to parse a
// different shape.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	ctx := c.Request.Context()

	input := c.Query("address")
	if input == "" {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "address query parameter is required"})
		return
	}

	report, err := h.portfolioService.AnalyzePortfolio(ctx, input)
	if err != nil {
		var upstreamErr *entity.UpstreamError
		if errors.As(err, &upstreamErr) {
			// Degrade to an empty but valid payload.
			h.logger.Warn("All providers failed, serving empty portfolio", "input", input, "error", err)
			response := APIPortfolioResponse{StatusMessage: "Upstream data sources are unavailable; returning an empty result."}
			response.Data.Portfolio = emptyReport(input)
			c.JSON(http.StatusOK, response)
			return
		}
		h.respondError(c, input, err)
		return
	}

	response := APIPortfolioResponse{StatusMessage: "Portfolio analyzed successfully."}
	response.Data.Portfolio = report
	if len(report.Holdings) == 0 {
		response.StatusMessage = "No balance data found for this address."
	}
	c.JSON(http.StatusOK, response)
}

// GetTransactionsHandler handles GET /api/v1/transactions?address=<input>&days=<n>.
func (h *PortfolioHandler) GetTransactionsHandler(c *gin.Context) {
	ctx := c.Request.Context()

	input := c.Query("address")
	if input == "" {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "address query parameter is required"})
		return
	}

	lookback := defaultLookback
	if days := c.Query("days"); days != "" {
		parsed, ok := parseDays(days)
		if !ok {
			c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "days must be a positive integer"})
			return
		}
		lookback = parsed
	}

	txs, err := h.portfolioService.TransactionHistory(ctx, input, lookback)
	if err != nil {
		var upstreamErr *entity.UpstreamError
		if errors.As(err, &upstreamErr) {
			h.logger.Warn("All providers failed, serving empty transaction list", "input", input, "error", err)
			response := APITransactionsResponse{StatusMessage: "Upstream data sources are unavailable; returning an empty result."}
			response.Data.Transactions = []entity.Transaction{}
			c.JSON(http.StatusOK, response)
			return
		}
		h.respondError(c, input, err)
		return
	}

	response := APITransactionsResponse{StatusMessage: "Transactions retrieved successfully."}
	response.Data.Transactions = txs
	if txs == nil {
		response.Data.Transactions = []entity.Transaction{}
	}
	if len(response.Data.Transactions) == 0 {
		response.StatusMessage = "No transactions found in the requested window."
	}
	c.JSON(http.StatusOK, response)
}

// respondError maps the service error taxonomy onto HTTP statuses.
func (h *PortfolioHandler) respondError(c *gin.Context, input string, err error) {
	var resolutionErr *entity.ResolutionError
	if errors.As(err, &resolutionErr) {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: resolutionErr.Error()})
		return
	}

	var credentialErr *config.MissingCredentialError
	if errors.As(err, &credentialErr) || errors.Is(err, service.ErrNoProvidersConfigured) {
		c.JSON(http.StatusServiceUnavailable, APIErrorResponse{Error: err.Error()})
		return
	}

	h.logger.Error("Unclassified request failure", "input", input, "error", err)
	c.JSON(http.StatusInternalServerError, APIErrorResponse{Error: "internal error"})
}

func emptyReport(address string) *entity.PortfolioReport {
	return &entity.PortfolioReport{
		Address:  address,
		Summary:  entity.PortfolioSummary{RiskLevel: entity.RiskModerate},
		Holdings: []entity.Holding{},
		Insights: []string{"No balance detected for this address."},
	}
}

func parseDays(v string) (time.Duration, bool) {
	var days int
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		days = days*10 + int(r-'0')
		if days > maxLookbackDays {
			return 0, false
		}
	}
	if days <= 0 {
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}
