package providerclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"chainfolio/internal/config"
	"chainfolio/internal/domain/entity"
	"chainfolio/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxPagesPerChain bounds cursor-based pagination per chain. A deliberate
// backpressure bound: it guarantees termination even against a provider
// that keeps handing out cursors.
const maxPagesPerChain = 25

// CovalentClient adapts the Covalent-style aggregation API: one REST call
// per chain for balances, cursor-paginated transaction pages per chain.
type CovalentClient struct {
	apiKey        string
	baseURL       string
	client        *fasthttp.Client
	timeout       time.Duration
	chains        []entity.ChainDefinition
	maxConcurrent int
	logger        *zap.Logger
}

// NewCovalentClient creates the adapter. A missing API key is a typed
// configuration error, never silently tolerated.
func NewCovalentClient(cfg config.ProviderConfig, chains []entity.ChainDefinition, logger *zap.Logger) (*CovalentClient, error) {
	apiKey, err := cfg.CredentialFor("covalent", "COVALENT_API_KEY")
	if err != nil {
		return nil, err
	}
	maxConcurrent := cfg.MaxConcurrentChains
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &CovalentClient{
		apiKey:        apiKey,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		client:        &fasthttp.Client{},
		timeout:       time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond,
		chains:        chains,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("CovalentClient"),
	}, nil
}

// Name implements port.ProviderAdapter.
func (c *CovalentClient) Name() string { return "covalent" }

// covalentBalanceItem mirrors one entry of the balances_v2 response.
// Every field is optional upstream.
type covalentBalanceItem struct {
	ContractDecimals     *int     `json:"contract_decimals"`
	ContractTickerSymbol string   `json:"contract_ticker_symbol"`
	ContractName         string   `json:"contract_name"`
	ContractAddress      string   `json:"contract_address"`
	NativeToken          bool     `json:"native_token"`
	IsSpam               bool     `json:"is_spam"`
	VerifiedContract     *bool    `json:"verified_contract"`
	Balance              string   `json:"balance"`
	PrettyBalance        string   `json:"pretty_balance"`
	Quote                *float64 `json:"quote"`
	Quote24h             *float64 `json:"quote_24h"`
	QuoteRate            *float64 `json:"quote_rate"`
}

type covalentBalanceResponse struct {
	Data struct {
		Items []covalentBalanceItem `json:"items"`
	} `json:"data"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

type covalentLogParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type covalentLogEvent struct {
	SenderAddress          string `json:"sender_address"`
	SenderContractDecimals *int   `json:"sender_contract_decimals"`
	SenderContractTicker   string `json:"sender_contract_ticker_symbol"`
	Decoded                *struct {
		Name   string             `json:"name"`
		Params []covalentLogParam `json:"params"`
	} `json:"decoded"`
}

type covalentTxItem struct {
	TxHash           string             `json:"tx_hash"`
	BlockSignedAt    string             `json:"block_signed_at"`
	BlockHash        string             `json:"block_hash"`
	BlockHeight      uint64             `json:"block_height"`
	FromAddress      string             `json:"from_address"`
	FromAddressLabel string             `json:"from_address_label"`
	ToAddress        string             `json:"to_address"`
	ToAddressLabel   string             `json:"to_address_label"`
	Value            string             `json:"value"`
	ValueQuote       *float64           `json:"value_quote"`
	GasQuote         *float64           `json:"gas_quote"`
	LogEvents        []covalentLogEvent `json:"log_events"`
}

type covalentTxResponse struct {
	Data struct {
		Items []covalentTxItem `json:"items"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
	Error        bool   `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// chainOutcome is one chain's settled fan-out result.
type chainOutcome struct {
	chain string
	err   error
}

// FetchBalances fans out one balances request per configured chain and
// waits for every outcome. Partial failures are logged; only when all
// chains fail does a single aggregated error (the first failure) surface.
func (c *CovalentClient) FetchBalances(ctx context.Context, address string) ([]entity.RawBalance, error) {
	var (
		mu       sync.Mutex
		raws     []entity.RawBalance
		outcomes []chainOutcome
	)

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxConcurrent)

	for _, chainDef := range c.chains {
		sem <- struct{}{}
		wg.Add(1)
		go func(def entity.ChainDefinition) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := c.fetchChainBalances(ctx, def, address)

			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, chainOutcome{chain: string(def.Key), err: err})
			if err != nil {
				metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "error").Inc()
				c.logger.Warn("Balance fetch failed for chain",
					zap.String("chain", string(def.Key)), zap.String("address", address), zap.Error(err))
				return
			}
			metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "ok").Inc()
			for _, item := range items {
				raws = append(raws, balanceItemToRaw(item, def))
			}
		}(chainDef)
	}
	wg.Wait()

	if err := aggregateOutcomes(c.Name(), outcomes); err != nil {
		return nil, err
	}
	return raws, nil
}

// FetchTransactions paginates each chain's transaction feed with a cursor,
// stopping on an empty cursor, a repeated cursor, or the page ceiling, and
// discards records older than the lookback window client-side.
func (c *CovalentClient) FetchTransactions(ctx context.Context, address string, lookback time.Duration) ([]entity.RawTransaction, error) {
	cutoff := time.Now().Add(-lookback)

	var (
		mu       sync.Mutex
		raws     []entity.RawTransaction
		outcomes []chainOutcome
	)

	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxConcurrent)

	for _, chainDef := range c.chains {
		sem <- struct{}{}
		wg.Add(1)
		go func(def entity.ChainDefinition) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := c.fetchChainTransactions(ctx, def, address)

			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, chainOutcome{chain: string(def.Key), err: err})
			if err != nil {
				metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "error").Inc()
				c.logger.Warn("Transaction fetch failed for chain",
					zap.String("chain", string(def.Key)), zap.String("address", address), zap.Error(err))
				return
			}
			metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "ok").Inc()
			for _, item := range items {
				raw := txItemToRaw(item, def)
				if !raw.Timestamp.IsZero() && raw.Timestamp.Before(cutoff) {
					continue
				}
				raws = append(raws, raw)
			}
		}(chainDef)
	}
	wg.Wait()

	if err := aggregateOutcomes(c.Name(), outcomes); err != nil {
		return nil, err
	}
	return raws, nil
}

func (c *CovalentClient) fetchChainBalances(ctx context.Context, def entity.ChainDefinition, address string) ([]covalentBalanceItem, error) {
	requestURL := fmt.Sprintf("%s/v1/%s/address/%s/balances_v2/?key=%s",
		c.baseURL, def.CovalentName, address, c.apiKey)

	var parsed covalentBalanceResponse
	if err := c.doJSON(ctx, requestURL, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error {
		return nil, fmt.Errorf("upstream error: %s", parsed.ErrorMessage)
	}
	return parsed.Data.Items, nil
}

func (c *CovalentClient) fetchChainTransactions(ctx context.Context, def entity.ChainDefinition, address string) ([]covalentTxItem, error) {
	requestURL := fmt.Sprintf("%s/v1/%s/address/%s/transactions_v3/?key=%s",
		c.baseURL, def.CovalentName, address, c.apiKey)

	var items []covalentTxItem
	seenCursor := ""

	for page := 0; page < maxPagesPerChain; page++ {
		var parsed covalentTxResponse
		if err := c.doJSON(ctx, requestURL, &parsed); err != nil {
			if len(items) > 0 {
				// Keep the pages collected so far.
				c.logger.Warn("Pagination aborted mid-stream, returning collected pages",
					zap.String("chain", string(def.Key)), zap.Int("pages", page), zap.Error(err))
				return items, nil
			}
			return nil, err
		}
		if parsed.Error {
			return nil, fmt.Errorf("upstream error: %s", parsed.ErrorMessage)
		}
		items = append(items, parsed.Data.Items...)

		next := parsed.Links.Next
		if next == "" || next == seenCursor || next == requestURL {
			break
		}
		seenCursor = requestURL
		requestURL = next
	}

	return items, nil
}

// doJSON executes one GET against the upstream and decodes the body.
// The URL carries the credential, so it never appears in errors or logs.
func (c *CovalentClient) doJSON(ctx context.Context, requestURL string, out any) error {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentTypeBytes([]byte("application/json"))

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func balanceItemToRaw(item covalentBalanceItem, def entity.ChainDefinition) entity.RawBalance {
	return entity.RawBalance{
		Chain:            string(def.Key),
		TokenAddress:     tokenAddressOrEmpty(item.ContractAddress, item.NativeToken),
		Symbol:           item.ContractTickerSymbol,
		Name:             item.ContractName,
		BalanceFormatted: item.PrettyBalance,
		BalanceRaw:       item.Balance,
		Decimals:         item.ContractDecimals,
		QuoteUSD:         item.Quote,
		Quote24hUSD:      item.Quote24h,
		QuoteRate:        item.QuoteRate,
		IsNative:         item.NativeToken,
		IsSpam:           item.IsSpam,
		Verified:         item.VerifiedContract,
	}
}

func txItemToRaw(item covalentTxItem, def entity.ChainDefinition) entity.RawTransaction {
	timestamp, _ := time.Parse(time.RFC3339, item.BlockSignedAt)

	decimals := int(def.Decimals)
	raw := entity.RawTransaction{
		Chain:       string(def.Key),
		Hash:        item.TxHash,
		BlockHash:   item.BlockHash,
		BlockHeight: item.BlockHeight,
		Timestamp:   timestamp,
		From:        item.FromAddress,
		To:          item.ToAddress,
		Symbol:      def.NativeSymbol,
		ValueRaw:    item.Value,
		Decimals:    &decimals,
		ValueUSD:    item.ValueQuote,
		GasFeeUSD:   item.GasQuote,
	}
	if item.FromAddressLabel != "" {
		raw.FromParty = &entity.RawParty{Address: item.FromAddress, Label: item.FromAddressLabel}
	}
	if item.ToAddressLabel != "" {
		raw.ToParty = &entity.RawParty{Address: item.ToAddress, Label: item.ToAddressLabel}
	}
	raw.Transfers = decodeTokenTransfers(item.LogEvents)
	return raw
}

// decodeTokenTransfers extracts ERC20 Transfer events from the decoded
// log entries.
func decodeTokenTransfers(events []covalentLogEvent) []entity.RawTokenTransfer {
	var transfers []entity.RawTokenTransfer
	for _, event := range events {
		if event.Decoded == nil || event.Decoded.Name != "Transfer" {
			continue
		}
		transfer := entity.RawTokenTransfer{
			Symbol:   event.SenderContractTicker,
			Decimals: event.SenderContractDecimals,
		}
		for _, param := range event.Decoded.Params {
			switch param.Name {
			case "from":
				transfer.From = param.Value
			case "to":
				transfer.To = param.Value
			case "value":
				transfer.AmountRaw = param.Value
			}
		}
		transfers = append(transfers, transfer)
	}
	return transfers
}

func tokenAddressOrEmpty(address string, native bool) string {
	if native {
		return ""
	}
	return address
}

// aggregateOutcomes returns nil when at least one chain succeeded,
// otherwise a single UpstreamError wrapping the first failure.
func aggregateOutcomes(provider string, outcomes []chainOutcome) error {
	var firstErr *chainOutcome
	for i := range outcomes {
		if outcomes[i].err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = &outcomes[i]
		}
	}
	if firstErr == nil {
		return nil
	}
	return &entity.UpstreamError{Provider: provider, Chain: firstErr.chain, Err: firstErr.err}
}
