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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxTokenMetadataLookups caps the per-chain metadata round-trips for
// ERC20 balances. Tokens past the cap fall back to chain-default decimals.
const maxTokenMetadataLookups = 25

// AlchemyClient adapts the Alchemy node API: JSON-RPC per chain, with
// dedicated methods for token balances and historical asset transfers.
// Node responses carry no USD quotes, so every asset it reports goes
// through the price oracle.
type AlchemyClient struct {
	apiKey        string
	baseURL       string
	client        *resty.Client
	chains        []entity.ChainDefinition
	maxConcurrent int
	logger        *zap.Logger
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenBalancesResult struct {
	Address       string `json:"address"`
	TokenBalances []struct {
		ContractAddress string `json:"contractAddress"`
		TokenBalance    string `json:"tokenBalance"`
	} `json:"tokenBalances"`
}

type tokenMetadataResult struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *int   `json:"decimals"`
}

type assetTransfer struct {
	UniqueID string `json:"uniqueId"`
	Hash     string `json:"hash"`
	BlockNum string `json:"blockNum"`
	From     string `json:"from"`
	To       string `json:"to"`
	Asset    string `json:"asset"`
	Metadata struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata"`
	RawContract struct {
		Value   string `json:"value"`
		Address string `json:"address"`
		Decimal string `json:"decimal"`
	} `json:"rawContract"`
}

type assetTransfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
	PageKey   string          `json:"pageKey"`
}

// NewAlchemyClient creates the adapter. The base URL is a template with
// one %s slot for the chain-specific subdomain prefix.
func NewAlchemyClient(cfg config.ProviderConfig, chains []entity.ChainDefinition, logger *zap.Logger) (*AlchemyClient, error) {
	apiKey, err := cfg.CredentialFor("alchemy", "ALCHEMY_API_KEY")
	if err != nil {
		return nil, err
	}
	maxConcurrent := cfg.MaxConcurrentChains
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	client := resty.New().
		SetTimeout(time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond).
		SetHeader("Content-Type", "application/json")
	return &AlchemyClient{
		apiKey:        apiKey,
		baseURL:       cfg.BaseURL,
		client:        client,
		chains:        chains,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("AlchemyClient"),
	}, nil
}

// Name implements port.ProviderAdapter.
func (c *AlchemyClient) Name() string { return "alchemy" }

// FetchBalances queries every supported chain concurrently and settles
// all outcomes before aggregating. Chains without an endpoint prefix are
// skipped, not failed.
func (c *AlchemyClient) FetchBalances(ctx context.Context, address string) ([]entity.RawBalance, error) {
	var (
		mu       sync.Mutex
		raws     []entity.RawBalance
		outcomes []chainOutcome
	)

	var g errgroup.Group
	g.SetLimit(c.maxConcurrent)

	for _, chainDef := range c.chains {
		if chainDef.AlchemyPrefix == "" {
			continue
		}
		def := chainDef
		g.Go(func() error {
			chainRaws, err := c.fetchChainBalances(ctx, def, address)

			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, chainOutcome{chain: string(def.Key), err: err})
			if err != nil {
				metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "error").Inc()
				c.logger.Warn("Balance fetch failed for chain",
					zap.String("chain", string(def.Key)), zap.String("address", address), zap.Error(err))
				return nil
			}
			metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "ok").Inc()
			raws = append(raws, chainRaws...)
			return nil
		})
	}
	_ = g.Wait()

	if err := aggregateOutcomes(c.Name(), outcomes); err != nil {
		return nil, err
	}
	return raws, nil
}

// FetchTransactions pages through asset transfers in both directions per
// chain. The pageKey cursor is bounded by the page ceiling and a
// repeated-cursor guard.
func (c *AlchemyClient) FetchTransactions(ctx context.Context, address string, lookback time.Duration) ([]entity.RawTransaction, error) {
	cutoff := time.Now().Add(-lookback)

	var (
		mu       sync.Mutex
		raws     []entity.RawTransaction
		outcomes []chainOutcome
	)

	var g errgroup.Group
	g.SetLimit(c.maxConcurrent)

	for _, chainDef := range c.chains {
		if chainDef.AlchemyPrefix == "" {
			continue
		}
		def := chainDef
		g.Go(func() error {
			chainRaws, err := c.fetchChainTransfers(ctx, def, address)

			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, chainOutcome{chain: string(def.Key), err: err})
			if err != nil {
				metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "error").Inc()
				c.logger.Warn("Transfer fetch failed for chain",
					zap.String("chain", string(def.Key)), zap.String("address", address), zap.Error(err))
				return nil
			}
			metrics.ProviderRequestsTotal.WithLabelValues(c.Name(), string(def.Key), "ok").Inc()
			for _, raw := range chainRaws {
				if !raw.Timestamp.IsZero() && raw.Timestamp.Before(cutoff) {
					continue
				}
				raws = append(raws, raw)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := aggregateOutcomes(c.Name(), outcomes); err != nil {
		return nil, err
	}
	return raws, nil
}

func (c *AlchemyClient) endpointFor(def entity.ChainDefinition) string {
	return fmt.Sprintf(c.baseURL, def.AlchemyPrefix) + "/" + c.apiKey
}

// call executes one JSON-RPC method and decodes the result field into out.
func (c *AlchemyClient) call(ctx context.Context, endpoint, method string, params []any, out any) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{Jsonrpc: "2.0", ID: 1, Method: method, Params: params}).
		Post(endpoint)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode())
	}

	var envelope struct {
		Result jsoniter.RawMessage `json:"result"`
		Error  *rpcError           `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%s rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
	}
	return nil
}

func (c *AlchemyClient) fetchChainBalances(ctx context.Context, def entity.ChainDefinition, address string) ([]entity.RawBalance, error) {
	endpoint := c.endpointFor(def)

	var nativeHex string
	if err := c.call(ctx, endpoint, "eth_getBalance", []any{address, "latest"}, &nativeHex); err != nil {
		return nil, err
	}

	var tokens tokenBalancesResult
	if err := c.call(ctx, endpoint, "alchemy_getTokenBalances", []any{address, "erc20"}, &tokens); err != nil {
		return nil, err
	}

	nativeDecimals := int(def.Decimals)
	raws := []entity.RawBalance{{
		Chain:      string(def.Key),
		Symbol:     def.NativeSymbol,
		Name:       def.Name,
		BalanceRaw: nativeHex,
		Decimals:   &nativeDecimals,
		IsNative:   true,
	}}

	lookups := 0
	for _, token := range tokens.TokenBalances {
		if isZeroHex(token.TokenBalance) {
			continue
		}
		raw := entity.RawBalance{
			Chain:        string(def.Key),
			TokenAddress: token.ContractAddress,
			BalanceRaw:   token.TokenBalance,
		}
		if lookups < maxTokenMetadataLookups {
			lookups++
			var meta tokenMetadataResult
			if err := c.call(ctx, endpoint, "alchemy_getTokenMetadata", []any{token.ContractAddress}, &meta); err != nil {
				c.logger.Debug("Token metadata lookup failed",
					zap.String("chain", string(def.Key)), zap.String("token", token.ContractAddress), zap.Error(err))
			} else {
				raw.Symbol = meta.Symbol
				raw.Name = meta.Name
				raw.Decimals = meta.Decimals
			}
		}
		raws = append(raws, raw)
	}
	return raws, nil
}

// fetchChainTransfers walks the transfer feed once per direction.
func (c *AlchemyClient) fetchChainTransfers(ctx context.Context, def entity.ChainDefinition, address string) ([]entity.RawTransaction, error) {
	endpoint := c.endpointFor(def)

	var all []entity.RawTransaction
	for _, direction := range []string{"fromAddress", "toAddress"} {
		transfers, err := c.pageTransfers(ctx, endpoint, direction, address)
		if err != nil {
			if len(all) > 0 {
				c.logger.Warn("Transfer pagination aborted mid-stream, returning collected pages",
					zap.String("chain", string(def.Key)), zap.Error(err))
				break
			}
			return nil, err
		}
		for _, t := range transfers {
			all = append(all, transferToRaw(t, def))
		}
	}
	return all, nil
}

func (c *AlchemyClient) pageTransfers(ctx context.Context, endpoint, directionParam, address string) ([]assetTransfer, error) {
	var collected []assetTransfer
	pageKey := ""

	for page := 0; page < maxPagesPerChain; page++ {
		params := map[string]any{
			"fromBlock":    "0x0",
			"toBlock":      "latest",
			directionParam: address,
			"category":     []string{"external", "erc20"},
			"withMetadata": true,
			"maxCount":     "0x3e8",
		}
		if pageKey != "" {
			params["pageKey"] = pageKey
		}

		var result assetTransfersResult
		if err := c.call(ctx, endpoint, "alchemy_getAssetTransfers", []any{params}, &result); err != nil {
			return nil, err
		}
		collected = append(collected, result.Transfers...)

		// A cursor identical to the one just consumed would loop forever.
		if result.PageKey == "" || result.PageKey == pageKey {
			break
		}
		pageKey = result.PageKey
	}
	return collected, nil
}

func transferToRaw(t assetTransfer, def entity.ChainDefinition) entity.RawTransaction {
	timestamp, _ := time.Parse(time.RFC3339, t.Metadata.BlockTimestamp)

	var blockHeight uint64
	if t.BlockNum != "" {
		if parsed, err := hexutil.DecodeUint64(t.BlockNum); err == nil {
			blockHeight = parsed
		}
	}

	raw := entity.RawTransaction{
		Chain:       string(def.Key),
		Hash:        t.Hash,
		AltHash:     t.UniqueID,
		BlockHeight: blockHeight,
		Timestamp:   timestamp,
		From:        t.From,
		To:          t.To,
		Symbol:      t.Asset,
	}

	if t.RawContract.Value != "" {
		transfer := entity.RawTokenTransfer{
			From:      t.From,
			To:        t.To,
			Symbol:    t.Asset,
			AmountRaw: t.RawContract.Value,
		}
		if t.RawContract.Decimal != "" {
			if parsed, err := hexutil.DecodeUint64(t.RawContract.Decimal); err == nil {
				decimals := int(parsed)
				transfer.Decimals = &decimals
			}
		}
		raw.Transfers = []entity.RawTokenTransfer{transfer}
	}
	return raw
}

// isZeroHex reports whether a hex quantity is absent or all zeroes.
func isZeroHex(v string) bool {
	trimmed := strings.TrimPrefix(v, "0x")
	if trimmed == "" {
		return true
	}
	return strings.Trim(trimmed, "0") == ""
}
