package providerclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"chainfolio/internal/config"
	"chainfolio/internal/domain/entity"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func covalentTestConfig(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Enabled:              true,
		BaseURL:              baseURL,
		RequestTimeoutMillis: 2000,
		MaxConcurrentChains:  2,
		APIKey:               "test-key",
	}
}

func newCovalentTestClient(t *testing.T, handler http.HandlerFunc, chains ...entity.ChainDefinition) *CovalentClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewCovalentClient(covalentTestConfig(server.URL), chains, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewCovalentClientRequiresAPIKey(t *testing.T) {
	cfg := covalentTestConfig("http://localhost")
	cfg.APIKey = ""

	_, err := NewCovalentClient(cfg, nil, zap.NewNop())
	var credErr *config.MissingCredentialError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "COVALENT_API_KEY", credErr.EnvVar)
}

func TestCovalentFetchBalancesMapsItems(t *testing.T) {
	client := newCovalentTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Contains(t, req.URL.Path, "/v1/eth-mainnet/address/0xabc/balances_v2/")
		assert.Equal(t, "test-key", req.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"items":[
			{"contract_decimals":18,"contract_ticker_symbol":"ETH","native_token":true,
			 "balance":"1500000000000000000","quote":4500.0,"quote_24h":4400.0,"quote_rate":3000.0},
			{"contract_decimals":6,"contract_ticker_symbol":"USDC","contract_name":"USD Coin",
			 "contract_address":"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			 "balance":"2500000","quote":2.5,"is_spam":false,"verified_contract":true}
		]},"error":false}`)
	}, networkdefinition.Ethereum)

	raws, err := client.FetchBalances(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, raws, 2)

	native := raws[0]
	assert.Equal(t, "ethereum", native.Chain)
	assert.True(t, native.IsNative)
	assert.Empty(t, native.TokenAddress)
	assert.Equal(t, "1500000000000000000", native.BalanceRaw)
	require.NotNil(t, native.QuoteUSD)
	assert.Equal(t, 4500.0, *native.QuoteUSD)
	require.NotNil(t, native.Quote24hUSD)
	assert.Equal(t, 4400.0, *native.Quote24hUSD)

	token := raws[1]
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", token.TokenAddress)
	require.NotNil(t, token.Decimals)
	assert.Equal(t, 6, *token.Decimals)
	require.NotNil(t, token.Verified)
	assert.True(t, *token.Verified)
}

func TestCovalentFetchBalancesAllChainsFail(t *testing.T) {
	client := newCovalentTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, networkdefinition.Ethereum, networkdefinition.Polygon)

	_, err := client.FetchBalances(context.Background(), "0xabc")
	var upstream *entity.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "covalent", upstream.Provider)
}

func TestCovalentFetchBalancesPartialChainFailure(t *testing.T) {
	client := newCovalentTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.URL.Path, "matic-mainnet") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"items":[
			{"contract_ticker_symbol":"ETH","native_token":true,"balance":"1000000000000000000","quote":3000.0}
		]},"error":false}`)
	}, networkdefinition.Ethereum, networkdefinition.Polygon)

	raws, err := client.FetchBalances(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Len(t, raws, 1)
}

func TestCovalentFetchTransactionsFollowsCursor(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		now := time.Now().UTC().Format(time.RFC3339)
		if req.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, `{"data":{"items":[
				{"tx_hash":"0xsecond","block_signed_at":"%s","block_height":2,"from_address":"0xme","to_address":"0xyou"}
			]},"links":{"next":""},"error":false}`, now)
			return
		}
		fmt.Fprintf(w, `{"data":{"items":[
			{"tx_hash":"0xfirst","block_signed_at":"%s","block_height":1,"from_address":"0xme","to_address":"0xyou"}
		]},"links":{"next":"%s/v1/eth-mainnet/address/0xabc/transactions_v3/?key=test-key&page=2"},"error":false}`,
			now, server.URL)
	}))
	t.Cleanup(server.Close)

	client, err := NewCovalentClient(covalentTestConfig(server.URL), []entity.ChainDefinition{networkdefinition.Ethereum}, zap.NewNop())
	require.NoError(t, err)

	raws, err := client.FetchTransactions(context.Background(), "0xabc", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "0xfirst", raws[0].Hash)
	assert.Equal(t, "0xsecond", raws[1].Hash)
}

func TestCovalentPaginationStopsAtCeiling(t *testing.T) {
	var requests atomic.Int64
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		now := time.Now().UTC().Format(time.RFC3339)
		// Always hand out a fresh cursor; only the ceiling stops the walk.
		fmt.Fprintf(w, `{"data":{"items":[
			{"tx_hash":"0xpage%d","block_signed_at":"%s","from_address":"0xme","to_address":"0xyou"}
		]},"links":{"next":"%s/cursor/%d?key=test-key"},"error":false}`, n, now, server.URL, n)
	}))
	t.Cleanup(server.Close)

	client, err := NewCovalentClient(covalentTestConfig(server.URL), []entity.ChainDefinition{networkdefinition.Ethereum}, zap.NewNop())
	require.NoError(t, err)

	raws, err := client.FetchTransactions(context.Background(), "0xabc", 24*time.Hour)
	require.NoError(t, err)
	assert.Len(t, raws, maxPagesPerChain)
	assert.Equal(t, int64(maxPagesPerChain), requests.Load())
}

func TestCovalentPaginationStopsOnRepeatedCursor(t *testing.T) {
	var requests atomic.Int64
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		now := time.Now().UTC().Format(time.RFC3339)
		// A cursor pointing at the requested URL itself must not loop.
		fmt.Fprintf(w, `{"data":{"items":[
			{"tx_hash":"0xsame","block_signed_at":"%s","from_address":"0xme","to_address":"0xyou"}
		]},"links":{"next":"%s/stuck?key=test-key"},"error":false}`, now, server.URL)
	}))
	t.Cleanup(server.Close)

	client, err := NewCovalentClient(covalentTestConfig(server.URL), []entity.ChainDefinition{networkdefinition.Ethereum}, zap.NewNop())
	require.NoError(t, err)

	_, err = client.FetchTransactions(context.Background(), "0xabc", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), requests.Load())
}

func TestCovalentLookbackFilterDropsOldRecords(t *testing.T) {
	recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	ancient := time.Now().UTC().Add(-90 * 24 * time.Hour).Format(time.RFC3339)

	client := newCovalentTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"items":[
			{"tx_hash":"0xrecent","block_signed_at":"%s","from_address":"0xme","to_address":"0xyou"},
			{"tx_hash":"0xancient","block_signed_at":"%s","from_address":"0xme","to_address":"0xyou"}
		]},"links":{"next":""},"error":false}`, recent, ancient)
	}, networkdefinition.Ethereum)

	raws, err := client.FetchTransactions(context.Background(), "0xabc", 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "0xrecent", raws[0].Hash)
}

func TestCovalentDecodesTokenTransfers(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC3339)
	client := newCovalentTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"items":[
			{"tx_hash":"0xtx","block_signed_at":"%s","from_address":"0xme","to_address":"0xrouter",
			 "log_events":[
				{"sender_contract_decimals":6,"sender_contract_ticker_symbol":"USDC",
				 "decoded":{"name":"Transfer","params":[
					{"name":"from","value":"0xme"},{"name":"to","value":"0xyou"},{"name":"value","value":"2500000"}
				 ]}},
				{"decoded":{"name":"Approval","params":[]}}
			 ]}
		]},"links":{"next":""},"error":false}`, now)
	}, networkdefinition.Ethereum)

	raws, err := client.FetchTransactions(context.Background(), "0xabc", 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	require.Len(t, raws[0].Transfers, 1)

	transfer := raws[0].Transfers[0]
	assert.Equal(t, "USDC", transfer.Symbol)
	assert.Equal(t, "0xme", transfer.From)
	assert.Equal(t, "0xyou", transfer.To)
	assert.Equal(t, "2500000", transfer.AmountRaw)
	require.NotNil(t, transfer.Decimals)
	assert.Equal(t, 6, *transfer.Decimals)
}
