package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// AddressResolver canonicalizes raw hex addresses locally and resolves
// ".eth" names through an ENS gateway.
type AddressResolver struct {
	client *resty.Client
	logger *zap.Logger
}

// ensResolveResponse is the gateway's resolution payload.
type ensResolveResponse struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// NewAddressResolver creates a resolver backed by the given ENS gateway
// base URL.
func NewAddressResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *AddressResolver {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout)
	return &AddressResolver{
		client: client,
		logger: logger.Named("AddressResolver"),
	}
}

// Resolve implements port.AddressResolver. Hex input is validated and
// checksummed locally; names ending in ".eth" go through the gateway.
func (r *AddressResolver) Resolve(ctx context.Context, input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", &entity.ResolutionError{Input: input, Reason: "empty input"}
	}

	if common.IsHexAddress(trimmed) {
		return common.HexToAddress(trimmed).Hex(), nil
	}

	if strings.HasSuffix(strings.ToLower(trimmed), ".eth") {
		return r.resolveName(ctx, trimmed)
	}

	return "", &entity.ResolutionError{Input: trimmed, Reason: "not a hex address or .eth name"}
}

func (r *AddressResolver) resolveName(ctx context.Context, name string) (string, error) {
	var parsed ensResolveResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetResult(&parsed).
		Get(fmt.Sprintf("/ens/resolve/%s", strings.ToLower(name)))
	if err != nil {
		r.logger.Warn("ENS gateway request failed", zap.String("name", name), zap.Error(err))
		return "", &entity.ResolutionError{Input: name, Reason: "name lookup failed"}
	}
	if resp.StatusCode() != 200 {
		r.logger.Warn("ENS gateway returned non-200",
			zap.String("name", name), zap.Int("status", resp.StatusCode()))
		return "", &entity.ResolutionError{Input: name, Reason: fmt.Sprintf("name lookup returned status %d", resp.StatusCode())}
	}
	if !common.IsHexAddress(parsed.Address) {
		return "", &entity.ResolutionError{Input: name, Reason: "name has no address record"}
	}
	return common.HexToAddress(parsed.Address).Hex(), nil
}

var _ port.AddressResolver = (*AddressResolver)(nil)
