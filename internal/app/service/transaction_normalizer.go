package service

import (
	"fmt"
	"sort"
	"strings"

	"chainfolio/internal/app/port"
	"chainfolio/internal/domain/entity"
	networkdefinition "chainfolio/internal/infrastructure/network/definition"
	"chainfolio/internal/pkg/utils"
)

// maxTransactionResults caps the normalized result set handed to the
// presentation boundary.
const maxTransactionResults = 50

// metadata keys checked for an embedded transaction hash, in order.
var metaHashKeys = []string{"hash", "txHash", "transactionHash"}

// TransactionNormalizer converts provider-shaped raw transaction records
// into canonical Transactions: direction relative to the queried address,
// counterparty identity, value/fee extraction, deduplication and ordering.
type TransactionNormalizer struct {
	logger port.Logger
}

// NewTransactionNormalizer creates a new TransactionNormalizer.
func NewTransactionNormalizer(logger port.Logger) *TransactionNormalizer {
	return &TransactionNormalizer{logger: logger}
}

// Normalize converts one raw record, returning nil only when no hash-like
// identifier can be recovered at all.
func (n *TransactionNormalizer) Normalize(raw entity.RawTransaction, queriedAddress string, chainHint entity.ChainKey) *entity.Transaction {
	chain := networkdefinition.Canonicalize(raw.Chain)
	if chain == "" {
		chain = chainHint
	}

	hash := resolveHash(raw, chain)
	if hash == "" {
		n.logger.Debug("Dropping raw transaction without any hash-like identifier", "chain", chain)
		return nil
	}

	sender := resolveSender(raw)
	recipient := resolveRecipient(raw)

	var direction entity.TransferDirection
	switch {
	case recipient != "" && strings.EqualFold(recipient, queriedAddress):
		direction = entity.DirectionIn
	case sender != "" && strings.EqualFold(sender, queriedAddress):
		direction = entity.DirectionOut
	default:
		direction = entity.DirectionInternal
	}

	decimals := resolveDecimalsHint(raw, chain)
	amount, symbol := resolveTransferAmount(raw, decimals)

	return &entity.Transaction{
		Hash:         hash,
		Chain:        chain,
		Timestamp:    raw.Timestamp,
		Direction:    direction,
		Counterparty: resolveCounterparty(raw, queriedAddress, direction, sender, recipient),
		Symbol:       symbol,
		Amount:       amount,
		ValueUSD:     resolveTransferValueUSD(raw),
		GasFeeUSD:    raw.GasFeeUSD,
	}
}

// NormalizeBatch normalizes a raw batch, silently discarding records whose
// (chain, hash) key was already seen within this fetch cycle; providers
// may return one record per involved token-transfer sub-event. Output is
// newest-first and capped.
func (n *TransactionNormalizer) NormalizeBatch(raws []entity.RawTransaction, queriedAddress string, chainHint entity.ChainKey) []entity.Transaction {
	seen := make(map[string]struct{}, len(raws))
	out := make([]entity.Transaction, 0, len(raws))

	for _, raw := range raws {
		tx := n.Normalize(raw, queriedAddress, chainHint)
		if tx == nil {
			continue
		}
		key := tx.DedupKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, *tx)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if len(out) > maxTransactionResults {
		out = out[:maxTransactionResults]
	}
	return out
}

// resolveHash applies the hash precedence: primary field, alternate field,
// nested content, metadata, then a synthetic fallback composed from the
// chain, block hash and block height.
func resolveHash(raw entity.RawTransaction, chain entity.ChainKey) string {
	if raw.Hash != "" {
		return raw.Hash
	}
	if raw.AltHash != "" {
		return raw.AltHash
	}
	if raw.Content != nil && raw.Content.Hash != "" {
		return raw.Content.Hash
	}
	for _, key := range metaHashKeys {
		if v, ok := raw.Meta[key]; ok && v != "" {
			return v
		}
	}
	if raw.BlockHash != "" {
		return fmt.Sprintf("%s-%s-%d", chain, raw.BlockHash, raw.BlockHeight)
	}
	return ""
}

// resolveSender walks the sender precedence chain: structured party
// object, flat field, nested content, then embedded token transfers.
func resolveSender(raw entity.RawTransaction) string {
	if raw.FromParty != nil && raw.FromParty.Address != "" {
		return raw.FromParty.Address
	}
	if raw.From != "" {
		return raw.From
	}
	if raw.Content != nil && raw.Content.From != "" {
		return raw.Content.From
	}
	for _, tr := range raw.Transfers {
		if tr.From != "" {
			return tr.From
		}
	}
	return ""
}

func resolveRecipient(raw entity.RawTransaction) string {
	if raw.ToParty != nil && raw.ToParty.Address != "" {
		return raw.ToParty.Address
	}
	if raw.To != "" {
		return raw.To
	}
	if raw.Content != nil && raw.Content.To != "" {
		return raw.Content.To
	}
	for _, tr := range raw.Transfers {
		if tr.To != "" {
			return tr.To
		}
	}
	return ""
}

// resolveCounterparty picks the other party's identity: a transfer-level
// address that is not the queried address, then a human label, then the
// raw address. The sender side supplies it for inbound transfers, the
// recipient side for outbound, either for internal.
func resolveCounterparty(raw entity.RawTransaction, queriedAddress string, direction entity.TransferDirection, sender, recipient string) string {
	if addr := transferCounterparty(raw, queriedAddress, direction); addr != "" {
		return addr
	}

	switch direction {
	case entity.DirectionIn:
		if raw.FromParty != nil && raw.FromParty.Label != "" {
			return raw.FromParty.Label
		}
		return sender
	case entity.DirectionOut:
		if raw.ToParty != nil && raw.ToParty.Label != "" {
			return raw.ToParty.Label
		}
		return recipient
	default:
		if raw.FromParty != nil && raw.FromParty.Label != "" {
			return raw.FromParty.Label
		}
		if raw.ToParty != nil && raw.ToParty.Label != "" {
			return raw.ToParty.Label
		}
		if sender != "" {
			return sender
		}
		return recipient
	}
}

func transferCounterparty(raw entity.RawTransaction, queriedAddress string, direction entity.TransferDirection) string {
	for _, tr := range raw.Transfers {
		var candidates []string
		switch direction {
		case entity.DirectionIn:
			candidates = []string{tr.From, tr.To}
		case entity.DirectionOut:
			candidates = []string{tr.To, tr.From}
		default:
			candidates = []string{tr.From, tr.To}
		}
		for _, addr := range candidates {
			if addr != "" && !strings.EqualFold(addr, queriedAddress) {
				return addr
			}
		}
	}
	return ""
}

// resolveDecimalsHint applies the decimals precedence: explicit field,
// known chain default, then 18.
func resolveDecimalsHint(raw entity.RawTransaction, chain entity.ChainKey) uint8 {
	if raw.Decimals != nil && *raw.Decimals >= 0 && *raw.Decimals <= maxTokenDecimals {
		return uint8(*raw.Decimals)
	}
	return networkdefinition.DefaultDecimals(chain)
}

// resolveTransferAmount prefers structured token-transfer entries over raw
// scalar reinterpretation of the transaction value.
func resolveTransferAmount(raw entity.RawTransaction, decimals uint8) (*float64, string) {
	for _, tr := range raw.Transfers {
		if tr.AmountRaw == "" {
			continue
		}
		d := decimals
		if tr.Decimals != nil && *tr.Decimals >= 0 && *tr.Decimals <= maxTokenDecimals {
			d = uint8(*tr.Decimals)
		}
		if v, err := utils.RawToDecimal(tr.AmountRaw, d); err == nil {
			return &v, tr.Symbol
		}
	}
	if raw.ValueRaw != "" {
		if v, err := utils.RawToDecimal(raw.ValueRaw, decimals); err == nil {
			return &v, raw.Symbol
		}
	}
	return nil, raw.Symbol
}

func resolveTransferValueUSD(raw entity.RawTransaction) *float64 {
	if raw.ValueUSD != nil && *raw.ValueUSD >= 0 {
		return raw.ValueUSD
	}
	for _, tr := range raw.Transfers {
		if tr.ValueUSD != nil && *tr.ValueUSD >= 0 {
			return tr.ValueUSD
		}
	}
	return nil
}
