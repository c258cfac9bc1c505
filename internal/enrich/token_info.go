// Package enrich turns discovered mint addresses into reported token facts
// through a two-stage worker pipeline: on-chain account lookup, then DEX
// listing checks.
package enrich

import (
	"context"
	"strconv"
	"time"

	"solana-mint-sniffer/internal/domain"
	"solana-mint-sniffer/internal/logging"
	"solana-mint-sniffer/internal/observability"
	"solana-mint-sniffer/internal/solana"
)

// Fetcher resolves on-chain facts about a mint account.
type Fetcher struct {
	rpc solana.RPCClient
	log logging.Logger
}

// NewFetcher creates a fetcher over the given RPC client.
func NewFetcher(rpc solana.RPCClient, log logging.Logger) *Fetcher {
	return &Fetcher{rpc: rpc, log: log}
}

// Fetch builds a TokenInfo for the mint. Degrades gracefully: any RPC or
// parse failure leaves the affected fields unset and never returns nil, so
// a flaky endpoint still produces a report with whatever was resolvable.
func (f *Fetcher) Fetch(ctx context.Context, mint string, slot int64) *domain.TokenInfo {
	info := &domain.TokenInfo{
		Mint:        mint,
		Slot:        slot,
		DisplayName: domain.UnknownName,
	}

	start := time.Now()
	account, err := f.rpc.GetParsedAccountInfo(ctx, mint)
	observability.RecordRPCLatency("getAccountInfo", time.Since(start).Seconds())
	if err != nil {
		f.log.Warnf("account lookup for %s failed: %v", mint, err)
		observability.RecordEnrichmentError("onchain")
		return info
	}
	if account == nil || account.Mint == nil {
		f.log.Debugf("%s is not a parsed mint account", mint)
		return info
	}

	parsed := account.Mint

	decimals := parsed.Decimals
	info.Decimals = &decimals

	// Supply arrives as a decimal string in base units; unparseable values
	// count as zero rather than failing the whole lookup.
	supply := 0.0
	if s, err := strconv.ParseFloat(parsed.Supply, 64); err == nil {
		supply = s
	}
	info.Supply = &supply

	mintable := parsed.MintAuthority != nil
	info.Mintable = &mintable

	info.DisplayName = f.displayName(ctx, mint, parsed)

	return info
}

// displayName resolves a human-readable name: the parsed account's own name,
// then its symbol, then the Metaplex metadata account, then the unknown
// placeholder.
func (f *Fetcher) displayName(ctx context.Context, mint string, parsed *solana.ParsedMintInfo) string {
	if parsed.Name != "" {
		return parsed.Name
	}
	if parsed.Symbol != "" {
		return parsed.Symbol
	}
	if name := f.metadataName(ctx, mint); name != "" {
		return name
	}
	return domain.UnknownName
}

// metadataName looks up the Metaplex Token Metadata account for the mint.
func (f *Fetcher) metadataName(ctx context.Context, mint string) string {
	pda := solana.MetadataPDA(mint)
	if pda == "" {
		return ""
	}

	start := time.Now()
	account, err := f.rpc.GetAccountInfo(ctx, pda)
	observability.RecordRPCLatency("getAccountInfo", time.Since(start).Seconds())
	if err != nil {
		f.log.Debugf("metadata lookup for %s failed: %v", mint, err)
		return ""
	}
	if account == nil || account.Data == "" {
		return ""
	}

	name, symbol := solana.ParseMetadataAccount(account.Data)
	if name != "" {
		return name
	}
	return symbol
}
