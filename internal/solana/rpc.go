package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface the enrichment pipeline
// depends on.
type RPCClient interface {
	// GetParsedAccountInfo retrieves an account with jsonParsed encoding.
	// Returns nil if the account does not exist.
	GetParsedAccountInfo(ctx context.Context, pubkey string) (*ParsedAccountInfo, error)

	// GetAccountInfo retrieves an account with base64 encoding.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// ParsedAccountInfo is an account returned with jsonParsed encoding.
type ParsedAccountInfo struct {
	Owner   string
	Program string // e.g. "spl-token"
	Type    string // e.g. "mint"
	Mint    *ParsedMintInfo
}

// ParsedMintInfo is the parsed info block of an SPL token mint account.
type ParsedMintInfo struct {
	Decimals        int     `json:"decimals"`
	Supply          string  `json:"supply"`
	MintAuthority   *string `json:"mintAuthority"`
	FreezeAuthority *string `json:"freezeAuthority"`
	IsInitialized   bool    `json:"isInitialized"`
	// Token-2022 metadata extensions occasionally surface these.
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// AccountInfo is an account returned with base64 encoding.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       string // base64 encoded
	Executable bool
	RentEpoch  uint64
}
