package domain

// UnknownName is the display-name sentinel used when neither the parsed mint
// info nor the Metaplex metadata account yields a name or symbol.
const UnknownName = "unknown"

// TokenInfo is the enrichment record for one discovered mint. Stage A of the
// pipeline creates it with only Mint and Slot set and fills in what the
// on-chain fetch returns; Stage B appends exchange listings. Ownership moves
// with the record across the queue boundary, so it is never written by two
// stages at once.
type TokenInfo struct {
	Mint        string   // mint account address (base58, treated as opaque)
	Slot        int64    // slot the creation event was observed at
	Decimals    *int     // nil when the fetch failed or the account was absent
	Supply      *float64 // parsed from the on-chain supply string, 0 when absent
	Mintable    *bool    // true iff a mint authority is present
	DisplayName string   // name, else symbol, else UnknownName
	DexListings []string // directories the mint appeared in
}
