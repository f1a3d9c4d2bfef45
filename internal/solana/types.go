package solana

// TokenProgramID is the SPL token program address. All fungible-token
// transactions interact with it; scanning its recent signatures surfaces
// newly minted tokens.
const TokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

// MetadataProgramID is the Metaplex token metadata program address.
const MetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a decoded ledger transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime *int64 // Unix timestamp (seconds), nil when the node has no estimate
	Failed    bool   // meta.err was non-null
	Mints     []string
}

// AccountInfo represents Solana account state.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded account data
	Executable bool
	RentEpoch  uint64
}

// TokenSupply is the result of getTokenSupply.
type TokenSupply struct {
	Amount   string // raw integer string
	Decimals uint8
}
