package solana

import "context"

// RPCClient defines the ledger gateway interface. Every method performs a
// single attempt; resilience is layered on by the retry policy.
type RPCClient interface {
	// GetAccountInfo retrieves account state by public key.
	// Returns (nil, nil) when the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTransaction retrieves a transaction by signature.
	// Returns (nil, nil) when the transaction is unknown to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetSignaturesForAddress retrieves recent signatures touching an address.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTokenSupply retrieves the supply of a mint.
	GetTokenSupply(ctx context.Context, mint string) (*TokenSupply, error)

	// GetBlockTime retrieves the estimated production time of a slot.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}
