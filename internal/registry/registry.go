// Package registry holds the hard-coded seed list of well-known tokens.
// It guarantees fast, reliable answers for popular queries regardless of
// node or aggregator availability.
package registry

// KnownToken is one static registry entry. Entries are immutable for the
// process lifetime.
type KnownToken struct {
	Address string
	Symbol  string
	Name    string
}

var knownTokens = []KnownToken{
	{Address: "So11111111111111111111111111111111111111112", Symbol: "SOL", Name: "Wrapped SOL"},
	{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin"},
	{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "USDT"},
	{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Symbol: "BONK", Name: "Bonk"},
	{Address: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", Symbol: "WIF", Name: "dogwifhat"},
	{Address: "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", Symbol: "JUP", Name: "Jupiter"},
	{Address: "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", Symbol: "RAY", Name: "Raydium"},
	{Address: "HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3", Symbol: "PYTH", Name: "Pyth Network"},
	{Address: "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", Symbol: "mSOL", Name: "Marinade staked SOL"},
	{Address: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", Symbol: "POPCAT", Name: "Popcat"},
	{Address: "ukHH6c7mMyiWCf1b9pnWe25TSpkDDt3H5pQZgZ74J82", Symbol: "BOME", Name: "BOOK OF MEME"},
	{Address: "rndrizKT3MK1iimdxRdWabcF7Zg7AR5T4nud4EkHBof", Symbol: "RENDER", Name: "Render Token"},
}

// All returns a copy of the known-token registry.
func All() []KnownToken {
	out := make([]KnownToken, len(knownTokens))
	copy(out, knownTokens)
	return out
}
