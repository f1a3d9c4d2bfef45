package domain

// Source represents the provenance of a token record.
type Source string

const (
	// SourceKnown marks records resolved from the hard-coded registry.
	SourceKnown Source = "known"
	// SourceAggregator marks records from the third-party token list.
	SourceAggregator Source = "aggregator"
	// SourceOnChain marks records discovered by scanning ledger activity.
	SourceOnChain Source = "on-chain"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceKnown || s == SourceAggregator || s == SourceOnChain
}

// Priority ranks sources for duplicate resolution during merge.
// Higher wins: known > aggregator > on-chain.
func (s Source) Priority() int {
	switch s {
	case SourceKnown:
		return 3
	case SourceAggregator:
		return 2
	case SourceOnChain:
		return 1
	default:
		return 0
	}
}
