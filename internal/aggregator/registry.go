package aggregator

import (
	"context"
	"io"
	"log"

	"solana-token-search/internal/domain"
	"solana-token-search/internal/match"
	"solana-token-search/internal/registry"
	"solana-token-search/internal/resolver"
)

// RegistrySource serves the hard-coded known-token registry. It exists to
// guarantee fast, reliable answers for popular queries: a known token must
// never disappear from results because the RPC node is down, so resolution
// failures degrade to a registry-only record instead of dropping the hit.
type RegistrySource struct {
	resolver *resolver.Resolver
	entries  []registry.KnownToken
	logger   *log.Logger
}

// NewRegistrySource creates the registry source.
func NewRegistrySource(res *resolver.Resolver, logger *log.Logger) *RegistrySource {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &RegistrySource{
		resolver: res,
		entries:  registry.All(),
		logger:   logger,
	}
}

// Name identifies the source.
func (s *RegistrySource) Name() string {
	return string(domain.SourceKnown)
}

// Collect filters the registry by the query matcher and resolves each
// surviving entry on-chain.
func (s *RegistrySource) Collect(ctx context.Context, query string, opts domain.SearchOptions) ([]*domain.TokenRecord, error) {
	var records []*domain.TokenRecord

	for _, entry := range s.entries {
		if !match.Matches(query, entry.Name, entry.Symbol, entry.Address) {
			continue
		}

		record, err := s.resolver.Resolve(ctx, resolver.Request{
			Mint:           entry.Address,
			FallbackName:   entry.Name,
			FallbackSymbol: entry.Symbol,
		})
		if err != nil || record == nil {
			if err != nil {
				s.logger.Printf("resolve known token %s: %v", entry.Symbol, err)
			}
			record = &domain.TokenRecord{
				Address: entry.Address,
				Name:    domain.SanitizeDisplay(entry.Name),
				Symbol:  domain.SanitizeDisplay(entry.Symbol),
			}
		}

		record.Source = domain.SourceKnown
		records = append(records, record)
	}

	return records, nil
}

var _ Source = (*RegistrySource)(nil)
