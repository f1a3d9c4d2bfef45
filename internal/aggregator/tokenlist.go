package aggregator

import (
	"context"
	"io"
	"log"
	"sync"

	"solana-token-search/internal/domain"
	"solana-token-search/internal/resolver"
	"solana-token-search/internal/tokenlist"
)

// enrichBatchSize bounds how many mint-date probes run at once while
// enriching token list hits.
const enrichBatchSize = 5

// enrichCap bounds how many list hits get a mint-date probe at all; each
// probe is one RPC round trip and list queries can match hundreds of entries.
const enrichCap = 25

// TokenListSource serves the third-party aggregator token list. The list
// fetch is idempotent and cheap, so it runs once per search without a retry
// wrapper; mint-date enrichment is best-effort.
type TokenListSource struct {
	client   *tokenlist.Client
	resolver *resolver.Resolver
	logger   *log.Logger
}

// NewTokenListSource creates the token list source.
func NewTokenListSource(client *tokenlist.Client, res *resolver.Resolver, logger *log.Logger) *TokenListSource {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &TokenListSource{
		client:   client,
		resolver: res,
		logger:   logger,
	}
}

// Name identifies the source.
func (s *TokenListSource) Name() string {
	return string(domain.SourceAggregator)
}

// Collect fetches the list, filters it client-side, and enriches survivors
// with their earliest-transaction timestamp in bounded batches.
func (s *TokenListSource) Collect(ctx context.Context, query string, opts domain.SearchOptions) ([]*domain.TokenRecord, error) {
	entries, err := s.client.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	matched := tokenlist.Filter(entries, query)
	if len(matched) == 0 {
		return nil, nil
	}

	records := make([]*domain.TokenRecord, 0, len(matched))
	for _, e := range matched {
		records = append(records, &domain.TokenRecord{
			Address:  e.Address,
			Name:     domain.SanitizeDisplay(e.Name),
			Symbol:   domain.SanitizeDisplay(e.Symbol),
			Decimals: e.Decimals,
			Source:   domain.SourceAggregator,
		})
	}

	s.enrichMintDates(ctx, records, opts)
	return records, nil
}

// enrichMintDates probes earliest block times and supply for up to
// enrichCap records, enrichBatchSize at a time. List entries carry neither.
func (s *TokenListSource) enrichMintDates(ctx context.Context, records []*domain.TokenRecord, opts domain.SearchOptions) {
	limit := len(records)
	if limit > enrichCap {
		limit = enrichCap
	}

	now := timeNow()
	for start := 0; start < limit; start += enrichBatchSize {
		end := start + enrichBatchSize
		if end > limit {
			end = limit
		}

		var wg sync.WaitGroup
		for _, record := range records[start:end] {
			wg.Add(1)
			go func(r *domain.TokenRecord) {
				defer wg.Done()
				if bt := s.resolver.EarliestBlockTime(ctx, r.Address); bt != nil {
					r.MintDate = bt
					r.RecomputeFreshness(opts.FreshnessWindow, now)
				}
				if supply := s.resolver.Supply(ctx, r.Address); supply != nil {
					r.Supply = supply.Amount
					r.Decimals = supply.Decimals
				}
			}(record)
		}
		wg.Wait()

		if ctx.Err() != nil {
			return
		}
	}
}

var _ Source = (*TokenListSource)(nil)
