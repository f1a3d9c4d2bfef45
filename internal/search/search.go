// Package search provides the token search orchestrator. It fans out to
// the candidate sources, merges by mint address, sorts, and truncates to
// the result cap.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-search/internal/aggregator"
	"solana-token-search/internal/domain"
	"solana-token-search/internal/observability"
	"solana-token-search/internal/resolver"
)

// ErrAllSourcesFailed is returned when every underlying data source failed
// and no records were produced. Distinguishable from an empty result, which
// is a valid answer from healthy sources.
var ErrAllSourcesFailed = errors.New("all data sources failed")

// Plausible base58 length range for a 32-byte account identifier; queries
// in this range get the address-literal fast path.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

// Service is the search orchestrator.
type Service struct {
	sources  []aggregator.Source
	resolver *resolver.Resolver
	logger   *log.Logger
}

// Options configures a Service.
type Options struct {
	Sources  []aggregator.Source
	Resolver *resolver.Resolver
	Logger   *log.Logger
}

// New creates a search Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		sources:  opts.Sources,
		resolver: opts.Resolver,
		logger:   logger,
	}
}

// SearchTokens runs one search. Every returned record has passed
// sanitization and the match check; an empty slice means no results, while
// an error means every underlying source failed.
func (s *Service) SearchTokens(ctx context.Context, query string, opts domain.SearchOptions) ([]*domain.TokenRecord, error) {
	start := time.Now()
	opts = opts.Normalize()

	query = strings.TrimSpace(query)
	if query == "" {
		observability.RecordSearch("empty_query", time.Since(start).Seconds(), 0)
		return nil, nil
	}

	// Address-literal fast path: a query that looks like an account
	// identifier is tried as a mint address before any aggregation.
	if looksLikeAddress(query) {
		record, err := s.resolver.GetTokenDetails(ctx, query)
		if err != nil {
			s.logger.Printf("fast path for %q: %v", query, err)
		}
		if record != nil {
			record.Source = domain.SourceOnChain
			record.RecomputeFreshness(opts.FreshnessWindow, time.Now())
			observability.RecordSearch("ok", time.Since(start).Seconds(), 1)
			return []*domain.TokenRecord{record}, nil
		}
		// No such mint: fall through to the aggregators, which may still
		// match the literal against names or indexed addresses.
	}

	merged, failures := s.collect(ctx, query, opts)

	if len(merged) == 0 && len(failures) > 0 && len(failures) == len(s.sources) {
		observability.RecordSearch("all_failed", time.Since(start).Seconds(), 0)
		return nil, fmt.Errorf("%w: %s", ErrAllSourcesFailed, strings.Join(failures, "; "))
	}

	results := s.finalize(merged, opts)
	observability.RecordSearch("ok", time.Since(start).Seconds(), len(results))
	return results, nil
}

// GetTokenDetails is the single-token lookup, usable independent of search.
func (s *Service) GetTokenDetails(ctx context.Context, address string) (*domain.TokenRecord, error) {
	record, err := s.resolver.GetTokenDetails(ctx, address)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	if record.Source == "" {
		record.Source = domain.SourceOnChain
	}
	return record, nil
}

// collect fans out to all sources concurrently and merges into one map
// keyed by mint address. The merge is a keyed upsert on source priority, so
// completion order never affects the outcome.
func (s *Service) collect(ctx context.Context, query string, opts domain.SearchOptions) (map[string]*domain.TokenRecord, []string) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		merged   = make(map[string]*domain.TokenRecord)
		failures []string
	)

	for _, src := range s.sources {
		wg.Add(1)
		go func(src aggregator.Source) {
			defer wg.Done()

			records, err := src.Collect(ctx, query, opts)
			if err != nil {
				s.logger.Printf("source %s failed: %v", src.Name(), err)
				observability.RecordSourceFailure(src.Name())
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", src.Name(), err))
				mu.Unlock()
				return
			}

			observability.RecordSourceRecords(src.Name(), len(records))

			mu.Lock()
			for _, record := range records {
				mergeRecord(merged, record)
			}
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return merged, failures
}

// mergeRecord upserts by address, keeping the higher-priority source's
// record. A successfully resolved record is never discarded for nothing.
func mergeRecord(merged map[string]*domain.TokenRecord, record *domain.TokenRecord) {
	if record == nil || record.Address == "" {
		return
	}
	existing, ok := merged[record.Address]
	if !ok || record.Source.Priority() > existing.Source.Priority() {
		// The winner adopts a mint date the loser knew, whichever arrived
		// first, so completion order cannot change the outcome.
		if ok && record.MintDate == nil && existing.MintDate != nil {
			record.MintDate = existing.MintDate
		}
		merged[record.Address] = record
		return
	}
	if existing.MintDate == nil && record.MintDate != nil {
		existing.MintDate = record.MintDate
	}
}

// finalize applies the time range, sorts, and truncates.
//
// Time-range policy: a record with an unknown mint date is kept. The scan
// exists to surface unindexed tokens, and guessing "old" would hide exactly
// those. Only records with a known mint date older than the cutoff drop.
func (s *Service) finalize(merged map[string]*domain.TokenRecord, opts domain.SearchOptions) []*domain.TokenRecord {
	cutoff := opts.TimeRange.Cutoff(time.Now())

	results := make([]*domain.TokenRecord, 0, len(merged))
	for _, record := range merged {
		if cutoff > 0 && record.MintDate != nil && *record.MintDate < cutoff {
			continue
		}
		results = append(results, record)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		aKnown := a.Source == domain.SourceKnown
		bKnown := b.Source == domain.SourceKnown
		if aKnown != bKnown {
			return aKnown
		}
		switch {
		case a.MintDate == nil && b.MintDate == nil:
			return a.Address < b.Address
		case a.MintDate == nil:
			return false
		case b.MintDate == nil:
			return true
		case *a.MintDate != *b.MintDate:
			return *a.MintDate > *b.MintDate
		default:
			return a.Address < b.Address
		}
	})

	if len(results) > opts.ResultCap {
		results = results[:opts.ResultCap]
	}
	return results
}

// looksLikeAddress reports whether the query falls in the plausible
// base58 length range and decodes to a 32-byte identifier.
func looksLikeAddress(query string) bool {
	if len(query) < minAddressLen || len(query) > maxAddressLen {
		return false
	}
	decoded, err := base58.Decode(query)
	return err == nil && len(decoded) == 32
}
