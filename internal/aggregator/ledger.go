package aggregator

import (
	"context"
	"io"
	"log"
	"time"

	"solana-token-search/internal/domain"
	"solana-token-search/internal/match"
	"solana-token-search/internal/observability"
	"solana-token-search/internal/resolver"
	"solana-token-search/internal/retry"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/txcache"
)

// Scan tuning. Batch size and inter-batch delay cap the number of in-flight
// remote calls per upstream rate limits; they are backpressure knobs, not
// correctness requirements.
const (
	DefaultScanBatchSize  = 8
	DefaultScanBatchDelay = 300 * time.Millisecond
)

// LedgerScanSource walks recent activity on the token program to find mint
// accounts not yet indexed anywhere. It is the only source capable of
// discovering tokens unknown to every index, and it must tolerate partial
// failure: a handful of failed transaction fetches never aborts the scan.
type LedgerScanSource struct {
	rpc        solana.RPCClient
	resolver   *resolver.Resolver
	cache      *txcache.Cache
	policy     retry.Policy
	batchSize  int
	batchDelay time.Duration
	logger     *log.Logger
}

// LedgerScanOptions configures a LedgerScanSource.
type LedgerScanOptions struct {
	RPC         solana.RPCClient
	Resolver    *resolver.Resolver
	Cache       *txcache.Cache
	RetryPolicy *retry.Policy
	BatchSize   int
	BatchDelay  time.Duration
	Logger      *log.Logger
}

// NewLedgerScanSource creates the ledger scan source.
func NewLedgerScanSource(opts LedgerScanOptions) *LedgerScanSource {
	policy := retry.DefaultPolicy()
	if opts.RetryPolicy != nil {
		policy = *opts.RetryPolicy
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultScanBatchSize
	}
	batchDelay := opts.BatchDelay
	if batchDelay <= 0 {
		batchDelay = DefaultScanBatchDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cache := opts.Cache
	if cache == nil {
		cache = txcache.New(txcache.DefaultCapacity)
	}
	return &LedgerScanSource{
		rpc:        opts.RPC,
		resolver:   opts.Resolver,
		cache:      cache,
		policy:     policy,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
	}
}

// Name identifies the source.
func (s *LedgerScanSource) Name() string {
	return string(domain.SourceOnChain)
}

// scanLimit maps the requested time range to a signature page size. Wider
// ranges look further back at the cost of more transaction fetches.
func scanLimit(r domain.TimeRange) int {
	switch r {
	case domain.Range24h:
		return 100
	case domain.Range7d:
		return 300
	case domain.Range30d:
		return 500
	default:
		return 1000
	}
}

// Collect fetches the most recent signatures on the token program and
// processes them in fixed-size batches with an inter-batch delay.
func (s *LedgerScanSource) Collect(ctx context.Context, query string, opts domain.SearchOptions) ([]*domain.TokenRecord, error) {
	sigs, err := retry.Do(ctx, s.policy, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		return s.rpc.GetSignaturesForAddress(ctx, solana.TokenProgramID, &solana.SignaturesOpts{
			Limit: scanLimit(opts.TimeRange),
		})
	})
	if err != nil {
		return nil, err
	}

	var records []*domain.TokenRecord
	seen := make(map[string]bool)
	now := timeNow()

	for start := 0; start < len(sigs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(sigs) {
			end = len(sigs)
		}

		for _, found := range s.processBatch(ctx, sigs[start:end], query, opts, seen, now) {
			records = append(records, found)
		}

		if ctx.Err() != nil {
			return records, nil
		}
		if end < len(sigs) && s.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return records, nil
			case <-time.After(s.batchDelay):
			}
		}
	}

	return records, nil
}

// processBatch decodes one batch of signatures and resolves every unseen
// mint they reference. Failures are logged and skipped.
func (s *LedgerScanSource) processBatch(ctx context.Context, sigs []solana.SignatureInfo, query string, opts domain.SearchOptions, seen map[string]bool, now time.Time) []*domain.TokenRecord {
	var records []*domain.TokenRecord

	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}

		cached, err := s.lookupTransaction(ctx, sig)
		if err != nil {
			s.logger.Printf("scan: transaction %s: %v", sig.Signature, err)
			continue
		}
		if cached == nil {
			continue
		}

		for _, mint := range cached.Mints {
			if seen[mint] {
				continue
			}
			seen[mint] = true

			record, err := s.resolver.Resolve(ctx, resolver.Request{
				Mint:      mint,
				BlockTime: cached.BlockTime,
			})
			if err != nil {
				s.logger.Printf("scan: resolve mint %s: %v", mint, err)
				continue
			}
			if record == nil {
				continue
			}

			if !match.Matches(query, record.Name, record.Symbol, record.Address) {
				continue
			}

			record.Source = domain.SourceOnChain
			record.RecomputeFreshness(opts.FreshnessWindow, now)
			records = append(records, record)
		}
	}

	return records
}

// lookupTransaction consults the cache, falling back to a fetch+decode that
// is cached for the next scan. Returns (nil, nil) for unknown transactions.
func (s *LedgerScanSource) lookupTransaction(ctx context.Context, sig solana.SignatureInfo) (*txcache.CachedTransaction, error) {
	if cached, ok := s.cache.Get(sig.Signature); ok {
		observability.RecordCacheHit()
		return cached, nil
	}
	observability.RecordCacheMiss()

	tx, err := retry.Do(ctx, s.policy, func(ctx context.Context) (*solana.Transaction, error) {
		return s.rpc.GetTransaction(ctx, sig.Signature)
	})
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Failed {
		return nil, nil
	}

	blockTime := tx.BlockTime
	if blockTime == nil {
		blockTime = sig.BlockTime
	}

	cached := &txcache.CachedTransaction{
		Signature: sig.Signature,
		Mints:     tx.Mints,
		BlockTime: blockTime,
	}
	s.cache.Put(sig.Signature, cached)
	return cached, nil
}

var _ Source = (*LedgerScanSource)(nil)
