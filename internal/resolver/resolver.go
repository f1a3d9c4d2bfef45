// Package resolver turns a mint address into a normalized token record by
// decoding on-chain mint state and, when present, the derived metadata
// account.
package resolver

import (
	"context"
	"io"
	"log"
	"strconv"
	"time"

	"solana-token-search/internal/domain"
	"solana-token-search/internal/observability"
	"solana-token-search/internal/retry"
	"solana-token-search/internal/solana"
)

// earliestSigProbeLimit bounds the signature page used to estimate a mint's
// creation time. The oldest entry of one page is only an estimate for very
// active mints; best-effort by design.
const earliestSigProbeLimit = 1000

// Request describes one resolution.
type Request struct {
	Mint      string
	BlockTime *int64 // earliest known tx block time (unix seconds), optional
	// Fallback display fields used when the on-chain metadata account is
	// absent; typically supplied by the registry or the aggregator list.
	FallbackName   string
	FallbackSymbol string
}

// Resolver resolves mint addresses into token records.
type Resolver struct {
	rpc    solana.RPCClient
	policy retry.Policy
	window time.Duration
	now    func() time.Time
	logger *log.Logger
}

// Options configures a Resolver.
type Options struct {
	RPC             solana.RPCClient
	RetryPolicy     *retry.Policy // nil means retry.DefaultPolicy
	FreshnessWindow time.Duration // default domain.DefaultFreshnessWindow
	Now             func() time.Time
	Logger          *log.Logger
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	policy := retry.DefaultPolicy()
	if opts.RetryPolicy != nil {
		policy = *opts.RetryPolicy
	}
	window := opts.FreshnessWindow
	if window <= 0 {
		window = domain.DefaultFreshnessWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Resolver{
		rpc:    opts.RPC,
		policy: policy,
		window: window,
		now:    now,
		logger: logger,
	}
}

// Resolve fetches and decodes the mint account for req.Mint, attempting the
// metadata account concurrently. Returns (nil, nil) when the account does
// not exist, is not a mint, or carries no identifying information at all.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*domain.TokenRecord, error) {
	type metaResult struct {
		meta *domain.TokenMetadata
	}
	metaCh := make(chan metaResult, 1)
	go func() {
		metaCh <- metaResult{meta: r.fetchMetadata(ctx, req.Mint)}
	}()

	info, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*solana.AccountInfo, error) {
		return r.rpc.GetAccountInfo(ctx, req.Mint)
	})
	if err != nil {
		<-metaCh
		observability.RecordResolution("error")
		return nil, err
	}
	if info == nil || info.Owner != solana.TokenProgramID {
		<-metaCh
		observability.RecordResolution("not_mint")
		return nil, nil
	}

	state, ok := decodeMint(info.Data)
	if !ok {
		<-metaCh
		observability.RecordResolution("not_mint")
		return nil, nil
	}

	meta := (<-metaCh).meta

	record := &domain.TokenRecord{
		Address:  req.Mint,
		Supply:   strconv.FormatUint(state.Supply, 10),
		Decimals: state.Decimals,
		Metadata: meta,
	}

	// Precedence: metadata fields, then caller-supplied fallback, then the
	// sentinel. Each step is evaluated independently for name and symbol.
	record.Name = firstUsable(metaName(meta), req.FallbackName)
	record.Symbol = firstUsable(metaSymbol(meta), req.FallbackSymbol)

	if record.Name == domain.UnknownName && record.Symbol == domain.UnknownName {
		// No identifying information; not useful to callers.
		observability.RecordResolution("unnamed")
		return nil, nil
	}

	if req.BlockTime != nil {
		bt := *req.BlockTime
		record.MintDate = &bt
	}
	record.RecomputeFreshness(r.window, r.now())

	observability.RecordResolution("ok")
	return record, nil
}

// GetTokenDetails is the single-token lookup variant: it resolves the
// address and best-effort discovers the earliest transaction's block time
// for the mint date.
func (r *Resolver) GetTokenDetails(ctx context.Context, address string) (*domain.TokenRecord, error) {
	blockTime := r.earliestBlockTime(ctx, address)
	return r.Resolve(ctx, Request{Mint: address, BlockTime: blockTime})
}

// EarliestBlockTime probes the oldest known signature touching the address.
func (r *Resolver) EarliestBlockTime(ctx context.Context, address string) *int64 {
	return r.earliestBlockTime(ctx, address)
}

func (r *Resolver) earliestBlockTime(ctx context.Context, address string) *int64 {
	sigs, err := retry.Do(ctx, r.policy, func(ctx context.Context) ([]solana.SignatureInfo, error) {
		return r.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: earliestSigProbeLimit})
	})
	if err != nil || len(sigs) == 0 {
		return nil
	}
	// Signatures arrive newest-first; the last entry is the oldest known.
	oldest := sigs[len(sigs)-1]
	if oldest.BlockTime != nil {
		return oldest.BlockTime
	}
	// Some nodes omit blockTime on signature listings; ask for the slot's
	// estimated production time instead.
	bt, err := r.rpc.GetBlockTime(ctx, oldest.Slot)
	if err != nil {
		return nil
	}
	return bt
}

// Supply fetches the raw token supply for a mint, best-effort. Used to
// enrich records built from index entries that carry no supply.
func (r *Resolver) Supply(ctx context.Context, mint string) *solana.TokenSupply {
	supply, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*solana.TokenSupply, error) {
		return r.rpc.GetTokenSupply(ctx, mint)
	})
	if err != nil {
		return nil
	}
	return supply
}

// fetchMetadata derives and fetches the metadata account. Every failure
// mode collapses to nil: metadata is strictly optional.
func (r *Resolver) fetchMetadata(ctx context.Context, mint string) *domain.TokenMetadata {
	pda := DeriveMetadataAddress(mint)
	if pda == "" {
		return nil
	}

	info, err := retry.Do(ctx, r.policy, func(ctx context.Context) (*solana.AccountInfo, error) {
		return r.rpc.GetAccountInfo(ctx, pda)
	})
	if err != nil {
		r.logger.Printf("metadata fetch for %s failed: %v", mint, err)
		return nil
	}
	if info == nil || len(info.Data) == 0 {
		return nil
	}

	meta, ok := decodeMetadata(info.Data)
	if !ok {
		return nil
	}
	return meta
}

func metaName(m *domain.TokenMetadata) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func metaSymbol(m *domain.TokenMetadata) string {
	if m == nil {
		return ""
	}
	return m.Symbol
}

// firstUsable sanitizes candidates in order and returns the first that
// survives; exhausting the list yields the sentinel.
func firstUsable(candidates ...string) string {
	for _, c := range candidates {
		if s := domain.SanitizeDisplay(c); s != domain.UnknownName {
			return s
		}
	}
	return domain.UnknownName
}
