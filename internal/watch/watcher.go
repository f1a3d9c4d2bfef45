// Package watch keeps the transaction cache warm. It subscribes to ledger
// log events mentioning the token program and prefetches the referenced
// transactions, so that a later ledger scan finds them already decoded.
package watch

import (
	"context"
	"fmt"
	"io"
	"log"

	"solana-token-search/internal/observability"
	"solana-token-search/internal/retry"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/txcache"
)

// Watcher consumes a log subscription and fills the transaction cache.
type Watcher struct {
	ws     solana.WSClient
	rpc    solana.RPCClient
	cache  *txcache.Cache
	policy retry.Policy
	logger *log.Logger
}

// Options configures a Watcher.
type Options struct {
	WS          solana.WSClient
	RPC         solana.RPCClient
	Cache       *txcache.Cache
	RetryPolicy *retry.Policy
	Logger      *log.Logger
}

// New creates a Watcher.
func New(opts Options) *Watcher {
	policy := retry.DefaultPolicy()
	if opts.RetryPolicy != nil {
		policy = *opts.RetryPolicy
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Watcher{
		ws:     opts.WS,
		rpc:    opts.RPC,
		cache:  opts.Cache,
		policy: policy,
		logger: logger,
	}
}

// Run subscribes to token program log events and prefetches until the
// context is cancelled or the event channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	events, err := w.ws.SubscribeLogs(ctx, solana.TokenProgramID)
	if err != nil {
		return fmt.Errorf("subscribe logs: %w", err)
	}

	w.logger.Printf("Watching token program activity")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		}
	}
}

// handleEvent prefetches one transaction into the cache. Failed
// transactions and fetch errors are skipped; the scan can always fetch on
// demand later.
func (w *Watcher) handleEvent(ctx context.Context, ev solana.LogEvent) {
	if ev.Failed || ev.Signature == "" {
		return
	}
	if _, ok := w.cache.Get(ev.Signature); ok {
		return
	}

	tx, err := retry.Do(ctx, w.policy, func(ctx context.Context) (*solana.Transaction, error) {
		return w.rpc.GetTransaction(ctx, ev.Signature)
	})
	if err != nil {
		w.logger.Printf("prefetch %s: %v", ev.Signature, err)
		return
	}
	if tx == nil || tx.Failed || len(tx.Mints) == 0 {
		return
	}

	w.cache.Put(ev.Signature, &txcache.CachedTransaction{
		Signature: ev.Signature,
		Mints:     tx.Mints,
		BlockTime: tx.BlockTime,
	})
	observability.RecordWatchPrefetch()
}
