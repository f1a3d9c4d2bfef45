package watch

import (
	"context"
	"testing"
	"time"

	"solana-token-search/internal/retry"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/txcache"
)

// fakeWS serves a prepared event channel.
type fakeWS struct {
	events chan solana.LogEvent
}

func (f *fakeWS) SubscribeLogs(ctx context.Context, mention string) (<-chan solana.LogEvent, error) {
	return f.events, nil
}

func (f *fakeWS) Close() error { return nil }

// fakeRPC serves transactions from a map.
type fakeRPC struct {
	txs   map[string]*solana.Transaction
	calls int
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return nil, nil
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	f.calls++
	return f.txs[signature], nil
}

func (f *fakeRPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return nil, nil
}

func (f *fakeRPC) GetTokenSupply(ctx context.Context, mint string) (*solana.TokenSupply, error) {
	return nil, nil
}

func (f *fakeRPC) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	return nil, nil
}

func fastPolicy() *retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = 0
	return &p
}

func TestWatcher_PrefetchesTransactions(t *testing.T) {
	blockTime := time.Now().Unix() - 60

	ws := &fakeWS{events: make(chan solana.LogEvent, 8)}
	rpc := &fakeRPC{
		txs: map[string]*solana.Transaction{
			"sig1": {Signature: "sig1", BlockTime: &blockTime, Mints: []string{"MintA"}},
			"sig2": {Signature: "sig2", BlockTime: &blockTime, Failed: true, Mints: []string{"MintB"}},
			"sig3": {Signature: "sig3", BlockTime: &blockTime}, // no token balances
		},
	}
	cache := txcache.New(10)

	w := New(Options{WS: ws, RPC: rpc, Cache: cache, RetryPolicy: fastPolicy()})

	ws.events <- solana.LogEvent{Signature: "sig1"}
	ws.events <- solana.LogEvent{Signature: "sig2"}
	ws.events <- solana.LogEvent{Signature: "sig3"}
	ws.events <- solana.LogEvent{Signature: "failed-on-chain", Failed: true}
	close(ws.events)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Only sig1 is cacheable: sig2 failed on execution, sig3 touched no
	// token accounts, and the last event was already marked failed.
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cached transaction, got %d", cache.Len())
	}
	cached, ok := cache.Get("sig1")
	if !ok {
		t.Fatal("expected sig1 in cache")
	}
	if len(cached.Mints) != 1 || cached.Mints[0] != "MintA" {
		t.Errorf("unexpected cached mints: %v", cached.Mints)
	}

	// The event pre-marked failed never hits the node.
	if rpc.calls != 3 {
		t.Errorf("expected 3 transaction fetches, got %d", rpc.calls)
	}
}

func TestWatcher_SkipsAlreadyCached(t *testing.T) {
	ws := &fakeWS{events: make(chan solana.LogEvent, 2)}
	rpc := &fakeRPC{}
	cache := txcache.New(10)
	cache.Put("known", &txcache.CachedTransaction{Signature: "known", Mints: []string{"MintA"}})

	w := New(Options{WS: ws, RPC: rpc, Cache: cache, RetryPolicy: fastPolicy()})

	ws.events <- solana.LogEvent{Signature: "known"}
	close(ws.events)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if rpc.calls != 0 {
		t.Errorf("expected no fetches for cached signature, got %d", rpc.calls)
	}
}

func TestWatcher_StopsOnContextCancel(t *testing.T) {
	ws := &fakeWS{events: make(chan solana.LogEvent)}
	w := New(Options{WS: ws, RPC: &fakeRPC{}, Cache: txcache.New(10), RetryPolicy: fastPolicy()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}
