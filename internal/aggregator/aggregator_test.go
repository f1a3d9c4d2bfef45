package aggregator

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"solana-token-search/internal/domain"
	"solana-token-search/internal/resolver"
	"solana-token-search/internal/retry"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/tokenlist"
	"solana-token-search/internal/txcache"
)

// fakeRPC implements solana.RPCClient from fixed fixtures.
type fakeRPC struct {
	accounts map[string]*solana.AccountInfo
	txs      map[string]*solana.Transaction
	txErrs   map[string]error
	sigs     []solana.SignatureInfo
}

func (f *fakeRPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	return f.accounts[pubkey], nil
}

func (f *fakeRPC) GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error) {
	if err, ok := f.txErrs[signature]; ok {
		return nil, err
	}
	return f.txs[signature], nil
}

func (f *fakeRPC) GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	return f.sigs, nil
}

func (f *fakeRPC) GetTokenSupply(ctx context.Context, mint string) (*solana.TokenSupply, error) {
	return nil, nil
}

func (f *fakeRPC) GetBlockTime(ctx context.Context, slot int64) (*int64, error) {
	return nil, nil
}

// testMint builds a distinct valid 32-byte base58 address.
func testMint(i byte) string {
	var b [32]byte
	b[0] = i + 1
	return base58.Encode(b[:])
}

func mintAccount(supply uint64, decimals uint8) *solana.AccountInfo {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return &solana.AccountInfo{Owner: solana.TokenProgramID, Data: data}
}

func metadataAccount(name, symbol string) *solana.AccountInfo {
	data := make([]byte, 4)
	for _, field := range []string{name, symbol, ""} {
		data = append(data, byte(len(field)))
		data = append(data, field...)
	}
	return &solana.AccountInfo{Owner: solana.MetadataProgramID, Data: data}
}

func fastPolicy() *retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = 0
	return &p
}

func newTestResolver(rpc solana.RPCClient, now time.Time) *resolver.Resolver {
	return resolver.New(resolver.Options{
		RPC:         rpc,
		RetryPolicy: fastPolicy(),
		Now:         func() time.Time { return now },
	})
}

func TestRegistrySource_MatchAndDegrade(t *testing.T) {
	// Empty node state: every resolution comes back empty, so the source
	// must degrade to registry-only records instead of dropping hits.
	rpc := &fakeRPC{}
	src := NewRegistrySource(newTestResolver(rpc, time.Now()), nil)

	records, err := src.Collect(context.Background(), "bonk", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Symbol != "BONK" {
		t.Errorf("expected BONK, got %s", r.Symbol)
	}
	if r.Source != domain.SourceKnown {
		t.Errorf("expected source known, got %s", r.Source)
	}
	if r.Address == "" {
		t.Error("expected registry address on degraded record")
	}
}

func TestRegistrySource_ResolvedState(t *testing.T) {
	// When the node answers, registry hits carry live mint state.
	bonk := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	rpc := &fakeRPC{
		accounts: map[string]*solana.AccountInfo{
			bonk: mintAccount(9999, 5),
		},
	}
	src := NewRegistrySource(newTestResolver(rpc, time.Now()), nil)

	records, err := src.Collect(context.Background(), "bonk", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Supply != "9999" {
		t.Errorf("expected live supply, got %q", records[0].Supply)
	}
	if records[0].Decimals != 5 {
		t.Errorf("expected live decimals, got %d", records[0].Decimals)
	}
}

func TestRegistrySource_NoMatch(t *testing.T) {
	src := NewRegistrySource(newTestResolver(&fakeRPC{}, time.Now()), nil)

	records, err := src.Collect(context.Background(), "completelyunrelated", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestTokenListSource_Collect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := []map[string]interface{}{
			{"address": testMint(1), "name": "Bonk", "symbol": "BONK", "decimals": 5},
			{"address": testMint(2), "name": "Unrelated", "symbol": "UNR", "decimals": 9},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}))
	defer server.Close()

	client := tokenlist.NewClient(tokenlist.WithEndpoint(server.URL))
	now := time.Unix(1700000000, 0)
	recent := now.Unix() - 600

	rpc := &fakeRPC{
		sigs: []solana.SignatureInfo{{Signature: "only", BlockTime: &recent}},
	}
	src := NewTokenListSource(client, newTestResolver(rpc, now), nil)

	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	records, err := src.Collect(context.Background(), "bonk", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Source != domain.SourceAggregator {
		t.Errorf("expected source aggregator, got %s", r.Source)
	}
	if r.MintDate == nil || *r.MintDate != recent {
		t.Errorf("expected enriched mint date %d, got %v", recent, r.MintDate)
	}
	if !r.IsNewToken {
		t.Error("expected 10-minute-old token to be flagged new")
	}
}

func TestTokenListSource_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := tokenlist.NewClient(tokenlist.WithEndpoint(server.URL))
	src := NewTokenListSource(client, newTestResolver(&fakeRPC{}, time.Now()), nil)

	if _, err := src.Collect(context.Background(), "bonk", domain.SearchOptions{}.Normalize()); err == nil {
		t.Fatal("expected error when the list fetch fails")
	}
}

func TestLedgerScanSource_PartialFailure(t *testing.T) {
	// Ten signatures, one transaction fetch fails: the other nine must
	// still produce records.
	now := time.Unix(1700000000, 0)
	blockTime := now.Unix() - 120

	rpc := &fakeRPC{
		accounts: map[string]*solana.AccountInfo{},
		txs:      map[string]*solana.Transaction{},
		txErrs: map[string]error{
			"sig3": &solana.RPCError{Kind: solana.KindMalformed, Method: "getTransaction"},
		},
	}

	for i := byte(0); i < 10; i++ {
		sig := fmt.Sprintf("sig%d", i)
		mint := testMint(i)
		rpc.sigs = append(rpc.sigs, solana.SignatureInfo{Signature: sig, BlockTime: &blockTime})
		rpc.txs[sig] = &solana.Transaction{Signature: sig, BlockTime: &blockTime, Mints: []string{mint}}
		rpc.accounts[mint] = mintAccount(100, 6)
		rpc.accounts[resolver.DeriveMetadataAddress(mint)] = metadataAccount(fmt.Sprintf("Scantoken %d", i), fmt.Sprintf("SCAN%d", i))
	}

	src := NewLedgerScanSource(LedgerScanOptions{
		RPC:         rpc,
		Resolver:    newTestResolver(rpc, now),
		RetryPolicy: fastPolicy(),
		BatchDelay:  time.Nanosecond,
	})

	timeNow = func() time.Time { return now }
	defer func() { timeNow = time.Now }()

	records, err := src.Collect(context.Background(), "scantoken", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 9 {
		t.Fatalf("expected 9 records surviving one corrupt transaction, got %d", len(records))
	}

	for _, r := range records {
		if r.Source != domain.SourceOnChain {
			t.Errorf("expected source on-chain, got %s", r.Source)
		}
		if r.MintDate == nil || *r.MintDate != blockTime {
			t.Errorf("expected mint date %d, got %v", blockTime, r.MintDate)
		}
		if !r.IsNewToken {
			t.Errorf("expected fresh token, got %+v", r)
		}
	}
}

func TestLedgerScanSource_FailedTransactionsSkipped(t *testing.T) {
	now := time.Unix(1700000000, 0)
	blockTime := now.Unix() - 120
	mint := testMint(0)
	pda := resolver.DeriveMetadataAddress(mint)

	rpc := &fakeRPC{
		sigs: []solana.SignatureInfo{
			{Signature: "failedsig", BlockTime: &blockTime, Err: map[string]interface{}{"InstructionError": []interface{}{}}},
			{Signature: "oksig", BlockTime: &blockTime},
		},
		txs: map[string]*solana.Transaction{
			"oksig": {Signature: "oksig", BlockTime: &blockTime, Mints: []string{mint}},
		},
		accounts: map[string]*solana.AccountInfo{
			mint: mintAccount(1, 6),
			pda:  metadataAccount("Scantoken", "SCAN"),
		},
	}

	src := NewLedgerScanSource(LedgerScanOptions{
		RPC:         rpc,
		Resolver:    newTestResolver(rpc, now),
		RetryPolicy: fastPolicy(),
		BatchDelay:  time.Nanosecond,
	})

	records, err := src.Collect(context.Background(), "scantoken", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestLedgerScanSource_CacheShortCircuitsFetch(t *testing.T) {
	now := time.Unix(1700000000, 0)
	blockTime := now.Unix() - 120
	mint := testMint(0)
	pda := resolver.DeriveMetadataAddress(mint)

	cache := txcache.New(10)
	cache.Put("cachedsig", &txcache.CachedTransaction{
		Signature: "cachedsig",
		Mints:     []string{mint},
		BlockTime: &blockTime,
	})

	// The transaction fetch would fail; only the cache can satisfy it.
	rpc := &fakeRPC{
		sigs: []solana.SignatureInfo{{Signature: "cachedsig", BlockTime: &blockTime}},
		txErrs: map[string]error{
			"cachedsig": &solana.RPCError{Kind: solana.KindRateLimited, Method: "getTransaction"},
		},
		accounts: map[string]*solana.AccountInfo{
			mint: mintAccount(1, 6),
			pda:  metadataAccount("Cached Token", "CACHE"),
		},
	}

	src := NewLedgerScanSource(LedgerScanOptions{
		RPC:         rpc,
		Resolver:    newTestResolver(rpc, now),
		Cache:       cache,
		RetryPolicy: fastPolicy(),
		BatchDelay:  time.Nanosecond,
	})

	records, err := src.Collect(context.Background(), "cached token", domain.SearchOptions{}.Normalize())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected cached transaction to produce a record, got %d", len(records))
	}

	hits, _ := cache.Stats()
	if hits == 0 {
		t.Error("expected at least one cache hit")
	}
}

func TestScanLimit(t *testing.T) {
	tests := []struct {
		r    domain.TimeRange
		want int
	}{
		{domain.Range24h, 100},
		{domain.Range7d, 300},
		{domain.Range30d, 500},
		{domain.RangeAll, 1000},
	}
	for _, tt := range tests {
		if got := scanLimit(tt.r); got != tt.want {
			t.Errorf("scanLimit(%s) = %d, want %d", tt.r, got, tt.want)
		}
	}
}
