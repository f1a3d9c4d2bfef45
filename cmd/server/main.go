// Package main provides the token search HTTP server:
// - GET /search?q=<query>&range=<24h|7d|30d|all>&limit=<n>
// - GET /token/<address>
// - /health, /metrics, /status
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"solana-token-search/internal/aggregator"
	"solana-token-search/internal/domain"
	"solana-token-search/internal/observability"
	"solana-token-search/internal/resolver"
	"solana-token-search/internal/search"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/tokenlist"
	"solana-token-search/internal/txcache"
	"solana-token-search/internal/watch"
)

// Server holds the wired components and request counters.
type Server struct {
	service *search.Service
	cache   *txcache.Cache
	rpc     *solana.HTTPClient
	logger  *log.Logger

	started  time.Time
	searches int64
	lookups  int64
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables prefetch)")
	apiKey := flag.String("api-key", os.Getenv("SOLANA_RPC_API_KEY"), "RPC provider API key")
	listEndpoint := flag.String("token-list", os.Getenv("TOKEN_LIST_ENDPOINT"), "Aggregator token list endpoint")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cacheSize := flag.Int("tx-cache-size", txcache.DefaultCapacity, "Transaction cache capacity")
	scanBatch := flag.Int("scan-batch", aggregator.DefaultScanBatchSize, "Ledger scan batch size")
	scanDelay := flag.Duration("scan-delay", aggregator.DefaultScanBatchDelay, "Delay between ledger scan batches")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags. A missing credential fails here, not on the
	// first search.
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required (or SOLANA_RPC_ENDPOINT)")
	}
	if *apiKey == "" {
		logger.Fatal("--api-key is required (or SOLANA_RPC_API_KEY)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create RPC client
	rpc := solana.NewHTTPClient(*rpcEndpoint, solana.WithAPIKey(*apiKey))

	// Create shared components
	cache := txcache.New(*cacheSize)

	res := resolver.New(resolver.Options{
		RPC:    rpc,
		Logger: log.New(os.Stdout, "[resolver] ", log.LstdFlags|log.Lshortfile),
	})

	var listOpts []tokenlist.Option
	if *listEndpoint != "" {
		listOpts = append(listOpts, tokenlist.WithEndpoint(*listEndpoint))
	}
	listClient := tokenlist.NewClient(listOpts...)

	// Create sources
	sources := []aggregator.Source{
		aggregator.NewRegistrySource(res, log.New(os.Stdout, "[registry] ", log.LstdFlags|log.Lshortfile)),
		aggregator.NewTokenListSource(listClient, res, log.New(os.Stdout, "[tokenlist] ", log.LstdFlags|log.Lshortfile)),
		aggregator.NewLedgerScanSource(aggregator.LedgerScanOptions{
			RPC:        rpc,
			Resolver:   res,
			Cache:      cache,
			BatchSize:  *scanBatch,
			BatchDelay: *scanDelay,
			Logger:     log.New(os.Stdout, "[scan] ", log.LstdFlags|log.Lshortfile),
		}),
	}

	service := search.New(search.Options{
		Sources:  sources,
		Resolver: res,
		Logger:   logger,
	})

	server := &Server{
		service: service,
		cache:   cache,
		rpc:     rpc,
		logger:  logger,
		started: time.Now(),
	}

	// Start the WebSocket prefetcher if an endpoint was provided
	if *wsEndpoint != "" {
		go runWatcher(ctx, *wsEndpoint, rpc, cache)
	}

	// Handle shutdown signals
	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.routes(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// runWatcher runs the cache prefetcher, reconnecting on failure.
func runWatcher(ctx context.Context, endpoint string, rpc solana.RPCClient, cache *txcache.Cache) {
	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

	for ctx.Err() == nil {
		ws, err := solana.NewWSClient(ctx, endpoint, nil)
		if err != nil {
			logger.Printf("WebSocket connect: %v", err)
		} else {
			watcher := watch.New(watch.Options{
				WS:     ws,
				RPC:    rpc,
				Cache:  cache,
				Logger: logger,
			})
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Printf("Watcher stopped: %v", err)
			}
			ws.Close()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/token/", s.handleToken)
	mux.HandleFunc("/status", s.handleStatus)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	return mux
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TokenResponse is the JSON shape of one token record.
type TokenResponse struct {
	Address    string            `json:"address"`
	Name       string            `json:"name"`
	Symbol     string            `json:"symbol"`
	Source     string            `json:"source"`
	MintDate   *int64            `json:"mint_date,omitempty"`
	IsNewToken bool              `json:"is_new_token"`
	Supply     string            `json:"supply,omitempty"`
	Decimals   uint8             `json:"decimals"`
	Metadata   *MetadataResponse `json:"metadata,omitempty"`
}

// MetadataResponse is the JSON shape of an on-chain metadata record.
type MetadataResponse struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri,omitempty"`
}

func toTokenResponse(r *domain.TokenRecord) TokenResponse {
	resp := TokenResponse{
		Address:    r.Address,
		Name:       r.Name,
		Symbol:     r.Symbol,
		Source:     string(r.Source),
		MintDate:   r.MintDate,
		IsNewToken: r.IsNewToken,
		Supply:     r.Supply,
		Decimals:   r.Decimals,
	}
	if r.Metadata != nil {
		resp.Metadata = &MetadataResponse{
			Name:   r.Metadata.Name,
			Symbol: r.Metadata.Symbol,
			URI:    r.Metadata.URI,
		}
	}
	return resp
}

// SearchResponse is the JSON response for /search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Range   string          `json:"range"`
	Count   int             `json:"count"`
	Results []TokenResponse `json:"results"`
}

// handleSearch serves GET /search?q=&range=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing query parameter q"})
		return
	}

	opts := domain.SearchOptions{TimeRange: domain.RangeAll}
	if rng := r.URL.Query().Get("range"); rng != "" {
		tr := domain.TimeRange(rng)
		if !tr.IsValid() {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid range, expected 24h, 7d, 30d or all"})
			return
		}
		opts.TimeRange = tr
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		opts.ResultCap = n
	}

	atomic.AddInt64(&s.searches, 1)

	results, err := s.service.SearchTokens(r.Context(), query, opts)
	if err != nil {
		s.logger.Printf("search %q: %v", query, err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	out := make([]TokenResponse, 0, len(results))
	for _, r := range results {
		out = append(out, toTokenResponse(r))
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Range:   string(opts.Normalize().TimeRange),
		Count:   len(out),
		Results: out,
	})
}

// handleToken serves GET /token/<address>.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimPrefix(r.URL.Path, "/token/")
	if address == "" || strings.Contains(address, "/") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing token address"})
		return
	}

	atomic.AddInt64(&s.lookups, 1)

	record, err := s.service.GetTokenDetails(r.Context(), address)
	if err != nil {
		s.logger.Printf("token %s: %v", address, err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
		return
	}
	if record == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "token not found"})
		return
	}

	writeJSON(w, http.StatusOK, toTokenResponse(record))
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Slot        int64  `json:"slot,omitempty"`
	Searches    int64  `json:"searches"`
	Lookups     int64  `json:"lookups"`
	CacheLen    int    `json:"cache_len"`
	CacheHits   int64  `json:"cache_hits"`
	CacheMisses int64  `json:"cache_misses"`
}

// handleStatus returns server status as JSON. The node slot is best-effort;
// an unreachable node must not take /status down with it.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	slotCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	slot, err := s.rpc.GetSlot(slotCtx)
	if err != nil {
		slot = 0
	}

	hits, misses := s.cache.Stats()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Slot:        slot,
		Searches:    atomic.LoadInt64(&s.searches),
		Lookups:     atomic.LoadInt64(&s.lookups),
		CacheLen:    s.cache.Len(),
		CacheHits:   hits,
		CacheMisses: misses,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
