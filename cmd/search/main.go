// Package main provides a one-shot command line search:
//
//	search [flags] <query>
//
// Prints matching tokens as a table, or JSON with -json.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"solana-token-search/internal/aggregator"
	"solana-token-search/internal/domain"
	"solana-token-search/internal/resolver"
	"solana-token-search/internal/search"
	"solana-token-search/internal/solana"
	"solana-token-search/internal/tokenlist"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	apiKey := flag.String("api-key", os.Getenv("SOLANA_RPC_API_KEY"), "RPC provider API key")
	rangeFlag := flag.String("range", "all", "Time range: 24h, 7d, 30d or all")
	limit := flag.Int("limit", domain.DefaultResultCap, "Maximum number of results")
	asJSON := flag.Bool("json", false, "Print results as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall search timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[search] ", log.LstdFlags)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: search [flags] <query>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	query := strings.Join(flag.Args(), " ")

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required (or SOLANA_RPC_ENDPOINT)")
	}
	if *apiKey == "" {
		logger.Fatal("--api-key is required (or SOLANA_RPC_API_KEY)")
	}

	timeRange := domain.TimeRange(*rangeFlag)
	if !timeRange.IsValid() {
		logger.Fatalf("invalid --range %q, expected 24h, 7d, 30d or all", *rangeFlag)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rpc := solana.NewHTTPClient(*rpcEndpoint, solana.WithAPIKey(*apiKey))

	res := resolver.New(resolver.Options{RPC: rpc})

	sources := []aggregator.Source{
		aggregator.NewRegistrySource(res, nil),
		aggregator.NewTokenListSource(tokenlist.NewClient(), res, nil),
		aggregator.NewLedgerScanSource(aggregator.LedgerScanOptions{
			RPC:      rpc,
			Resolver: res,
		}),
	}

	service := search.New(search.Options{
		Sources:  sources,
		Resolver: res,
		Logger:   logger,
	})

	results, err := service.SearchTokens(ctx, query, domain.SearchOptions{
		TimeRange: timeRange,
		ResultCap: *limit,
	})
	if err != nil {
		logger.Fatalf("Search failed: %v", err)
	}

	if *asJSON {
		printJSON(results)
		return
	}
	printTable(query, results)
}

func printJSON(results []*domain.TokenRecord) {
	type tokenOut struct {
		Address    string `json:"address"`
		Name       string `json:"name"`
		Symbol     string `json:"symbol"`
		Source     string `json:"source"`
		MintDate   *int64 `json:"mint_date,omitempty"`
		IsNewToken bool   `json:"is_new_token"`
		Supply     string `json:"supply,omitempty"`
		Decimals   uint8  `json:"decimals"`
	}

	out := make([]tokenOut, 0, len(results))
	for _, r := range results {
		out = append(out, tokenOut{
			Address:    r.Address,
			Name:       r.Name,
			Symbol:     r.Symbol,
			Source:     string(r.Source),
			MintDate:   r.MintDate,
			IsNewToken: r.IsNewToken,
			Supply:     r.Supply,
			Decimals:   r.Decimals,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}

func printTable(query string, results []*domain.TokenRecord) {
	if len(results) == 0 {
		fmt.Printf("No tokens found for %q\n", query)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tSOURCE\tMINTED\tNEW\tADDRESS")
	for _, r := range results {
		minted := "-"
		if r.MintDate != nil {
			minted = time.Unix(*r.MintDate, 0).UTC().Format("2006-01-02 15:04")
		}
		isNew := ""
		if r.IsNewToken {
			isNew = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Symbol, r.Name, r.Source, minted, isNew, r.Address)
	}
	w.Flush()

	fmt.Printf("\n%d token(s)\n", len(results))
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
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

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
