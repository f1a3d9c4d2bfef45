// Package match implements the free-text query matching heuristic used to
// filter token candidates. Token names on a permissionless ledger are
// adversarially chosen (meme-coin copycats), so the heuristic deliberately
// favors recall over precision: it is a filter, not a relevance-scored
// search, and false positives are accepted.
package match

import (
	"regexp"
	"strings"
)

// addressMatchMinQueryLen gates address substring matching: short tickers
// would otherwise collide with base58 address fragments constantly.
const addressMatchMinQueryLen = 10

var wordSplit = regexp.MustCompile(`[\s_-]+`)

// Matches reports whether query matches a token's name, symbol, or address.
// Pure, deterministic, case-insensitive, whitespace-trimmed.
func Matches(query, name, symbol, address string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	name = strings.ToLower(strings.TrimSpace(name))
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	address = strings.ToLower(strings.TrimSpace(address))

	if query == "" {
		return false
	}

	// 1. Exact match.
	if query == symbol || query == name || query == address {
		return true
	}

	queryWords := splitWords(query)
	targetWords := append(splitWords(name), splitWords(symbol)...)

	// 2. Token-wise match: each query word of length >= 2 against the
	// name/symbol word sets, substring either direction.
	for _, qw := range queryWords {
		if len(qw) < 2 {
			continue
		}
		for _, tw := range targetWords {
			if strings.Contains(tw, qw) || strings.Contains(qw, tw) {
				return true
			}
		}
	}

	// 3. Heuristic per-word variants against full name/symbol.
	for _, qw := range queryWords {
		if len(qw) < 2 {
			continue
		}
		for _, v := range variants(qw) {
			if strings.Contains(name, v) || strings.Contains(symbol, v) {
				return true
			}
		}
	}

	// 4. Whole-query variants.
	for _, v := range variants(query) {
		if strings.Contains(name, v) || strings.Contains(symbol, v) {
			return true
		}
	}

	// 5. Fallback: substring either direction, address only for long queries.
	if containsEither(name, query) || containsEither(symbol, query) {
		return true
	}
	if len(query) > addressMatchMinQueryLen && strings.Contains(address, query) {
		return true
	}

	return false
}

// variants generates the heuristic suffixed forms of a word: pluralized,
// de-pluralized, numbered sequels, and the meme-coin suffixes that copycat
// tokens gravitate toward.
func variants(word string) []string {
	out := []string{
		word + "s",
		word + "2",
		word + "3",
		word + "inu",
		word + "sol",
		"sol" + word,
		word + "coin",
		word + "token",
	}
	if strings.HasSuffix(word, "s") && len(word) > 2 {
		out = append(out, strings.TrimSuffix(word, "s"))
	}
	return out
}

func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	parts := wordSplit.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
