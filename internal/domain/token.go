package domain

import (
	"strings"
	"time"
)

// UnknownName is the sentinel used when a token carries no usable
// display name or symbol after sanitization.
const UnknownName = "Unknown"

// DefaultFreshnessWindow defines how recent a mint must be to count as new.
const DefaultFreshnessWindow = 24 * time.Hour

// TokenMetadata holds fields parsed from an on-chain metadata account.
// It is kept independent of the base name/symbol so callers can see
// both the raw mint state and the metadata record.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// TokenRecord is the unit returned to search callers.
type TokenRecord struct {
	Address    string         // mint address, unique dedup key
	Name       string         // sanitized, never empty (sentinel "Unknown")
	Symbol     string         // sanitized, never empty (sentinel "Unknown")
	Source     Source         // provenance tag
	MintDate   *int64         // unix seconds of earliest known tx, nil if undiscoverable
	IsNewToken bool           // derived: MintDate within the freshness window
	Supply     string         // raw integer supply from mint state, "" if unknown
	Decimals   uint8          // mint decimals
	Metadata   *TokenMetadata // nil when no metadata account was found
}

// IsNew reports whether the record's mint date falls within window of now.
// Derived property: callers supplying a different window must recompute.
func (r *TokenRecord) IsNew(window time.Duration, now time.Time) bool {
	if r.MintDate == nil {
		return false
	}
	age := now.Unix() - *r.MintDate
	return age >= 0 && age <= int64(window.Seconds())
}

// RecomputeFreshness updates IsNewToken for the given window.
func (r *TokenRecord) RecomputeFreshness(window time.Duration, now time.Time) {
	r.IsNewToken = r.IsNew(window, now)
}

// SanitizeDisplay strips everything outside [A-Za-z0-9 _-] from s and trims
// whitespace. Results shorter than 2 characters collapse to UnknownName.
// Token names on a permissionless ledger are attacker-controlled input.
func SanitizeDisplay(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9',
			c == ' ', c == '_', c == '-':
			b.WriteRune(c)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) < 2 {
		return UnknownName
	}
	return out
}
