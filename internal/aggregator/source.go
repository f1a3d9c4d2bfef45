// Package aggregator implements the candidate-producing strategies behind a
// search: the static known-token registry, the third-party aggregator list,
// and the ledger activity scan. Each source is independent; the search
// orchestrator fans out across all of them and merges.
package aggregator

import (
	"context"
	"time"

	"solana-token-search/internal/domain"
)

// timeNow is overridable in tests.
var timeNow = time.Now

// Source produces candidate token records matching a query.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Collect returns every matching record this source can produce.
	// Implementations tolerate partial failure internally; a returned
	// error means the source produced nothing usable.
	Collect(ctx context.Context, query string, opts domain.SearchOptions) ([]*domain.TokenRecord, error)
}
