// Package interfaces defines service contracts for tsemarket
package interfaces

import (
	"context"
)

// TSEClient provides access to the exchange's public data service.
// Implementations return the raw text payloads of the service; a failed
// or empty response surfaces as an empty string, except where noted.
type TSEClient interface {
	// FetchInstruments retrieves catalog rows listed after sinceDate
	// (YYYYMMDD, 0 for the full catalog) as semicolon-separated records.
	FetchInstruments(ctx context.Context, sinceDate int) (string, error)

	// FetchLastPossibleDeven retrieves the "<normal>;<index>" marker of
	// the most recent published trading dates per market segment.
	FetchLastPossibleDeven(ctx context.Context) (string, error)

	// FetchClosingPrices retrieves daily bars for a batch request of
	// "<id>,<sinceDate>,<0|1>" tuples joined by ";". The reply carries
	// one block per requested instrument, joined by "@", in request
	// order.
	FetchClosingPrices(ctx context.Context, requestSpec string) (string, error)

	// FetchGroupNames retrieves the sector group code to display name
	// mapping from the public listing page.
	FetchGroupNames(ctx context.Context) (map[string]string, error)
}
