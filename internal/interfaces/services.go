package interfaces

import (
	"context"
	"time"

	"github.com/hamedsh/tsemarket/internal/models"
)

// MarketFilter restricts instrument search to one market segment.
type MarketFilter string

const (
	FilterNone   MarketFilter = ""
	FilterIndex  MarketFilter = "index"
	FilterNormal MarketFilter = "normal"
)

// HistoryRequest describes one GetHistory call.
type HistoryRequest struct {
	Symbols      []string
	Start        time.Time
	End          time.Time
	Interval     models.Interval
	AdjustPrices bool
}

// MarketDataService maintains the instrument catalog and per-symbol
// history cache and serves point-in-time OHLCV series from them.
type MarketDataService interface {
	// RefreshCatalog brings the instrument catalog up to date via a
	// delta fetch. A no-op when the catalog is already current.
	RefreshCatalog(ctx context.Context) error

	// SearchInstruments finds catalog records whose symbol matches the
	// whitespace-wildcard pattern, optionally restricted by market.
	SearchInstruments(ctx context.Context, pattern string, market MarketFilter) ([]models.InstrumentRecord, error)

	// LookupSymbol returns the most recent catalog record for a symbol.
	LookupSymbol(ctx context.Context, symbol string) (models.InstrumentRecord, bool)

	// ListIndices returns the index instruments, deduplicated by symbol.
	ListIndices(ctx context.Context) ([]models.InstrumentRecord, error)

	// FilterByGroup returns catalog records in the named sector group,
	// or the full catalog when groupName is empty.
	FilterByGroup(ctx context.Context, groupName string) ([]models.InstrumentRecord, error)

	// GetHistory returns resampled, optionally adjusted series per
	// requested symbol. Unknown symbols are skipped.
	GetHistory(ctx context.Context, req HistoryRequest) (map[string][]models.PricePoint, error)
}
