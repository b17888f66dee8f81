package marketdata

import (
	"sort"
	"sync"

	"github.com/hamedsh/tsemarket/internal/models"
)

// HistoryCache owns the per-symbol daily series. Series are ascending
// by date with no duplicate dates; the cache only grows. All access is
// serialized by the cache mutex, so concurrent batch merges never
// interleave within a symbol.
type HistoryCache struct {
	mu     sync.Mutex
	series map[string][]models.PricePoint
}

// NewHistoryCache creates an empty cache.
func NewHistoryCache() *HistoryCache {
	return &HistoryCache{series: make(map[string][]models.PricePoint)}
}

// LastDate returns the max cached date for a symbol, or 0 when the
// symbol has no cached series. This is the watermark for delta
// planning.
func (c *HistoryCache) LastDate(symbol string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pts := c.series[symbol]
	if len(pts) == 0 {
		return 0
	}
	// Series are kept ascending; the last point carries the max date.
	return pts[len(pts)-1].Date
}

// Merge folds incoming bars into a symbol's series. Incoming bars are
// assumed date-ordered as sent by the service. Delta planning never
// requests already-cached days, so overlapping dates only occur when
// the remote truly resent a day; in that case the incoming (last-seen)
// bar wins.
func (c *HistoryCache) Merge(symbol string, incoming []models.PricePoint) {
	if len(incoming) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing := c.series[symbol]
	if len(existing) == 0 {
		c.series[symbol] = append([]models.PricePoint(nil), incoming...)
		return
	}

	merged := make([]models.PricePoint, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date < merged[j].Date
	})

	// Stable sort keeps incoming bars after existing ones on equal
	// dates; keep the later occurrence.
	deduped := merged[:0]
	for i, p := range merged {
		if i+1 < len(merged) && merged[i+1].Date == p.Date {
			continue
		}
		deduped = append(deduped, p)
	}
	c.series[symbol] = deduped
}

// Series returns a copy of a symbol's cached series, ascending by
// date. A symbol with no cached data yields an empty series.
func (c *HistoryCache) Series(symbol string) []models.PricePoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	pts := c.series[symbol]
	out := make([]models.PricePoint, len(pts))
	copy(out, pts)
	return out
}

// Symbols returns the symbols with cached series, unordered.
func (c *HistoryCache) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.series))
	for s := range c.series {
		out = append(out, s)
	}
	return out
}

// requestToken is one instrument's pending delta request.
type requestToken struct {
	id     int64
	symbol string
	since  int
	index  bool // instrument trades on the index market
}

// planDelta computes the minimal request set for the given symbols.
// Each instrument is compared against its own market segment's last
// available date, so a symbol is only requested when its segment has
// published something newer than the cache holds. Unknown symbols are
// skipped.
func planDelta(catalog *Catalog, cache *HistoryCache, symbols []string, normalLast, indexLast int) []requestToken {
	var tokens []requestToken
	for _, symbol := range symbols {
		records := catalog.RecordsForSymbol(symbol)
		if len(records) == 0 {
			continue
		}

		since := cache.LastDate(symbol)
		for _, rec := range records {
			lastAvailable := normalLast
			if rec.Market == models.MarketIndex {
				lastAvailable = indexLast
			}
			if lastAvailable <= since {
				continue
			}
			tokens = append(tokens, requestToken{
				id:     rec.ID,
				symbol: rec.Symbol,
				since:  since,
				index:  rec.Market == models.MarketIndex,
			})
		}
	}
	return tokens
}
