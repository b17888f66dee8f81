// Package marketdata maintains a local view of the exchange instrument
// catalog and per-symbol daily price history, refreshed by delta
// fetches against the exchange data service.
package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/interfaces"
	"github.com/hamedsh/tsemarket/internal/models"
)

// Service owns the catalog, the history cache and the exchange client
// for one session. Construct it once and share the handle; there is no
// ambient global state.
type Service struct {
	client  interfaces.TSEClient
	fetcher *BatchFetcher
	cache   *HistoryCache
	logger  *common.Logger

	// mu serializes catalog refresh and freshness-marker updates so at
	// most one remote refresh is in flight; concurrent callers block on
	// it and then see the refreshed state.
	mu         sync.Mutex
	catalog    *Catalog
	normalLast int
	indexLast  int

	groupsMu sync.Mutex
	groups   map[string]string // group code -> display name, fetched once
}

// ServiceOption configures the service
type ServiceOption func(*Service, *fetcherConfig)

type fetcherConfig struct {
	chunkSize   int
	concurrency int
}

// WithChunkSize sets the number of instruments per batch request.
func WithChunkSize(n int) ServiceOption {
	return func(_ *Service, fc *fetcherConfig) {
		fc.chunkSize = n
	}
}

// WithConcurrency bounds the number of batch requests in flight.
func WithConcurrency(n int) ServiceOption {
	return func(_ *Service, fc *fetcherConfig) {
		fc.concurrency = n
	}
}

// NewService creates a new market data session around a client.
func NewService(client interfaces.TSEClient, logger *common.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		client:  client,
		cache:   NewHistoryCache(),
		catalog: NewCatalog(),
		logger:  logger,
	}
	fc := &fetcherConfig{chunkSize: DefaultChunkSize, concurrency: 1}
	for _, opt := range opts {
		opt(s, fc)
	}
	s.fetcher = NewBatchFetcher(client, fc.chunkSize, fc.concurrency, logger)
	return s
}

// Cache exposes the history cache, e.g. for exporting cached series.
func (s *Service) Cache() *HistoryCache {
	return s.cache
}

// RefreshCatalog brings the catalog up to date. A delta fetch runs only
// when the catalog is empty or today is past its newest listing date;
// an empty delta payload is "nothing new" and leaves the catalog
// untouched.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCatalogLocked(ctx)
}

func (s *Service) refreshCatalogLocked(ctx context.Context) error {
	last := s.catalog.LastListingDate()
	if s.catalog.Len() > 0 && common.Today() <= last {
		return nil
	}

	payload, err := s.client.FetchInstruments(ctx, last)
	if err != nil {
		return fmt.Errorf("failed to fetch instrument delta: %w", err)
	}

	delta := models.ParseInstruments(payload)
	if len(delta) == 0 {
		return nil
	}

	s.catalog.MergeDelta(delta)
	s.logger.Debug().Int("delta", len(delta)).Int("catalog", s.catalog.Len()).Msg("Catalog refreshed")
	return nil
}

// lastAvailable returns the per-market freshness markers, refetching
// only when today is past both cached markers.
func (s *Service) lastAvailable(ctx context.Context) (normal, index int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := common.Today()
	if s.normalLast != 0 && today <= max(s.normalLast, s.indexLast) {
		return s.normalLast, s.indexLast, nil
	}

	payload, err := s.client.FetchLastPossibleDeven(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch last available dates: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(payload), ";")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: last available dates marker %q", common.ErrDataUnavailable, payload)
	}
	normal, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed normal-market marker %q", common.ErrDataUnavailable, parts[0])
	}
	index, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed index-market marker %q", common.ErrDataUnavailable, parts[1])
	}

	s.normalLast, s.indexLast = normal, index
	return normal, index, nil
}

// SearchInstruments finds catalog records whose symbol matches the
// whitespace-wildcard pattern, optionally restricted to one market.
func (s *Service) SearchInstruments(ctx context.Context, pattern string, market interfaces.MarketFilter) ([]models.InstrumentRecord, error) {
	var m models.Market
	switch market {
	case interfaces.FilterNone:
	case interfaces.FilterIndex:
		m = models.MarketIndex
	case interfaces.FilterNormal:
		m = models.MarketNormal
	default:
		return nil, fmt.Errorf("%w: market filter %q", common.ErrInvalidArgument, market)
	}

	if err := s.RefreshCatalog(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Search(pattern, m)
}

// LookupSymbol returns the most recent catalog record for a symbol.
func (s *Service) LookupSymbol(ctx context.Context, symbol string) (models.InstrumentRecord, bool) {
	if err := s.RefreshCatalog(ctx); err != nil {
		return models.InstrumentRecord{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.LookupSymbol(symbol)
}

// ListIndices returns the index instruments, one per symbol.
func (s *Service) ListIndices(ctx context.Context) ([]models.InstrumentRecord, error) {
	if err := s.RefreshCatalog(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.Indices(), nil
}

// FilterByGroup returns catalog records in the named sector group. An
// empty group name returns the full catalog; an unknown group name
// returns an empty result.
func (s *Service) FilterByGroup(ctx context.Context, groupName string) ([]models.InstrumentRecord, error) {
	if err := s.RefreshCatalog(ctx); err != nil {
		return nil, err
	}

	if groupName == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.catalog.All(), nil
	}

	groups, err := s.groupNames(ctx)
	if err != nil {
		return nil, err
	}

	groupName = models.NormalizeSymbolText(strings.TrimSpace(groupName))
	var code string
	for c, name := range groups {
		if name == groupName {
			code = c
			break
		}
	}
	if code == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.FilterGroupCode(code), nil
}

// GroupNames returns the sector group code to display name mapping.
func (s *Service) GroupNames(ctx context.Context) (map[string]string, error) {
	groups, err := s.groupNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(groups))
	for k, v := range groups {
		out[k] = v
	}
	return out, nil
}

// groupNames fetches the group map at most once per process lifetime.
func (s *Service) groupNames(ctx context.Context) (map[string]string, error) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()

	if s.groups != nil {
		return s.groups, nil
	}

	groups, err := s.client.FetchGroupNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group names: %w", err)
	}
	s.groups = groups
	return groups, nil
}

// GetHistory serves point-in-time series for the requested symbols. It
// refreshes the catalog if stale, plans and executes the minimal delta
// fetch, merges the results, then optionally adjusts for corporate
// actions and resamples. Unknown symbols are skipped; a known symbol
// with no rows in range yields an empty series.
func (s *Service) GetHistory(ctx context.Context, req interfaces.HistoryRequest) (map[string][]models.PricePoint, error) {
	if !req.Interval.Valid() {
		return nil, fmt.Errorf("%w: interval %q (valid values are d, w and m)", common.ErrInvalidArgument, req.Interval)
	}
	start, end, err := common.SanitizeRange(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	if err := s.RefreshCatalog(ctx); err != nil {
		return nil, err
	}

	normalLast, indexLast, err := s.lastAvailable(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	tokens := planDelta(s.catalog, s.cache, req.Symbols, normalLast, indexLast)
	s.mu.Unlock()

	if len(tokens) > 0 {
		if err := s.fetcher.Execute(ctx, tokens, s.cache.Merge); err != nil {
			return nil, fmt.Errorf("failed to fetch price deltas: %w", err)
		}
	}

	startDay, endDay := common.DayInt(start), common.DayInt(end)
	result := make(map[string][]models.PricePoint, len(req.Symbols))
	for _, symbol := range req.Symbols {
		s.mu.Lock()
		rec, ok := s.catalog.LookupSymbol(symbol)
		s.mu.Unlock()
		if !ok {
			continue
		}

		series := s.cache.Series(rec.Symbol)
		if req.AdjustPrices && rec.Market == models.MarketNormal {
			series, err = AdjustSeries(series)
			if err != nil {
				return nil, fmt.Errorf("failed to adjust %s: %w", rec.Symbol, err)
			}
		}

		series = Trim(series, startDay, endDay)
		result[rec.Symbol] = Resample(series, req.Interval)
	}
	return result, nil
}

// ExportHistory writes the cached series of the given symbols to the
// store. Symbols with no cached data are skipped.
func (s *Service) ExportHistory(ctx context.Context, store interfaces.HistoryStore, symbols []string) error {
	for _, symbol := range symbols {
		series := s.cache.Series(symbol)
		if len(series) == 0 {
			continue
		}
		if err := store.SaveSeries(ctx, symbol, series); err != nil {
			return fmt.Errorf("failed to export %s: %w", symbol, err)
		}
	}
	return nil
}

// Ensure Service implements MarketDataService
var _ interfaces.MarketDataService = (*Service)(nil)
