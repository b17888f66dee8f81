package marketdata

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

// Catalog holds the deduplicated instrument set, ordered by
// (symbol ascending, listing date descending) so that the first record
// for a symbol is always its most recent listing. The catalog only
// grows; delta refreshes union into it.
type Catalog struct {
	records []models.InstrumentRecord
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Len returns the number of records in the catalog.
func (c *Catalog) Len() int {
	return len(c.records)
}

// LastListingDate returns the max listing date across the catalog, or
// 0 when the catalog is empty. This is the watermark for delta fetches.
func (c *Catalog) LastListingDate() int {
	last := 0
	for _, r := range c.records {
		if r.ListingDate > last {
			last = r.ListingDate
		}
	}
	return last
}

// MergeDelta unions delta records into the catalog. A delta record
// replaces any prior record with the same id; the result is re-sorted
// by (symbol asc, listing date desc).
func (c *Catalog) MergeDelta(delta []models.InstrumentRecord) {
	if len(delta) == 0 {
		return
	}

	seen := make(map[int64]struct{}, len(delta)+len(c.records))
	merged := make([]models.InstrumentRecord, 0, len(delta)+len(c.records))
	// Delta first so a re-published id overrides the prior entry.
	for _, r := range delta {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range c.records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Symbol != merged[j].Symbol {
			return merged[i].Symbol < merged[j].Symbol
		}
		return merged[i].ListingDate > merged[j].ListingDate
	})
	c.records = merged
}

// All returns the catalog records in catalog order.
func (c *Catalog) All() []models.InstrumentRecord {
	out := make([]models.InstrumentRecord, len(c.records))
	copy(out, c.records)
	return out
}

// LookupSymbol returns the first record for a symbol in catalog order,
// i.e. its most recent listing.
func (c *Catalog) LookupSymbol(symbol string) (models.InstrumentRecord, bool) {
	symbol = models.NormalizeSymbolText(symbol)
	for _, r := range c.records {
		if r.Symbol == symbol {
			return r, true
		}
	}
	return models.InstrumentRecord{}, false
}

// RecordsForSymbol returns every record sharing a symbol, most recent
// listing first. Re-listed instruments have one record per listing.
func (c *Catalog) RecordsForSymbol(symbol string) []models.InstrumentRecord {
	symbol = models.NormalizeSymbolText(symbol)
	var out []models.InstrumentRecord
	for _, r := range c.records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}

var wsRun = regexp.MustCompile(`\s{2,}`)

// Search finds records whose symbol matches the pattern. Runs of
// whitespace in the pattern collapse to a single wildcard gap matching
// any characters. market narrows the result to one segment; the empty
// market matches both.
func (c *Catalog) Search(pattern string, market models.Market) ([]models.InstrumentRecord, error) {
	pattern = wsRun.ReplaceAllString(strings.TrimSpace(models.NormalizeSymbolText(pattern)), " ")
	expr := strings.ReplaceAll(pattern, " ", ".*")
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad search pattern %q", common.ErrInvalidArgument, pattern)
	}

	var out []models.InstrumentRecord
	for _, r := range c.records {
		if market != "" && r.Market != market {
			continue
		}
		if re.MatchString(r.Symbol) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Indices returns the index instruments, one per symbol, in catalog
// order.
func (c *Catalog) Indices() []models.InstrumentRecord {
	seen := make(map[string]struct{})
	var out []models.InstrumentRecord
	for _, r := range c.records {
		if !r.IsIndex() {
			continue
		}
		if _, dup := seen[r.Symbol]; dup {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FilterGroupCode returns the records belonging to a sector group code.
func (c *Catalog) FilterGroupCode(code string) []models.InstrumentRecord {
	var out []models.InstrumentRecord
	for _, r := range c.records {
		if r.Group == code {
			out = append(out, r)
		}
	}
	return out
}
