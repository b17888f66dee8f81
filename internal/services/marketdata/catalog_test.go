package marketdata

import (
	"errors"
	"testing"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

func record(id int64, symbol string, listingDate int, market models.Market, typ string) models.InstrumentRecord {
	return models.InstrumentRecord{
		ID:          id,
		Symbol:      symbol,
		ListingDate: listingDate,
		Market:      market,
		Type:        typ,
	}
}

func TestCatalogMergeDelta_DedupByID(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "وبملت", 20200101, models.MarketNormal, models.TypeStock),
		record(2, "فولاد", 20200101, models.MarketNormal, models.TypeStock),
	})
	// Overlapping delta: id 1 re-published with a newer listing date.
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "وبملت", 20230101, models.MarketNormal, models.TypeStock),
		record(3, "خودرو", 20230101, models.MarketNormal, models.TypeStock),
	})

	if c.Len() != 3 {
		t.Fatalf("catalog size = %d, want 3", c.Len())
	}

	seen := make(map[int64]int)
	for _, r := range c.All() {
		seen[r.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %d appears %d times, want 1", id, n)
		}
	}

	rec, ok := c.LookupSymbol("وبملت")
	if !ok {
		t.Fatal("lookup failed")
	}
	if rec.ListingDate != 20230101 {
		t.Errorf("delta should override prior record, listing date = %d", rec.ListingDate)
	}
}

func TestCatalogMergeDelta_EmptyDeltaIsNoop(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{record(1, "وبملت", 20200101, models.MarketNormal, models.TypeStock)})
	c.MergeDelta(nil)
	if c.Len() != 1 {
		t.Errorf("catalog size = %d, want 1", c.Len())
	}
}

func TestCatalogLookupSymbol_MostRecentListingWins(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{
		record(10, "ذوب", 20150101, models.MarketNormal, models.TypeStock),
		record(11, "ذوب", 20210601, models.MarketNormal, models.TypeStock),
	})

	rec, ok := c.LookupSymbol("ذوب")
	if !ok {
		t.Fatal("lookup failed")
	}
	if rec.ID != 11 {
		t.Errorf("lookup id = %d, want the re-listing 11", rec.ID)
	}

	all := c.RecordsForSymbol("ذوب")
	if len(all) != 2 {
		t.Fatalf("records for symbol = %d, want 2", len(all))
	}
	if all[0].ListingDate < all[1].ListingDate {
		t.Error("records not ordered most recent listing first")
	}
}

func TestCatalogLastListingDate(t *testing.T) {
	c := NewCatalog()
	if c.LastListingDate() != 0 {
		t.Errorf("empty catalog watermark = %d, want 0", c.LastListingDate())
	}
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "الف", 20200101, models.MarketNormal, models.TypeStock),
		record(2, "ب", 20230510, models.MarketNormal, models.TypeStock),
	})
	if c.LastListingDate() != 20230510 {
		t.Errorf("watermark = %d, want 20230510", c.LastListingDate())
	}
}

func TestCatalogSearch_WhitespaceWildcard(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "شاخص کل6", 20200101, models.MarketIndex, models.TypeIndex),
		record(2, "شاخصکل6", 20200101, models.MarketIndex, models.TypeIndex),
		record(3, "شبندر", 20200101, models.MarketNormal, models.TypeStock),
	})

	got, err := c.Search("شاخص    کل6", "")
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("search matched %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.ID != 1 && r.ID != 2 {
			t.Errorf("unexpected match id %d", r.ID)
		}
	}
}

func TestCatalogSearch_MarketRestriction(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "شاخص کل", 20200101, models.MarketIndex, models.TypeIndex),
		record(2, "شاخص ساز", 20200101, models.MarketNormal, models.TypeStock),
	})

	got, err := c.Search("شاخص", models.MarketNormal)
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("market-restricted search = %v, want only id 2", got)
	}
}

func TestCatalogSearch_BadPattern(t *testing.T) {
	c := NewCatalog()
	if _, err := c.Search("فولاد(", ""); !errors.Is(err, common.ErrInvalidArgument) {
		t.Errorf("bad pattern error = %v, want ErrInvalidArgument", err)
	}
}

func TestCatalogIndices_DedupBySymbol(t *testing.T) {
	c := NewCatalog()
	c.MergeDelta([]models.InstrumentRecord{
		record(1, "شاخص کل", 20200101, models.MarketIndex, models.TypeIndex),
		record(2, "شاخص کل", 20150101, models.MarketIndex, models.TypeIndex),
		record(3, "شاخص صنعت", 20200101, models.MarketIndex, models.TypeIndex),
		record(4, "وبملت", 20200101, models.MarketNormal, models.TypeStock),
	})

	indices := c.Indices()
	if len(indices) != 2 {
		t.Fatalf("indices = %d, want 2", len(indices))
	}
	for _, r := range indices {
		if !r.IsIndex() {
			t.Errorf("non-index record %d in indices", r.ID)
		}
	}
}

func TestCatalogFilterGroupCode(t *testing.T) {
	c := NewCatalog()
	banks := record(1, "وبملت", 20200101, models.MarketNormal, models.TypeStock)
	banks.Group = "57"
	steel := record(2, "فولاد", 20200101, models.MarketNormal, models.TypeStock)
	steel.Group = "27"
	c.MergeDelta([]models.InstrumentRecord{banks, steel})

	got := c.FilterGroupCode("57")
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("group filter = %v, want only id 1", got)
	}
}
