package marketdata

import (
	"errors"
	"testing"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

func TestAdjustSeries_SingleDiscontinuity(t *testing.T) {
	// Day 2 opens after a 2:1 capital action: its reference price for
	// "yesterday" is half of day 1's adjusted close.
	series := []models.PricePoint{
		{Date: 20230510, Open: 1000, High: 1100, Low: 900, Close: 1000, AdjClose: 1000, PrevClose: 1000},
		{Date: 20230511, Open: 500, High: 520, Low: 480, Close: 500, AdjClose: 500, PrevClose: 500},
		{Date: 20230512, Open: 510, High: 530, Low: 500, Close: 520, AdjClose: 520, PrevClose: 500},
	}

	got, err := AdjustSeries(series)
	if err != nil {
		t.Fatalf("AdjustSeries error: %v", err)
	}

	// Rows before the discontinuity scale by 500/1000.
	if got[0].Close != 500 {
		t.Errorf("day 1 close = %.0f, want 500", got[0].Close)
	}
	if got[0].Open != 500 || got[0].High != 550 || got[0].Low != 450 {
		t.Errorf("day 1 O/H/L = %.0f/%.0f/%.0f, want 500/550/450", got[0].Open, got[0].High, got[0].Low)
	}
	if got[0].AdjClose != 500 || got[0].PrevClose != 500 {
		t.Errorf("day 1 adj/prev = %.0f/%.0f, want 500/500", got[0].AdjClose, got[0].PrevClose)
	}

	// Rows at and after the discontinuity stay unscaled.
	if got[1].Close != 500 || got[2].Close != 520 {
		t.Errorf("post-action closes = %.0f/%.0f, want 500/520", got[1].Close, got[2].Close)
	}

	// The input must not be mutated.
	if series[0].Close != 1000 {
		t.Error("AdjustSeries mutated its input")
	}
}

func TestAdjustSeries_Idempotent(t *testing.T) {
	series := []models.PricePoint{
		{Date: 20230510, Open: 1000, High: 1100, Low: 900, Close: 1000, AdjClose: 1000, PrevClose: 1000},
		{Date: 20230511, Open: 500, High: 520, Low: 480, Close: 500, AdjClose: 500, PrevClose: 500},
		{Date: 20230512, Open: 510, High: 530, Low: 500, Close: 520, AdjClose: 520, PrevClose: 500},
	}

	once, err := AdjustSeries(series)
	if err != nil {
		t.Fatalf("first adjust error: %v", err)
	}
	twice, err := AdjustSeries(once)
	if err != nil {
		t.Fatalf("second adjust error: %v", err)
	}

	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("row %d changed on re-adjustment: %+v != %+v", i, once[i], twice[i])
		}
	}
}

func TestAdjustSeries_CompoundedDiscontinuities(t *testing.T) {
	// Two actions: a halving before day 2 and another halving before
	// day 4. The oldest segment compounds both ratios.
	series := []models.PricePoint{
		{Date: 20230510, Open: 1000, High: 1000, Low: 1000, Close: 1000, AdjClose: 1000, PrevClose: 1000},
		{Date: 20230511, Open: 500, High: 500, Low: 500, Close: 500, AdjClose: 500, PrevClose: 500},
		{Date: 20230512, Open: 500, High: 500, Low: 500, Close: 600, AdjClose: 600, PrevClose: 500},
		{Date: 20230513, Open: 300, High: 300, Low: 300, Close: 300, AdjClose: 300, PrevClose: 300},
	}

	got, err := AdjustSeries(series)
	if err != nil {
		t.Fatalf("AdjustSeries error: %v", err)
	}

	// Segment [day2, day3] scales by 300/600 = 0.5.
	if got[1].Close != 250 || got[2].Close != 300 {
		t.Errorf("middle segment closes = %.0f/%.0f, want 250/300", got[1].Close, got[2].Close)
	}
	// Oldest segment compounds 0.5 * 0.5 = 0.25.
	if got[0].Close != 250 {
		t.Errorf("oldest close = %.0f, want 250", got[0].Close)
	}
	// Most recent segment unscaled.
	if got[3].Close != 300 {
		t.Errorf("latest close = %.0f, want 300 unscaled", got[3].Close)
	}
}

func TestAdjustSeries_NoDiscontinuity(t *testing.T) {
	series := []models.PricePoint{
		{Date: 20230510, Close: 1000, AdjClose: 1000, PrevClose: 990},
		{Date: 20230511, Close: 1010, AdjClose: 1010, PrevClose: 1000},
	}
	got, err := AdjustSeries(series)
	if err != nil {
		t.Fatalf("AdjustSeries error: %v", err)
	}
	for i := range series {
		if got[i] != series[i] {
			t.Errorf("row %d changed without discontinuity", i)
		}
	}
}

func TestAdjustSeries_Empty(t *testing.T) {
	got, err := AdjustSeries(nil)
	if err != nil {
		t.Fatalf("empty series should be a no-op, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty output")
	}
}

func TestAdjustSeries_UnorderedSeriesRejected(t *testing.T) {
	series := []models.PricePoint{
		{Date: 20230512, Close: 1000, AdjClose: 1000, PrevClose: 1000},
		{Date: 20230510, Close: 1000, AdjClose: 1000, PrevClose: 1000},
	}
	if _, err := AdjustSeries(series); !errors.Is(err, common.ErrInvalidState) {
		t.Errorf("unordered series error = %v, want ErrInvalidState", err)
	}
}
