package marketdata

import (
	"fmt"
	"math"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

// AdjustSeries rescales the historical segments of a daily series so
// prices are comparable across corporate actions.
//
// A discontinuity is a day whose recorded reference price for the prior
// day does not match the prior day's adjusted close: the first trading
// day after a capital action. Walking discontinuities from most recent
// to oldest compounds one ratio per segment; each ratio is relative to
// the next segment's already-adjusted prices, so this order is not
// optional. The segment after the last discontinuity stays unscaled.
//
// The series must be a contiguous date-ascending slice; an unordered
// non-empty series is rejected. An empty series is returned unchanged.
func AdjustSeries(pts []models.PricePoint) ([]models.PricePoint, error) {
	if len(pts) == 0 {
		return pts, nil
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Date <= pts[i-1].Date {
			return nil, fmt.Errorf("%w: series not in ascending date order at %d", common.ErrInvalidState, pts[i].Date)
		}
	}

	// Discontinuity positions; the first row has no predecessor and is
	// never one.
	var diff []int
	for i := 1; i < len(pts); i++ {
		if pts[i].PrevClose != pts[i-1].AdjClose {
			diff = append(diff, i)
		}
	}
	if len(diff) == 0 {
		return pts, nil
	}

	ratios := make([]float64, len(diff))
	ratio := 1.0
	for k := len(diff) - 1; k >= 0; k-- {
		i := diff[k]
		ratio *= pts[i].PrevClose / pts[i-1].AdjClose
		ratios[k] = ratio
	}

	out := make([]models.PricePoint, len(pts))
	copy(out, pts)
	for k, i := range diff {
		start := 0
		if k > 0 {
			start = diff[k-1]
		}
		for j := start; j < i; j++ {
			out[j] = scalePoint(out[j], ratios[k])
		}
	}
	return out, nil
}

// scalePoint multiplies the price columns by ratio, rounding to the
// integer currency units of the source data.
func scalePoint(p models.PricePoint, ratio float64) models.PricePoint {
	p.Open = math.Round(p.Open * ratio)
	p.High = math.Round(p.High * ratio)
	p.Low = math.Round(p.Low * ratio)
	p.Close = math.Round(p.Close * ratio)
	p.AdjClose = math.Round(p.AdjClose * ratio)
	p.PrevClose = math.Round(p.PrevClose * ratio)
	return p
}
