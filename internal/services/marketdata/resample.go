package marketdata

import (
	"time"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

// Trim restricts a date-ascending series to the inclusive [start, end]
// day range.
func Trim(pts []models.PricePoint, start, end int) []models.PricePoint {
	var out []models.PricePoint
	for _, p := range pts {
		if p.Date < start || p.Date > end {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Resample aggregates a date-ascending daily series into bars of the
// requested interval. Daily passes through unchanged. Weekly buckets
// end on Saturday; monthly buckets follow the calendar month. Each bar
// opens on the bucket's first trading day and closes on its last, with
// high/low the bucket extremes and trade count, volume and value summed.
// Buckets with no trading days are omitted; adjusted and reference
// close columns are not carried into aggregated bars.
func Resample(pts []models.PricePoint, interval models.Interval) []models.PricePoint {
	if interval == models.IntervalDaily || len(pts) == 0 {
		return pts
	}

	var out []models.PricePoint
	var bar models.PricePoint
	open := false

	for _, p := range pts {
		key := bucketEnd(p.Date, interval)
		if open && key != bar.Date {
			out = append(out, bar)
			open = false
		}
		if !open {
			bar = models.PricePoint{
				Date:       key,
				Open:       p.Open,
				High:       p.High,
				Low:        p.Low,
				Close:      p.Close,
				TradeCount: p.TradeCount,
				Volume:     p.Volume,
				Value:      p.Value,
			}
			open = true
			continue
		}
		if p.High > bar.High {
			bar.High = p.High
		}
		if p.Low < bar.Low {
			bar.Low = p.Low
		}
		bar.Close = p.Close
		bar.TradeCount += p.TradeCount
		bar.Volume += p.Volume
		bar.Value += p.Value
	}
	if open {
		out = append(out, bar)
	}
	return out
}

// bucketEnd maps a trading day to its bucket's closing calendar day:
// the Saturday on or after the day for weekly bars, the last day of the
// calendar month for monthly bars.
func bucketEnd(date int, interval models.Interval) int {
	t := time.Date(date/10000, time.Month(date/100%100), date%100, 0, 0, 0, 0, time.UTC)
	switch interval {
	case models.IntervalWeekly:
		offset := (int(time.Saturday) - int(t.Weekday()) + 7) % 7
		return common.DayInt(t.AddDate(0, 0, offset))
	case models.IntervalMonthly:
		firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		return common.DayInt(firstOfNext.AddDate(0, 0, -1))
	}
	return date
}
