package models

import (
	"strconv"
	"strings"
)

// PricePoint is one daily bar of an instrument's history. Prices are
// quoted in integer currency units; Date is a YYYYMMDD calendar day and
// is the ordering key within a series.
type PricePoint struct {
	Date       int     `json:"date"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	AdjClose   float64 `json:"adj_close"`
	PrevClose  float64 `json:"prev_close"` // exchange's reference price for the prior day
	TradeCount int64   `json:"trade_count"`
	Volume     float64 `json:"volume"`
	Value      float64 `json:"value"`
}

// Interval selects the bar size of a returned history series.
type Interval string

const (
	IntervalDaily   Interval = "d"
	IntervalWeekly  Interval = "w"
	IntervalMonthly Interval = "m"
)

// Valid reports whether the interval is one of the recognized values.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// priceFieldCount is the number of comma-separated fields per closing
// price row on the wire: id, date, adjClose, close, tradeCount, volume,
// value, low, high, prevClose, open.
const priceFieldCount = 11

// ParsePricePoints decodes one instrument's block of the closing-price
// payload into bars, ascending by date as sent. Rows with a zero trade
// count are non-trading placeholders and are dropped; malformed rows
// are skipped.
func ParsePricePoints(block string) []PricePoint {
	block = strings.TrimSpace(block)
	if block == "" {
		return nil
	}

	rows := strings.Split(block, ";")
	points := make([]PricePoint, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		fields := strings.Split(row, ",")
		if len(fields) < priceFieldCount {
			continue
		}
		date, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			continue
		}
		count, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
		if err != nil || count == 0 {
			continue
		}
		points = append(points, PricePoint{
			Date:       date,
			AdjClose:   parsePrice(fields[2]),
			Close:      parsePrice(fields[3]),
			TradeCount: count,
			Volume:     parsePrice(fields[5]),
			Value:      parsePrice(fields[6]),
			Low:        parsePrice(fields[7]),
			High:       parsePrice(fields[8]),
			PrevClose:  parsePrice(fields[9]),
			Open:       parsePrice(fields[10]),
		})
	}
	return points
}

func parsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}
