// Package models defines data structures for tsemarket
package models

import (
	"strconv"
	"strings"
)

// Market identifies the market segment an instrument trades on.
type Market string

const (
	MarketIndex  Market = "ID" // index market
	MarketNormal Market = "NO" // normal (equity) market
)

// Instrument type codes as published by the exchange.
const (
	TypeIndex = "I"
	TypeStock = "A"
)

// InstrumentRecord is one row of the exchange instrument catalog.
// ID is the true primary key; a symbol may appear on several records
// across re-listings, distinguished by ListingDate.
type InstrumentRecord struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	LatinSymbol string `json:"latin_symbol"`
	LatinName   string `json:"latin_name"`
	CompanyCode string `json:"company_code"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	ISIN        string `json:"isin"`
	ListingDate int    `json:"listing_date"` // YYYYMMDD, catalog freshness marker
	Flow        string `json:"flow"`
	CompanyName string `json:"company_name"`
	Type        string `json:"type"`  // "I" index, "A" equity
	Board       string `json:"board"`
	Market      Market `json:"market"` // "ID" index market, "NO" normal market
	Group       string `json:"group"`  // sector group code
	SubGroup    string `json:"sub_group"`
	Category    string `json:"category"`
}

// IsIndex reports whether the record describes an index rather than a
// tradable equity.
func (r InstrumentRecord) IsIndex() bool {
	return r.Type == TypeIndex
}

// instrumentFieldCount is the number of comma-separated fields per
// catalog row on the wire.
const instrumentFieldCount = 18

// NormalizeSymbolText maps locale-variant Arabic letter forms to their
// canonical Persian counterparts so that lookups match regardless of
// which form the exchange happened to publish.
func NormalizeSymbolText(s string) string {
	s = strings.ReplaceAll(s, "ك", "ک") // ك -> ک
	s = strings.ReplaceAll(s, "ي", "ی") // ي -> ی
	return s
}

// ParseInstruments decodes the semicolon-separated catalog payload into
// records. Rows with too few fields or a malformed id are skipped; text
// fields are normalized to the canonical alphabet. An empty payload
// yields an empty slice.
func ParseInstruments(payload string) []InstrumentRecord {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	rows := strings.Split(payload, ";")
	records := make([]InstrumentRecord, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		fields := strings.Split(row, ",")
		if len(fields) < instrumentFieldCount {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			continue
		}
		listingDate, err := strconv.Atoi(strings.TrimSpace(fields[8]))
		if err != nil {
			continue
		}
		records = append(records, InstrumentRecord{
			ID:          id,
			Code:        fields[1],
			LatinSymbol: fields[2],
			LatinName:   fields[3],
			CompanyCode: fields[4],
			Symbol:      NormalizeSymbolText(fields[5]),
			Name:        NormalizeSymbolText(fields[6]),
			ISIN:        fields[7],
			ListingDate: listingDate,
			Flow:        fields[9],
			CompanyName: NormalizeSymbolText(fields[10]),
			Type:        fields[11],
			Board:       fields[12],
			Market:      Market(fields[13]),
			Group:       fields[15],
			SubGroup:    fields[16],
			Category:    fields[17],
		})
	}
	return records
}
