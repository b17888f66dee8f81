// Package historyfs implements file-based CSV export of cached history
// series, one flat file per instrument symbol.
package historyfs

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/interfaces"
	"github.com/hamedsh/tsemarket/internal/models"
)

var header = []string{"date", "open", "high", "low", "close", "count", "volume", "value", "adj_close", "prev_close"}

// Store writes one CSV file per symbol under a base path.
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates the export directory if needed and returns a store.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export path %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("History export store opened")
	return &Store{basePath: path, logger: logger}, nil
}

// DataPath returns the base export path.
func (s *Store) DataPath() string {
	return s.basePath
}

// SaveSeries writes a symbol's series atomically, replacing any prior
// export for that symbol.
func (s *Store) SaveSeries(ctx context.Context, symbol string, series []models.PricePoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.basePath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	w := csv.NewWriter(tmpFile)
	if err := w.Write(header); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range series {
		row := []string{
			strconv.Itoa(p.Date),
			formatPrice(p.Open),
			formatPrice(p.High),
			formatPrice(p.Low),
			formatPrice(p.Close),
			strconv.FormatInt(p.TradeCount, 10),
			formatPrice(p.Volume),
			formatPrice(p.Value),
			formatPrice(p.AdjClose),
			formatPrice(p.PrevClose),
		}
		if err := w.Write(row); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush rows: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath(symbol)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// LoadSeries reads a previously exported series. A missing export
// yields an empty series.
func (s *Store) LoadSeries(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.filePath(symbol))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open export for %s: %w", symbol, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read export for %s: %w", symbol, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	series := make([]models.PricePoint, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(header) {
			continue
		}
		date, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		count, _ := strconv.ParseInt(row[5], 10, 64)
		series = append(series, models.PricePoint{
			Date:       date,
			Open:       parsePrice(row[1]),
			High:       parsePrice(row[2]),
			Low:        parsePrice(row[3]),
			Close:      parsePrice(row[4]),
			TradeCount: count,
			Volume:     parsePrice(row[6]),
			Value:      parsePrice(row[7]),
			AdjClose:   parsePrice(row[8]),
			PrevClose:  parsePrice(row[9]),
		})
	}
	return series, nil
}

func (s *Store) filePath(symbol string) string {
	return filepath.Join(s.basePath, sanitizeKey(symbol)+".csv")
}

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// Ensure Store implements HistoryStore
var _ interfaces.HistoryStore = (*Store)(nil)
