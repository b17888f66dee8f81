package interfaces

import (
	"context"

	"github.com/hamedsh/tsemarket/internal/models"
)

// HistoryStore persists cached history series outside the process, one
// flat file per instrument symbol.
type HistoryStore interface {
	// SaveSeries writes a symbol's series, replacing any prior export.
	SaveSeries(ctx context.Context, symbol string, series []models.PricePoint) error

	// LoadSeries reads a previously exported series. A missing export
	// returns an empty series and no error.
	LoadSeries(ctx context.Context, symbol string) ([]models.PricePoint, error)
}
