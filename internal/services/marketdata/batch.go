package marketdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/interfaces"
	"github.com/hamedsh/tsemarket/internal/models"
)

// DefaultChunkSize is the number of instruments per batch request.
const DefaultChunkSize = 50

// BatchFetcher partitions pending delta requests into fixed-size
// batches, executes them against the service with bounded parallelism,
// and demultiplexes each compound reply back to per-symbol bars.
type BatchFetcher struct {
	client      interfaces.TSEClient
	chunkSize   int
	concurrency int
	logger      *common.Logger
}

// NewBatchFetcher creates a fetcher. chunkSize and concurrency are
// clamped to at least 1.
func NewBatchFetcher(client interfaces.TSEClient, chunkSize, concurrency int, logger *common.Logger) *BatchFetcher {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchFetcher{
		client:      client,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Execute runs all batches and hands each successfully fetched block to
// merge, batch by batch. Batches for disjoint instrument sets are
// independent, so they run concurrently up to the configured limit;
// merge is called with fully demultiplexed per-symbol bars and must be
// safe for concurrent callers across symbols. A failed batch does not
// undo merges already applied by other batches.
func (f *BatchFetcher) Execute(ctx context.Context, tokens []requestToken, merge func(symbol string, bars []models.PricePoint)) error {
	if len(tokens) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for start := 0; start < len(tokens); start += f.chunkSize {
		end := start + f.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		g.Go(func() error {
			return f.fetchChunk(ctx, chunk, merge)
		})
	}

	return g.Wait()
}

func (f *BatchFetcher) fetchChunk(ctx context.Context, chunk []requestToken, merge func(string, []models.PricePoint)) error {
	batchID := uuid.NewString()[:8]

	specs := make([]string, len(chunk))
	for i, tok := range chunk {
		flag := "0"
		if tok.index {
			flag = "1"
		}
		specs[i] = fmt.Sprintf("%d,%d,%s", tok.id, tok.since, flag)
	}

	payload, err := f.client.FetchClosingPrices(ctx, strings.Join(specs, ";"))
	if err != nil {
		return fmt.Errorf("batch %s: %w", batchID, err)
	}
	if payload == "" {
		// Nothing new for this batch.
		return nil
	}

	blocks := strings.Split(payload, "@")
	if len(blocks) != len(chunk) {
		f.logger.Warn().
			Str("batch", batchID).
			Int("requested", len(chunk)).
			Int("received", len(blocks)).
			Msg("Compound reply block count mismatch")
	}

	for i, block := range blocks {
		if i >= len(chunk) {
			break
		}
		bars := models.ParsePricePoints(block)
		if len(bars) == 0 {
			continue
		}
		merge(chunk[i].symbol, bars)
	}

	f.logger.Debug().
		Str("batch", batchID).
		Int("instruments", len(chunk)).
		Msg("Batch fetched")

	return nil
}
