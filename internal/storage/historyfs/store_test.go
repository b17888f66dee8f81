package historyfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamedsh/tsemarket/internal/common"
	"github.com/hamedsh/tsemarket/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleSeries() []models.PricePoint {
	return []models.PricePoint{
		{Date: 20230510, Open: 3995, High: 4010, Low: 3990, Close: 4000, AdjClose: 4000, PrevClose: 3980, TradeCount: 120, Volume: 1.5e6, Value: 6e9},
		{Date: 20230511, Open: 4000, High: 4120, Low: 4000, Close: 4100, AdjClose: 4100, PrevClose: 4000, TradeCount: 95, Volume: 1.2e6, Value: 4.9e9},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSeries(ctx, "وبملت", sampleSeries()))

	got, err := store.LoadSeries(ctx, "وبملت")
	require.NoError(t, err)
	assert.Equal(t, sampleSeries(), got)
}

func TestSaveReplacesPriorExport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSeries(ctx, "وبملت", sampleSeries()))
	require.NoError(t, store.SaveSeries(ctx, "وبملت", sampleSeries()[:1]))

	got, err := store.LoadSeries(ctx, "وبملت")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLoadMissingExport(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadSeries(context.Background(), "ناشناخته")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveEmptySeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSeries(ctx, "وبملت", nil))

	got, err := store.LoadSeries(ctx, "وبملت")
	require.NoError(t, err)
	assert.Empty(t, got, "header-only export should load empty")
}

func TestSanitizedFileNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSeries(ctx, "a/b\\c:d", sampleSeries()))

	entries, err := os.ReadDir(store.DataPath())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a_b_c_d.csv", entries[0].Name())

	// The sanitized name stays addressable through the store.
	got, err := store.LoadSeries(ctx, "a/b\\c:d")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSeries(context.Background(), "وبملت", sampleSeries()))

	matches, err := filepath.Glob(filepath.Join(store.DataPath(), ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
