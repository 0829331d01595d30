package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), filepath.Join(t.TempDir(), "datasets"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleDataset(id string, at time.Time) *models.Dataset {
	return &models.Dataset{
		ID:         id,
		Name:       "dataset " + id,
		Source:     id + ".csv",
		ImportedAt: at,
		Columns:    []string{"Company", "Revenue", "Expenses", "Net_Income"},
		Rows: []map[string]string{
			{"Company": "Acme", "Revenue": "100", "Expenses": "60", "Net_Income": "40"},
		},
	}
}

func TestStore_OpenClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datasets")
	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, store.Path())
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")
}

func TestStore_CloseZeroValue(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestDatasetStorage_SaveGet(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()
	at := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	require.NoError(t, ds.SaveDataset(ctx, sampleDataset("a", at)))

	got, err := ds.GetDataset(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "dataset a", got.Name)
	assert.True(t, at.Equal(got.ImportedAt))
	assert.Equal(t, "40", got.Rows[0]["Net_Income"])
}

func TestDatasetStorage_Upsert(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	d := sampleDataset("a", time.Now())
	require.NoError(t, ds.SaveDataset(ctx, d))
	d.Name = "renamed"
	require.NoError(t, ds.SaveDataset(ctx, d))

	all, err := ds.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "renamed", all[0].Name)
}

func TestDatasetStorage_RequiresID(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	assert.Error(t, ds.SaveDataset(context.Background(), &models.Dataset{Name: "no id"}))
}

func TestDatasetStorage_NotFound(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	_, err := ds.GetDataset(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrDatasetNotFound)

	err = ds.DeleteDataset(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrDatasetNotFound)
}

func TestDatasetStorage_ListNewestFirst(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ds.SaveDataset(ctx, sampleDataset("old", base)))
	require.NoError(t, ds.SaveDataset(ctx, sampleDataset("new", base.Add(2*time.Hour))))
	require.NoError(t, ds.SaveDataset(ctx, sampleDataset("mid", base.Add(time.Hour))))

	all, err := ds.ListDatasets(ctx)
	require.NoError(t, err)
	var ids []string
	for _, d := range all {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)
}

func TestDatasetStorage_Delete(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	require.NoError(t, ds.SaveDataset(ctx, sampleDataset("a", time.Now())))
	require.NoError(t, ds.DeleteDataset(ctx, "a"))

	_, err := ds.GetDataset(ctx, "a")
	assert.ErrorIs(t, err, models.ErrDatasetNotFound)
}

func TestDatasetStorage_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "datasets")
	ctx := context.Background()

	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	require.NoError(t, NewDatasetStorage(store, common.NewSilentLogger()).SaveDataset(ctx, sampleDataset("keep", time.Now())))
	require.NoError(t, store.Close())

	store, err = NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := NewDatasetStorage(store, common.NewSilentLogger()).GetDataset(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep.csv", got.Source)
}

func TestDatasetStorage_ConcurrentSaves(t *testing.T) {
	ds := NewDatasetStorage(newTestStore(t), common.NewSilentLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, ds.SaveDataset(ctx, sampleDataset(fmt.Sprintf("ds-%d", i), time.Now())))
		}(i)
	}
	wg.Wait()

	all, err := ds.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}
