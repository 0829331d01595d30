package dataset

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/ingest"
	"github.com/bobmcallan/tally/internal/storage"
)

const quarterCSV = "Company,Revenue,Expenses,Net_Income,Sector\n" +
	"Acme,100,60,40,Retail\n" +
	"Globex,200,190,10,Energy\n"

func newTestService(t *testing.T) *Service {
	t.Helper()
	root := t.TempDir()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(root, "datasets")
	cfg.Storage.UploadsPath = filepath.Join(root, "uploads")

	mgr, err := storage.NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return NewService(mgr, common.NewSilentLogger())
}

func TestImport_CSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Import(ctx, "", "q1-2024.csv", strings.NewReader(quarterCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "q1-2024", ds.Name)
	assert.Equal(t, "q1-2024.csv", ds.Source)
	assert.False(t, ds.ImportedAt.IsZero())
	assert.Len(t, ds.Rows, 2)

	got, err := svc.Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.Rows, got.Rows)

	src, err := svc.Source(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, quarterCSV, string(src.Data))
}

func TestImport_JSON(t *testing.T) {
	svc := newTestService(t)

	ds, err := svc.Import(context.Background(), "From API", "rows.json",
		strings.NewReader(`{"rows":[{"Company":"A","Revenue":10,"Expenses":5,"Net_Income":5}]}`))
	require.NoError(t, err)

	assert.Equal(t, "From API", ds.Name)
	assert.Equal(t, []string{"Company", "Revenue", "Expenses", "Net_Income"}, ds.Columns)
	assert.Equal(t, "10", ds.Rows[0]["Revenue"])
}

func TestImport_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, "", "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ingest.ErrNoHeader)
	assert.ErrorIs(t, err, ErrInvalidUpload)

	_, err = svc.Import(ctx, "", "bad.json", strings.NewReader("{oops"))
	assert.Error(t, err)

	big := strings.Repeat("x", MaxUploadBytes+1)
	_, err = svc.Import(ctx, "", "big.csv", strings.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "failed imports store nothing")
}

func TestImportSample(t *testing.T) {
	svc := newTestService(t)

	ds, err := svc.ImportSample(context.Background(), "crisis")
	require.NoError(t, err)
	assert.Equal(t, "Crisis Scenario Companies", ds.Name)
	assert.Equal(t, "sample:crisis", ds.Source)
	assert.Len(t, ds.Rows, 5)

	_, err = svc.ImportSample(context.Background(), "nope")
	assert.ErrorIs(t, err, ingest.ErrSampleNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	clock := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := svc.ImportSample(ctx, "tech")
	require.NoError(t, err)
	second, err := svc.Import(ctx, "mine", "mine.csv", strings.NewReader(quarterCSV))
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, 2, list[0].RowCount)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds, err := svc.Import(ctx, "", "q.csv", strings.NewReader(quarterCSV))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ds.ID))

	_, err = svc.Get(ctx, ds.ID)
	assert.ErrorIs(t, err, models.ErrDatasetNotFound)
	_, err = svc.Source(ctx, ds.ID)
	assert.ErrorIs(t, err, models.ErrUploadNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, ds.ID), models.ErrDatasetNotFound)
}

func TestDatasetName(t *testing.T) {
	tests := []struct{ name, source, want string }{
		{"Given", "x.csv", "Given"},
		{"  ", "dir/Q1 Results.csv", "Q1 Results"},
		{"", "", "dataset"},
		{"", "noext", "noext"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, datasetName(tt.name, tt.source), "%q/%q", tt.name, tt.source)
	}
}
