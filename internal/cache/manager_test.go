package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/itr-cli/internal/model"
)

func newTestManager(t *testing.T) (*Manager, *Store) {
	t.Helper()
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewManager(store), store
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pcos.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testDataset(sourcePath string, n int) *model.Dataset {
	ds := &model.Dataset{
		HasDedupColumns: true,
		SourcePath:      sourcePath,
		BuiltAt:         time.Now().UTC(),
	}
	for i := 0; i < n; i++ {
		ds.Records = append(ds.Records, model.Record{
			SystemID:    "SYS-1",
			SubsystemID: "SS-1",
			RecordType:  "ITR-A",
		})
	}
	return ds
}

func countingBuild(sourcePath string, n int, calls *int) BuildFunc {
	return func(ctx context.Context) (*model.Dataset, error) {
		*calls++
		return testDataset(sourcePath, n), nil
	}
}

func TestLoadOrBuild_SecondLoadServedFromCache(t *testing.T) {
	mgr, _ := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	build := countingBuild(source, 3, &calls)

	first, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	require.Len(t, first.Records, 3)
	assert.Equal(t, 1, calls)

	second, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "cache hit must not invoke build")
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.SourcePath, second.SourcePath)
}

func TestLoadOrBuild_FingerprintChangeForcesRebuild(t *testing.T) {
	mgr, _ := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	build := countingBuild(source, 2, &calls)

	_, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	// Same size, different mtime.
	future := time.Now().Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(source, future, future))

	_, err = mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadOrBuild_SchemaVersionMismatchForcesRebuild(t *testing.T) {
	mgr, store := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	build := countingBuild(source, 2, &calls)

	_, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = store.db.ExecContext(ctx,
		`UPDATE dataset_cache SET schema_version = ? WHERE source_path = ?`,
		SchemaVersion-1, source,
	)
	require.NoError(t, err)

	_, err = mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestLoadOrBuild_CorruptEntryTreatedAsMiss(t *testing.T) {
	mgr, store := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	build := countingBuild(source, 2, &calls)

	_, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	_, err = store.db.ExecContext(ctx,
		`UPDATE dataset_cache SET dataset = ? WHERE source_path = ?`,
		[]byte("not a zstd blob"), source,
	)
	require.NoError(t, err)

	ds, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err, "corrupt cache must never surface as an error")
	assert.Equal(t, 2, calls)
	assert.Len(t, ds.Records, 2)
}

func TestForceReload_AlwaysRebuilds(t *testing.T) {
	mgr, _ := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	build := countingBuild(source, 2, &calls)

	_, err := mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)

	_, err = mgr.ForceReload(ctx, source, build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	// The overwritten entry is valid again.
	_, err = mgr.LoadOrBuild(ctx, source, build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestStatus_NoEntry(t *testing.T) {
	mgr, _ := newTestManager(t)

	status, err := mgr.Status(context.Background(), "/does/not/matter.xlsx")
	require.NoError(t, err)
	assert.False(t, status.CacheExists)
	assert.False(t, status.Valid)
}

func TestStatus_ValidAndOutdated(t *testing.T) {
	mgr, _ := newTestManager(t)
	source := writeSource(t, "workbook-v1")
	ctx := context.Background()

	calls := 0
	_, err := mgr.LoadOrBuild(ctx, source, countingBuild(source, 4, &calls))
	require.NoError(t, err)

	status, err := mgr.Status(ctx, source)
	require.NoError(t, err)
	assert.True(t, status.CacheExists)
	assert.True(t, status.Valid)
	assert.Equal(t, 4, status.RecordCount)
	assert.GreaterOrEqual(t, status.AgeMinutes, 0.0)

	require.NoError(t, os.WriteFile(source, []byte("workbook-v2-larger"), 0o644))

	status, err = mgr.Status(ctx, source)
	require.NoError(t, err)
	assert.True(t, status.CacheExists)
	assert.False(t, status.Valid)
}
