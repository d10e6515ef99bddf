package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/itr-cli/internal/model"
)

func TestStore_PutGetRoundtrip(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	item := "P001"
	ds := &model.Dataset{
		Records: []model.Record{
			{
				SystemID:       "SYS-1",
				SystemDescr:    "Pump System 1",
				SubsystemID:    "SS-1",
				SubsystemDescr: "Primary Pump",
				RecordType:     "ITR-A",
				CertStatusRaw:  "Y",
				Item:           &item,
			},
		},
		HasDedupColumns: true,
		SourcePath:      "/data/pcos.xlsx",
		RemovedCount:    3,
		BuiltAt:         time.Now().UTC().Truncate(time.Second),
	}
	fp := Fingerprint{MTimeUnixNano: 1234, Size: 5678}

	require.NoError(t, store.Put(ctx, ds, fp))

	entry, got, err := store.Get(ctx, "/data/pcos.xlsx")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, SchemaVersion, entry.SchemaVersion)
	assert.Equal(t, fp, entry.Fingerprint)
	assert.Equal(t, 1, entry.RecordCount)

	require.NotNil(t, got)
	assert.Equal(t, ds.Records, got.Records)
	assert.Equal(t, ds.RemovedCount, got.RemovedCount)
	assert.True(t, got.HasDedupColumns)
	require.NotNil(t, got.Records[0].Item)
	assert.Equal(t, "P001", *got.Records[0].Item)
}

func TestStore_GetMissingReturnsNil(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	entry, ds, err := store.Get(context.Background(), "/no/such/source.xlsx")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Nil(t, ds)
}

func TestStore_PutOverwritesExistingEntry(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	ds := &model.Dataset{SourcePath: "/data/pcos.xlsx", BuiltAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, ds, Fingerprint{MTimeUnixNano: 1, Size: 1}))

	ds.Records = []model.Record{{SubsystemID: "SS-1", RecordType: "ITR-A"}}
	require.NoError(t, store.Put(ctx, ds, Fingerprint{MTimeUnixNano: 2, Size: 2}))

	entry, got, err := store.Get(ctx, "/data/pcos.xlsx")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, Fingerprint{MTimeUnixNano: 2, Size: 2}, entry.Fingerprint)
	assert.Len(t, got.Records, 1)
}

func TestStore_Delete(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	ds := &model.Dataset{SourcePath: "/data/pcos.xlsx", BuiltAt: time.Now().UTC()}
	require.NoError(t, store.Put(ctx, ds, Fingerprint{}))
	require.NoError(t, store.Delete(ctx, "/data/pcos.xlsx"))

	entry, _, err := store.Get(ctx, "/data/pcos.xlsx")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Deleting a missing entry is not an error.
	require.NoError(t, store.Delete(ctx, "/data/pcos.xlsx"))
}
