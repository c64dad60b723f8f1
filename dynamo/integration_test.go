package dynamo_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
	"github.com/vitkuz/aws-dynamo-adapter/dynamo/memdb"
)

// steppingClock advances one second per read, so every operation in a
// test gets a distinct, deterministic timestamp. PatchMany reads it
// from several goroutines, hence the lock.
func steppingClock() func() time.Time {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var (
		mu    sync.Mutex
		reads int
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		reads++
		return base.Add(time.Duration(reads) * time.Second)
	}
}

func newBackend() *memdb.Client {
	return memdb.New(memdb.TableDef{
		Name:    "records",
		Indexes: []memdb.IndexDef{{Name: "gsiBySk", KeyField: "sk"}},
	})
}

func newAdapter(t *testing.T, backend *memdb.Client) *dynamo.Adapter {
	t.Helper()
	log := zerolog.Nop()
	adapter, err := dynamo.New(context.Background(), dynamo.Config{
		TableName: "records",
		Client:    backend,
		Logger:    &log,
		Clock:     steppingClock(),
	})
	require.NoError(t, err)
	return adapter
}

// TestProductCatalogFlow drives the adapter end to end against the
// in-memory backend: bulk load a catalog, read it back through the
// index, patch a record, fetch a batch, and delete.
func TestProductCatalogFlow(t *testing.T) {
	ctx := context.Background()
	backend := newBackend()
	backend.PageSize = 7
	adapter := newAdapter(t, backend)

	recs := make([]dynamo.Record, 0, 59)
	for i := 0; i < 59; i++ {
		recs = append(recs, dynamo.Record{
			"id":    fmt.Sprintf("prod-%03d", i),
			"sk":    "product",
			"name":  fmt.Sprintf("Product %d", i),
			"price": float64(i) + 0.99,
		})
	}
	created, err := adapter.CreateMany(ctx, recs)
	require.NoError(t, err)
	require.Len(t, created, 59)

	one, err := adapter.CreateOne(ctx, dynamo.Record{
		"id":    "prod-099",
		"sk":    "product",
		"name":  "Hand made",
		"price": 19.99,
	})
	require.NoError(t, err)
	require.NotEmpty(t, one["createdAt"])
	assert.Equal(t, one["createdAt"], one["updatedAt"])

	got, err := adapter.FetchOne(ctx, dynamo.Key{"id": "prod-099", "sk": "product"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hand made", got["name"])
	assert.Equal(t, 19.99, got["price"])

	all, err := adapter.FetchAllByIndexValue(ctx, "product")
	require.NoError(t, err)
	assert.Len(t, all, 60)

	patched, err := adapter.PatchOne(ctx, dynamo.Key{"id": "prod-099", "sk": "product"}, dynamo.Record{"price": 9.99})
	require.NoError(t, err)
	assert.Equal(t, 9.99, patched["price"])
	assert.Equal(t, got["createdAt"], patched["createdAt"])
	assert.NotEqual(t, got["updatedAt"], patched["updatedAt"])

	keys := []dynamo.Key{
		{"id": "prod-000", "sk": "product"},
		{"id": "prod-029", "sk": "product"},
		{"id": "prod-099", "sk": "product"},
		{"id": "missing", "sk": "product"},
	}
	some, err := adapter.FetchMany(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, some, 3)

	require.NoError(t, adapter.DeleteMany(ctx, keys[:3]))

	remaining, err := adapter.FetchAllByIndexValue(ctx, "product")
	require.NoError(t, err)
	assert.Len(t, remaining, 57)

	gone, err := adapter.FetchOne(ctx, dynamo.Key{"id": "prod-099", "sk": "product"})
	require.NoError(t, err)
	assert.Nil(t, gone)
}

// TestFetchAllIndependentOfPageSize pins the drain loop: however small
// the backend pages, a fetch-all returns the complete result set.
func TestFetchAllIndependentOfPageSize(t *testing.T) {
	ctx := context.Background()
	for _, pageSize := range []int{0, 1, 3, 25} {
		t.Run(fmt.Sprintf("PageSize %d", pageSize), func(t *testing.T) {
			backend := newBackend()
			backend.PageSize = pageSize
			adapter := newAdapter(t, backend)

			recs := make([]dynamo.Record, 0, 10)
			for i := 0; i < 10; i++ {
				recs = append(recs, dynamo.Record{
					"id": fmt.Sprintf("rec-%02d", i),
					"sk": "note",
				})
			}
			_, err := adapter.CreateMany(ctx, recs)
			require.NoError(t, err)

			all, err := adapter.FetchAllByIndexValue(ctx, "note")
			require.NoError(t, err)
			require.Len(t, all, 10)

			seen := make(map[string]bool, len(all))
			for _, rec := range all {
				seen[rec["id"].(string)] = true
			}
			assert.Len(t, seen, 10)
		})
	}
}

// TestFetcherScanDrainsTable covers the no-sort-value path, which scans
// the whole table instead of querying the index.
func TestFetcherScanDrainsTable(t *testing.T) {
	ctx := context.Background()
	backend := newBackend()
	backend.PageSize = 4
	adapter := newAdapter(t, backend)

	for i := 0; i < 9; i++ {
		sk := "note"
		if i%2 == 0 {
			sk = "task"
		}
		_, err := adapter.CreateOne(ctx, dynamo.Record{
			"id": fmt.Sprintf("rec-%02d", i),
			"sk": sk,
		})
		require.NoError(t, err)
	}

	all, err := adapter.Fetcher().FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 9)
}

// TestReplaceOneAgainstBackend checks a replace overwrites the whole
// stored record rather than merging into it.
func TestReplaceOneAgainstBackend(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter(t, newBackend())

	created, err := adapter.CreateOne(ctx, dynamo.Record{
		"id":     "doc-1",
		"sk":     "draft",
		"title":  "first",
		"author": "ann",
	})
	require.NoError(t, err)

	replaced, err := adapter.ReplaceOne(ctx, dynamo.Record{
		"id":        "doc-1",
		"sk":        "draft",
		"title":     "second",
		"createdAt": created["createdAt"],
	})
	require.NoError(t, err)
	assert.Equal(t, created["createdAt"], replaced["createdAt"])
	assert.NotEqual(t, created["updatedAt"], replaced["updatedAt"])

	got, err := adapter.FetchOne(ctx, dynamo.Key{"id": "doc-1", "sk": "draft"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got["title"])
	assert.NotContains(t, got, "author")
}

// TestPatchManyAgainstBackend exercises the concurrent patch fan-out
// against a real (if in-memory) backend.
func TestPatchManyAgainstBackend(t *testing.T) {
	ctx := context.Background()
	adapter := newAdapter(t, newBackend())

	recs := make([]dynamo.Record, 0, 20)
	for i := 0; i < 20; i++ {
		recs = append(recs, dynamo.Record{
			"id":     fmt.Sprintf("rec-%02d", i),
			"sk":     "note",
			"status": "new",
		})
	}
	_, err := adapter.CreateMany(ctx, recs)
	require.NoError(t, err)

	patches := make([]dynamo.Patch, 0, 20)
	for i := 0; i < 20; i++ {
		patches = append(patches, dynamo.Patch{
			Keys:    dynamo.Key{"id": fmt.Sprintf("rec-%02d", i), "sk": "note"},
			Updates: dynamo.Record{"status": "seen"},
		})
	}
	out, err := adapter.PatchMany(ctx, patches)
	require.NoError(t, err)
	require.Len(t, out, 20)
	for i, rec := range out {
		assert.Equal(t, fmt.Sprintf("rec-%02d", i), rec["id"], "results follow request order")
		assert.Equal(t, "seen", rec["status"])
	}

	got, err := adapter.FetchOne(ctx, dynamo.Key{"id": "rec-07", "sk": "note"})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "seen", got["status"])
}
