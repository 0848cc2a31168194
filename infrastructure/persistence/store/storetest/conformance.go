// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"publication-backend/infrastructure/persistence/store"
	pkgerrors "publication-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds an empty store for one test
type Factory func(t *testing.T) store.Store

// Run exercises backend semantics: conditions, atomicity, ceilings and queries
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"put and get", testPutAndGet},
		{"not exists rejects duplicate", testNotExists},
		{"version condition", testVersionCondition},
		{"missing update target is not found", testMissingTarget},
		{"transaction is atomic", testAtomic},
		{"delete with exists", testDeleteExists},
		{"oversized transaction", testTooLarge},
		{"duplicate target", testDuplicateTarget},
		{"index query", testIndexQuery},
		{"concurrent guard race", testGuardRace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func record(pk, sk, version string) store.Record {
	return store.Record{PK0: pk, SK0: sk, Type: "Resource", Version: version, Data: []byte(sk)}
}

func testPutAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := record("Resource:c1", "Resource:1", "v1")
	r.PK3, r.SK3 = "Resource:1", "Resource:1"
	r.Status = "DRAFT"

	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(r, store.NotExists())}))

	got, ok, err := s.Get(ctx, r.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r, got)

	_, ok, err = s.Get(ctx, store.Key{PartitionKey: "Resource:c1", SortKey: "Resource:2"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func testNotExists(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := record("Resource:c1", "Resource:1", "v1")
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(r, store.NotExists())}))

	err := s.TransactWrite(ctx, []store.WriteOp{store.Put(record("Resource:c1", "Resource:1", "v2"), store.NotExists())})
	assert.True(t, pkgerrors.IsConflict(err), "got %v", err)

	got, _, err := s.Get(ctx, r.Key())
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Version)
}

func testVersionCondition(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "S", "v1"), store.NotExists())}))
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "S", "v2"), store.VersionEquals("v1"))}))

	err := s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "S", "v3"), store.VersionEquals("v1"))})
	assert.True(t, pkgerrors.IsConflict(err), "got %v", err)

	got, _, err := s.Get(ctx, store.Key{PartitionKey: "P", SortKey: "S"})
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
}

func testMissingTarget(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "S", "v2"), store.VersionEquals("v1"))})
	assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)

	err = s.TransactWrite(ctx, []store.WriteOp{
		store.Put(record("P", "A", "v1"), store.NotExists()),
		store.Put(record("P", "B", "v2"), store.VersionEquals("v1")),
	})
	assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)
}

func testAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "guard", ""), store.NotExists())}))

	err := s.TransactWrite(ctx, []store.WriteOp{
		store.Put(record("P", "primary", "v1"), store.NotExists()),
		store.Put(record("P", "guard", ""), store.NotExists()),
	})
	assert.True(t, pkgerrors.IsConflict(err), "got %v", err)

	_, ok, err := s.Get(ctx, store.Key{PartitionKey: "P", SortKey: "primary"})
	require.NoError(t, err)
	assert.False(t, ok, "no partial write is visible")
}

func testDeleteExists(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := store.Key{PartitionKey: "P", SortKey: "guard"}
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Put(record("P", "guard", ""), store.NotExists())}))
	require.NoError(t, s.TransactWrite(ctx, []store.WriteOp{store.Delete(key, store.Exists())}))

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.TransactWrite(ctx, []store.WriteOp{store.Delete(key, store.Exists())})
	assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)
}

func testTooLarge(t *testing.T, s store.Store) {
	ops := make([]store.WriteOp, store.MaxTransactionItems+1)
	for i := range ops {
		ops[i] = store.Put(record("P", fmt.Sprintf("S%03d", i), "v1"), store.NotExists())
	}

	err := s.TransactWrite(context.Background(), ops)
	assert.True(t, pkgerrors.IsTransactionTooLarge(err), "got %v", err)

	_, ok, err := s.Get(context.Background(), store.Key{PartitionKey: "P", SortKey: "S000"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.TransactWrite(context.Background(), ops[:store.MaxTransactionItems]))
}

func testDuplicateTarget(t *testing.T, s store.Store) {
	err := s.TransactWrite(context.Background(), []store.WriteOp{
		store.Put(record("P", "S", "v1"), store.NotExists()),
		store.Delete(store.Key{PartitionKey: "P", SortKey: "S"}, store.Condition{}),
	})
	assert.True(t, pkgerrors.IsValidation(err), "got %v", err)
}

func testIndexQuery(t *testing.T, s store.Store) {
	ctx := context.Background()
	var ops []store.WriteOp
	for i, sk := range []string{"2:Ticket:b", "0:Resource:r", "1:FileEntry:f", "2:Ticket:a"} {
		r := record("Any:c1", fmt.Sprintf("Any:%d", i), "v1")
		r.PK2, r.SK2 = "Customer:c1:Resource:r", sk
		ops = append(ops, store.Put(r, store.NotExists()))
	}
	other := record("Any:c1", "Any:other", "v1")
	other.PK2, other.SK2 = "Customer:c1:Resource:other", "0:Resource:other"
	ops = append(ops, store.Put(other, store.NotExists()), store.Put(record("Any:c1", "Any:unprojected", "v1"), store.NotExists()))
	require.NoError(t, s.TransactWrite(ctx, ops))

	all, err := s.Query(ctx, store.Query{Index: store.IndexByCustomerResource, PartitionKey: "Customer:c1:Resource:r"})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "0:Resource:r", all[0].SK2)
	assert.Equal(t, "2:Ticket:b", all[3].SK2)

	tickets, err := s.Query(ctx, store.Query{Index: store.IndexByCustomerResource, PartitionKey: "Customer:c1:Resource:r", SortKeyPrefix: "2:Ticket:"})
	require.NoError(t, err)
	assert.Len(t, tickets, 2)

	newest, err := s.Query(ctx, store.Query{Index: store.IndexPrimary, PartitionKey: "Any:c1", Descending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, "Any:unprojected", newest[0].SK0)
	assert.Equal(t, "Any:other", newest[1].SK0)
}

func testGuardRace(t *testing.T, s store.Store) {
	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.TransactWrite(context.Background(), []store.WriteOp{
				store.Put(record("Ticket:c1", fmt.Sprintf("Ticket:%d", i), "v1"), store.NotExists()),
				store.Put(store.Record{PK0: "UniquenessEntry:Ticket:DoiRequest:r", SK0: "UniquenessEntry:Ticket:DoiRequest:r", Type: "UniquenessEntry"}, store.NotExists()),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case pkgerrors.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}
