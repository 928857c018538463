package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronicle/pkg/audit"
)

func record(id, typ string) audit.Record {
	return audit.Record{
		ID:            uuid.New(),
		AuditableID:   id,
		AuditableType: typ,
		Action:        audit.ActionUpdate,
		Changes:       audit.Changes{},
	}
}

func TestInMemoryStore_VersionsPerEntity(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	first, err := store.AppendNext(ctx, record("b1", "book"))
	require.NoError(t, err)
	second, err := store.AppendNext(ctx, record("b1", "book"))
	require.NoError(t, err)
	other, err := store.AppendNext(ctx, record("b2", "book"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(2), second.Version)
	assert.Equal(t, int64(1), other.Version, "versions are per entity, not global")

	// Same ID under a different type is a different entity.
	crossType, err := store.AppendNext(ctx, record("b1", "magazine"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), crossType.Version)
}

func TestInMemoryStore_ConcurrentAppendsGapFree(t *testing.T) {
	store := NewInMemoryStore()
	const writers = 100

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.AppendNext(context.Background(), record("b1", "book"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := store.RecordsFor(context.Background(), "book", "b1")
	require.NoError(t, err)
	require.Len(t, records, writers)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Version)
	}
}

func TestInMemoryStore_RecordsForReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.AppendNext(context.Background(), record("b1", "book"))
	require.NoError(t, err)

	records, err := store.RecordsFor(context.Background(), "book", "b1")
	require.NoError(t, err)
	records[0].Comment = "mutated"

	fresh, err := store.RecordsFor(context.Background(), "book", "b1")
	require.NoError(t, err)
	assert.Empty(t, fresh[0].Comment, "callers must not be able to mutate stored records")
}

func TestInMemoryStore_Clear(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.AppendNext(context.Background(), record("b1", "book"))
	require.NoError(t, err)

	store.Clear()

	records, err := store.RecordsFor(context.Background(), "book", "b1")
	require.NoError(t, err)
	assert.Empty(t, records)
}
