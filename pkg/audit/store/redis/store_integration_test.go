//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"chronicle/pkg/audit"
	"chronicle/pkg/testutil/containers"
)

func testRecord(id string) audit.Record {
	return audit.Record{
		ID:            uuid.New(),
		AuditableID:   id,
		AuditableType: "book",
		Action:        audit.ActionCreate,
		Changes: audit.Changes{
			"title": {Before: audit.Absent(), After: audit.StringValue("A")},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_AppendAndReadBack(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := New(rc.Client)
	ctx := context.Background()

	stored, err := store.AppendNext(ctx, testRecord("b1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)

	records, err := store.RecordsFor(ctx, "book", "b1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stored.ID, records[0].ID)
	assert.True(t, records[0].Changes["title"].Before.IsAbsent())
	assert.Equal(t, "A", records[0].Changes["title"].After.String())
}

func TestStore_ConcurrentAppendsGapFree(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := New(rc.Client)
	ctx := context.Background()
	const writers = 20

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			_, err := store.AppendNext(ctx, testRecord("b1"))
			return err
		})
	}
	require.NoError(t, g.Wait())

	records, err := store.RecordsFor(ctx, "book", "b1")
	require.NoError(t, err)
	require.Len(t, records, writers)
	for i, rec := range records {
		assert.Equal(t, int64(i+1), rec.Version)
	}
}

func TestStore_UnknownEntityIsEmpty(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := New(rc.Client)

	records, err := store.RecordsFor(context.Background(), "book", "nope")
	require.NoError(t, err)
	assert.Empty(t, records)
}
