package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/catalog-agent/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := types.NewJob("j1", "p1")
	require.NoError(t, store.Create(ctx, job))
	assert.ErrorIs(t, store.Create(ctx, job), ErrExists)

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, got.Status)
	assert.Equal(t, "p1", got.ProductID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := types.NewJob("j1", "p1")
	require.NoError(t, store.Create(ctx, job))

	// Mutating the caller's job after Create does not leak into the store
	job.Stages = append(job.Stages, types.StageRecord{Name: "data_scouting", Status: types.StageStatusRunning})

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Empty(t, got.Stages)

	// Mutating a returned job does not leak either
	got.Status = types.JobStatusFailed
	again, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, again.Status)
}

func TestMemoryStore_Save(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	job := types.NewJob("j1", "p1")
	require.NoError(t, store.Create(ctx, job))

	require.NoError(t, job.Transition(types.JobStatusRunning))
	job.Stages = append(job.Stages, types.StageRecord{Name: "data_scouting", Status: types.StageStatusCompleted})
	require.NoError(t, store.Save(ctx, job))

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusRunning, got.Status)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, types.StageStatusCompleted, got.Stages[0].Status)
}

func TestMemoryStore_ListByProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	older := types.NewJob("j1", "p1")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := types.NewJob("j2", "p1")
	other := types.NewJob("j3", "p2")
	for _, j := range []*types.Job{older, newer, other} {
		require.NoError(t, store.Create(ctx, j))
	}

	list, err := store.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "j2", list[0].ID)
	assert.Equal(t, "j1", list[1].ID)

	none, err := store.ListByProduct(ctx, "p9")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMemoryStore_ConcurrentReadersAndWriter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	job := types.NewJob("j1", "p1")
	require.NoError(t, store.Create(ctx, job))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			job.Stages = append(job.Stages, types.StageRecord{Name: "s", Status: types.StageStatusCompleted})
			_ = store.Save(ctx, job)
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				got, err := store.Get(ctx, "j1")
				if err == nil {
					for _, s := range got.Stages {
						_ = s.Name
					}
				}
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Len(t, got.Stages, 100)
}

var _ Store = (*MemoryStore)(nil)
