package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasklists/internal/cache"
	"github.com/nhle/tasklists/internal/model"
)

func newCache(t *testing.T) (*cache.ViewCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb, err := cache.NewClient(context.Background(), model.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return cache.NewViewCache(rdb, time.Minute), mr
}

func TestViewCache_MissReturnsNil(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	lists, err := c.GetLists(ctx)
	require.NoError(t, err)
	assert.Nil(t, lists)

	tasks, err := c.GetTasks(ctx)
	require.NoError(t, err)
	assert.Nil(t, tasks)
}

func TestViewCache_RoundTrip(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	want := []model.List{{
		UniqueID: "L1",
		Type:     model.TypeList,
		Title:    "Home",
		Tasks: []model.Task{{
			UniqueID: "T1",
			Type:     model.TypeTask,
			Title:    "Laundry",
			ListID:   "L1",
			Subtasks: []model.Subtask{{UniqueID: "S1", Type: model.TypeSubtask, TaskID: "T1"}},
		}},
	}}
	require.NoError(t, c.SetLists(ctx, 0, want))

	got, err := c.GetLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestViewCache_EmptyViewIsAHit(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetTasks(ctx, 0, []model.Task{}))

	got, err := c.GetTasks(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestViewCache_InvalidateAll(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetLists(ctx, 0, []model.List{{UniqueID: "L1"}}))
	require.NoError(t, c.SetTasks(ctx, 0, []model.Task{{UniqueID: "T1"}}))
	require.NoError(t, c.InvalidateAll(ctx))

	assert.False(t, mr.Exists("tasklists:view:lists"))
	assert.False(t, mr.Exists("tasklists:view:tasks"))

	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestViewCache_StaleGenerationIsNotStored(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	gen, err := c.Generation(ctx)
	require.NoError(t, err)

	// A write lands while the view is being loaded.
	require.NoError(t, c.InvalidateAll(ctx))

	require.NoError(t, c.SetTasks(ctx, gen, []model.Task{{UniqueID: "T1"}}))
	assert.False(t, mr.Exists("tasklists:view:tasks"))

	got, err := c.GetTasks(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	gen, err = c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SetTasks(ctx, gen, []model.Task{{UniqueID: "T1"}}))
	got, err = c.GetTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestViewCache_Expires(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetTasks(ctx, 0, []model.Task{{UniqueID: "T1"}}))
	mr.FastForward(2 * time.Minute)

	got, err := c.GetTasks(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.NewClient(context.Background(), model.RedisConfig{Addr: addr})
	assert.Error(t, err)
}
