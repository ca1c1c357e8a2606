package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/store"
	"github.com/nhle/tasklists/tests/testutil"
)

// newPostgresStore connects to TASKAPI_TEST_POSTGRES_DSN or skips.
func newPostgresStore(t *testing.T) *store.PostgresStore {
	t.Helper()

	dsn := os.Getenv("TASKAPI_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TASKAPI_TEST_POSTGRES_DSN not set")
	}
	s, err := store.NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	// Ids are random so reruns against the same database do not collide.
	listID := uuid.New().String()
	taskID := uuid.New().String()
	subID := uuid.New().String()

	testutil.Seed(t, s,
		testutil.ListItem(listID, "PG list"),
		testutil.TaskItem(taskID, "PG task", ""),
		testutil.SubtaskItem(subID, "PG sub", taskID),
	)

	updated, err := s.UpdateFields(ctx,
		model.Key{Type: model.TypeTask, UniqueID: taskID},
		map[string]any{model.AttrListID: listID},
	)
	require.NoError(t, err)
	assert.Equal(t, listID, updated.String(model.AttrListID))

	tasks, err := s.Query(ctx, store.ByType(model.TypeTask).Where(model.AttrListID, listID))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "PG task", tasks[0].String("title"))

	subs, err := s.Query(ctx, store.ByType(model.TypeSubtask).Where(model.AttrTaskID, taskID))
	require.NoError(t, err)
	require.Len(t, subs, 1)

	old, err := s.Delete(ctx, model.Key{Type: model.TypeSubtask, UniqueID: subID})
	require.NoError(t, err)
	assert.Equal(t, "PG sub", old.String("title"))

	_, err = s.Find(ctx, model.Key{Type: model.TypeSubtask, UniqueID: subID})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.UpdateFields(ctx,
		model.Key{Type: model.TypeList, UniqueID: uuid.New().String()},
		map[string]any{"title": "x"},
	)
	assert.ErrorIs(t, err, store.ErrNotFound)

	for _, k := range []model.Key{
		{Type: model.TypeList, UniqueID: listID},
		{Type: model.TypeTask, UniqueID: taskID},
	} {
		_, err := s.Delete(ctx, k)
		require.NoError(t, err)
	}
}
