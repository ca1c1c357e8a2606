package testutil

import (
	"context"
	"testing"

	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Seed writes rows straight into s, bypassing the services.
func Seed(t *testing.T, s store.Store, items ...model.Item) {
	t.Helper()

	for _, it := range items {
		if err := s.Save(context.Background(), it); err != nil {
			t.Fatalf("seeding %s: %v", it.Key(), err)
		}
	}
}

// ListItem builds a list row.
func ListItem(id, title string) model.Item {
	return model.Item{
		"title":       title,
		"description": title + " description",
	}.WithKey(model.Key{Type: model.TypeList, UniqueID: id})
}

// TaskItem builds a task row; an empty listID leaves it unattached.
func TaskItem(id, title, listID string) model.Item {
	it := model.Item{
		"title":       title,
		"description": title + " description",
		"completed":   false,
	}
	if listID != "" {
		it[model.AttrListID] = listID
	}
	return it.WithKey(model.Key{Type: model.TypeTask, UniqueID: id})
}

// SubtaskItem builds a subtask row pointing at taskID.
func SubtaskItem(id, title, taskID string) model.Item {
	return model.Item{
		"title":          title,
		"description":    title + " description",
		"completed":      false,
		model.AttrTaskID: taskID,
	}.WithKey(model.Key{Type: model.TypeSubtask, UniqueID: id})
}
