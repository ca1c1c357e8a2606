package resolver

import (
	"context"
	"fmt"

	"github.com/nhle/tasklists/internal/model"
)

// OrphanReport lists rows whose back-reference names a parent that no
// longer exists. Deletes do not cascade, so these accumulate.
type OrphanReport struct {
	Tasks    []model.Task    `json:"tasks"`
	Subtasks []model.Subtask `json:"subtasks"`
}

// Orphans scans the whole table once and reports dangling references.
// Tasks without a list_id are not orphans.
func (r *Resolver) Orphans(ctx context.Context) (*OrphanReport, error) {
	items, err := r.store.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning for orphans: %w", err)
	}

	lists := map[string]bool{}
	tasks := map[string]bool{}
	var taskRows, subtaskRows []model.Item
	for _, it := range items {
		key := it.Key()
		switch key.Type {
		case model.TypeList:
			lists[key.UniqueID] = true
		case model.TypeTask:
			tasks[key.UniqueID] = true
			taskRows = append(taskRows, it)
		case model.TypeSubtask:
			subtaskRows = append(subtaskRows, it)
		}
	}

	report := &OrphanReport{Tasks: []model.Task{}, Subtasks: []model.Subtask{}}
	for _, it := range taskRows {
		listID := it.String(model.AttrListID)
		if listID == "" || lists[listID] {
			continue
		}
		t, err := model.DecodeTask(it)
		if err != nil {
			return nil, err
		}
		// Children are not resolved here; drop any copy persisted by an update.
		t.Subtasks = []model.Subtask{}
		report.Tasks = append(report.Tasks, t)
	}
	for _, it := range subtaskRows {
		if tasks[it.String(model.AttrTaskID)] {
			continue
		}
		s, err := model.DecodeSubtask(it)
		if err != nil {
			return nil, err
		}
		report.Subtasks = append(report.Subtasks, s)
	}
	return report, nil
}
