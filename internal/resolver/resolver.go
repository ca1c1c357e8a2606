// Package resolver rebuilds the list → task → subtask hierarchy from the
// flat items table. There are no joins: every level is one query per
// parent, issued concurrently and recombined by position.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/store"
)

// ErrNotFound is returned when the requested entity has no row.
var ErrNotFound = errors.New("entity not found")

// DefaultFanoutLimit caps concurrent child lookups when none is configured.
const DefaultFanoutLimit = 16

// Resolver loads entities together with the children that point at them.
type Resolver struct {
	store  store.Store
	fanout int
}

// New returns a Resolver over s. A fanout below 1 uses DefaultFanoutLimit.
func New(s store.Store, fanout int) *Resolver {
	if fanout < 1 {
		fanout = DefaultFanoutLimit
	}
	return &Resolver{store: s, fanout: fanout}
}

// FanoutLimit is the concurrency cap applied to every fan-out.
func (r *Resolver) FanoutLimit() int {
	return r.fanout
}

// GetSingleItem loads the entity stored under (typ, id). Tasks get their
// subtasks attached when includeChildren is set.
func (r *Resolver) GetSingleItem(
	ctx context.Context,
	id string,
	typ model.Type,
	includeChildren bool,
) (model.Entity, error) {
	it, err := r.find(ctx, model.Key{Type: typ, UniqueID: id})
	if err != nil {
		return nil, err
	}

	if typ != model.TypeTask {
		return model.DecodeEntity(it)
	}
	task, err := model.DecodeTask(it)
	if err != nil {
		return nil, err
	}
	if includeChildren {
		if task.Subtasks, err = r.GetSubtasks(ctx, id); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

// GetTask loads a task and its subtasks.
func (r *Resolver) GetTask(ctx context.Context, id string) (*model.Task, error) {
	e, err := r.GetSingleItem(ctx, id, model.TypeTask, true)
	if err != nil {
		return nil, err
	}
	return e.(*model.Task), nil
}

// GetSubtasks returns every subtask whose task_id is taskID.
func (r *Resolver) GetSubtasks(ctx context.Context, taskID string) ([]model.Subtask, error) {
	items, err := r.store.Query(ctx, store.ByType(model.TypeSubtask).Where(model.AttrTaskID, taskID))
	if err != nil {
		return nil, fmt.Errorf("loading subtasks of %s: %w", taskID, err)
	}

	subtasks := make([]model.Subtask, 0, len(items))
	for _, it := range items {
		s, err := model.DecodeSubtask(it)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, s)
	}
	return subtasks, nil
}

// GetListTasks returns every task whose list_id is listID, each with its
// subtasks.
func (r *Resolver) GetListTasks(ctx context.Context, listID string) ([]model.Task, error) {
	items, err := r.store.Query(ctx, store.ByType(model.TypeTask).Where(model.AttrListID, listID))
	if err != nil {
		return nil, fmt.Errorf("loading tasks of list %s: %w", listID, err)
	}
	return r.withSubtasks(ctx, items)
}

// GetAllTasks returns every task, each with its subtasks.
func (r *Resolver) GetAllTasks(ctx context.Context) ([]model.Task, error) {
	items, err := r.store.Query(ctx, store.ByType(model.TypeTask))
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	return r.withSubtasks(ctx, items)
}

// GetSingleList loads a list with its tasks and their subtasks.
func (r *Resolver) GetSingleList(ctx context.Context, id string) (*model.List, error) {
	it, err := r.find(ctx, model.Key{Type: model.TypeList, UniqueID: id})
	if err != nil {
		return nil, err
	}
	list, err := model.DecodeList(it)
	if err != nil {
		return nil, err
	}
	if list.Tasks, err = r.GetListTasks(ctx, id); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetAllLists loads every list with its tasks and their subtasks.
func (r *Resolver) GetAllLists(ctx context.Context) ([]model.List, error) {
	items, err := r.store.Query(ctx, store.ByType(model.TypeList))
	if err != nil {
		return nil, fmt.Errorf("loading lists: %w", err)
	}

	lists := make([]model.List, len(items))
	for i, it := range items {
		if lists[i], err = model.DecodeList(it); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)
	for i := range lists {
		g.Go(func() error {
			tasks, err := r.GetListTasks(gctx, lists[i].UniqueID)
			if err != nil {
				return err
			}
			lists[i].Tasks = tasks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

// withSubtasks decodes task rows and attaches their subtasks concurrently.
func (r *Resolver) withSubtasks(ctx context.Context, items []model.Item) ([]model.Task, error) {
	tasks := make([]model.Task, len(items))
	for i, it := range items {
		var err error
		if tasks[i], err = model.DecodeTask(it); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)
	for i := range tasks {
		g.Go(func() error {
			subtasks, err := r.GetSubtasks(gctx, tasks[i].UniqueID)
			if err != nil {
				return err
			}
			tasks[i].Subtasks = subtasks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *Resolver) find(ctx context.Context, key model.Key) (model.Item, error) {
	it, err := r.store.Find(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}
