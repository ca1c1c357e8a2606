package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/tasklists/internal/cache"
	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/resolver"
	"github.com/nhle/tasklists/internal/store"
)

// TaskInput is the body accepted by task and subtask create and update.
// Completed is a pointer so that an explicit false can be told apart from
// an absent field.
type TaskInput struct {
	Type        model.Type      `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Completed   *bool           `json:"completed"`
	DueDate     string          `json:"due_date"`
	TaskID      string          `json:"task_id"`
	Subtasks    []model.Subtask `json:"subtasks"`
}

// TaskService implements task and subtask CRUD.
type TaskService struct {
	store    store.Store
	resolver *resolver.Resolver
	cache    *cache.ViewCache
	sf       singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(s store.Store, r *resolver.Resolver, c *cache.ViewCache) *TaskService {
	return &TaskService{store: s, resolver: r, cache: c}
}

// Get returns a task with its subtasks.
func (s *TaskService) Get(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.resolver.GetTask(ctx, id)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil, notFound("Task doesn't Exist")
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetAll returns every task with its subtasks.
func (s *TaskService) GetAll(ctx context.Context) ([]model.Task, error) {
	if s.cache == nil {
		return s.resolver.GetAllTasks(ctx)
	}
	// The load is shared by every waiter, so one caller going away must not
	// cancel it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do("tasks", func() (interface{}, error) {
		if tasks, err := s.cache.GetTasks(shared); err == nil && tasks != nil {
			return tasks, nil
		}
		gen, genErr := s.cache.Generation(shared)
		tasks, err := s.resolver.GetAllTasks(shared)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			_ = s.cache.SetTasks(shared, gen, tasks)
		}
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Task), nil
}

// Create saves a new task or subtask. A subtask must name an existing task
// as its parent.
func (s *TaskService) Create(ctx context.Context, typ model.Type, in TaskInput) (*Created, error) {
	if err := checkTaskType(typ); err != nil {
		return nil, err
	}

	item := model.Item{
		"title":       in.Title,
		"description": in.Description,
		"completed":   in.Completed != nil && *in.Completed,
	}
	if in.DueDate != "" {
		item["due_date"] = in.DueDate
	}

	if typ == model.TypeSubtask {
		if in.TaskID == "" {
			return nil, invalid("Cannot create a subtask without a parent task")
		}
		_, err := s.resolver.GetSingleItem(ctx, in.TaskID, model.TypeTask, false)
		if errors.Is(err, resolver.ErrNotFound) {
			return nil, invalid("Cannot create subtasks inside subtasks")
		}
		if err != nil {
			return nil, err
		}
		item[model.AttrTaskID] = in.TaskID
	}

	key := model.Key{Type: typ, UniqueID: uuid.New().String()}
	if err := s.store.Save(ctx, item.WithKey(key)); err != nil {
		return nil, fmt.Errorf("adding %s: %w", typ, err)
	}
	s.invalidateCache(ctx)

	return &Created{Message: fmt.Sprintf("%s created", typ), Type: typ, UniqueID: key.UniqueID}, nil
}

// Update replaces the editable attributes of a task or subtask. Text
// attributes missing from in keep their existing value. For tasks the
// subtasks in the body, or the currently attached ones, are written too.
func (s *TaskService) Update(ctx context.Context, id string, typ model.Type, in TaskInput) (model.Item, error) {
	if err := checkTaskType(typ); err != nil {
		return nil, err
	}

	existing, err := s.resolver.GetSingleItem(ctx, id, typ, true)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil, notFound("Task/Subtask doesn't Exist")
	}
	if err != nil {
		return nil, err
	}

	var (
		title, description, dueDate string
		completed                   bool
		subtasks                    []model.Subtask
	)
	switch e := existing.(type) {
	case *model.Task:
		title, description, dueDate, completed = e.Title, e.Description, e.DueDate, e.Completed
		subtasks = e.Subtasks
	case *model.Subtask:
		title, description, dueDate, completed = e.Title, e.Description, e.DueDate, e.Completed
	}
	if in.Completed != nil {
		completed = *in.Completed
	}

	fields := map[string]any{
		"title":       fallback(in.Title, title),
		"description": fallback(in.Description, description),
		"completed":   completed,
		"due_date":    fallback(in.DueDate, dueDate),
	}
	if typ == model.TypeTask {
		if in.Subtasks != nil {
			subtasks = in.Subtasks
		}
		if subtasks == nil {
			subtasks = []model.Subtask{}
		}
		fields["subtasks"] = subtasks
	}

	key := existing.Key()
	updated, err := s.store.UpdateFields(ctx, key, fields)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Task/Subtask doesn't Exist")
	}
	if err != nil {
		return nil, fmt.Errorf("updating %s %s: %w", typ, id, err)
	}
	s.invalidateCache(ctx)
	return updated.WithKey(key), nil
}

// Delete removes a task or subtask. An empty type means task. Children
// of a deleted task are left in place.
func (s *TaskService) Delete(ctx context.Context, id string, typ model.Type) (string, error) {
	if typ == "" {
		typ = model.TypeTask
	}
	if err := checkTaskType(typ); err != nil {
		return "", err
	}

	old, err := s.store.Delete(ctx, model.Key{Type: typ, UniqueID: id})
	if errors.Is(err, store.ErrNotFound) {
		return "Unable to find task", nil
	}
	if err != nil {
		return "", fmt.Errorf("deleting %s %s: %w", typ, id, err)
	}
	s.invalidateCache(ctx)
	return fmt.Sprintf("%s %s successfully removed", old.String("title"), typ), nil
}

func (s *TaskService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(context.WithoutCancel(ctx))
	}
}

func checkTaskType(typ model.Type) error {
	if typ == model.TypeTask || typ == model.TypeSubtask {
		return nil
	}
	return invalid(fmt.Sprintf("Unsupported type %q: expected task or subtask", typ))
}
