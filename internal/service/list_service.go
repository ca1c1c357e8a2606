package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nhle/tasklists/internal/cache"
	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/resolver"
	"github.com/nhle/tasklists/internal/store"
)

// ListInput is the body accepted by list create and update.
type ListInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TaskIDs     []string `json:"task_ids"`
}

// ListService implements list CRUD and keeps tasks' list_id in step.
type ListService struct {
	store    store.Store
	resolver *resolver.Resolver
	cache    *cache.ViewCache
	sf       singleflight.Group
}

// NewListService creates a ListService. If c is nil, caching is disabled.
func NewListService(s store.Store, r *resolver.Resolver, c *cache.ViewCache) *ListService {
	return &ListService{store: s, resolver: r, cache: c}
}

// Get returns a list with its tasks and their subtasks.
func (s *ListService) Get(ctx context.Context, id string) (*model.List, error) {
	list, err := s.resolver.GetSingleList(ctx, id)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil, notFound("List doesn't Exist")
	}
	if err != nil {
		return nil, err
	}
	return list, nil
}

// GetAll returns every list with its tasks and their subtasks.
func (s *ListService) GetAll(ctx context.Context) ([]model.List, error) {
	if s.cache == nil {
		return s.resolver.GetAllLists(ctx)
	}
	// The load is shared by every waiter, so one caller going away must not
	// cancel it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do("lists", func() (interface{}, error) {
		if lists, err := s.cache.GetLists(shared); err == nil && lists != nil {
			return lists, nil
		}
		gen, genErr := s.cache.Generation(shared)
		lists, err := s.resolver.GetAllLists(shared)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			_ = s.cache.SetLists(shared, gen, lists)
		}
		return lists, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.List), nil
}

// Create saves a new list, then stamps its id on every task in TaskIDs.
// The list row is kept even if a task reference fails.
func (s *ListService) Create(ctx context.Context, in ListInput) (*Created, error) {
	key := model.Key{Type: model.TypeList, UniqueID: uuid.New().String()}
	item := model.Item{
		"title":       in.Title,
		"description": in.Description,
	}.WithKey(key)

	if err := s.store.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("adding list: %w", err)
	}
	defer s.invalidateCache(ctx)

	if err := s.attachTasks(ctx, key.UniqueID, in.TaskIDs); err != nil {
		log.Printf("list %s saved but task references failed: %v", key.UniqueID, err)
		return nil, err
	}
	return &Created{Message: "List Created", Type: model.TypeList, UniqueID: key.UniqueID}, nil
}

// Update replaces title and description, falling back to the existing
// values, and re-applies TaskIDs. The result holds the updated attributes
// plus the key.
func (s *ListService) Update(ctx context.Context, id string, in ListInput) (model.Item, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := existing.Key()
	updated, err := s.store.UpdateFields(ctx, key, map[string]any{
		"title":       fallback(in.Title, existing.Title),
		"description": fallback(in.Description, existing.Description),
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("List doesn't Exist")
	}
	if err != nil {
		return nil, fmt.Errorf("updating list %s: %w", id, err)
	}
	defer s.invalidateCache(ctx)

	if err := s.attachTasks(ctx, key.UniqueID, in.TaskIDs); err != nil {
		return nil, err
	}
	return updated.WithKey(key), nil
}

// Delete removes the list row. Tasks keep pointing at it.
func (s *ListService) Delete(ctx context.Context, id string) (string, error) {
	old, err := s.store.Delete(ctx, model.Key{Type: model.TypeList, UniqueID: id})
	if errors.Is(err, store.ErrNotFound) {
		return "Unable to find list", nil
	}
	if err != nil {
		return "", fmt.Errorf("deleting list %s: %w", id, err)
	}
	s.invalidateCache(ctx)
	return fmt.Sprintf("%s list successfully removed", old.String("title")), nil
}

// UpdateTaskReference sets list_id on an existing task.
func (s *ListService) UpdateTaskReference(ctx context.Context, listID, taskID string) (model.Item, error) {
	task, err := s.resolver.GetSingleItem(ctx, taskID, model.TypeTask, false)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil, notFound("Task doesn't Exist")
	}
	if err != nil {
		return nil, err
	}

	key := task.Key()
	updated, err := s.store.UpdateFields(ctx, key, map[string]any{model.AttrListID: listID})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("Task doesn't Exist")
	}
	if err != nil {
		return nil, fmt.Errorf("updating task %s reference: %w", taskID, err)
	}
	return updated.WithKey(key), nil
}

func (s *ListService) attachTasks(ctx context.Context, listID string, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolver.FanoutLimit())
	for _, taskID := range taskIDs {
		g.Go(func() error {
			_, err := s.UpdateTaskReference(gctx, listID, taskID)
			return err
		})
	}
	return g.Wait()
}

func (s *ListService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(context.WithoutCancel(ctx))
	}
}
