package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nhle/tasklists/internal/model"
)

const (
	keyLists = "tasklists:view:lists"
	keyTasks = "tasklists:view:tasks"
	keyGen   = "tasklists:view:gen"
)

// ViewCache caches the fully resolved "all lists" and "all tasks" views
// in Redis. Any write invalidates both and bumps a generation counter; a
// view loaded under an older generation is never stored.
type ViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewViewCache returns a ViewCache storing entries for ttl.
func NewViewCache(rdb *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{rdb: rdb, ttl: ttl}
}

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, cfg model.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// GetLists returns the cached lists view or nil on a miss.
func (c *ViewCache) GetLists(ctx context.Context) ([]model.List, error) {
	var lists []model.List
	ok, err := c.get(ctx, keyLists, &lists)
	if err != nil || !ok {
		return nil, err
	}
	return lists, nil
}

// SetLists stores the lists view if gen is still current.
func (c *ViewCache) SetLists(ctx context.Context, gen int64, lists []model.List) error {
	return c.set(ctx, keyLists, gen, lists)
}

// GetTasks returns the cached tasks view or nil on a miss.
func (c *ViewCache) GetTasks(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	ok, err := c.get(ctx, keyTasks, &tasks)
	if err != nil || !ok {
		return nil, err
	}
	return tasks, nil
}

// SetTasks stores the tasks view if gen is still current.
func (c *ViewCache) SetTasks(ctx context.Context, gen int64, tasks []model.Task) error {
	return c.set(ctx, keyTasks, gen, tasks)
}

// Generation returns the current invalidation counter. Read it before
// loading a view and hand it to SetLists or SetTasks.
func (c *ViewCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, keyGen).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// InvalidateAll drops both views and bumps the generation.
func (c *ViewCache) InvalidateAll(ctx context.Context) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keyLists, keyTasks)
		p.Incr(ctx, keyGen)
		return nil
	})
	return err
}

func (c *ViewCache) get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *ViewCache) set(ctx context.Context, key string, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, keyGen).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, c.ttl)
			return nil
		})
		return err
	}, keyGen)
	// An invalidation raced the write; the view is stale either way.
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}
