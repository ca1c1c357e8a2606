package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nhle/tasklists/internal/cache"
	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/store"
)

// App owns the store, the optional Redis client and the HTTP router.
type App struct {
	cfg    *model.AppConfig
	store  store.Store
	redis  *redis.Client
	router *gin.Engine
}

// New opens the configured store and, when redis.addr is set, the view
// cache, then builds the router.
func New(ctx context.Context, cfg *model.AppConfig) (*App, error) {
	a := &App{cfg: cfg}

	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}
	a.store = s

	var views *cache.ViewCache
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		a.redis = rdb
		views = cache.NewViewCache(rdb, cfg.Redis.TTL)
	} else {
		log.Printf("redis.addr not set, view cache disabled")
	}

	a.router = NewRouter(s, views, cfg.Resolver.FanoutLimit)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Close releases the Redis client and the store.
func (a *App) Close() error {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// NewRouter returns a gin engine with logging, recovery and CORS, serving
// every route over s.
func NewRouter(s store.Store, views *cache.ViewCache, fanout int) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, s, views, fanout)
	return r
}
