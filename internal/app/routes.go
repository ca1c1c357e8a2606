package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/tasklists/internal/cache"
	"github.com/nhle/tasklists/internal/handler"
	"github.com/nhle/tasklists/internal/resolver"
	"github.com/nhle/tasklists/internal/service"
	"github.com/nhle/tasklists/internal/store"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, s store.Store, views *cache.ViewCache, fanout int) {
	res := resolver.New(s, fanout)
	lists := handler.NewListsHandler(service.NewListService(s, res, views))
	tasks := handler.NewTasksHandler(service.NewTaskService(s, res, views))

	r.GET("/health", healthHandler)
	r.GET("/orphans", orphansHandler(res))

	r.Any("/lists", serve(lists.Handle))
	r.Any("/lists/:id", serve(lists.Handle))

	r.Any("/tasks", serve(tasks.Handle))
	r.Any("/tasks/:id", serve(tasks.Handle))
	r.Any("/tasks/:id/:type", serve(tasks.Handle))
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func orphansHandler(res *resolver.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := res.Orphans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

type handleFunc func(context.Context, handler.Request) handler.Response

// serve adapts a resource handler to gin: path params and body go in,
// the handler's status, headers and body come out untouched.
func serve(h handleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, err.Error())
			return
		}

		var params map[string]string
		if len(c.Params) > 0 {
			params = make(map[string]string, len(c.Params))
			for _, p := range c.Params {
				params[p.Key] = p.Value
			}
		}

		resp := h(c.Request.Context(), handler.Request{
			HTTPMethod:     c.Request.Method,
			PathParameters: params,
			Body:           string(body),
		})
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		c.Data(resp.StatusCode, resp.Headers["Content-Type"], []byte(resp.Body))
	}
}
