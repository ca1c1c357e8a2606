package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/service"
)

// TasksHandler serves tasks and subtasks. Creates take the type from the
// body; updates and deletes from the path, falling back to the body.
type TasksHandler struct {
	svc *service.TaskService
}

func NewTasksHandler(svc *service.TaskService) *TasksHandler {
	return &TasksHandler{svc: svc}
}

// Handle dispatches req on its method. Every failure is a 400 whose body
// is the error message.
func (h *TasksHandler) Handle(ctx context.Context, req Request) Response {
	payload, err := h.dispatch(ctx, req)
	if err != nil {
		log.Printf("tasks %s %s: %v", req.method(), req.param("id"), err)
		return failure(err)
	}
	return NewResponse(payload, http.StatusOK)
}

func (h *TasksHandler) dispatch(ctx context.Context, req Request) (any, error) {
	switch m := req.method(); m {
	case http.MethodGet:
		if id := req.param("id"); id != "" {
			return h.svc.Get(ctx, id)
		}
		return h.svc.GetAll(ctx)

	case http.MethodPost:
		var in service.TaskInput
		if err := req.decodeBody(&in); err != nil {
			return nil, err
		}
		return h.svc.Create(ctx, in.Type, in)

	case http.MethodPut:
		id, err := req.requireID("task")
		if err != nil {
			return nil, err
		}
		var in service.TaskInput
		if err := req.decodeBody(&in); err != nil {
			return nil, err
		}
		return h.svc.Update(ctx, id, typeOf(req, in), in)

	case http.MethodDelete:
		id, err := req.requireID("task")
		if err != nil {
			return nil, err
		}
		return h.svc.Delete(ctx, id, model.Type(req.param("type")))

	default:
		return nil, unsupported(m)
	}
}

func typeOf(req Request, in service.TaskInput) model.Type {
	if t := req.param("type"); t != "" {
		return model.Type(t)
	}
	return in.Type
}
