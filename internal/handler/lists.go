package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/nhle/tasklists/internal/service"
)

// ListsHandler serves the lists resource.
type ListsHandler struct {
	svc *service.ListService
}

func NewListsHandler(svc *service.ListService) *ListsHandler {
	return &ListsHandler{svc: svc}
}

// Handle dispatches req on its method. Every failure is a 400 whose body
// is the error message.
func (h *ListsHandler) Handle(ctx context.Context, req Request) Response {
	payload, err := h.dispatch(ctx, req)
	if err != nil {
		log.Printf("lists %s %s: %v", req.method(), req.param("id"), err)
		return failure(err)
	}
	return NewResponse(payload, http.StatusOK)
}

func (h *ListsHandler) dispatch(ctx context.Context, req Request) (any, error) {
	switch m := req.method(); m {
	case http.MethodGet:
		if id := req.param("id"); id != "" {
			return h.svc.Get(ctx, id)
		}
		return h.svc.GetAll(ctx)

	case http.MethodPost:
		var in service.ListInput
		if err := req.decodeBody(&in); err != nil {
			return nil, err
		}
		return h.svc.Create(ctx, in)

	case http.MethodPut:
		id, err := req.requireID("list")
		if err != nil {
			return nil, err
		}
		var in service.ListInput
		if err := req.decodeBody(&in); err != nil {
			return nil, err
		}
		return h.svc.Update(ctx, id, in)

	case http.MethodDelete:
		id, err := req.requireID("list")
		if err != nil {
			return nil, err
		}
		return h.svc.Delete(ctx, id)

	default:
		return nil, unsupported(m)
	}
}
