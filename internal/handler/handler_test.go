package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasklists/internal/handler"
	"github.com/nhle/tasklists/internal/model"
	"github.com/nhle/tasklists/internal/resolver"
	"github.com/nhle/tasklists/internal/service"
	"github.com/nhle/tasklists/tests/testutil"
)

func newHandlers(t *testing.T, items ...model.Item) (*handler.ListsHandler, *handler.TasksHandler) {
	t.Helper()
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s, items...)
	r := resolver.New(s, 4)
	return handler.NewListsHandler(service.NewListService(s, r, nil)),
		handler.NewTasksHandler(service.NewTaskService(s, r, nil))
}

func decode[T any](t *testing.T, resp handler.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &v), "body: %s", resp.Body)
	return v
}

func TestNewResponse(t *testing.T) {
	resp := handler.NewResponse(map[string]int{"a": 1}, http.StatusOK)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"a":1}`, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])

	empty := handler.NewResponse(nil, http.StatusOK)
	assert.Equal(t, "", empty.Body)

	msg := handler.NewResponse("done", http.StatusBadRequest)
	assert.Equal(t, `"done"`, msg.Body)
}

func TestLists_CreateGetDelete(t *testing.T) {
	lists, _ := newHandlers(t, testutil.TaskItem("T1", "a", ""))
	ctx := context.Background()

	resp := lists.Handle(ctx, handler.Request{
		HTTPMethod: "POST",
		Body:       `{"title":"Home","description":"chores","task_ids":["T1"]}`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	created := decode[service.Created](t, resp)
	assert.Equal(t, "List Created", created.Message)

	resp = lists.Handle(ctx, handler.Request{
		HTTPMethod:     "get",
		PathParameters: map[string]string{"id": created.UniqueID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	list := decode[model.List](t, resp)
	assert.Equal(t, "Home", list.Title)
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, "T1", list.Tasks[0].UniqueID)

	resp = lists.Handle(ctx, handler.Request{
		HTTPMethod:     "DELETE",
		PathParameters: map[string]string{"id": created.UniqueID},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"Home list successfully removed"`, resp.Body)
}

func TestLists_GetAllEmpty(t *testing.T) {
	lists, _ := newHandlers(t)

	resp := lists.Handle(context.Background(), handler.Request{HTTPMethod: "GET"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", resp.Body)
}

func TestLists_UpdateMissingIs400(t *testing.T) {
	lists, _ := newHandlers(t)

	resp := lists.Handle(context.Background(), handler.Request{
		HTTPMethod:     "PUT",
		PathParameters: map[string]string{"id": "missing"},
		Body:           `{"title":"x"}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"List doesn't Exist"`, resp.Body)
}

func TestLists_MissingIDIs400(t *testing.T) {
	lists, _ := newHandlers(t)

	resp := lists.Handle(context.Background(), handler.Request{HTTPMethod: "DELETE"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"Missing list id"`, resp.Body)
}

func TestLists_UnsupportedMethod(t *testing.T) {
	lists, _ := newHandlers(t)

	resp := lists.Handle(context.Background(), handler.Request{HTTPMethod: "PATCH"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"Unsupported method PATCH"`, resp.Body)
}

func TestLists_InvalidBody(t *testing.T) {
	lists, _ := newHandlers(t)

	resp := lists.Handle(context.Background(), handler.Request{HTTPMethod: "POST", Body: "{"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "Invalid request body")
}

func TestTasks_CreateSubtaskAndDelete(t *testing.T) {
	_, tasks := newHandlers(t, testutil.TaskItem("T1", "Parent", ""))
	ctx := context.Background()

	resp := tasks.Handle(ctx, handler.Request{
		HTTPMethod: "POST",
		Body:       `{"type":"subtask","title":"Child","task_id":"T1"}`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	created := decode[service.Created](t, resp)
	assert.Equal(t, "subtask created", created.Message)

	resp = tasks.Handle(ctx, handler.Request{
		HTTPMethod:     "GET",
		PathParameters: map[string]string{"id": "T1"},
	})
	task := decode[model.Task](t, resp)
	require.Len(t, task.Subtasks, 1)
	assert.Equal(t, created.UniqueID, task.Subtasks[0].UniqueID)

	resp = tasks.Handle(ctx, handler.Request{
		HTTPMethod:     "DELETE",
		PathParameters: map[string]string{"id": created.UniqueID, "type": "subtask"},
	})
	assert.Equal(t, `"Child subtask successfully removed"`, resp.Body)
}

func TestTasks_CreateSubtaskInsideSubtask(t *testing.T) {
	_, tasks := newHandlers(t, testutil.SubtaskItem("S1", "x", "T1"))

	resp := tasks.Handle(context.Background(), handler.Request{
		HTTPMethod: "POST",
		Body:       `{"type":"subtask","title":"nested","task_id":"S1"}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"Cannot create subtasks inside subtasks"`, resp.Body)
}

func TestTasks_CreateSubtaskUnderList(t *testing.T) {
	_, tasks := newHandlers(t, testutil.ListItem("L1", "Home"))

	resp := tasks.Handle(context.Background(), handler.Request{
		HTTPMethod: "POST",
		Body:       `{"type":"subtask","title":"misplaced","task_id":"L1"}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `"Cannot create subtasks inside subtasks"`, resp.Body)
}

func TestTasks_UpdateTypeFromBody(t *testing.T) {
	_, tasks := newHandlers(t, testutil.TaskItem("T1", "Laundry", ""))

	resp := tasks.Handle(context.Background(), handler.Request{
		HTTPMethod:     "PUT",
		PathParameters: map[string]string{"id": "T1"},
		Body:           `{"type":"task","completed":true}`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	updated := decode[map[string]any](t, resp)
	assert.Equal(t, "Laundry", updated["title"])
	assert.Equal(t, true, updated["completed"])
	assert.Equal(t, "T1", updated["unique_id"])
}

func TestTasks_DeleteMissing(t *testing.T) {
	_, tasks := newHandlers(t)

	resp := tasks.Handle(context.Background(), handler.Request{
		HTTPMethod:     "DELETE",
		PathParameters: map[string]string{"id": "nope"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"Unable to find task"`, resp.Body)
}
