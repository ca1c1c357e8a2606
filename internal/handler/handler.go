// Package handler turns method-dispatched requests into service calls and
// wraps every outcome in a JSON response.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nhle/tasklists/internal/service"
)

// Request is one call on a resource: the HTTP method, the path parameters
// (id and, for tasks, type) and the raw JSON body.
type Request struct {
	HTTPMethod     string            `json:"httpMethod"`
	PathParameters map[string]string `json:"pathParameters"`
	Body           string            `json:"body"`
}

// Response is what a handler returns. Body is JSON text, or "" when there
// is no payload.
type Response struct {
	Headers    map[string]string `json:"headers"`
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
}

// NewResponse encodes payload as the response body.
func NewResponse(payload any, status int) Response {
	resp := Response{
		Headers: map[string]string{
			"Access-Control-Allow-Origin": "*",
			"Content-Type":                "application/json",
		},
		StatusCode: status,
	}
	if payload == nil {
		return resp
	}
	b, err := json.Marshal(payload)
	if err != nil {
		b, _ = json.Marshal(err.Error())
		resp.StatusCode = http.StatusBadRequest
	}
	resp.Body = string(b)
	return resp
}

func failure(err error) Response {
	return NewResponse(err.Error(), http.StatusBadRequest)
}

func (r Request) param(name string) string {
	return r.PathParameters[name]
}

func (r Request) method() string {
	return strings.ToUpper(r.HTTPMethod)
}

// decodeBody parses the JSON body into dst. An empty body leaves dst as is.
func (r Request) decodeBody(dst any) error {
	if strings.TrimSpace(r.Body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(r.Body), dst); err != nil {
		return &service.Error{Kind: service.ErrValidation, Msg: fmt.Sprintf("Invalid request body: %v", err)}
	}
	return nil
}

func (r Request) requireID(resource string) (string, error) {
	id := r.param("id")
	if id == "" {
		return "", &service.Error{Kind: service.ErrValidation, Msg: fmt.Sprintf("Missing %s id", resource)}
	}
	return id, nil
}

func unsupported(method string) error {
	return &service.Error{Kind: service.ErrValidation, Msg: fmt.Sprintf("Unsupported method %s", method)}
}
