package service

import (
	"errors"

	"github.com/nhle/tasklists/internal/model"
)

// Error kinds. Every error built by this package unwraps to one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid request")
)

// Error carries the message shown to clients and unwraps to its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func notFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }
func invalid(msg string) error  { return &Error{Kind: ErrValidation, Msg: msg} }

// Created is returned by the create operations.
type Created struct {
	Message  string     `json:"message"`
	Type     model.Type `json:"type"`
	UniqueID string     `json:"unique_id"`
}

// placeholder is written for a text attribute that has neither a new nor an
// existing value.
const placeholder = " "

// fallback returns the first non-empty value, or placeholder.
func fallback(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return placeholder
}
