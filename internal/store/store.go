package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/nhle/tasklists/internal/model"
)

// ErrNotFound is returned when no row exists for a key.
var ErrNotFound = errors.New("item not found")

// Filter restricts a query to rows whose attribute Attr equals Value.
type Filter struct {
	Attr  string
	Value string
}

// Query selects every row of one type, optionally narrowed by a filter.
type Query struct {
	Type   model.Type
	Filter *Filter
}

// ByType returns a query for every row of type t.
func ByType(t model.Type) Query {
	return Query{Type: t}
}

// Where narrows q to rows whose attribute attr equals value.
func (q Query) Where(attr, value string) Query {
	q.Filter = &Filter{Attr: attr, Value: value}
	return q
}

// Store is the items table: one row per entity keyed by (type, unique_id).
type Store interface {
	// Find returns the row for key, or ErrNotFound.
	Find(ctx context.Context, key model.Key) (model.Item, error)

	// Query returns the rows matching q. It never returns ErrNotFound.
	Query(ctx context.Context, q Query) ([]model.Item, error)

	// Scan returns every row of every type.
	Scan(ctx context.Context) ([]model.Item, error)

	// Save inserts item, replacing any row with the same key.
	Save(ctx context.Context, item model.Item) error

	// UpdateFields merges fields into the row for key and returns the
	// updated attributes only. Returns ErrNotFound if the row is absent.
	UpdateFields(ctx context.Context, key model.Key, fields map[string]any) (model.Item, error)

	// Delete removes the row for key and returns its old value, or
	// ErrNotFound.
	Delete(ctx context.Context, key model.Key) (model.Item, error)

	Close() error
}

var attrPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateKey(k model.Key) error {
	if !k.Type.Valid() {
		return fmt.Errorf("invalid item type %q", k.Type)
	}
	if k.UniqueID == "" {
		return fmt.Errorf("item %s has no unique_id", k.Type)
	}
	return nil
}

func validateQuery(q Query) error {
	if !q.Type.Valid() {
		return fmt.Errorf("invalid query type %q", q.Type)
	}
	if q.Filter != nil && !attrPattern.MatchString(q.Filter.Attr) {
		return fmt.Errorf("invalid filter attribute %q", q.Filter.Attr)
	}
	return nil
}

func validateFields(fields map[string]any) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}
	for name := range fields {
		if name == model.AttrType || name == model.AttrUniqueID {
			return fmt.Errorf("key attribute %q cannot be updated", name)
		}
		if !attrPattern.MatchString(name) {
			return fmt.Errorf("invalid attribute name %q", name)
		}
	}
	return nil
}
