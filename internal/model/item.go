package model

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the entity kinds sharing the items table.
type Type string

// Entity type constants.
const (
	TypeList    Type = "list"
	TypeTask    Type = "task"
	TypeSubtask Type = "subtask"
)

// Valid reports whether t is one of the known entity types.
func (t Type) Valid() bool {
	switch t {
	case TypeList, TypeTask, TypeSubtask:
		return true
	}
	return false
}

// Key attribute names. Every row carries both.
const (
	AttrType     = "type"
	AttrUniqueID = "unique_id"
)

// Reference attribute names used by the child lookups.
const (
	AttrListID = "list_id"
	AttrTaskID = "task_id"
)

// Key is the primary key of a row: the type tag plus a globally unique id.
type Key struct {
	Type     Type   `json:"type"`
	UniqueID string `json:"unique_id"`
}

func (k Key) String() string {
	return string(k.Type) + "/" + k.UniqueID
}

// Item is one row of the items table as the store sees it: the key
// attributes plus whatever type-specific attributes were written.
type Item map[string]any

// Key returns the row's primary key.
func (it Item) Key() Key {
	return Key{Type: Type(it.String(AttrType)), UniqueID: it.String(AttrUniqueID)}
}

// String returns the named attribute if it holds a string, "" otherwise.
func (it Item) String(name string) string {
	s, _ := it[name].(string)
	return s
}

// WithKey sets the key attributes on it and returns it.
func (it Item) WithKey(k Key) Item {
	it[AttrType] = string(k.Type)
	it[AttrUniqueID] = k.UniqueID
	return it
}

// Attributes returns a copy of it without the key attributes.
func (it Item) Attributes() Item {
	out := make(Item, len(it))
	for k, v := range it {
		if k == AttrType || k == AttrUniqueID {
			continue
		}
		out[k] = v
	}
	return out
}

// Decode copies the item's attributes into dst through its JSON tags.
func (it Item) Decode(dst any) error {
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encoding item %s: %w", it.Key(), err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decoding item %s: %w", it.Key(), err)
	}
	return nil
}

// ItemOf converts v into an Item through its JSON tags.
func ItemOf(v any) (Item, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding item: %w", err)
	}
	var it Item
	if err := json.Unmarshal(b, &it); err != nil {
		return nil, fmt.Errorf("decoding item: %w", err)
	}
	return it, nil
}
