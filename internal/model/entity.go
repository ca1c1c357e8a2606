package model

import "fmt"

// Entity is one of List, Task or Subtask.
type Entity interface {
	Key() Key
	entity()
}

// List groups tasks. Tasks point back at it through their list_id.
type List struct {
	UniqueID    string `json:"unique_id"`
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// Tasks is populated by the resolver, never stored.
	Tasks []Task `json:"tasks"`
}

// Task is a to-do item, optionally attached to a list.
type Task struct {
	UniqueID    string `json:"unique_id"`
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DueDate     string `json:"due_date,omitempty"`
	ListID      string `json:"list_id,omitempty"`

	// Subtasks holds the subtasks pointing at this task when loaded through
	// the resolver; a value persisted on the row by an update is replaced.
	Subtasks []Subtask `json:"subtasks"`
}

// Subtask belongs to exactly one task and cannot have children of its own.
type Subtask struct {
	UniqueID    string `json:"unique_id"`
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	DueDate     string `json:"due_date,omitempty"`
	TaskID      string `json:"task_id"`
}

func (l *List) Key() Key    { return Key{Type: TypeList, UniqueID: l.UniqueID} }
func (t *Task) Key() Key    { return Key{Type: TypeTask, UniqueID: t.UniqueID} }
func (s *Subtask) Key() Key { return Key{Type: TypeSubtask, UniqueID: s.UniqueID} }

func (*List) entity()    {}
func (*Task) entity()    {}
func (*Subtask) entity() {}

// DecodeEntity decodes a stored row into the variant named by its type.
func DecodeEntity(it Item) (Entity, error) {
	var e Entity
	switch t := it.Key().Type; t {
	case TypeList:
		e = &List{}
	case TypeTask:
		e = &Task{}
	case TypeSubtask:
		e = &Subtask{}
	default:
		return nil, fmt.Errorf("unknown item type %q", t)
	}
	if err := it.Decode(e); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeTask decodes a task row and guarantees a non-nil subtask slice.
func DecodeTask(it Item) (Task, error) {
	var t Task
	if err := it.Decode(&t); err != nil {
		return Task{}, err
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return t, nil
}

// DecodeSubtask decodes a subtask row.
func DecodeSubtask(it Item) (Subtask, error) {
	var s Subtask
	if err := it.Decode(&s); err != nil {
		return Subtask{}, err
	}
	return s, nil
}

// DecodeList decodes a list row.
func DecodeList(it Item) (List, error) {
	var l List
	if err := it.Decode(&l); err != nil {
		return List{}, err
	}
	return l, nil
}
