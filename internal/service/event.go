package service

import (
	"fmt"

	"github.com/jaekwang-park/todo-local/internal/model"
)

type EventKind int

const (
	// EventReset replaces the whole list with Items.
	EventReset EventKind = iota + 1
	// EventInsert places Item at Index.
	EventInsert
	// EventRemove takes the item at Index out of the list. Item is the value
	// that was removed.
	EventRemove
	// EventReplace swaps the item at Index for Item in place.
	EventReplace
	EventEmptyChanged
	EventBusyChanged
)

var eventKindNames = map[EventKind]string{
	EventReset:        "reset",
	EventInsert:       "insert",
	EventRemove:       "remove",
	EventReplace:      "replace",
	EventEmptyChanged: "empty_changed",
	EventBusyChanged:  "busy_changed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event describes one change to the list or its flags. Which fields are set
// depends on Kind.
type Event struct {
	Kind  EventKind
	Index int
	Item  model.Todo
	Items []model.Todo
	Empty bool
	Busy  bool
}
