package model

import "time"

type Todo struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a copy that shares no memory with t.
func (t Todo) Clone() Todo {
	c := t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// WithCompletion returns a copy of t with the completion flag set and
// CompletedAt stamped or cleared to match it.
func (t Todo) WithCompletion(completed bool, now time.Time) Todo {
	c := t.Clone()
	c.IsCompleted = completed
	if !completed {
		c.CompletedAt = nil
		return c
	}
	at := now.UTC()
	if at.Before(c.CreatedAt) {
		at = c.CreatedAt
	}
	c.CompletedAt = &at
	return c
}

// Valid reports whether the completion fields agree with each other.
func (t Todo) Valid() bool {
	if t.IsCompleted != (t.CompletedAt != nil) {
		return false
	}
	return t.CompletedAt == nil || !t.CompletedAt.Before(t.CreatedAt)
}
