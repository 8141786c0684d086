package repository

import (
	"context"

	"github.com/jaekwang-park/todo-local/internal/model"
)

// TodoRepository is the durable side of the task list. Implementations run
// one operation at a time.
type TodoRepository interface {
	Initialize(ctx context.Context) error
	List(ctx context.Context) ([]model.Todo, error)
	Add(ctx context.Context, title string) (model.Todo, error)
	// SetCompletion and Delete are no-ops for ids that do not exist.
	SetCompletion(ctx context.Context, id int64, completed bool) error
	Delete(ctx context.Context, id int64) error
	Close() error
}
