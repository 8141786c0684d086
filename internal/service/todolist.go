package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jaekwang-park/todo-local/internal/model"
	"github.com/jaekwang-park/todo-local/internal/repository"
)

// ListController keeps an ordered in-memory copy of the todo list in step
// with a TodoRepository and reports every change to its subscribers.
//
// The list is owned by a single goroutine. Commands call the repository on
// the caller's goroutine and then hand the resulting mutation to the owner,
// so the list only ever changes after a durable operation has succeeded.
// Commands are not serialized against each other; each one reconciles with
// the list as it is when its repository call returns.
//
// Ordering: incomplete todos come first. A full load keeps repository order.
// Afterwards a new todo goes to the front, a completed todo moves to the
// tail, and a reopened todo moves to just before the first completed one.
type ListController struct {
	repo   repository.TodoRepository
	logger *slog.Logger
	now    func() time.Time

	ops       chan func(*listState)
	done      chan struct{}
	closeOnce sync.Once

	initializing atomic.Bool
}

type ControllerOption func(*ListController)

// WithControllerClock replaces the clock used to stamp completions in memory.
func WithControllerClock(now func() time.Time) ControllerOption {
	return func(c *ListController) {
		c.now = now
	}
}

func NewListController(repo repository.TodoRepository, logger *slog.Logger, opts ...ControllerOption) *ListController {
	if logger == nil {
		logger = slog.Default()
	}
	c := &ListController{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		ops:    make(chan func(*listState)),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

func (c *ListController) run() {
	st := &listState{empty: true}
	for {
		select {
		case op := <-c.ops:
			op(st)
		case <-c.done:
			return
		}
	}
}

// do runs op on the owner goroutine and waits for it to finish.
func (c *ListController) do(op func(*listState)) error {
	finished := make(chan struct{})
	wrapped := func(st *listState) {
		defer close(finished)
		op(st)
	}
	select {
	case c.ops <- wrapped:
	case <-c.done:
		return ErrControllerClosed
	}
	<-finished
	return nil
}

// Close stops the owner goroutine. Subsequent commands and reads fail with
// ErrControllerClosed or return zero values. The repository is not closed.
func (c *ListController) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// begin marks a command as in flight. The returned func must be called once
// the command is over, whatever its outcome.
func (c *ListController) begin() (func(), error) {
	err := c.do(func(st *listState) {
		st.inFlight++
		if st.inFlight == 1 {
			st.emit(Event{Kind: EventBusyChanged, Busy: true})
		}
	})
	if err != nil {
		return nil, err
	}
	return func() {
		_ = c.do(func(st *listState) {
			st.inFlight--
			if st.inFlight == 0 {
				st.emit(Event{Kind: EventBusyChanged, Busy: false})
			}
		})
	}, nil
}

// Initialize prepares the repository and replaces the list with its contents.
// A call made while another Initialize is running returns immediately.
func (c *ListController) Initialize(ctx context.Context) error {
	if !c.initializing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.initializing.Store(false)

	end, err := c.begin()
	if err != nil {
		return err
	}
	defer end()

	if err := c.repo.Initialize(ctx); err != nil {
		c.logger.Warn("todo store initialization failed", "error", err)
		return fmt.Errorf("failed to initialize todo store: %w", err)
	}

	todos, err := c.repo.List(ctx)
	if err != nil {
		c.logger.Warn("todo load failed", "error", err)
		return fmt.Errorf("failed to load todos: %w", err)
	}

	err = c.do(func(st *listState) {
		st.items = cloneAll(todos)
		st.emit(Event{Kind: EventReset, Items: cloneAll(st.items)})
		st.refreshEmpty()
	})
	if err != nil {
		return err
	}

	c.logger.Debug("todo list loaded", "count", len(todos))
	return nil
}

// Add stores a new todo and puts it in front of every other incomplete todo.
// A blank title is ignored without touching the repository and yields the
// zero Todo.
func (c *ListController) Add(ctx context.Context, title string) (model.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return model.Todo{}, nil
	}

	end, err := c.begin()
	if err != nil {
		return model.Todo{}, err
	}
	defer end()

	todo, err := c.repo.Add(ctx, title)
	if err != nil {
		c.logger.Warn("todo add failed", "error", err)
		return model.Todo{}, fmt.Errorf("failed to add todo: %w", err)
	}

	err = c.do(func(st *listState) {
		// Incomplete todos always lead, so the front is the first incomplete slot.
		st.insert(0, todo.Clone())
		st.emit(Event{Kind: EventInsert, Index: 0, Item: todo.Clone()})
		st.refreshEmpty()
	})
	return todo, err
}

// SetCompletion marks item completed or incomplete and moves it accordingly.
// A nil item is ignored. If the todo left the list while the repository call
// was in progress, the in-memory update is dropped. The returned value is the
// todo as written.
func (c *ListController) SetCompletion(ctx context.Context, item *model.Todo, completed bool) (model.Todo, error) {
	if item == nil {
		return model.Todo{}, nil
	}

	end, err := c.begin()
	if err != nil {
		return model.Todo{}, err
	}
	defer end()

	updated := item.WithCompletion(completed, c.now())

	if err := c.repo.SetCompletion(ctx, updated.ID, updated.IsCompleted); err != nil {
		c.logger.Warn("todo status update failed", "id", updated.ID, "error", err)
		return model.Todo{}, fmt.Errorf("failed to update todo status: %w", err)
	}

	err = c.do(func(st *listState) {
		from := st.indexOf(updated.ID)
		if from < 0 {
			c.logger.Debug("dropping status update for todo no longer listed", "id", updated.ID)
			return
		}

		existing := st.items[from]
		existing.IsCompleted = updated.IsCompleted
		existing.CompletedAt = updated.Clone().CompletedAt

		removed := st.remove(from)
		to := len(st.items)
		if !existing.IsCompleted {
			to = st.leadingIncomplete()
		}
		st.insert(to, existing)

		if to == from {
			st.emit(Event{Kind: EventReplace, Index: to, Item: existing.Clone()})
		} else {
			st.emit(Event{Kind: EventRemove, Index: from, Item: removed})
			st.emit(Event{Kind: EventInsert, Index: to, Item: existing.Clone()})
		}
		st.refreshEmpty()
	})
	return updated, err
}

// Delete removes item from the repository and from the list. A nil item, or
// one that is already gone, is not an error.
func (c *ListController) Delete(ctx context.Context, item *model.Todo) error {
	if item == nil {
		return nil
	}

	end, err := c.begin()
	if err != nil {
		return err
	}
	defer end()

	id := item.ID
	if err := c.repo.Delete(ctx, id); err != nil {
		c.logger.Warn("todo delete failed", "id", id, "error", err)
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	return c.do(func(st *listState) {
		idx := st.indexOf(id)
		if idx < 0 {
			return
		}
		removed := st.remove(idx)
		st.emit(Event{Kind: EventRemove, Index: idx, Item: removed})
		st.refreshEmpty()
	})
}

// Subscribe registers fn for every subsequent event. fn first receives an
// EventReset with the current list. Listeners run on the owner goroutine, in
// emission order, and must neither block nor call back into the controller.
func (c *ListController) Subscribe(fn func(Event)) (unsubscribe func()) {
	var id int
	err := c.do(func(st *listState) {
		st.nextListener++
		id = st.nextListener
		st.listeners = append(st.listeners, listener{id: id, fn: fn})
		fn(Event{Kind: EventReset, Items: cloneAll(st.items)})
	})
	if err != nil {
		return func() {}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = c.do(func(st *listState) {
				for i, l := range st.listeners {
					if l.id == id {
						st.listeners = append(st.listeners[:i], st.listeners[i+1:]...)
						return
					}
				}
			})
		})
	}
}

// Items returns a copy of the current list.
func (c *ListController) Items() []model.Todo {
	var items []model.Todo
	_ = c.do(func(st *listState) {
		items = cloneAll(st.items)
	})
	return items
}

// Get returns a copy of the listed todo with the given id.
func (c *ListController) Get(id int64) (model.Todo, bool) {
	var (
		todo  model.Todo
		found bool
	)
	_ = c.do(func(st *listState) {
		if idx := st.indexOf(id); idx >= 0 {
			todo, found = st.items[idx].Clone(), true
		}
	})
	return todo, found
}

func (c *ListController) IsEmpty() bool {
	empty := true
	_ = c.do(func(st *listState) {
		empty = st.empty
	})
	return empty
}

func (c *ListController) IsBusy() bool {
	var busy bool
	_ = c.do(func(st *listState) {
		busy = st.inFlight > 0
	})
	return busy
}

type listener struct {
	id int
	fn func(Event)
}

// listState is only touched by the owner goroutine.
type listState struct {
	items        []model.Todo
	empty        bool
	inFlight     int
	listeners    []listener
	nextListener int
}

func (st *listState) emit(ev Event) {
	for _, l := range st.listeners {
		l.fn(ev)
	}
}

func (st *listState) refreshEmpty() {
	empty := len(st.items) == 0
	if empty == st.empty {
		return
	}
	st.empty = empty
	st.emit(Event{Kind: EventEmptyChanged, Empty: empty})
}

// leadingIncomplete counts the incomplete todos before the first completed one.
// A reopened todo goes there.
func (st *listState) leadingIncomplete() int {
	for i, t := range st.items {
		if t.IsCompleted {
			return i
		}
	}
	return len(st.items)
}

func (st *listState) indexOf(id int64) int {
	for i, t := range st.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (st *listState) insert(idx int, t model.Todo) {
	st.items = append(st.items, model.Todo{})
	copy(st.items[idx+1:], st.items[idx:])
	st.items[idx] = t
}

func (st *listState) remove(idx int) model.Todo {
	removed := st.items[idx]
	st.items = append(st.items[:idx], st.items[idx+1:]...)
	return removed.Clone()
}

func cloneAll(todos []model.Todo) []model.Todo {
	out := make([]model.Todo, len(todos))
	for i, t := range todos {
		out[i] = t.Clone()
	}
	return out
}
