package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jaekwang-park/todo-local/internal/model"
)

// timeLayout is fixed-width so that lexical order in the database matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLTodoRepository stores todos in a single table behind database/sql.
//
// Every operation holds mu for its whole duration and opens and closes its
// own connection, so a multi-statement sequence such as insert followed by
// reading the generated id never interleaves with another operation.
type SQLTodoRepository struct {
	dialect dialect
	dsn     string
	path    string
	now     func() time.Time

	mu     sync.Mutex
	closed bool
}

type Option func(*SQLTodoRepository)

// WithClock replaces the clock used for created and completed timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SQLTodoRepository) {
		r.now = now
	}
}

// NewSQLiteTodo returns a repository backed by the SQLite file at path. The
// file and its directory are created on first access.
func NewSQLiteTodo(path string, opts ...Option) (*SQLTodoRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: database path is empty", ErrInvalidArgument)
	}
	r := newSQLTodo(sqliteDialect, sqliteDSN(path), opts)
	r.path = path
	return r, nil
}

// NewSQLTodo returns a repository for the given driver and data source name.
func NewSQLTodo(driver, dsn string, opts ...Option) (*SQLTodoRepository, error) {
	if driver == DriverSQLite {
		return NewSQLiteTodo(dsn, opts...)
	}
	d, err := dialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return newSQLTodo(d, dsn, opts), nil
}

func newSQLTodo(d dialect, dsn string, opts []Option) *SQLTodoRepository {
	r := &SQLTodoRepository{
		dialect: d,
		dsn:     dsn,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// sqliteDSN builds a file: URI. Each path segment is escaped so that '?', '#'
// and '%' in a directory or file name stay part of the path.
func sqliteDSN(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:" + strings.Join(segments, "/") + "?_busy_timeout=5000"
}

func (r *SQLTodoRepository) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, r.dialect.createTable); err != nil {
		return unavailable("create todos table", err)
	}
	return nil
}

func (r *SQLTodoRepository) List(ctx context.Context) ([]model.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, r.dialect.selectAll)
	if err != nil {
		return nil, unavailable("list todos", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate todos", err)
	}

	return todos, nil
}

func (r *SQLTodoRepository) Add(ctx context.Context, title string) (model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Todo{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()

	db, err := r.open(ctx)
	if err != nil {
		return model.Todo{}, err
	}
	defer db.Close()

	var id int64
	if r.dialect.returningID {
		err = db.QueryRowContext(ctx, r.dialect.insert, title, now.Format(timeLayout)).Scan(&id)
		if err != nil {
			return model.Todo{}, unavailable("insert todo", err)
		}
	} else {
		result, err := db.ExecContext(ctx, r.dialect.insert, title, now.Format(timeLayout))
		if err != nil {
			return model.Todo{}, unavailable("insert todo", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return model.Todo{}, unavailable("read inserted id", err)
		}
	}

	return model.Todo{
		ID:        id,
		Title:     title,
		CreatedAt: now,
	}, nil
}

func (r *SQLTodoRepository) SetCompletion(ctx context.Context, id int64, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if completed {
		stamp := r.now().UTC().Format(timeLayout)
		_, err = db.ExecContext(ctx, r.dialect.complete, r.dialect.completeArgs(stamp, id)...)
	} else {
		_, err = db.ExecContext(ctx, r.dialect.reopen, id)
	}
	if err != nil {
		return unavailable("update todo status", err)
	}
	return nil
}

func (r *SQLTodoRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, r.dialect.delete, id); err != nil {
		return unavailable("delete todo", err)
	}
	return nil
}

// Ping opens and closes a connection to check that storage is reachable.
func (r *SQLTodoRepository) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

// Close marks the repository as disposed. Later calls fail with
// ErrStorageUnavailable.
func (r *SQLTodoRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}

// open must be called with mu held. The caller closes the returned handle.
func (r *SQLTodoRepository) open(ctx context.Context) (*sql.DB, error) {
	if r.closed {
		return nil, fmt.Errorf("%w: repository is closed", ErrStorageUnavailable)
	}

	if r.dialect.embedded {
		if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
			return nil, unavailable("create data directory", err)
		}
	}

	db, err := sql.Open(r.dialect.driver, r.dsn)
	if err != nil {
		return nil, unavailable("open database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("connect to database", err)
	}

	return db, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorageUnavailable, op, err)
}

func corrupt(id int64, format string, args ...any) error {
	return fmt.Errorf("%w: todo %d: %s", ErrDataCorrupt, id, fmt.Sprintf(format, args...))
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTodo(row scannable) (model.Todo, error) {
	var (
		id          int64
		title       sql.NullString
		completed   sql.NullInt64
		createdAt   sql.NullString
		completedAt sql.NullString
	)
	if err := row.Scan(&id, &title, &completed, &createdAt, &completedAt); err != nil {
		return model.Todo{}, fmt.Errorf("%w: failed to scan todo: %w", ErrDataCorrupt, err)
	}

	if !title.Valid {
		return model.Todo{}, corrupt(id, "title is null")
	}
	if !completed.Valid || (completed.Int64 != 0 && completed.Int64 != 1) {
		return model.Todo{}, corrupt(id, "invalid completion flag")
	}
	if !createdAt.Valid {
		return model.Todo{}, corrupt(id, "created_at is null")
	}

	created, err := parseTime(createdAt.String)
	if err != nil {
		return model.Todo{}, corrupt(id, "created_at %q: %v", createdAt.String, err)
	}

	t := model.Todo{
		ID:          id,
		Title:       title.String,
		IsCompleted: completed.Int64 == 1,
		CreatedAt:   created,
	}
	if completedAt.Valid {
		at, err := parseTime(completedAt.String)
		if err != nil {
			return model.Todo{}, corrupt(id, "completed_at %q: %v", completedAt.String, err)
		}
		t.CompletedAt = &at
	}
	if !t.Valid() {
		return model.Todo{}, corrupt(id, "completion flag and completed_at disagree")
	}

	return t, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ensure compile-time interface compliance
var _ TodoRepository = (*SQLTodoRepository)(nil)
