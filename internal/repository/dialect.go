package repository

import "fmt"

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// dialect holds the statements that differ between drivers. Column layout is
// identical: timestamps are ISO-8601 text and the completion flag is 0/1.
type dialect struct {
	driver string
	// embedded dialects own a file whose directory must exist before opening.
	embedded bool
	// returningID means the insert statement yields the new id as a row;
	// otherwise it is read with LastInsertId.
	returningID bool
	// numbered placeholders ($1) can be repeated; positional ones (?) cannot.
	numbered bool

	createTable string
	selectAll   string
	insert      string
	complete    string
	reopen      string
	delete      string
}

var sqliteDialect = dialect{
	driver:   DriverSQLite,
	embedded: true,
	createTable: `
		CREATE TABLE IF NOT EXISTS todos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			is_completed INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			completed_at TEXT NULL
		)`,
	selectAll: `
		SELECT id, title, is_completed, created_at, completed_at
		FROM todos
		ORDER BY is_completed ASC, created_at DESC, id DESC`,
	insert: `
		INSERT INTO todos (title, is_completed, created_at, completed_at)
		VALUES (?, 0, ?, NULL)`,
	complete: `
		UPDATE todos
		SET is_completed = 1,
			completed_at = CASE WHEN created_at > ? THEN created_at ELSE ? END
		WHERE id = ?`,
	reopen: `UPDATE todos SET is_completed = 0, completed_at = NULL WHERE id = ?`,
	delete: `DELETE FROM todos WHERE id = ?`,
}

var postgresDialect = dialect{
	driver:      DriverPostgres,
	returningID: true,
	numbered:    true,
	createTable: `
		CREATE TABLE IF NOT EXISTS todos (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			is_completed INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			completed_at TEXT NULL
		)`,
	selectAll: `
		SELECT id, title, is_completed, created_at, completed_at
		FROM todos
		ORDER BY is_completed ASC, created_at DESC, id DESC`,
	insert: `
		INSERT INTO todos (title, is_completed, created_at, completed_at)
		VALUES ($1, 0, $2, NULL)
		RETURNING id`,
	complete: `
		UPDATE todos
		SET is_completed = 1,
			completed_at = CASE WHEN created_at > $1 THEN created_at ELSE $1 END
		WHERE id = $2`,
	reopen: `UPDATE todos SET is_completed = 0, completed_at = NULL WHERE id = $1`,
	delete: `DELETE FROM todos WHERE id = $1`,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return sqliteDialect, nil
	case DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// completeArgs orders the stamp and id for the dialect's complete statement.
func (d dialect) completeArgs(stamp string, id int64) []any {
	if d.numbered {
		return []any{stamp, id}
	}
	return []any{stamp, stamp, id}
}
