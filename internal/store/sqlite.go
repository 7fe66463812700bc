package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"taskmanager/internal/models"
)

// SQLiteBackend implements the Backend interface using a single SQLite
// database file. Row order is kept in the position column.
type SQLiteBackend struct {
	db   *sql.DB
	path string

	// unusable is set when the file exists but is not a SQLite database.
	// Loads then report ErrMalformed and saves refuse to touch the file.
	unusable error
}

// ErrNotDatabase is returned by Save when the backing file is not a SQLite
// database.
var ErrNotDatabase = errors.New("file is not a sqlite database")

// NewSQLiteBackend opens the database at dbPath and applies migrations. A
// file that is not a database does not fail the open; see ErrNotDatabase.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, path: dbPath}

	if err := migrate(context.Background(), db); err != nil {
		if !isNotDatabase(err) {
			db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		b.unusable = err
	}

	return b, nil
}

func isNotDatabase(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

// Path returns the database path.
func (b *SQLiteBackend) Path() string {
	return b.path
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Load retrieves all tasks ordered by position.
func (b *SQLiteBackend) Load(ctx context.Context) ([]models.Task, error) {
	if b.unusable != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, b.unusable)
	}

	rows, err := b.db.QueryContext(ctx, `
		SELECT name, description, priority, due_date
		FROM tasks ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var name, description, priority, dueDate string
		if err := rows.Scan(&name, &description, &priority, &dueDate); err != nil {
			return nil, fmt.Errorf("%w: failed to scan task: %v", ErrMalformed, err)
		}
		tasks = append(tasks, models.NewTask(name, description, priority, dueDate))
	}

	return tasks, rows.Err()
}

// Save replaces every row in a single transaction.
func (b *SQLiteBackend) Save(ctx context.Context, tasks []models.Task) error {
	if b.unusable != nil {
		return fmt.Errorf("%w: %s", ErrNotDatabase, b.path)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (position, name, description, priority, due_date)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, task := range tasks {
		_, err := stmt.ExecContext(ctx, i+1, task.Name, task.Description, task.Priority, task.DueDate)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}

	return tx.Commit()
}
