// Package sqlite stores users, questions and answers in a single SQLite
// database file through the pure Go modernc.org/sqlite driver, so the binary
// builds without cgo. Passing ":memory:" gives a throwaway database for tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.QuestionRepository.
type DB struct {
	conn *sql.DB
}

const memoryPath = ":memory:"

// New opens the database at dbPath, creating it if needed, and applies the
// schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is its own empty database, so the pool
	// must never open a second one.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath == memoryPath {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn attaches per-connection pragmas for file databases. PRAGMA statements
// run with Exec only affect the one pooled connection that ran them; the
// _pragma parameters are applied by the driver to every new connection.
func dsn(dbPath string) string {
	if dbPath == memoryPath {
		return dbPath
	}
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// PingContext reports whether the database is reachable. Used by the health
// check.
func (db *DB) PingContext(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	// One row per Google account; emails are unique too.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			google_id  TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			picture    TEXT NOT NULL DEFAULT '',
			bio        TEXT NOT NULL DEFAULT '',
			location   TEXT NOT NULL DEFAULT '',
			education  TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			subject     TEXT NOT NULL,
			author_id   TEXT NOT NULL REFERENCES users(id),
			votes       INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS answers (
			id          TEXT PRIMARY KEY,
			question_id TEXT NOT NULL REFERENCES questions(id),
			text        TEXT NOT NULL,
			author_id   TEXT NOT NULL REFERENCES users(id),
			votes       INTEGER NOT NULL DEFAULT 0,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_answers_question_id ON answers(question_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating answers table: %w", err)
	}

	return nil
}

// uniqueViolation reports which column of table a UNIQUE constraint error
// refers to, e.g. "email" for "UNIQUE constraint failed: users.email".
func uniqueViolation(err error, table string) (string, bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	const marker = "UNIQUE constraint failed: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	prefix := table + "."
	if !strings.HasPrefix(rest, prefix) {
		return "", false
	}
	col := strings.TrimPrefix(rest, prefix)
	if j := strings.IndexAny(col, " ,)"); j >= 0 {
		col = col[:j]
	}
	return col, true
}
