// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY SQLITE?
// The tracker is a single-server app with one small table per concern, so an
// embedded database file is all the storage it needs. modernc.org/sqlite is a
// pure Go port, which keeps the build free of CGo.
//
// DATABASE/SQL REFRESHER:
//   - sql.DB   is a connection pool, not a single connection
//   - sql.Tx   is a transaction pinned to one connection
//   - sql.Rows must always be closed, or the connection leaks
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps the connection pool. It implements QuestionRepository,
// UserRepository and revision.ThresholdStore.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/revision.db" → file-based database
//   - ":memory:"         → throwaway database for tests
func New(dbPath string) (*DB, error) {
	// PER-CONNECTION PRAGMAS:
	// foreign_keys and busy_timeout apply to one connection only. Passing
	// them in the DSN makes the driver run them on every pooled connection.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// IN-MEMORY DATABASES ARE PER CONNECTION:
	// every new pool connection to ":memory:" would see an empty database,
	// so the pool is pinned to a single connection.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers continue while a write is in progress. Unlike the
	// pragmas above it is stored in the database file itself.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database is reachable. /healthz uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate brings the schema up to date. Every step is idempotent, so it runs
// on every start.
func (db *DB) migrate() error {
	// Phase 1: accounts. GitHub accounts carry github_id; email accounts
	// leave it NULL (UNIQUE allows any number of NULLs).
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			github_id  INTEGER UNIQUE,
			login      TEXT NOT NULL DEFAULT '',
			email      TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// Phase 2: email/password sign-in.
	if err := db.addColumnIfNotExists("users", "password_hash",
		"TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding password_hash to users: %w", err)
	}

	// An email may belong to one password account. GitHub accounts are
	// exempt, since the same address may later be used to sign up.
	_, err = db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_password_email
			ON users(email) WHERE password_hash != '';
	`)
	if err != nil {
		return fmt.Errorf("creating users email index: %w", err)
	}

	// Phase 1: questions, owned by a user.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS questions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			question     TEXT NOT NULL,
			link         TEXT NOT NULL,
			topic        TEXT NOT NULL,
			difficulty   TEXT NOT NULL DEFAULT 'Medium',
			created_at   DATETIME NOT NULL,
			last_revised DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_questions_user_created
			ON questions(user_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating questions table: %w", err)
	}

	// Phase 2: optional origin tag ("LeetCode", "NeetCode 150", ...).
	if err := db.addColumnIfNotExists("questions", "source", "TEXT"); err != nil {
		return fmt.Errorf("adding source to questions: %w", err)
	}

	// Phase 3: process-wide key/value settings (revision threshold).
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating settings table: %w", err)
	}

	return nil
}

// addColumnIfNotExists makes ALTER TABLE ADD COLUMN safe to re-run.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}
