// Package sqlite stores run history in a local SQLite database.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/conceptual/internal/history"
	"github.com/zjrosen/conceptual/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB owns the database connection and hands out repositories.
type DB struct {
	conn *sql.DB
}

// NewDB opens (creating if needed) the database at path and migrates it to
// the latest schema. When a populated database is behind the embedded
// migrations it is copied to path+".bak" before they run.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := "file:" + filepath.ToSlash(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)&_pragma=foreign_keys(1)"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(conn, path+".bak"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Debug(log.CatDB, "Opened history database", "path", path)
	return &DB{conn: conn}, nil
}

func runMigrations(conn *sql.DB, backupPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := newMigrationDriver(conn)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	// The driver does not own conn, so closing m leaves it open.
	defer func() { _, _ = m.Close() }()

	pending, err := migrationPending(m, src)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if pending {
		if err := backup(conn, backupPath); err != nil {
			return fmt.Errorf("failed to back up database: %w", err)
		}
		log.Info(log.CatDB, "Backed up history database before migrating", "path", backupPath)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// migrationPending reports whether an already versioned database is dirty
// or older than the newest embedded migration. A fresh database is not.
func migrationPending(m *migrate.Migrate, src source.Driver) (bool, error) {
	current, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if dirty {
		return true, nil
	}
	latest, err := latestVersion(src)
	if err != nil {
		return false, err
	}
	return current < latest, nil
}

func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

// backup writes a consistent copy of the open database to path, replacing
// any earlier backup.
func backup(conn *sql.DB, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	_, err := conn.Exec("VACUUM INTO ?", path)
	return err
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Connection returns the underlying connection.
func (db *DB) Connection() *sql.DB {
	return db.conn
}

// RunRepository returns the run store backed by this database.
func (db *DB) RunRepository() history.RunRepository {
	return newRunRepository(db.conn)
}
