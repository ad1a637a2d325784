// Package index persists file-tag associations in a SQLite database and
// answers tag-filtered queries over them. The store is the only shared
// mutable state in the system; writes are serialized across processes
// with a file lock next to the database.
package index

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// IndexedFile is one file row with its tag markings.
type IndexedFile struct {
	ID   int64
	Path string
	Root string
	Tags map[string]string
}

// Store manages the SQLite index database.
type Store struct {
	db     *sql.DB
	dbPath string
	lock   *flock.Flock
}

// NewStore opens (creating if needed) the index database at dbPath and
// initializes its schema. Use ":memory:" for an ephemeral index.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to ":memory:" opens its own empty
		// database; keep the pool at one.
		db.SetMaxOpenConns(1)
	}

	// busy_timeout first so the remaining pragmas wait on locks held by
	// concurrent openers of the same file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if dbPath != ":memory:" {
		s.lock = flock.New(dbPath + ".lock")
	}
	return s, nil
}

// execWithRetry retries a statement with exponential backoff on
// "database is locked" errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := db.Exec(stmt); err == nil {
			return nil
		} else if !strings.Contains(err.Error(), "database is locked") {
			return err
		} else {
			lastErr = err
		}
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// acquire takes the cross-process write lock, returning the release
// function. In-memory stores have nothing to coordinate.
func (s *Store) acquire() (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	if err := s.lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire index lock %s: %w", s.lock.Path(), err)
	}
	return func() { s.lock.Unlock() }, nil
}

// Put records a file under a layout root together with its tag mapping.
// Existing markings for the file are replaced by the given mapping.
func (s *Store) Put(ctx context.Context, root, path string, tags map[string]string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO files (path, root) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET root = excluded.root
		 RETURNING id`, path, root).Scan(&fileID)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM markings WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("clear markings for %s: %w", path, err)
	}

	for name, value := range tags {
		var tagID int64
		err = tx.QueryRowContext(ctx,
			`INSERT INTO tags (name, value) VALUES (?, ?)
			 ON CONFLICT(name, value) DO UPDATE SET name = excluded.name
			 RETURNING id`, name, value).Scan(&tagID)
		if err != nil {
			return fmt.Errorf("upsert tag %s=%s: %w", name, value, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO markings (file_id, tag_id, name) VALUES (?, ?, ?)`,
			fileID, tagID, name); err != nil {
			return fmt.Errorf("mark %s with %s: %w", path, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Purge removes every indexed file under a layout root.
func (s *Store) Purge(ctx context.Context, root string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE root = ?`, root); err != nil {
		return fmt.Errorf("purge root %s: %w", root, err)
	}
	return nil
}

// Tags returns the tag mapping recorded for a file path, or an empty
// map when the file is not indexed.
func (s *Store) Tags(ctx context.Context, path string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.name, t.value
		 FROM tags t JOIN markings m ON m.tag_id = t.id
		 JOIN files f ON f.id = m.file_id
		 WHERE f.path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("query tags of %s: %w", path, err)
	}
	defer rows.Close()

	tags := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan tag row: %w", err)
		}
		tags[name] = value
	}
	return tags, rows.Err()
}

// Query returns the files under root that carry all the given tag
// filters: for each filter name the file's value must be one of the
// listed values. Empty filters return every file under root. Root may
// be empty to search across layouts.
func (s *Store) Query(ctx context.Context, root string, filters map[string][]string) ([]IndexedFile, error) {
	var sb strings.Builder
	var args []any

	sb.WriteString(`SELECT f.id, f.path, f.root FROM files f`)
	if len(filters) > 0 {
		sb.WriteString(` JOIN markings m ON m.file_id = f.id JOIN tags t ON t.id = m.tag_id`)
	}
	sb.WriteString(` WHERE 1=1`)
	if root != "" {
		sb.WriteString(` AND f.root = ?`)
		args = append(args, root)
	}

	if len(filters) > 0 {
		var conds []string
		for name, values := range filters {
			ph := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
			conds = append(conds, fmt.Sprintf(`(t.name = ? AND t.value IN (%s))`, ph))
			args = append(args, name)
			for _, v := range values {
				args = append(args, v)
			}
		}
		sb.WriteString(` AND (` + strings.Join(conds, ` OR `) + `)`)
		sb.WriteString(` GROUP BY f.id HAVING COUNT(DISTINCT t.name) = ?`)
		args = append(args, len(filters))
	}
	sb.WriteString(` ORDER BY f.path`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []IndexedFile
	for rows.Next() {
		var f IndexedFile
		if err := rows.Scan(&f.ID, &f.Path, &f.Root); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range files {
		tags, err := s.Tags(ctx, files[i].Path)
		if err != nil {
			return nil, err
		}
		files[i].Tags = tags
	}
	return files, nil
}
