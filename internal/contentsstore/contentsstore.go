// Package contentsstore implements the keyed-by-pkid file listing store
// (spec §4.1), backed by modernc.org/sqlite the same way the teacher's
// internal/store package backs its FTS5 index: a single WAL-mode
// connection, prepared statements inside explicit transactions, and an
// SQL index on the contents table's path column for the icon/locale lookups.
package contentsstore

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const iconPathPrefixA = "/usr/share/icons/"
const iconPathPrefixB = "/usr/share/pixmaps/"

// localeDirPrefixes are the canonical locale directories scanned by
// getLocaleMap (spec §4.1).
var localeDirPrefixes = []string{
	"/usr/share/locale/",
	"/usr/share/locale-langpack/",
}

// Store is the ContentsStore: a pkid -> []path table plus an inverted
// path -> pkid index, both maintained together inside addContents and
// removePackages transactions.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// Open creates or opens the contents cache database at path, configuring
// WAL mode and a single-writer connection pool the way the teacher's
// NewSQLiteBM25Index does for its FTS5 index.
func Open(path string) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open contents store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS packages (
		pkid TEXT PRIMARY KEY
	);
	CREATE TABLE IF NOT EXISTS contents (
		pkid TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (pkid, path)
	);
	CREATE INDEX IF NOT EXISTS idx_contents_path ON contents(path);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddContents idempotently upserts the file list for pkid in one
// transaction, replacing any previously recorded contents.
func (s *Store) AddContents(ctx context.Context, pkid string, paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO packages(pkid) VALUES (?)`, pkid); err != nil {
		return fmt.Errorf("upsert package: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contents WHERE pkid = ?`, pkid); err != nil {
		return fmt.Errorf("clear existing contents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO contents(pkid, path) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range paths {
		if _, err := stmt.ExecContext(ctx, pkid, p); err != nil {
			return fmt.Errorf("insert content %q: %w", p, err)
		}
	}

	return tx.Commit()
}

// PackageExists reports whether pkid has a contents record.
func (s *Store) PackageExists(ctx context.Context, pkid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM packages WHERE pkid = ?`, pkid).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check package exists: %w", err)
	}
	return count > 0, nil
}

// GetContents returns pkid's file list, or an empty slice if unknown.
func (s *Store) GetContents(ctx context.Context, pkid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM contents WHERE pkid = ? ORDER BY path`, pkid)
	if err != nil {
		return nil, fmt.Errorf("query contents: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan content path: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetIconFilesMap returns path -> pkid for paths under the icon/pixmap
// directories, restricted to pkids (spec §4.1).
func (s *Store) GetIconFilesMap(ctx context.Context, pkids []string) (map[string]string, error) {
	if len(pkids) == 0 {
		return map[string]string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders, args := inClause(pkids)
	query := fmt.Sprintf(`SELECT path, pkid FROM contents WHERE pkid IN (%s)
		AND (path LIKE ? OR path LIKE ?)`, placeholders)
	args = append(args, iconPathPrefixA+"%", iconPathPrefixB+"%")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query icon files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, pkid string
		if err := rows.Scan(&p, &pkid); err != nil {
			return nil, fmt.Errorf("scan icon file row: %w", err)
		}
		out[p] = pkid
	}
	return out, rows.Err()
}

// GetLocaleMap returns locale-file-basename -> pkid for files under the
// canonical locale directories, restricted to pkids (spec §4.1).
func (s *Store) GetLocaleMap(ctx context.Context, pkids []string) (map[string]string, error) {
	if len(pkids) == 0 {
		return map[string]string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders, args := inClause(pkids)
	query := fmt.Sprintf(`SELECT path, pkid FROM contents WHERE pkid IN (%s)`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query locale files: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, pkid string
		if err := rows.Scan(&p, &pkid); err != nil {
			return nil, fmt.Errorf("scan locale file row: %w", err)
		}
		if !underAnyPrefix(p, localeDirPrefixes) {
			continue
		}
		out[path.Base(p)] = pkid
	}
	return out, rows.Err()
}

// RemovePackages batch-deletes pkids and their contents rows.
func (s *Store) RemovePackages(ctx context.Context, pkids []string) error {
	if len(pkids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders, args := inClause(pkids)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM contents WHERE pkid IN (%s)`, placeholders), args...); err != nil {
		return fmt.Errorf("delete contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM packages WHERE pkid IN (%s)`, placeholders), args...); err != nil {
		return fmt.Errorf("delete packages: %w", err)
	}

	return tx.Commit()
}

// AllPkids returns every pkid currently recorded, used by the garbage
// collector to diff against the active set (spec §4.6 Cleanup).
func (s *Store) AllPkids(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT pkid FROM packages ORDER BY pkid`)
	if err != nil {
		return nil, fmt.Errorf("query pkids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var pkid string
		if err := rows.Scan(&pkid); err != nil {
			return nil, fmt.Errorf("scan pkid: %w", err)
		}
		out = append(out, pkid)
	}
	return out, rows.Err()
}

// Sync forces a WAL checkpoint, flushing to durable storage.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// Close checkpoints and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func inClause(values []string) (string, []any) {
	placeholders := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args[i] = v
	}
	return strings.Join(placeholders, ","), args
}

func underAnyPrefix(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
