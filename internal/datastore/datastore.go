// Package datastore implements the transactional KV metadata cache (spec
// §4.2): six logical tables behind a single modernc.org/sqlite connection,
// using the same WAL-mode, single-writer pattern as internal/contentsstore
// and the teacher's internal/store FTS5 index.
package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
	"gopkg.in/yaml.v3"

	"github.com/asgen-go/asgen/internal/appconfig"
	"github.com/asgen-go/asgen/internal/asgenerr"
	"github.com/asgen-go/asgen/internal/model"
)

const (
	pkgIgnore = "ignore"
	pkgSeen   = "seen"
)

// Store is the DataStore described in spec §4.2.
type Store struct {
	mu           sync.Mutex
	db           *sql.DB
	metadataType appconfig.MetadataType
}

// Open creates or opens the metadata cache database at path.
func Open(path string, metadataType appconfig.MetadataType) (*Store, error) {
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "open data store", err)
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
			return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "set pragma", err)
		}
	}

	s := &Store{db: db, metadataType: metadataType}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "init schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS packages (
		pkid  TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS repo_info (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata_xml (
		gcid TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata_yaml (
		gcid TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS hints (
		pkid TEXT PRIMARY KEY,
		data TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS statistics (
		ts   INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) metadataTable() string {
	if s.metadataType == appconfig.MetadataYAML {
		return "metadata_yaml"
	}
	return "metadata_xml"
}

// AddGeneratorResult implements addGeneratorResult (spec §4.2).
func (s *Store) AddGeneratorResult(ctx context.Context, result *model.GeneratorResult, alwaysRegenerate bool) error {
	pkid := result.Pkg.Pkid()

	if result.UnitIgnored {
		return s.setPackageValue(ctx, pkid, pkgIgnore)
	}

	table := s.metadataTable()
	var gcids []string

	for _, c := range result.Components() {
		gcid, ok := result.GCID(c.ID)
		if !ok {
			continue
		}
		gcids = append(gcids, gcid)

		if !alwaysRegenerate {
			exists, err := s.metadataExistsLocked(ctx, table, gcid)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
		}

		doc, err := serializeComponent(c, s.metadataType)
		if err != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "serialize component "+c.ID, err)
		}
		if err := s.putMetadata(ctx, table, gcid, doc); err != nil {
			return err
		}
	}

	if result.HasHints() {
		data, err := json.Marshal(result.AllHints())
		if err != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "marshal hints for "+pkid, err)
		}
		if err := s.putHints(ctx, pkid, data); err != nil {
			return err
		}
	}

	if len(gcids) > 0 {
		return s.setPackageValue(ctx, pkid, strings.Join(gcids, "\n"))
	}
	return s.setPackageValue(ctx, pkid, pkgSeen)
}

// GetGCIDsForPackage implements getGCIDsForPackage (spec §4.2).
func (s *Store) GetGCIDsForPackage(ctx context.Context, pkid string) ([]string, error) {
	value, err := s.getPackageValue(ctx, pkid)
	if err != nil {
		if asgenerr.IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if value == pkgIgnore || value == pkgSeen || value == "" {
		return nil, nil
	}
	return strings.Split(value, "\n"), nil
}

// MetadataExists implements metadataExists (spec §4.2).
func (s *Store) MetadataExists(ctx context.Context, dtype appconfig.MetadataType, gcid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := "metadata_xml"
	if dtype == appconfig.MetadataYAML {
		table = "metadata_yaml"
	}
	return s.metadataExistsLocked(ctx, table, gcid)
}

func (s *Store) metadataExistsLocked(ctx context.Context, table, gcid string) (bool, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE gcid = ?`, table)
	if err := s.db.QueryRowContext(ctx, query, gcid).Scan(&count); err != nil {
		return false, asgenerr.New(asgenerr.ErrCodeStoreFatal, "check metadata exists", err)
	}
	return count > 0, nil
}

// GetMetadataBlob returns the cached serialized component document for
// gcid in the store's configured metadata format, for the exporter to
// concatenate into a catalog (spec §4.6 step 4).
func (s *Store) GetMetadataBlob(ctx context.Context, gcid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.metadataTable()
	var doc string
	query := fmt.Sprintf(`SELECT data FROM %s WHERE gcid = ?`, table)
	err := s.db.QueryRowContext(ctx, query, gcid).Scan(&doc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, asgenerr.New(asgenerr.ErrCodeStoreFatal, "read metadata", err)
	}
	return doc, true, nil
}

// GetHints returns the raw hints JSON recorded for pkid, if any, for the
// exporter's hints-file assembly (spec §4.6 step 4).
func (s *Store) GetHints(ctx context.Context, pkid string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM hints WHERE pkid = ?`, pkid).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, asgenerr.New(asgenerr.ErrCodeStoreFatal, "read hints", err)
	}
	return json.RawMessage(data), true, nil
}

func (s *Store) putMetadata(ctx context.Context, table, gcid, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	query := fmt.Sprintf(`INSERT INTO %s(gcid, data) VALUES (?, ?)
		ON CONFLICT(gcid) DO UPDATE SET data = excluded.data`, table)
	if _, err := s.db.ExecContext(ctx, query, gcid, doc); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "write metadata", err)
	}
	return nil
}

func (s *Store) putHints(ctx context.Context, pkid string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO hints(pkid, data) VALUES (?, ?)
		ON CONFLICT(pkid) DO UPDATE SET data = excluded.data`, pkid, string(data))
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "write hints", err)
	}
	return nil
}

// HasRecord reports whether pkid has any record at all — ignored, seen,
// or a gcid list — used by the engine to skip re-extracting a package
// already recorded in the store (spec §4.6 step 2).
func (s *Store) HasRecord(ctx context.Context, pkid string) (bool, error) {
	_, err := s.getPackageValue(ctx, pkid)
	if err != nil {
		if asgenerr.IsKeyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetPackageIgnore implements setPackageIgnore (spec §4.2).
func (s *Store) SetPackageIgnore(ctx context.Context, pkid string) error {
	return s.setPackageValue(ctx, pkid, pkgIgnore)
}

// IsIgnored implements isIgnored (spec §4.2).
func (s *Store) IsIgnored(ctx context.Context, pkid string) (bool, error) {
	value, err := s.getPackageValue(ctx, pkid)
	if err != nil {
		if asgenerr.IsKeyNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return value == pkgIgnore, nil
}

func (s *Store) setPackageValue(ctx context.Context, pkid, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO packages(pkid, value) VALUES (?, ?)
		ON CONFLICT(pkid) DO UPDATE SET value = excluded.value`, pkid, value)
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "write package value", err)
	}
	return nil
}

func (s *Store) getPackageValue(ctx context.Context, pkid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM packages WHERE pkid = ?`, pkid).Scan(&value)
	if err == sql.ErrNoRows {
		return "", asgenerr.New(asgenerr.ErrCodeStoreKeyNotFound, "package "+pkid, nil)
	}
	if err != nil {
		return "", asgenerr.New(asgenerr.ErrCodeStoreFatal, "read package value", err)
	}
	return value, nil
}

// RemovePackage implements removePackage (spec §4.2): missing-key is not an
// error.
func (s *Store) RemovePackage(ctx context.Context, pkid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages WHERE pkid = ?`, pkid); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "delete package", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM hints WHERE pkid = ?`, pkid); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "delete hints", err)
	}
	if err := tx.Commit(); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "commit", err)
	}
	return nil
}

// AddStatistics implements addStatistics (spec §4.2): keyed by the caller's
// timestamp; colliding keys union their JSON array values.
func (s *Store) AddStatistics(ctx context.Context, ts int64, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM statistics WHERE ts = ?`, ts).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, execErr := s.db.ExecContext(ctx, `INSERT INTO statistics(ts, data) VALUES (?, ?)`, ts, string(data))
		if execErr != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "insert statistics", execErr)
		}
		return nil
	case err != nil:
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "read statistics", err)
	}

	merged, err := unionJSONArrays(existing, string(data))
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "union statistics", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE statistics SET data = ? WHERE ts = ?`, merged, ts); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "update statistics", err)
	}
	return nil
}

func unionJSONArrays(a, b string) (string, error) {
	toArray := func(s string) ([]json.RawMessage, error) {
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return arr, nil
		}
		return []json.RawMessage{json.RawMessage(s)}, nil
	}
	arrA, err := toArray(a)
	if err != nil {
		return "", err
	}
	arrB, err := toArray(b)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(append(arrA, arrB...))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// GetPkidsMatching implements getPkidsMatching (spec §4.2): a linear scan
// for pkids starting with prefix + "/".
func (s *Store) GetPkidsMatching(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT pkid FROM packages`)
	if err != nil {
		return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan pkids", err)
	}
	defer rows.Close()

	want := prefix + "/"
	var out []string
	for rows.Next() {
		var pkid string
		if err := rows.Scan(&pkid); err != nil {
			return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan pkid row", err)
		}
		if strings.HasPrefix(pkid, want) {
			out = append(out, pkid)
		}
	}
	sort.Strings(out)
	return out, rows.Err()
}

// PackageNameForCID answers the extractor's "metainfo-duplicate-id" check
// (spec §4.5): does some other already-processed package already own this
// component id? There is no direct cid->pkid index, since packages.value
// stores each package's GCID list rather than individual cids, so this
// scans that list and recovers the cid from each GCID via model.CidFromGCID.
// Acceptable here because the check runs once per metainfo file, not in a
// hot per-file loop.
func (s *Store) PackageNameForCID(ctx context.Context, cid string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT pkid, value FROM packages`)
	if err != nil {
		return "", false, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan packages for cid", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pkid, value string
		if err := rows.Scan(&pkid, &value); err != nil {
			return "", false, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan package row", err)
		}
		if value == pkgIgnore || value == pkgSeen || value == "" {
			continue
		}
		for _, gcid := range strings.Split(value, "\n") {
			ownCid, err := model.CidFromGCID(gcid)
			if err != nil {
				continue
			}
			if ownCid == cid {
				name, _, _ := strings.Cut(pkid, "/")
				return name, true, rows.Err()
			}
		}
	}
	return "", false, rows.Err()
}

// SetRepoInfo/GetRepoInfo hold small run-level facts (e.g. the last export
// watermark) in the repo_info table; spec §4.2 names the table without
// detailing further operations beyond these direct accessors.
func (s *Store) SetRepoInfo(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO repo_info(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "write repo info", err)
	}
	return nil
}

func (s *Store) GetRepoInfo(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM repo_info WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", asgenerr.New(asgenerr.ErrCodeStoreKeyNotFound, "repo info "+key, nil)
	}
	if err != nil {
		return "", asgenerr.New(asgenerr.ErrCodeStoreFatal, "read repo info", err)
	}
	return value, nil
}

// CleanupCruft implements cleanupCruft (spec §4.2): drops metadata rows and
// media-pool directories whose GCID is no longer referenced by any active
// package, and prunes suite-pinned media that references inactive GCIDs.
func (s *Store) CleanupCruft(ctx context.Context, mediaPoolRoot string, suitePinnedPaths []string) error {
	active, err := s.activeGCIDs(ctx)
	if err != nil {
		return err
	}

	if err := s.dropInactiveMetadata(ctx, "metadata_xml", active); err != nil {
		return err
	}
	if err := s.dropInactiveMetadata(ctx, "metadata_yaml", active); err != nil {
		return err
	}

	if mediaPoolRoot != "" {
		if err := pruneMediaPool(mediaPoolRoot, active); err != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "prune media pool", err)
		}
	}
	for _, suitePath := range suitePinnedPaths {
		if err := pruneMediaPool(suitePath, active); err != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "prune suite media "+suitePath, err)
		}
	}
	return nil
}

func (s *Store) activeGCIDs(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT value FROM packages`)
	if err != nil {
		return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan package values", err)
	}
	defer rows.Close()

	active := make(map[string]bool)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan package value row", err)
		}
		if value == pkgIgnore || value == pkgSeen || value == "" {
			continue
		}
		for _, gcid := range strings.Split(value, "\n") {
			active[gcid] = true
		}
	}
	return active, rows.Err()
}

func (s *Store) dropInactiveMetadata(ctx context.Context, table string, active map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT gcid FROM %s`, table))
	if err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan "+table, err)
	}
	var stale []string
	for rows.Next() {
		var gcid string
		if err := rows.Scan(&gcid); err != nil {
			rows.Close()
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "scan gcid row", err)
		}
		if !active[gcid] {
			stale = append(stale, gcid)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return asgenerr.New(asgenerr.ErrCodeStoreFatal, "iterate "+table, err)
	}

	for _, gcid := range stale {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE gcid = ?`, table), gcid); err != nil {
			return asgenerr.New(asgenerr.ErrCodeStoreFatal, "delete stale "+table+" row", err)
		}
	}
	return nil
}

// pruneMediaPool walks the gcid directories four levels deep under root
// (prefix/mid/cid/checksum) and deletes any whose joined gcid is not in
// active, then removes any parent directories left empty.
func pruneMediaPool(root string, active map[string]bool) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	prefixes, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, prefix := range prefixes {
		if !prefix.IsDir() {
			continue
		}
		prefixPath := filepath.Join(root, prefix.Name())
		mids, err := os.ReadDir(prefixPath)
		if err != nil {
			return err
		}
		for _, mid := range mids {
			if !mid.IsDir() {
				continue
			}
			midPath := filepath.Join(prefixPath, mid.Name())
			cids, err := os.ReadDir(midPath)
			if err != nil {
				return err
			}
			for _, cid := range cids {
				if !cid.IsDir() {
					continue
				}
				cidPath := filepath.Join(midPath, cid.Name())
				checksums, err := os.ReadDir(cidPath)
				if err != nil {
					return err
				}
				for _, checksum := range checksums {
					gcid := strings.Join([]string{prefix.Name(), mid.Name(), cid.Name(), checksum.Name()}, "/")
					if active[gcid] {
						continue
					}
					if err := os.RemoveAll(filepath.Join(cidPath, checksum.Name())); err != nil {
						return err
					}
				}
				pruneIfEmpty(cidPath)
			}
			pruneIfEmpty(midPath)
		}
		pruneIfEmpty(prefixPath)
	}
	return nil
}

func pruneIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
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

// xmlComponentDoc and yamlComponentDoc are the on-disk shapes for a single
// cached component, matching the DEP-11 collection-document convention:
// metadata_xml/metadata_yaml store one component's serialized form per GCID,
// later concatenated by the exporter into a full catalog.
type xmlComponentDoc struct {
	XMLName     xml.Name          `xml:"component"`
	Type        string            `xml:"type,attr,omitempty"`
	ID          string            `xml:"id"`
	Name        []xmlTranslated   `xml:"name"`
	Summary     []xmlTranslated   `xml:"summary"`
	Categories  []string          `xml:"categories>category,omitempty"`
	Pkgname     string            `xml:"pkgname,omitempty"`
	CustomTags  map[string]string `xml:"-"`
}

type xmlTranslated struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

type yamlComponentDoc struct {
	Type       string            `yaml:"Type,omitempty"`
	ID         string            `yaml:"ID"`
	Name       map[string]string `yaml:"Name,omitempty"`
	Summary    map[string]string `yaml:"Summary,omitempty"`
	Categories []string          `yaml:"Categories,omitempty"`
	Pkgname    string            `yaml:"Package,omitempty"`
}

// serializeComponent renders a single component as a cache document in the
// configured metadata format, trimming trailing whitespace (spec §4.2). A
// YAML document starts with "---" and, after trimming, ends with one newline.
func serializeComponent(c *model.Component, mtype appconfig.MetadataType) (string, error) {
	if mtype == appconfig.MetadataYAML {
		doc := yamlComponentDoc{
			Type:       string(c.Kind),
			ID:         c.ID,
			Name:       c.Name,
			Summary:    c.Summary,
			Categories: c.Categories,
			Pkgname:    c.PkgName,
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return "", err
		}
		return "---\n" + strings.TrimRight(string(out), " \t\n") + "\n", nil
	}

	doc := xmlComponentDoc{
		Type:    string(c.Kind),
		ID:      c.ID,
		Pkgname: c.PkgName,
	}
	for lang, value := range c.Name {
		doc.Name = append(doc.Name, xmlTranslated{Lang: normalizeLang(lang), Value: value})
	}
	for lang, value := range c.Summary {
		doc.Summary = append(doc.Summary, xmlTranslated{Lang: normalizeLang(lang), Value: value})
	}
	doc.Categories = c.Categories

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), " \t\n"), nil
}

func normalizeLang(lang string) string {
	if lang == "C" || lang == "" {
		return ""
	}
	return lang
}
