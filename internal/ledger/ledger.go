// Package ledger persists per-item pipeline outcomes in SQLite and exposes
// the completion predicates the scheduler builds on.
//
// Every write is a single-statement upsert keyed by item ID, so concurrent
// workers finishing different items never observe or cause a lost update.
// Readers always see a committed row or none. This replaces the legacy
// whole-file rewrite of the results table; that format survives as the CSV
// import/export in csv.go.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Status is one item's record: four independent outcome flags, false until a
// stage explicitly succeeds. A row's existence marks the item as attempted.
type Status struct {
	ItemID          string
	DownstreamSent  bool
	TranslationA    bool
	TranslationB    bool
	HostingUploaded bool
	UpdatedAt       time.Time
}

// Succeeded reports full terminal success: every tracked outcome is true.
func (s Status) Succeeded() bool {
	return s.DownstreamSent && s.TranslationA && s.TranslationB && s.HostingUploaded
}

// Store is the durable item → Status mapping backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the backing database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start over)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Get fetches an item's record. A nil result means the item was never attempted.
func (s *Store) Get(ctx context.Context, itemID string) (*Status, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT item_id, downstream_sent, translation_a, translation_b, hosting_uploaded, updated_at
         FROM item_status WHERE item_id = ?`, itemID)
	status, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item status: %w", err)
	}
	return status, nil
}

// Upsert writes the full record for an item, replacing any prior row.
// Last write wins; partial merges across writers are not supported by design.
func (s *Store) Upsert(ctx context.Context, status Status) error {
	if status.ItemID == "" {
		return errors.New("item id is required")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO item_status (item_id, downstream_sent, translation_a, translation_b, hosting_uploaded, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(item_id) DO UPDATE SET
             downstream_sent = excluded.downstream_sent,
             translation_a = excluded.translation_a,
             translation_b = excluded.translation_b,
             hosting_uploaded = excluded.hosting_uploaded,
             updated_at = excluded.updated_at`,
		status.ItemID,
		boolToInt(status.DownstreamSent),
		boolToInt(status.TranslationA),
		boolToInt(status.TranslationB),
		boolToInt(status.HostingUploaded),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert item status: %w", err)
	}
	return nil
}

// All returns every record ordered by item ID.
func (s *Store) All(ctx context.Context) ([]Status, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, downstream_sent, translation_a, translation_b, hosting_uploaded, updated_at
         FROM item_status ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("list item statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, rows.Err()
}

// Reset rewrites the named items' rows with all flags false, queueing them
// for reprocessing without losing the attempt record.
func (s *Store) Reset(ctx context.Context, itemIDs ...string) (int64, error) {
	var affected int64
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range itemIDs {
		res, err := s.db.ExecContext(ctx,
			`UPDATE item_status
             SET downstream_sent = 0, translation_a = 0, translation_b = 0, hosting_uploaded = 0, updated_at = ?
             WHERE item_id = ?`, now, id)
		if err != nil {
			return affected, fmt.Errorf("reset item %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return affected, fmt.Errorf("rows affected: %w", err)
		}
		affected += n
	}
	return affected, nil
}

// Stats summarizes the ledger for status output.
type Stats struct {
	Total     int
	Succeeded int
	Uploaded  int
}

// Summarize counts attempted, fully succeeded, and uploaded items.
func (s *Store) Summarize(ctx context.Context) (Stats, error) {
	var stats Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(downstream_sent * translation_a * translation_b * hosting_uploaded), 0),
                COALESCE(SUM(hosting_uploaded), 0)
         FROM item_status`)
	if err := row.Scan(&stats.Total, &stats.Succeeded, &stats.Uploaded); err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	return stats, nil
}

func scanStatus(scanner interface{ Scan(dest ...any) error }) (*Status, error) {
	var (
		status     Status
		downstream int
		transA     int
		transB     int
		uploaded   int
		updatedRaw string
	)
	if err := scanner.Scan(&status.ItemID, &downstream, &transA, &transB, &uploaded, &updatedRaw); err != nil {
		return nil, err
	}
	status.DownstreamSent = downstream != 0
	status.TranslationA = transA != 0
	status.TranslationB = transB != 0
	status.HostingUploaded = uploaded != 0
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		status.UpdatedAt = updated
	}
	return &status, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
