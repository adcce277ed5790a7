package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clipflow/internal/config"
)

// Store manages work item and quota ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the tracking database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.WorkDir, "tracking.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
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

	store := &Store{db: db, path: dbPath}
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

// Path returns the location of the tracking database file.
func (s *Store) Path() string {
	return s.path
}

// Insert adds a newly discovered item. The item starts at StatusDiscovered
// regardless of what the caller set.
func (s *Store) Insert(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if strings.TrimSpace(item.ID) == "" {
		return errors.New("item id is required")
	}

	now := time.Now().UTC()
	item.Status = StatusDiscovered
	item.CreatedAt = now
	item.UpdatedAt = now
	item.Revision = 0

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO work_items (
            id, title, source_url, priority, status,
            created_at, updated_at, revision
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		item.ID,
		item.Title,
		item.SourceURL,
		item.Priority,
		item.Status,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID fetches a work item by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns every readable work item ordered by creation time. Records
// whose persisted form cannot be parsed are reported through the returned
// error (wrapping ErrRecordCorrupt, one entry per record) while the readable
// items are still returned, so a single bad row never hides the rest.
func (s *Store) List(ctx context.Context) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var (
		items   []*Item
		corrupt []error
	)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			if errors.Is(err, ErrRecordCorrupt) {
				corrupt = append(corrupt, err)
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, errors.Join(corrupt...)
}

// ItemsByStatus returns items matching a status ordered by creation time.
func (s *Store) ItemsByStatus(ctx context.Context, status Status) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM work_items WHERE status = ? ORDER BY created_at, id`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists changes to an existing work item through a read-verify-write
// cycle. The stored revision must match the revision the item was loaded with,
// otherwise ErrStaleWrite is returned and nothing is written. Status changes
// are validated against the forward-only lifecycle. On success the item's
// Revision and UpdatedAt reflect the committed row.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		storedStatus   string
		storedRevision int64
	)
	row := tx.QueryRowContext(ctx, `SELECT status, revision FROM work_items WHERE id = ?`, item.ID)
	if err := row.Scan(&storedStatus, &storedRevision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrNotFound, item.ID)
		}
		return fmt.Errorf("read current revision: %w", err)
	}

	if storedRevision != item.Revision {
		return fmt.Errorf("%w: item %s revision %d, have %d", ErrStaleWrite, item.ID, storedRevision, item.Revision)
	}
	if !CanTransition(Status(storedStatus), item.Status) {
		return fmt.Errorf("%w: item %s %s -> %s", ErrInvalidTransition, item.ID, storedStatus, item.Status)
	}

	segmentsJSON, err := marshalSegments(item.Segments)
	if err != nil {
		return err
	}
	refsJSON, err := marshalPublishedRefs(item.PublishedRefs)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(
		ctx,
		`UPDATE work_items
         SET title = ?, source_url = ?, priority = ?, status = ?,
             fetched_file = ?, segments_json = ?, published_refs_json = ?,
             retry_count = ?, last_error = ?, updated_at = ?, revision = revision + 1
         WHERE id = ? AND revision = ?`,
		item.Title,
		item.SourceURL,
		item.Priority,
		item.Status,
		nullableString(item.FetchedFile),
		nullableString(segmentsJSON),
		nullableString(refsJSON),
		item.RetryCount,
		nullableString(item.LastError),
		now.Format(time.RFC3339Nano),
		item.ID,
		item.Revision,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	item.Revision = storedRevision + 1
	item.UpdatedAt = now
	return nil
}

// RefreshPriority updates the sort key of a known item without touching its
// lifecycle. Discovery calls this when a rescan reports new popularity numbers.
func (s *Store) RefreshPriority(ctx context.Context, id string, priority int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE work_items SET priority = ?, updated_at = ? WHERE id = ?`,
		priority,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("refresh priority: %w", err)
	}
	return nil
}

// RetryFailed re-opens failed items at their furthest resumable status: items
// with a segment list resume at transformed, items with a fetched file at
// fetched, everything else back at discovered. This is an explicit operator
// override of the forward-only lifecycle and the only path that moves a status
// backward. With no IDs, every failed item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	failed, err := s.ItemsByStatus(ctx, StatusFailed)
	if err != nil {
		return 0, err
	}

	selected := failed
	if len(ids) > 0 {
		wanted := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		selected = selected[:0]
		for _, item := range failed {
			if _, ok := wanted[item.ID]; ok {
				selected = append(selected, item)
			}
		}
	}

	var count int64
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, item := range selected {
		resume := StatusDiscovered
		switch {
		case len(item.Segments) > 0:
			resume = StatusTransformed
		case strings.TrimSpace(item.FetchedFile) != "":
			resume = StatusFetched
		}
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE work_items
             SET status = ?, retry_count = 0, last_error = NULL,
                 updated_at = ?, revision = revision + 1
             WHERE id = ? AND status = ?`,
			resume,
			now,
			item.ID,
			StatusFailed,
		)
		if err != nil {
			return count, fmt.Errorf("retry item %s: %w", item.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return count, fmt.Errorf("rows affected: %w", err)
		}
		count += affected
	}
	return count, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM work_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// DatabaseHealth captures diagnostic information about the tracking database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// CheckHealth returns diagnostic information about the tracking database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("tracking database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat tracking database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("tracking database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("tracking database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping tracking database: %w", err)
	}
	health.DatabaseReadable = true

	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM work_items")
	if err := row.Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count work items: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

const itemColumns = "id, title, source_url, priority, status, fetched_file, segments_json, published_refs_json, retry_count, last_error, created_at, updated_at, revision"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id          string
		title       string
		sourceURL   string
		priority    int64
		statusStr   string
		fetchedFile sql.NullString
		segments    sql.NullString
		refs        sql.NullString
		retryCount  int
		lastError   sql.NullString
		createdRaw  string
		updatedRaw  string
		revision    int64
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourceURL,
		&priority,
		&statusStr,
		&fetchedFile,
		&segments,
		&refs,
		&retryCount,
		&lastError,
		&createdRaw,
		&updatedRaw,
		&revision,
	); err != nil {
		return nil, err
	}

	status, ok := ParseStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("%w: item %s: unknown status %q", ErrRecordCorrupt, id, statusStr)
	}

	parsedSegments, err := parseSegments(segments.String)
	if err != nil {
		return nil, fmt.Errorf("%w: item %s: %v", ErrRecordCorrupt, id, err)
	}
	parsedRefs, err := parsePublishedRefs(refs.String)
	if err != nil {
		return nil, fmt.Errorf("%w: item %s: %v", ErrRecordCorrupt, id, err)
	}

	item := &Item{
		ID:            id,
		Title:         title,
		SourceURL:     sourceURL,
		Priority:      priority,
		Status:        status,
		FetchedFile:   fetchedFile.String,
		Segments:      parsedSegments,
		PublishedRefs: parsedRefs,
		RetryCount:    retryCount,
		LastError:     lastError.String,
		Revision:      revision,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	} else {
		return nil, fmt.Errorf("%w: item %s: created_at: %v", ErrRecordCorrupt, id, err)
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	} else {
		return nil, fmt.Errorf("%w: item %s: updated_at: %v", ErrRecordCorrupt, id, err)
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
