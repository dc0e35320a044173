package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/rize/internal/models"
	"github.com/desertthunder/rize/internal/shared"
)

// StorageError reports an I/O failure of a single list operation.
//
// It matches [shared.ErrStorageIO] with [errors.Is] and unwraps to the driver error.
type StorageError struct {
	Kind models.CollectionKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToLower(string(e.Kind)), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == shared.ErrStorageIO }

// collection is one physical store. mu serializes appends against readers of the same kind only.
type collection struct {
	kind models.CollectionKind
	db   *sql.DB
	mu   sync.RWMutex
}

// ListStore persists append-only records for every [models.CollectionKind], one database per kind.
type ListStore struct {
	collections map[models.CollectionKind]*collection
	logger      *log.Logger
	now         func() time.Time
}

// NewListStore wraps already-open databases, applying each kind's migrations.
func NewListStore(dbs map[models.CollectionKind]*sql.DB, logger *log.Logger) (*ListStore, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &ListStore{
		collections: make(map[models.CollectionKind]*collection, len(dbs)),
		logger:      logger,
		now:         time.Now,
	}

	for _, kind := range models.CollectionKinds {
		db, ok := dbs[kind]
		if !ok || db == nil {
			return nil, fmt.Errorf("%w: no database for %s", shared.ErrInvalidConfig, kind)
		}
		if err := shared.RunMigrations(db, kind.Table()); err != nil {
			return nil, &StorageError{Kind: kind, Op: "migrate", Err: err}
		}
		s.collections[kind] = &collection{kind: kind, db: db}
	}

	return s, nil
}

// OpenListStore opens (creating if needed) the notes and tasks databases named in config.
func OpenListStore(config shared.DatabaseConfig, logger *log.Logger) (*ListStore, error) {
	paths := map[models.CollectionKind]string{
		models.Note: config.NotesPath,
		models.Task: config.TasksPath,
	}

	dbs := make(map[models.CollectionKind]*sql.DB, len(paths))
	closeAll := func() {
		for _, db := range dbs {
			db.Close()
		}
	}

	for kind, path := range paths {
		db, err := shared.NewDatabase(path)
		if err != nil {
			closeAll()
			return nil, &StorageError{Kind: kind, Op: "open", Err: err}
		}
		shared.ConfigureDatabase(db, path, config.MaxOpenConns, config.MaxIdleConns)
		dbs[kind] = db
	}

	store, err := NewListStore(dbs, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	return store, nil
}

// Close closes every underlying database.
func (s *ListStore) Close() error {
	var errs []error
	for _, c := range s.collections {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ListStore) collection(kind models.CollectionKind) (*collection, error) {
	c, ok := s.collections[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnknownCollection, kind)
	}
	return c, nil
}

// Append trims text and stores it as a new record of kind.
//
// Blank input returns [shared.ErrEmptyInput] without touching storage.
// The insert runs in its own transaction and is visible to the next [ListStore.List] call.
func (s *ListStore) Append(ctx context.Context, kind models.CollectionKind, text string) (*models.ListRecord, error) {
	c, err := s.collection(kind)
	if err != nil {
		return nil, err
	}

	record := &models.ListRecord{Kind: kind, Text: strings.TrimSpace(text)}
	if record.Text == "" {
		return nil, fmt.Errorf("%w: %s text is blank", shared.ErrEmptyInput, strings.ToLower(string(kind)))
	}
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	record.CreatedAt = s.now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StorageError{Kind: kind, Op: "append", Err: err}
	}
	defer tx.Rollback()

	query := fmt.Sprintf("INSERT INTO %s (text, created_at) VALUES (?, ?)", kind.Table())
	result, err := tx.ExecContext(ctx, query, record.Text, record.CreatedAt)
	if err != nil {
		return nil, &StorageError{Kind: kind, Op: "append", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, &StorageError{Kind: kind, Op: "append", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StorageError{Kind: kind, Op: "append", Err: err}
	}

	record.ID = id
	s.logger.Debug("record appended", "kind", kind, "id", id)
	return record, nil
}

// List returns the text of every record of kind, newest-first for notes and oldest-first for tasks.
//
// The slice is freshly materialized on each call.
func (s *ListStore) List(ctx context.Context, kind models.CollectionKind) ([]string, error) {
	records, err := s.Records(ctx, kind)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text
	}
	return texts, nil
}

// Records returns full records of kind in the same order as [ListStore.List].
func (s *ListStore) Records(ctx context.Context, kind models.CollectionKind) ([]*models.ListRecord, error) {
	c, err := s.collection(kind)
	if err != nil {
		return nil, err
	}

	order := "ASC"
	if kind.NewestFirst() {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT id, text, created_at FROM %s ORDER BY id %s", kind.Table(), order)

	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StorageError{Kind: kind, Op: "list", Err: err}
	}
	defer rows.Close()

	records := []*models.ListRecord{}
	for rows.Next() {
		record := &models.ListRecord{Kind: kind}
		if err := rows.Scan(&record.ID, &record.Text, &record.CreatedAt); err != nil {
			return nil, &StorageError{Kind: kind, Op: "list", Err: err}
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Kind: kind, Op: "list", Err: err}
	}

	return records, nil
}

// Count returns how many records of kind are stored.
func (s *ListStore) Count(ctx context.Context, kind models.CollectionKind) (int, error) {
	c, err := s.collection(kind)
	if err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var count int
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", kind.Table())).Scan(&count); err != nil {
		return 0, &StorageError{Kind: kind, Op: "count", Err: err}
	}
	return count, nil
}

// SchemaVersion reports the applied schema version of kind's store.
func (s *ListStore) SchemaVersion(kind models.CollectionKind) (int, error) {
	c, err := s.collection(kind)
	if err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	version, err := shared.SchemaVersion(c.db)
	if err != nil {
		return 0, &StorageError{Kind: kind, Op: "version", Err: err}
	}
	return version, nil
}
