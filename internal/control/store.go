package control

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	verrors "github.com/bricker/vivial-sub003/internal/errors"
)

// VirtualEvent is one control-table row: the durable witness that a view has
// been materialized for a tenant. Rows are created exactly once and never
// updated or deleted by this subsystem.
type VirtualEvent struct {
	TeamID       string
	ViewID       string
	ReadableName string
	Description  string
	CreatedAt    time.Time
}

// Store is the virtual-event control table interface.
type Store interface {
	// Get retrieves the row for (teamID, viewID), or nil when absent.
	Get(ctx context.Context, teamID, viewID string) (*VirtualEvent, error)

	// Create inserts a new control row. A concurrent writer that got there
	// first surfaces as a CONTROL/RECORD_CONFLICT error.
	Create(ctx context.Context, ve *VirtualEvent) error

	// CreateWithLimit inserts a new control row only while the tenant holds
	// fewer than limit rows. The count and the insert are one statement, so
	// concurrent writers cannot overshoot the limit; at the ceiling it
	// returns a CONTROL/TENANT_VIEW_LIMIT error.
	CreateWithLimit(ctx context.Context, ve *VirtualEvent, limit int64) error

	// Count returns the number of virtual events registered for a tenant.
	Count(ctx context.Context, teamID string) (int64, error)

	// List returns all virtual events registered for a tenant, ordered by
	// creation time.
	List(ctx context.Context, teamID string) ([]*VirtualEvent, error)

	// Close closes the control database connections.
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Write-only lock (reads don't need this)

	insertStmt      *sql.Stmt
	insertLimitStmt *sql.Stmt
}

// NewStore opens (creating if needed) a SQLite-backed control store.
func NewStore(dbPath string) (*SQLiteStore, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("control: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	// Read connection pool: concurrent readers
	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("control: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	store := &SQLiteStore{
		db:     db,
		readDB: readDB,
		dbPath: dbPath,
	}

	if err := store.initSchema(); err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("control: failed to initialize schema: %w", err)
	}

	insertStmt, err := db.Prepare(`
		INSERT INTO virtual_events (team_id, view_id, readable_name, description, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("control: failed to prepare insert statement: %w", err)
	}
	store.insertStmt = insertStmt

	insertLimitStmt, err := db.Prepare(`
		INSERT INTO virtual_events (team_id, view_id, readable_name, description, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE (SELECT COUNT(*) FROM virtual_events WHERE team_id = ?) < ?`)
	if err != nil {
		insertStmt.Close()
		readDB.Close()
		db.Close()
		return nil, fmt.Errorf("control: failed to prepare guarded insert statement: %w", err)
	}
	store.insertLimitStmt = insertLimitStmt

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Get retrieves the row for (teamID, viewID), or nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, teamID, viewID string) (*VirtualEvent, error) {
	row := s.readDB.QueryRowContext(ctx,
		`SELECT team_id, view_id, readable_name, description, created_at
		 FROM virtual_events WHERE team_id = ? AND view_id = ?`,
		teamID, viewID,
	)

	var ve VirtualEvent
	var createdAtUnix int64
	err := row.Scan(&ve.TeamID, &ve.ViewID, &ve.ReadableName, &ve.Description, &createdAtUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, verrors.NewControlError(verrors.CodeControlQuery, "failed to query virtual event", err)
	}

	ve.CreatedAt = time.Unix(createdAtUnix, 0)
	return &ve, nil
}

// Create inserts a new control row, translating the unique-constraint
// violation into the benign RECORD_CONFLICT error.
func (s *SQLiteStore) Create(ctx context.Context, ve *VirtualEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := ve.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.insertStmt.ExecContext(ctx,
		ve.TeamID, ve.ViewID, ve.ReadableName, ve.Description, createdAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return verrors.NewControlError(verrors.CodeRecordConflict,
				fmt.Sprintf("virtual event (%s, %s) already recorded", ve.TeamID, ve.ViewID), err)
		}
		return verrors.NewControlError(verrors.CodeControlWrite, "failed to insert virtual event", err)
	}
	return nil
}

// CreateWithLimit inserts a new control row unless the tenant already holds
// limit rows. The guarded insert counts and writes in a single statement on
// the single-writer connection, so the ceiling holds under concurrency and
// across processes sharing the database file.
func (s *SQLiteStore) CreateWithLimit(ctx context.Context, ve *VirtualEvent, limit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := ve.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.insertLimitStmt.ExecContext(ctx,
		ve.TeamID, ve.ViewID, ve.ReadableName, ve.Description, createdAt.Unix(),
		ve.TeamID, limit,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return verrors.NewControlError(verrors.CodeRecordConflict,
				fmt.Sprintf("virtual event (%s, %s) already recorded", ve.TeamID, ve.ViewID), err)
		}
		return verrors.NewControlError(verrors.CodeControlWrite, "failed to insert virtual event", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return verrors.NewControlError(verrors.CodeControlWrite, "failed to insert virtual event", err)
	}
	if affected == 0 {
		return verrors.NewControlError(verrors.CodeTenantViewLimit,
			fmt.Sprintf("team %s already has %d virtual events", ve.TeamID, limit), nil)
	}
	return nil
}

// Count returns the number of virtual events registered for a tenant.
func (s *SQLiteStore) Count(ctx context.Context, teamID string) (int64, error) {
	var count int64
	err := s.readDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM virtual_events WHERE team_id = ?",
		teamID,
	).Scan(&count)
	if err != nil {
		return 0, verrors.NewControlError(verrors.CodeControlQuery, "failed to count virtual events", err)
	}
	return count, nil
}

// List returns all virtual events registered for a tenant, ordered by
// creation time.
func (s *SQLiteStore) List(ctx context.Context, teamID string) ([]*VirtualEvent, error) {
	rows, err := s.readDB.QueryContext(ctx,
		`SELECT team_id, view_id, readable_name, description, created_at
		 FROM virtual_events WHERE team_id = ? ORDER BY created_at, view_id`,
		teamID,
	)
	if err != nil {
		return nil, verrors.NewControlError(verrors.CodeControlQuery, "failed to list virtual events", err)
	}
	defer rows.Close()

	var events []*VirtualEvent
	for rows.Next() {
		var ve VirtualEvent
		var createdAtUnix int64
		if err := rows.Scan(&ve.TeamID, &ve.ViewID, &ve.ReadableName, &ve.Description, &createdAtUnix); err != nil {
			return nil, verrors.NewControlError(verrors.CodeControlQuery, "failed to scan virtual event", err)
		}
		ve.CreatedAt = time.Unix(createdAtUnix, 0)
		events = append(events, &ve)
	}
	if err := rows.Err(); err != nil {
		return nil, verrors.NewControlError(verrors.CodeControlQuery, "failed to list virtual events", err)
	}
	return events, nil
}

// Close closes the control database connections.
func (s *SQLiteStore) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.insertLimitStmt != nil {
		s.insertLimitStmt.Close()
	}
	if err := s.readDB.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// isUniqueViolation reports whether the error is a SQLite unique or
// primary-key constraint violation.
func isUniqueViolation(err error) bool {
	if serr, ok := err.(sqlite3.Error); ok {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
