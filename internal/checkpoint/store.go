package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"anycode/internal/logging"
)

// CheckpointRecord is one row of the per-user checkpoint timeline. It is
// bookkeeping only: git operations never depend on it.
type CheckpointRecord struct {
	ID          string    `json:"id"`
	ProjectPath string    `json:"projectPath"`
	CommitHash  string    `json:"commitHash"`
	Message     string    `json:"message"`
	Engine      string    `json:"engine"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store provides SQLite-backed storage for the checkpoint timeline.
type Store struct {
	mu sync.RWMutex

	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the checkpoint database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initialize creates the database schema.
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			id TEXT PRIMARY KEY,
			project_path TEXT NOT NULL,
			commit_hash TEXT NOT NULL,
			message TEXT,
			engine TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}

	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_checkpoints_project ON checkpoints(project_path)`)

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record persists a checkpoint record, assigning an ID when absent.
func (s *Store) Record(ctx context.Context, rec *CheckpointRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (id, project_path, commit_hash, message, engine, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_path = excluded.project_path,
			commit_hash = excluded.commit_hash,
			message = excluded.message,
			engine = excluded.engine
	`, rec.ID, rec.ProjectPath, rec.CommitHash, rec.Message, rec.Engine, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record checkpoint: %w", err)
	}

	logging.CheckpointDebug("Recorded checkpoint %s (%s) for %s", rec.ID, rec.CommitHash, rec.ProjectPath)
	return nil
}

// ListForProject returns the newest checkpoint records for a project,
// newest first. A limit of zero means no limit.
func (s *Store) ListForProject(ctx context.Context, projectPath string, limit int) ([]CheckpointRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, project_path, commit_hash, message, engine, created_at
		FROM checkpoints WHERE project_path = ?
		ORDER BY created_at DESC, id
	`
	args := []interface{}{projectPath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var records []CheckpointRecord
	for rows.Next() {
		var rec CheckpointRecord
		if err := rows.Scan(&rec.ID, &rec.ProjectPath, &rec.CommitHash, &rec.Message, &rec.Engine, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteForProject removes all checkpoint records for a project and returns
// how many were deleted.
func (s *Store) DeleteForProject(ctx context.Context, projectPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE project_path = ?`, projectPath)
	if err != nil {
		return 0, fmt.Errorf("failed to delete checkpoints: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
