// Package runstore persists a row per completed run so benchmarks can be
// compared across experiments.
package runstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunRecord is one persisted run-history row. Score, grade and the two
// measurement columns are pointers: a halted run may not have produced them.
type RunRecord struct {
	RunID          string
	ExperimentName string
	RunDir         string
	OverallSuccess bool
	TotalTimeSec   float64
	OverallScore   *float64
	OverallGrade   *string
	PointCloudSize *int64
	AvgCalibError  *float64
	StartedAt      time.Time
}

// Store wraps the run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run-history database at path and runs
// pending schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Not closing m: that would close the underlying DB connection.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Insert persists one run record. A missing RunID is assigned a fresh UUID;
// the stored ID is returned.
func (s *Store) Insert(r *RunRecord) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (
			run_id, experiment_name, run_dir, overall_success, total_time_sec,
			overall_score, overall_grade, point_cloud_size, avg_calib_error, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.ExperimentName, r.RunDir, r.OverallSuccess, r.TotalTimeSec,
		r.OverallScore, r.OverallGrade, r.PointCloudSize, r.AvgCalibError,
		r.StartedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return r.RunID, nil
}

// Get returns the run with the given ID, or sql.ErrNoRows.
func (s *Store) Get(runID string) (*RunRecord, error) {
	row := s.db.QueryRow(`
		SELECT run_id, experiment_name, run_dir, overall_success, total_time_sec,
		       overall_score, overall_grade, point_cloud_size, avg_calib_error, started_at
		FROM runs WHERE run_id = ?`, runID)
	return scanRun(row)
}

// List returns the most recent runs, newest first.
func (s *Store) List(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT run_id, experiment_name, run_dir, overall_success, total_time_sec,
		       overall_score, overall_grade, point_cloud_size, avg_calib_error, started_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	r := &RunRecord{}
	err := row.Scan(
		&r.RunID, &r.ExperimentName, &r.RunDir, &r.OverallSuccess, &r.TotalTimeSec,
		&r.OverallScore, &r.OverallGrade, &r.PointCloudSize, &r.AvgCalibError,
		&r.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}
