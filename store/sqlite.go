package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "modernc.org/sqlite"

	"github.com/planloom/planloom"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id         TEXT PRIMARY KEY,
		goal       TEXT NOT NULL,
		output     TEXT NOT NULL,
		days_json  TEXT NOT NULL DEFAULT '[]',
		model      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at)`,
}

var _ Store = &SQLiteStore{}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at the given path.
// If path is ":memory:", uses an in-memory database. Sets WAL mode and runs
// migrations automatically.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL gives better concurrent read performance for the plan browser.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePlan(ctx context.Context, plan *planloom.Plan) error {
	if err := prepare(plan); err != nil {
		return err
	}
	daysJSON, err := json.Marshal(plan.Days)
	if err != nil {
		return fmt.Errorf("encoding plan days: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plans (id, goal, output, days_json, model, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Goal, plan.Output, string(daysJSON), plan.Model,
		plan.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*planloom.Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, goal, output, days_json, model, created_at FROM plans WHERE id = ?`, id)
	plan, err := scanPlan(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	return plan, nil
}

func (s *SQLiteStore) ListPlans(ctx context.Context, limit, offset int) ([]planloom.Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, goal, output, days_json, model, created_at FROM plans
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}
	defer rows.Close()

	var plans []planloom.Plan
	for rows.Next() {
		plan, err := scanPlan(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return plans, nil
}

func (s *SQLiteStore) DeletePlan(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) RecentGoals(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT goal FROM plans ORDER BY created_at DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var goals []string
	for rows.Next() {
		var goal string
		if err := rows.Scan(&goal); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// prepare fills ID and CreatedAt for plans the session didn't stamp.
func prepare(plan *planloom.Plan) error {
	if plan.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("generating plan id: %w", err)
		}
		plan.ID = id
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}
	return nil
}

func scanPlan(scan func(...any) error) (*planloom.Plan, error) {
	var plan planloom.Plan
	var daysJSON, createdAt string
	if err := scan(&plan.ID, &plan.Goal, &plan.Output, &daysJSON, &plan.Model, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(daysJSON), &plan.Days); err != nil {
		return nil, fmt.Errorf("decoding plan days: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	plan.CreatedAt = ts
	return &plan, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
