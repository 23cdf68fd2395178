package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/planloom/planloom"
)

// planRecord is the gorm model backing the plans table in Postgres.
type planRecord struct {
	ID        string    `gorm:"primaryKey"`
	Goal      string    `gorm:"not null"`
	Output    string    `gorm:"not null"`
	DaysJSON  string    `gorm:"column:days_json;not null;default:'[]'"`
	Model     string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (planRecord) TableName() string {
	return "plans"
}

var _ Store = &PostgresStore{}

// PostgresStore implements Store on Postgres via gorm, for deployments where
// multiple instances share one database.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects to Postgres with the given DSN and migrates the
// plans table.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := db.AutoMigrate(&planRecord{}); err != nil {
		return nil, fmt.Errorf("migrating plans table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) SavePlan(ctx context.Context, plan *planloom.Plan) error {
	if err := prepare(plan); err != nil {
		return err
	}
	daysJSON, err := json.Marshal(plan.Days)
	if err != nil {
		return fmt.Errorf("encoding plan days: %w", err)
	}
	record := planRecord{
		ID:        plan.ID,
		Goal:      plan.Goal,
		Output:    plan.Output,
		DaysJSON:  string(daysJSON),
		Model:     plan.Model,
		CreatedAt: plan.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*planloom.Plan, error) {
	var record planRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	return record.toPlan()
}

func (s *PostgresStore) ListPlans(ctx context.Context, limit, offset int) ([]planloom.Plan, error) {
	var records []planRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("querying plans: %w", err)
	}

	var plans []planloom.Plan
	for _, record := range records {
		plan, err := record.toPlan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, nil
}

func (s *PostgresStore) DeletePlan(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&planRecord{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting plan: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecentGoals(ctx context.Context, limit int) ([]string, error) {
	var goals []string
	err := s.db.WithContext(ctx).
		Model(&planRecord{}).
		Order("created_at DESC").
		Limit(normalizeLimit(limit)).
		Pluck("goal", &goals).Error
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	return goals, nil
}

func (r *planRecord) toPlan() (*planloom.Plan, error) {
	plan := planloom.Plan{
		ID:        r.ID,
		Goal:      r.Goal,
		Output:    r.Output,
		Model:     r.Model,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal([]byte(r.DaysJSON), &plan.Days); err != nil {
		return nil, fmt.Errorf("decoding plan days: %w", err)
	}
	return &plan, nil
}
