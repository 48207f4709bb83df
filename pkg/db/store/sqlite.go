package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mwantia/godeid/pkg/db/migrations"
	"github.com/mwantia/godeid/pkg/db/models"
	"github.com/mwantia/godeid/pkg/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore implements MappingStore on a relational schema.
//
// There is no native row expiry here; old mappings are removed by the
// `godeid mapping purge` command or an equivalent scheduled job.
type SQLiteStore struct {
	db   *gorm.DB
	path string
	log  log.LoggerService
}

// SQLiteConfig holds SQLite-specific configuration
type SQLiteConfig struct {
	Path         string
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// NewSQLiteStore creates a new SQLite-backed mapping store
func NewSQLiteStore(cfg SQLiteConfig, logService log.LoggerService) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Default to silent logging
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Silent
	}

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(cfg.LogLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		path: cfg.Path,
		log:  logService,
	}, nil
}

// DB returns the underlying GORM database instance
func (s *SQLiteStore) DB() *gorm.DB {
	return s.db
}

// Connect initializes the database connection
func (s *SQLiteStore) Connect(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(1) // SQLite only supports 1 writer
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	return migrations.NewMigrator(s.db).Migrate(ctx)
}

// Health checks database connectivity
func (s *SQLiteStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Add(ctx context.Context, mapping *models.ExecutionMapping) error {
	err := s.db.WithContext(ctx).Create(mapping).Error
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: sop instance uid %s", ErrDuplicate, mapping.SopInstanceUID)
	}
	return err
}

func (s *SQLiteStore) Remove(ctx context.Context, mapping *models.ExecutionMapping) (*models.ExecutionMapping, error) {
	result := s.db.WithContext(ctx).Delete(&models.ExecutionMapping{}, "id = ?", mapping.ID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: id %s", ErrNotFound, mapping.ID)
	}
	return mapping, nil
}

func (s *SQLiteStore) GetByInstance(ctx context.Context, sopInstanceUID string) (*models.ExecutionMapping, error) {
	var mappings []models.ExecutionMapping
	err := s.db.WithContext(ctx).
		Where("sop_instance_uid = ?", sopInstanceUID).
		Limit(2).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	switch len(mappings) {
	case 0:
		return nil, nil
	case 1:
		return &mappings[0], nil
	default:
		return nil, fmt.Errorf("%w: sop instance uid %s", ErrAmbiguous, sopInstanceUID)
	}
}

func (s *SQLiteStore) GetByHierarchy(ctx context.Context, workflowInstanceID, exportTaskID, studyUID, seriesUID string) (*models.ExecutionMapping, error) {
	var mappings []models.ExecutionMapping
	err := s.db.WithContext(ctx).
		Where("workflow_instance_id = ? AND export_task_id = ? AND source_study_uid = ? AND source_series_uid = ?",
			workflowInstanceID, exportTaskID, studyUID, seriesUID).
		Order("request_time DESC").
		Limit(1).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	if len(mappings) > 0 {
		return &mappings[0], nil
	}

	// Study-level fallback: a new series of an already exported study reuses
	// the study's proxy identifiers. Most recent record wins.
	err = s.db.WithContext(ctx).
		Where("workflow_instance_id = ? AND export_task_id = ? AND source_study_uid = ?",
			workflowInstanceID, exportTaskID, studyUID).
		Order("request_time DESC").
		Limit(2).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	switch len(mappings) {
	case 0:
		return nil, nil
	case 1:
		return &mappings[0], nil
	default:
		s.log.Warn("Ambiguous study-level fallback for workflow '%s' task '%s' study '%s', using most recent record",
			workflowInstanceID, exportTaskID, studyUID)
		return &mappings[0], nil
	}
}

func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("request_time < ?", olderThan).
		Delete(&models.ExecutionMapping{})
	return result.RowsAffected, result.Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
