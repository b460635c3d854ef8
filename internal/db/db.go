package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a run or setting does not exist
var ErrNotFound = errors.New("not found")

// Init opens the sqlite database at path and migrates the schema
func Init(path, logLevel string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(gormLevel(logLevel))})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := conn.AutoMigrate(&Setting{}, &ConversionRun{}); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return conn, nil
}

// Close closes the underlying connection
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.Info
	case "WARN", "WARNING":
		return logger.Warn
	case "ERROR":
		return logger.Error
	case "SILENT":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// CreateRun records a run that has just been dispatched
func CreateRun(conn *gorm.DB, run *ConversionRun) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return conn.Create(run).Error
}

// FinishRun stores the outcome of a run
func FinishRun(conn *gorm.DB, id string, processed int, status, errMsg string) error {
	var run ConversionRun
	if err := conn.First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	now := time.Now()
	return conn.Model(&run).Updates(map[string]any{
		"processed":   processed,
		"status":      status,
		"error":       errMsg,
		"ended_at":    now,
		"duration_ms": now.Sub(run.StartedAt).Milliseconds(),
	}).Error
}

// GetRun retrieves a run by id
func GetRun(conn *gorm.DB, id string) (*ConversionRun, error) {
	var run ConversionRun
	if err := conn.First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first along with the total count
func ListRuns(conn *gorm.DB, limit, offset int) ([]ConversionRun, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := conn.Model(&ConversionRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []ConversionRun
	err := conn.Order("started_at desc").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// GetSetting returns the stored value for key
func GetSetting(conn *gorm.DB, key string) (string, error) {
	var s Setting
	if err := conn.Where(&Setting{Key: key}).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.Value, nil
}

// PutSetting inserts or updates key
func PutSetting(conn *gorm.DB, key, value string) error {
	return conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Setting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
}
