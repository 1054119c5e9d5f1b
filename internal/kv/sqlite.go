package kv

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Record is a single durable key/value pair.
type Record struct {
	Key       string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name singular-free and explicit.
func (Record) TableName() string { return "kv_records" }

// DB is a Store backed by a sqlite database via GORM.
type DB struct {
	db *gorm.DB
}

// Open opens (or creates) a sqlite database at path and migrates the
// kv_records table. Pass ":memory:" for a throwaway store.
func Open(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("kv: migrate %s: %w", path, err)
	}
	return &DB{db: db}, nil
}

// NewDB wraps an already-open GORM connection. The caller is responsible for
// having migrated the Record table.
func NewDB(db *gorm.DB) (*DB, error) {
	if db == nil {
		return nil, fmt.Errorf("kv: db is required")
	}
	return &DB{db: db}, nil
}

// Get returns the value stored under key, with found=false when absent.
func (s *DB) Get(key string) (string, bool, error) {
	var rec Record
	err := s.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	return rec.Value, true, nil
}

// Set writes value under key, replacing any previous value.
func (s *DB) Set(key, value string) error {
	rec := Record{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}
