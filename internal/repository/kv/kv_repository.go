package kv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrKeyNotFound = errors.New("key not found")

// Entry is one row of the key-value table.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

type gormKVRepository struct {
	db *gorm.DB
}

func NewKVRepository(db *gorm.DB) KVRepository {
	return &gormKVRepository{db: db}
}

func (r *gormKVRepository) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("key is required")
	}

	var entry Entry
	err := r.db.WithContext(ctx).Where("entry_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrKeyNotFound
		}
		log.Printf("[KVRepository] Database error reading key %q: %v", key, err)
		return "", fmt.Errorf("database error reading key: %w", err)
	}
	return entry.Value, nil
}

// Put inserts or overwrites the value stored under key.
func (r *gormKVRepository) Put(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("key is required")
	}

	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("[KVRepository] Database error writing key %q (%d bytes): %v", key, len(value), err)
		return fmt.Errorf("database error writing key: %w", err)
	}
	return nil
}

func (r *gormKVRepository) Delete(ctx context.Context, key string) error {
	result := r.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{})
	if result.Error != nil {
		log.Printf("[KVRepository] Database error deleting key %q: %v", key, result.Error)
		return fmt.Errorf("database error deleting key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}
