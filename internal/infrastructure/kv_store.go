package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"garment-dashboard/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKeyValueStore is the durable client cache, one row per key
type GormKeyValueStore struct {
	db *gorm.DB
}

// NewGormKeyValueStore creates a cache on the client_cache_entries table
func NewGormKeyValueStore(db *gorm.DB) *GormKeyValueStore {
	return &GormKeyValueStore{db: db}
}

// Get returns the value of key and whether it exists
func (s *GormKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	var entry model.CacheEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set writes key, replacing any previous value
func (s *GormKeyValueStore) Set(ctx context.Context, key, value string) error {
	entry := model.CacheEntry{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// Remove deletes key; removing a missing key is not an error
func (s *GormKeyValueStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&model.CacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to remove cache key %s: %w", key, err)
	}
	return nil
}
