package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pathakanu/forgetMeNot/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps entries in the kv_entries table of a GORM database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a migrated GORM connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get loads and decodes the entry stored under key.
func (s *GormStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	var entry model.Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(entry.Value), dst); err != nil {
		return false, fmt.Errorf("kv decode %q: %w", key, err)
	}
	return true, nil
}

// Set upserts the encoded value under key.
func (s *GormStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv encode %q: %w", key, err)
	}
	entry := model.Entry{Key: key, Value: string(data)}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}
