package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the catalog-owned seller record. The engine only reads it to
// verify existence; full store management lives outside this service.
type Store struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null"`
	Name      string         `gorm:"column:name;not null"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
