package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazarkala/bazarkala-backend/pkg/enums"
)

// StoreInventoryTransaction is one append-only audit entry for a counter
// mutation. Rows are never updated or deleted.
type StoreInventoryTransaction struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	StoreInventoryID uuid.UUID         `gorm:"column:store_inventory_id;type:uuid;not null;index"`
	Change           int               `gorm:"column:change;not null"`
	Reason           enums.StockReason `gorm:"column:reason;type:text;not null"`
	Reference        string            `gorm:"column:reference;not null"`
	ChangedBy        uuid.UUID         `gorm:"column:changed_by;type:uuid;not null"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (t *StoreInventoryTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
