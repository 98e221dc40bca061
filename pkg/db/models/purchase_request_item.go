package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRequestItem is one line within a purchase request. Price is a
// snapshot captured at add-time; it does not track later inventory price
// changes.
type PurchaseRequestItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PurchaseRequestID uuid.UUID       `gorm:"column:purchase_request_id;type:uuid;not null;index"`
	ProductID         uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	StoreInventoryID  *uuid.UUID      `gorm:"column:store_inventory_id;type:uuid"`
	Qty               int             `gorm:"column:qty;not null"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Total             decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *PurchaseRequestItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
