package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceItem mirrors one purchase-request item at confirmation time.
type InvoiceItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID        uuid.UUID       `gorm:"column:invoice_id;type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	StoreInventoryID *uuid.UUID      `gorm:"column:store_inventory_id;type:uuid"`
	Description      *string         `gorm:"column:description"`
	Qty              int             `gorm:"column:qty;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Total            decimal.Decimal `gorm:"column:total;type:numeric(14,2);not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *InvoiceItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
