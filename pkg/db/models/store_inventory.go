package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StoreInventory holds the stock counters for one (store, product) pair.
// The counters are only ever mutated through the ledger's conditional
// updates; availableStock is derived, never stored.
type StoreInventory struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StoreID       uuid.UUID       `gorm:"column:store_id;type:uuid;not null;uniqueIndex:idx_store_inventories_store_product"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_store_inventories_store_product"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(14,2);not null"`
	Stock         int             `gorm:"column:stock;not null;default:0"`
	ReservedStock int             `gorm:"column:reserved_stock;not null;default:0"`
	MinOrderQty   int             `gorm:"column:min_order_qty;not null;default:1"`
	MaxOrderQty   *int            `gorm:"column:max_order_qty"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	Visible       bool            `gorm:"column:visible;not null;default:true"`
	CreatedBy     uuid.UUID       `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableStock is the number of units not held by a reservation.
func (i StoreInventory) AvailableStock() int {
	return i.Stock - i.ReservedStock
}

func (i *StoreInventory) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
