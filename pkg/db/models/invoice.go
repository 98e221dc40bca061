package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazarkala/bazarkala-backend/pkg/enums"
)

// Invoice is the immutable settlement artifact produced when a purchase
// request is confirmed.
type Invoice struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	StoreID           uuid.UUID           `gorm:"column:store_id;type:uuid;not null;index"`
	BuyerID           uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	PurchaseRequestID uuid.UUID           `gorm:"column:purchase_request_id;type:uuid;not null"`
	InvoiceNumber     string              `gorm:"column:invoice_number;not null;uniqueIndex"`
	Status            enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;type:text;not null;default:'IRR'"`
	Items             []InvoiceItem       `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
