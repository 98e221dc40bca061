package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazarkala/bazarkala-backend/pkg/enums"
)

// PurchaseRequest is a buyer's live cart scoped to a single store. At most
// one request per (requester, store) is in status new with a future
// expires_at at any time.
type PurchaseRequest struct {
	ID          uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	RequesterID uuid.UUID                   `gorm:"column:requester_id;type:uuid;not null;index"`
	StoreID     *uuid.UUID                  `gorm:"column:store_id;type:uuid;index"`
	Status      enums.PurchaseRequestStatus `gorm:"column:status;type:text;not null;default:'new'"`
	ExpiresAt   *time.Time                  `gorm:"column:expires_at;index"`
	TotalAmount decimal.Decimal             `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Code        *string                     `gorm:"column:code"`
	Notes       *string                     `gorm:"column:notes"`
	Items       []PurchaseRequestItem       `gorm:"foreignKey:PurchaseRequestID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *PurchaseRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
