package purchaserequest

import (
	"context"
	"time"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/bazarkala/bazarkala-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a purchase request repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseRequest, error) {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repository) FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindLiveRequest(ctx context.Context, requesterID, storeID uuid.UUID, now time.Time) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("requester_id = ? AND store_id = ? AND status = ? AND expires_at > ?",
			requesterID, storeID, enums.PurchaseRequestStatusNew, now).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindLatestLiveRequest(ctx context.Context, requesterID uuid.UUID, now time.Time) (*models.PurchaseRequest, error) {
	var req models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("requester_id = ? AND status = ? AND expires_at > ?",
			requesterID, enums.PurchaseRequestStatusNew, now).
		Order("updated_at DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindExpiredCandidates(ctx context.Context, now time.Time) ([]models.PurchaseRequest, error) {
	var reqs []models.PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?",
			enums.PurchaseRequestStatusNew, now).
		Order("expires_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *repository) UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.PurchaseRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.PurchaseRequestItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.PurchaseRequestItem, error) {
	var item models.PurchaseRequestItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PurchaseRequestItem{}).Error
}

func (r *repository) CountItems(ctx context.Context, requestID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseRequestItem{}).
		Where("purchase_request_id = ?", requestID).
		Count(&count).Error
	return count, err
}

func (r *repository) SumItemTotals(ctx context.Context, requestID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseRequestItem{}).
		Select("COALESCE(SUM(total), 0)").
		Where("purchase_request_id = ?", requestID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SumLiveReservedQty totals the requester's reserved units for one inventory
// row across their currently live request items.
func (r *repository) SumLiveReservedQty(ctx context.Context, requesterID, inventoryID uuid.UUID, now time.Time) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseRequestItem{}).
		Select("COALESCE(SUM(purchase_request_items.qty), 0)").
		Joins("JOIN purchase_requests ON purchase_requests.id = purchase_request_items.purchase_request_id").
		Where("purchase_requests.requester_id = ? AND purchase_requests.status = ? AND purchase_requests.expires_at > ? AND purchase_request_items.store_inventory_id = ?",
			requesterID, enums.PurchaseRequestStatusNew, now, inventoryID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *repository) CreateInvoiceItems(ctx context.Context, items []models.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
