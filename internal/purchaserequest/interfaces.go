package purchaserequest

import (
	"context"
	"time"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository defines persistence operations for purchase requests and the
// settlement artifacts they produce.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRequest(ctx context.Context, req *models.PurchaseRequest) (*models.PurchaseRequest, error)
	FindRequestByID(ctx context.Context, id uuid.UUID) (*models.PurchaseRequest, error)
	FindLiveRequest(ctx context.Context, requesterID, storeID uuid.UUID, now time.Time) (*models.PurchaseRequest, error)
	FindLatestLiveRequest(ctx context.Context, requesterID uuid.UUID, now time.Time) (*models.PurchaseRequest, error)
	FindExpiredCandidates(ctx context.Context, now time.Time) ([]models.PurchaseRequest, error)
	UpdateRequest(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateItem(ctx context.Context, item *models.PurchaseRequestItem) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.PurchaseRequestItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	CountItems(ctx context.Context, requestID uuid.UUID) (int64, error)
	SumItemTotals(ctx context.Context, requestID uuid.UUID) (decimal.Decimal, error)
	SumLiveReservedQty(ctx context.Context, requesterID, inventoryID uuid.UUID, now time.Time) (int, error)
	CreateInvoice(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	CreateInvoiceItems(ctx context.Context, items []models.InvoiceItem) error
	FindInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
}
