package inventory

import (
	"context"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the inventory tables.
// The counter mutators execute a single conditional UPDATE and report the
// number of rows touched; callers translate zero rows into a conflict.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateInventory(ctx context.Context, inv *models.StoreInventory) (*models.StoreInventory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.StoreInventory, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreInventory, error)
	UpdateInventory(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateTransaction(ctx context.Context, entry *models.StoreInventoryTransaction) error
	ListTransactions(ctx context.Context, inventoryID uuid.UUID) ([]models.StoreInventoryTransaction, error)
	ReserveStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
	ReleaseStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
	ConsumeStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
	AddStock(ctx context.Context, id uuid.UUID, qty int) (int64, error)
}
