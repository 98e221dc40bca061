package inventory

import (
	"context"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateInventory(ctx context.Context, inv *models.StoreInventory) (*models.StoreInventory, error) {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreInventory, error) {
	var inv models.StoreInventory
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID) ([]models.StoreInventory, error) {
	var items []models.StoreInventory
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateInventory(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.StoreInventory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateTransaction(ctx context.Context, entry *models.StoreInventoryTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListTransactions(ctx context.Context, inventoryID uuid.UUID) ([]models.StoreInventoryTransaction, error) {
	var entries []models.StoreInventoryTransaction
	err := r.db.WithContext(ctx).
		Where("store_inventory_id = ?", inventoryID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReserveStock holds qty units only while enough unreserved stock remains.
// The predicate lives in the WHERE clause so concurrent reservations can
// never oversell; a read-then-write here would be a correctness bug.
func (r *repository) ReserveStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE store_inventories
		SET reserved_stock = reserved_stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock - reserved_stock >= ?
	`, qty, id, qty)
	return res.RowsAffected, res.Error
}

func (r *repository) ReleaseStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE store_inventories
		SET reserved_stock = reserved_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_stock >= ?
	`, qty, id, qty)
	return res.RowsAffected, res.Error
}

// ConsumeStock turns a reservation into a sale: both counters drop together
// so the units are never left neither reserved nor consumed.
func (r *repository) ConsumeStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE store_inventories
		SET stock = stock - ?,
			reserved_stock = reserved_stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ? AND reserved_stock >= ?
	`, qty, qty, id, qty, qty)
	return res.RowsAffected, res.Error
}

func (r *repository) AddStock(ctx context.Context, id uuid.UUID, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE store_inventories
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, id)
	return res.RowsAffected, res.Error
}
