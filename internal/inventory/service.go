package inventory

import (
	"context"
	"fmt"

	"github.com/bazarkala/bazarkala-backend/internal/catalog"
	"github.com/bazarkala/bazarkala-backend/pkg/db"
	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/bazarkala/bazarkala-backend/pkg/enums"
	pkgerrors "github.com/bazarkala/bazarkala-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LedgerEntry identifies one counter mutation and its audit trail fields.
type LedgerEntry struct {
	InventoryID uuid.UUID
	Qty         int
	Reference   string
	ActorID     uuid.UUID
}

// Ledger exposes the atomic stock primitives to other aggregates. Every
// method requires the caller's transaction so the counter update and its
// audit row commit together with the caller's own writes.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, entry LedgerEntry) error
	Release(ctx context.Context, tx *gorm.DB, entry LedgerEntry, reason enums.StockReason) error
	Consume(ctx context.Context, tx *gorm.DB, entry LedgerEntry) error
}

// Service defines the store-facing inventory operations plus the Ledger.
type Service interface {
	Ledger
	Create(ctx context.Context, input CreateInput) (*models.StoreInventory, error)
	Restock(ctx context.Context, input RestockInput) (*models.StoreInventory, error)
	Update(ctx context.Context, input UpdateInput) (*models.StoreInventory, error)
	List(ctx context.Context, storeID uuid.UUID) ([]models.StoreInventory, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.StoreInventoryTransaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.StoreInventory, error)
	Assert(ctx context.Context, storeID, inventoryID uuid.UUID) (*models.StoreInventory, error)
}

// CreateInput captures the fields needed to stock a product for a store.
type CreateInput struct {
	ActorID     uuid.UUID       `validate:"required"`
	StoreID     uuid.UUID       `validate:"required"`
	ProductID   uuid.UUID       `validate:"required"`
	Price       decimal.Decimal `validate:"required"`
	Stock       int             `validate:"gte=0"`
	MinOrderQty int             `validate:"gte=1"`
	MaxOrderQty *int            `validate:"omitempty,gte=1"`
	Visible     bool
}

// RestockInput captures a stock increase with its audit reason.
type RestockInput struct {
	ActorID     uuid.UUID `validate:"required"`
	InventoryID uuid.UUID `validate:"required"`
	Qty         int       `validate:"gt=0"`
	Reason      enums.StockReason
}

// UpdateInput carries optional attribute changes; nil fields are untouched.
type UpdateInput struct {
	ActorID     uuid.UUID `validate:"required"`
	InventoryID uuid.UUID `validate:"required"`
	Price       *decimal.Decimal
	MinOrderQty *int `validate:"omitempty,gte=1"`
	MaxOrderQty *int `validate:"omitempty,gte=1"`
	IsActive    *bool
	Visible     *bool
}

// ListTransactionsInput scopes the audit log read to the owning store.
type ListTransactionsInput struct {
	ActorID     uuid.UUID `validate:"required"`
	InventoryID uuid.UUID `validate:"required"`
}

type service struct {
	repo     Repository
	catalog  catalog.Repository
	tx       txRunner
	validate *validator.Validate
}

// NewService builds an inventory service with the required dependencies.
func NewService(repo Repository, catalogRepo catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		tx:       tx,
		validate: validator.New(),
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.StoreInventory, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventory input")
	}

	store, err := s.catalog.FindStoreByID(ctx, input.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.OwnerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to user")
	}

	if _, err := s.catalog.FindProductByID(ctx, input.ProductID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	inv := &models.StoreInventory{
		StoreID:     input.StoreID,
		ProductID:   input.ProductID,
		Price:       input.Price,
		Stock:       input.Stock,
		MinOrderQty: input.MinOrderQty,
		MaxOrderQty: input.MaxOrderQty,
		IsActive:    true,
		Visible:     input.Visible,
		CreatedBy:   input.ActorID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateInventory(ctx, inv); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "inventory already exists for product")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory")
		}
		if input.Stock > 0 {
			entry := &models.StoreInventoryTransaction{
				StoreInventoryID: inv.ID,
				Change:           input.Stock,
				Reason:           enums.StockReasonRestock,
				Reference:        fmt.Sprintf("inventory:%s:create", inv.ID),
				ChangedBy:        input.ActorID,
			}
			if err := repo.CreateTransaction(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log initial stock")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *service) Restock(ctx context.Context, input RestockInput) (*models.StoreInventory, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid restock input")
	}
	if !input.Reason.IsRestockReason() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason must be restock or adjustment")
	}

	inv, err := s.ownedInventory(ctx, input.ActorID, input.InventoryID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.AddStock(ctx, inv.ID, input.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add stock")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
		}
		entry := &models.StoreInventoryTransaction{
			StoreInventoryID: inv.ID,
			Change:           input.Qty,
			Reason:           input.Reason,
			Reference:        fmt.Sprintf("inventory:%s:restock", inv.ID),
			ChangedBy:        input.ActorID,
		}
		if err := repo.CreateTransaction(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log restock")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, inv.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
	}
	return updated, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.StoreInventory, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid update input")
	}

	inv, err := s.ownedInventory(ctx, input.ActorID, input.InventoryID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.MinOrderQty != nil {
		updates["min_order_qty"] = *input.MinOrderQty
	}
	if input.MaxOrderQty != nil {
		updates["max_order_qty"] = *input.MaxOrderQty
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Visible != nil {
		updates["visible"] = *input.Visible
	}
	if len(updates) == 0 {
		return inv, nil
	}

	if err := s.repo.UpdateInventory(ctx, inv.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory")
	}

	updated, err := s.repo.FindByID(ctx, inv.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory")
	}
	return updated, nil
}

func (s *service) List(ctx context.Context, storeID uuid.UUID) ([]models.StoreInventory, error) {
	if storeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	items, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory")
	}
	return items, nil
}

func (s *service) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]models.StoreInventoryTransaction, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transactions input")
	}
	if _, err := s.ownedInventory(ctx, input.ActorID, input.InventoryID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTransactions(ctx, input.InventoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions")
	}
	return entries, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.StoreInventory, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory id required")
	}
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
	}
	return inv, nil
}

// Assert returns the inventory row only when it belongs to the given store.
func (s *service) Assert(ctx context.Context, storeID, inventoryID uuid.UUID) (*models.StoreInventory, error) {
	inv, err := s.FindByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if inv.StoreID != storeID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
	}
	return inv, nil
}

func (s *service) ownedInventory(ctx context.Context, actorID, inventoryID uuid.UUID) (*models.StoreInventory, error) {
	inv, err := s.FindByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	store, err := s.catalog.FindStoreByID(ctx, inv.StoreID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}
	if store.OwnerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "inventory does not belong to user")
	}
	return inv, nil
}

// Reserve holds stock for a purchase request inside the caller's transaction.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, entry LedgerEntry) error {
	if err := validateEntry(tx, entry); err != nil {
		return err
	}
	repo := s.repo.WithTx(tx)
	affected, err := repo.ReserveStock(ctx, entry.InventoryID, entry.Qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "Out of stock")
	}
	return s.logChange(ctx, repo, entry, entry.Qty, enums.StockReasonAdjustment)
}

// Release returns previously reserved units to availability.
func (s *service) Release(ctx context.Context, tx *gorm.DB, entry LedgerEntry, reason enums.StockReason) error {
	if err := validateEntry(tx, entry); err != nil {
		return err
	}
	if !reason.IsReleaseReason() {
		return pkgerrors.New(pkgerrors.CodeValidation, "reason must be cancellation or reservation_expired")
	}
	repo := s.repo.WithTx(tx)
	affected, err := repo.ReleaseStock(ctx, entry.InventoryID, entry.Qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "Stock reservation conflict")
	}
	return s.logChange(ctx, repo, entry, -entry.Qty, reason)
}

// Consume permanently removes reserved units as part of a sale.
func (s *service) Consume(ctx context.Context, tx *gorm.DB, entry LedgerEntry) error {
	if err := validateEntry(tx, entry); err != nil {
		return err
	}
	repo := s.repo.WithTx(tx)
	affected, err := repo.ConsumeStock(ctx, entry.InventoryID, entry.Qty)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume stock")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "Insufficient stock for sale")
	}
	return s.logChange(ctx, repo, entry, -entry.Qty, enums.StockReasonSale)
}

func (s *service) logChange(ctx context.Context, repo Repository, entry LedgerEntry, change int, reason enums.StockReason) error {
	record := &models.StoreInventoryTransaction{
		StoreInventoryID: entry.InventoryID,
		Change:           change,
		Reason:           reason,
		Reference:        entry.Reference,
		ChangedBy:        entry.ActorID,
	}
	if err := repo.CreateTransaction(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log stock change")
	}
	return nil
}

func validateEntry(tx *gorm.DB, entry LedgerEntry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock mutation")
	}
	if entry.InventoryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "inventory id required")
	}
	if entry.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}
