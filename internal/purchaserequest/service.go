package purchaserequest

import (
	"context"
	"fmt"
	"time"

	"github.com/bazarkala/bazarkala-backend/internal/inventory"
	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/bazarkala/bazarkala-backend/pkg/enums"
	pkgerrors "github.com/bazarkala/bazarkala-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// reservationWindow is the sliding expiry applied on every AddItem.
const reservationWindow = 15 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the purchase request lifecycle operations.
type Service interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.PurchaseRequest, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) (*models.PurchaseRequest, error)
	GetActive(ctx context.Context, requesterID uuid.UUID) (*models.PurchaseRequest, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Invoice, error)
	Cancel(ctx context.Context, input CancelInput) error
	ExpireRequest(ctx context.Context, requestID uuid.UUID) error
	FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
}

// AddItemInput reserves stock and adds a line to the buyer's live request.
type AddItemInput struct {
	ActorID     uuid.UUID `validate:"required"`
	InventoryID uuid.UUID `validate:"required"`
	Qty         int       `validate:"gt=0"`
}

// RemoveItemInput removes one line and releases its reservation.
type RemoveItemInput struct {
	ActorID uuid.UUID `validate:"required"`
	ItemID  uuid.UUID `validate:"required"`
}

// ConfirmInput settles a live request into an invoice.
type ConfirmInput struct {
	ActorID   uuid.UUID `validate:"required"`
	RequestID uuid.UUID `validate:"required"`
}

// CancelInput aborts a live request and releases all of its holds.
type CancelInput struct {
	ActorID   uuid.UUID `validate:"required"`
	RequestID uuid.UUID `validate:"required"`
}

type service struct {
	repo        Repository
	inventories inventory.Repository
	ledger      inventory.Ledger
	tx          txRunner
	validate    *validator.Validate
	now         func() time.Time
}

// NewService builds a purchase request service with the required dependencies.
func NewService(repo Repository, inventories inventory.Repository, ledger inventory.Ledger, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchase request repository required")
	}
	if inventories == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:        repo,
		inventories: inventories,
		ledger:      ledger,
		tx:          tx,
		validate:    validator.New(),
		now:         time.Now,
	}, nil
}

func (s *service) AddItem(ctx context.Context, input AddItemInput) (*models.PurchaseRequest, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid add item input")
	}

	now := s.now().UTC()
	var requestID uuid.UUID

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invRepo := s.inventories.WithTx(tx)

		inv, err := invRepo.FindByID(ctx, input.InventoryID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory")
		}
		if !inv.IsActive || !inv.Visible {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory not found")
		}
		if input.Qty < inv.MinOrderQty {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity below min_order_qty")
		}

		if inv.MaxOrderQty != nil {
			existing, err := repo.SumLiveReservedQty(ctx, input.ActorID, inv.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum live reservations")
			}
			if existing+input.Qty > *inv.MaxOrderQty {
				return pkgerrors.New(pkgerrors.CodeConflict, "Quantity exceeds max_order_qty")
			}
		}

		expiresAt := now.Add(reservationWindow)
		req, err := repo.FindLiveRequest(ctx, input.ActorID, inv.StoreID, now)
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load live request")
			}
			storeID := inv.StoreID
			req = &models.PurchaseRequest{
				RequesterID: input.ActorID,
				StoreID:     &storeID,
				Status:      enums.PurchaseRequestStatusNew,
				ExpiresAt:   &expiresAt,
				TotalAmount: decimal.Zero,
			}
			if _, err := repo.CreateRequest(ctx, req); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase request")
			}
		}
		requestID = req.ID

		entry := inventory.LedgerEntry{
			InventoryID: inv.ID,
			Qty:         input.Qty,
			Reference:   fmt.Sprintf("purchase_request:%s", req.ID),
			ActorID:     input.ActorID,
		}
		if err := s.ledger.Reserve(ctx, tx, entry); err != nil {
			return err
		}

		inventoryID := inv.ID
		item := &models.PurchaseRequestItem{
			PurchaseRequestID: req.ID,
			ProductID:         inv.ProductID,
			StoreInventoryID:  &inventoryID,
			Qty:               input.Qty,
			Price:             inv.Price,
			Total:             inv.Price.Mul(decimal.NewFromInt(int64(input.Qty))),
		}
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request item")
		}

		total, err := repo.SumItemTotals(ctx, req.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute total")
		}
		updates := map[string]any{
			"total_amount": total,
			"expires_at":   expiresAt,
		}
		if err := repo.UpdateRequest(ctx, req.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh purchase request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, requestID)
}

func (s *service) RemoveItem(ctx context.Context, input RemoveItemInput) (*models.PurchaseRequest, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid remove item input")
	}

	var requestID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase request item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request item")
		}

		req, err := repo.FindRequestByID(ctx, item.PurchaseRequestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
		}
		if !CanUpdatePurchaseRequest(input.ActorID, req.RequesterID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "purchase request does not belong to user")
		}
		if req.Status != enums.PurchaseRequestStatusNew {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase request already processed")
		}
		requestID = req.ID

		if item.StoreInventoryID != nil {
			entry := inventory.LedgerEntry{
				InventoryID: *item.StoreInventoryID,
				Qty:         item.Qty,
				Reference:   fmt.Sprintf("purchase_request:%s", req.ID),
				ActorID:     input.ActorID,
			}
			if err := s.ledger.Release(ctx, tx, entry, enums.StockReasonCancellation); err != nil {
				return err
			}
		}

		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete request item")
		}

		remaining, err := repo.CountItems(ctx, req.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count remaining items")
		}
		if remaining == 0 {
			updates := map[string]any{
				"status":       enums.PurchaseRequestStatusCancelled,
				"total_amount": decimal.Zero,
			}
			return repo.UpdateRequest(ctx, req.ID, updates)
		}

		total, err := repo.SumItemTotals(ctx, req.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute total")
		}
		return repo.UpdateRequest(ctx, req.ID, map[string]any{"total_amount": total})
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, requestID)
}

func (s *service) GetActive(ctx context.Context, requesterID uuid.UUID) (*models.PurchaseRequest, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester id required")
	}
	req, err := s.repo.FindLatestLiveRequest(ctx, requesterID, s.now().UTC())
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active purchase request")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active request")
	}
	return req, nil
}

func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Invoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid confirm input")
	}

	now := s.now().UTC()
	var invoiceID uuid.UUID

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		req, err := repo.FindRequestByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
		}
		if !CanUpdatePurchaseRequest(input.ActorID, req.RequesterID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "purchase request does not belong to user")
		}
		// The request may have expired between the caller's read and this
		// transaction; fail closed on the re-check.
		if req.Status != enums.PurchaseRequestStatusNew || req.ExpiresAt == nil || !req.ExpiresAt.After(now) {
			return pkgerrors.New(pkgerrors.CodeConflict, "Purchase request is invalid, expired, or already processed")
		}
		if len(req.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Purchase request has no items")
		}
		if req.StoreID == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "store no longer available")
		}

		invoice := &models.Invoice{
			StoreID:           *req.StoreID,
			BuyerID:           req.RequesterID,
			PurchaseRequestID: req.ID,
			InvoiceNumber:     fmt.Sprintf("INV-%d-%s", now.UnixMilli(), req.ID),
			Status:            enums.InvoiceStatusPending,
			TotalAmount:       req.TotalAmount,
			Currency:          enums.CurrencyIRR,
		}
		if _, err := repo.CreateInvoice(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
		invoiceID = invoice.ID

		invoiceItems := make([]models.InvoiceItem, 0, len(req.Items))
		for _, item := range req.Items {
			if item.StoreInventoryID == nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "inventory reference missing for request item")
			}
			entry := inventory.LedgerEntry{
				InventoryID: *item.StoreInventoryID,
				Qty:         item.Qty,
				Reference:   fmt.Sprintf("invoice:%s", invoice.ID),
				ActorID:     input.ActorID,
			}
			if err := s.ledger.Consume(ctx, tx, entry); err != nil {
				return err
			}
			invoiceItems = append(invoiceItems, models.InvoiceItem{
				InvoiceID:        invoice.ID,
				ProductID:        item.ProductID,
				StoreInventoryID: item.StoreInventoryID,
				Qty:              item.Qty,
				UnitPrice:        item.Price,
				Total:            item.Total,
			})
		}
		if err := repo.CreateInvoiceItems(ctx, invoiceItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice items")
		}

		updates := map[string]any{"status": enums.PurchaseRequestStatusConfirmed}
		if err := repo.UpdateRequest(ctx, req.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm purchase request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.FindInvoice(ctx, invoiceID)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if err := s.validate.Struct(input); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cancel input")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		req, err := repo.FindRequestByID(ctx, input.RequestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
		}
		if !CanUpdatePurchaseRequest(input.ActorID, req.RequesterID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "purchase request does not belong to user")
		}
		if req.Status != enums.PurchaseRequestStatusNew {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "purchase request already processed")
		}

		for _, item := range req.Items {
			if item.StoreInventoryID == nil {
				continue
			}
			entry := inventory.LedgerEntry{
				InventoryID: *item.StoreInventoryID,
				Qty:         item.Qty,
				Reference:   fmt.Sprintf("purchase_request:%s", req.ID),
				ActorID:     input.ActorID,
			}
			if err := s.ledger.Release(ctx, tx, entry, enums.StockReasonCancellation); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"status":       enums.PurchaseRequestStatusCancelled,
			"total_amount": decimal.Zero,
		}
		return repo.UpdateRequest(ctx, req.ID, updates)
	})
}

// ExpireRequest releases a lapsed request's holds inside its own transaction.
// The candidate is re-checked first; a miss means another caller already
// settled it and is not an error.
func (s *service) ExpireRequest(ctx context.Context, requestID uuid.UUID) error {
	if requestID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	now := s.now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		req, err := repo.FindRequestByID(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load purchase request")
		}
		if req.Status != enums.PurchaseRequestStatusNew {
			return nil
		}
		if req.ExpiresAt == nil || req.ExpiresAt.After(now) {
			return nil
		}

		for _, item := range req.Items {
			if item.StoreInventoryID == nil {
				continue
			}
			entry := inventory.LedgerEntry{
				InventoryID: *item.StoreInventoryID,
				Qty:         item.Qty,
				Reference:   fmt.Sprintf("purchase_request:%s", req.ID),
				ActorID:     req.RequesterID,
			}
			if err := s.ledger.Release(ctx, tx, entry, enums.StockReasonReservationExpired); err != nil {
				return err
			}
		}

		updates := map[string]any{
			"status":       enums.PurchaseRequestStatusExpired,
			"total_amount": decimal.Zero,
		}
		return repo.UpdateRequest(ctx, req.ID, updates)
	})
}

func (s *service) FindInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	invoice, err := s.repo.FindInvoiceByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) reload(ctx context.Context, requestID uuid.UUID) (*models.PurchaseRequest, error) {
	req, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload purchase request")
	}
	return req, nil
}
