package purchaserequest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bazarkala/bazarkala-backend/internal/catalog"
	"github.com/bazarkala/bazarkala-backend/internal/inventory"
	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/bazarkala/bazarkala-backend/pkg/enums"
	pkgerrors "github.com/bazarkala/bazarkala-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAddItemCreatesRequestAndReserves(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 1500})

	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 3})
	require.NoError(t, err)

	require.Equal(t, enums.PurchaseRequestStatusNew, req.Status)
	require.Len(t, req.Items, 1)
	require.True(t, req.TotalAmount.Equal(decimal.NewFromInt(4500)), "total %s", req.TotalAmount)
	require.NotNil(t, req.ExpiresAt)
	require.WithinDuration(t, env.now().Add(reservationWindow), *req.ExpiresAt, time.Second)

	reloaded := env.loadInventory(t, inv.ID)
	require.Equal(t, 3, reloaded.ReservedStock)
	require.Equal(t, 10, reloaded.Stock)
}

func TestAddItemReusesLiveRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	first, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)
	second, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 2})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID, "live request must be reused")
	require.Len(t, second.Items, 2)
	require.True(t, second.TotalAmount.Equal(decimal.NewFromInt(300)))

	var count int64
	require.NoError(t, env.db.Model(&models.PurchaseRequest{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAddItemSlidingExpiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	env.setNow(t0)
	_, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)

	env.setNow(t0.Add(14 * time.Minute))
	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)

	require.NotNil(t, req.ExpiresAt)
	require.WithinDuration(t, t0.Add(14*time.Minute).Add(reservationWindow), *req.ExpiresAt, time.Second)
}

func TestAddItemMaxOrderQty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	maxQty := 5
	inv := env.seedInventory(t, seedParams{stock: 20, price: 100, maxQty: &maxQty})

	_, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 3})
	require.NoError(t, err)

	_, err = env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 3})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Equal(t, "Quantity exceeds max_order_qty", typed.Message())

	reloaded := env.loadInventory(t, inv.ID)
	require.Equal(t, 3, reloaded.ReservedStock, "failed add must not change counters")
}

func TestAddItemOutOfStockRollsBack(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	inv := env.seedInventory(t, seedParams{stock: 1, price: 100})

	_, err := env.svc.AddItem(ctx, AddItemInput{ActorID: uuid.New(), InventoryID: inv.ID, Qty: 2})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Equal(t, "Out of stock", typed.Message())

	var requests int64
	require.NoError(t, env.db.Model(&models.PurchaseRequest{}).Count(&requests).Error)
	require.Zero(t, requests, "request creation must roll back with the reservation")

	var entries int64
	require.NoError(t, env.db.Model(&models.StoreInventoryTransaction{}).Count(&entries).Error)
	require.Zero(t, entries)
}

func TestRemoveLastItemCancelsRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 3})
	require.NoError(t, err)
	require.Equal(t, 3, env.loadInventory(t, inv.ID).ReservedStock)

	updated, err := env.svc.RemoveItem(ctx, RemoveItemInput{ActorID: buyer, ItemID: req.Items[0].ID})
	require.NoError(t, err)

	require.Equal(t, enums.PurchaseRequestStatusCancelled, updated.Status)
	require.True(t, updated.TotalAmount.IsZero())
	require.Empty(t, updated.Items)
	require.Equal(t, 0, env.loadInventory(t, inv.ID).ReservedStock)

	var release models.StoreInventoryTransaction
	err = env.db.Where("store_inventory_id = ? AND change < 0", inv.ID).First(&release).Error
	require.NoError(t, err)
	require.Equal(t, enums.StockReasonCancellation, release.Reason)
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	invA := env.seedInventory(t, seedParams{stock: 10, price: 100})
	invB := env.seedInventory(t, seedParams{stock: 10, price: 250, storeID: invA.StoreID})

	_, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: invA.ID, Qty: 2})
	require.NoError(t, err)
	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: invB.ID, Qty: 1})
	require.NoError(t, err)
	require.True(t, req.TotalAmount.Equal(decimal.NewFromInt(450)))

	var itemB models.PurchaseRequestItem
	for _, item := range req.Items {
		if item.StoreInventoryID != nil && *item.StoreInventoryID == invB.ID {
			itemB = item
		}
	}
	require.NotEqual(t, uuid.Nil, itemB.ID)

	updated, err := env.svc.RemoveItem(ctx, RemoveItemInput{ActorID: buyer, ItemID: itemB.ID})
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseRequestStatusNew, updated.Status)
	require.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(200)), "total %s", updated.TotalAmount)
}

func TestRemoveItemForbiddenForOtherUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)

	_, err = env.svc.RemoveItem(ctx, RemoveItemInput{ActorID: uuid.New(), ItemID: req.Items[0].ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	require.Equal(t, 1, env.loadInventory(t, inv.ID).ReservedStock)
}

func TestGetActive(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	_, err := env.svc.GetActive(ctx, buyer)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	created, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)

	active, err := env.svc.GetActive(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, created.ID, active.ID)
	require.Len(t, active.Items, 1)

	require.NoError(t, env.svc.Cancel(ctx, CancelInput{ActorID: buyer, RequestID: created.ID}))
	_, err = env.svc.GetActive(ctx, buyer)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestConfirmCreatesInvoice(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	invA := env.seedInventory(t, seedParams{stock: 10, price: 100})
	invB := env.seedInventory(t, seedParams{stock: 5, price: 300, storeID: invA.StoreID})

	_, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: invA.ID, Qty: 2})
	require.NoError(t, err)
	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: invB.ID, Qty: 1})
	require.NoError(t, err)

	invoice, err := env.svc.Confirm(ctx, ConfirmInput{ActorID: buyer, RequestID: req.ID})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(invoice.InvoiceNumber, "INV-"))
	require.Contains(t, invoice.InvoiceNumber, req.ID.String())
	require.Equal(t, enums.InvoiceStatusPending, invoice.Status)
	require.Equal(t, enums.CurrencyIRR, invoice.Currency)
	require.Equal(t, buyer, invoice.BuyerID)
	require.Len(t, invoice.Items, 2)
	require.True(t, invoice.TotalAmount.Equal(decimal.NewFromInt(500)), "total %s", invoice.TotalAmount)

	reloadedA := env.loadInventory(t, invA.ID)
	require.Equal(t, 8, reloadedA.Stock)
	require.Equal(t, 0, reloadedA.ReservedStock)
	reloadedB := env.loadInventory(t, invB.ID)
	require.Equal(t, 4, reloadedB.Stock)
	require.Equal(t, 0, reloadedB.ReservedStock)

	confirmed, err := env.repo.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseRequestStatusConfirmed, confirmed.Status)

	var sales []models.StoreInventoryTransaction
	err = env.db.Where("reason = ?", enums.StockReasonSale).Find(&sales).Error
	require.NoError(t, err)
	require.Len(t, sales, 2)
	for _, sale := range sales {
		require.Equal(t, "invoice:"+invoice.ID.String(), sale.Reference)
	}
}

func TestConfirmEmptyRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()

	storeID := uuid.New()
	expires := env.now().Add(reservationWindow)
	req := &models.PurchaseRequest{
		RequesterID: buyer,
		StoreID:     &storeID,
		Status:      enums.PurchaseRequestStatusNew,
		ExpiresAt:   &expires,
		TotalAmount: decimal.Zero,
	}
	require.NoError(t, env.db.Create(req).Error)

	_, err := env.svc.Confirm(ctx, ConfirmInput{ActorID: buyer, RequestID: req.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, "Purchase request has no items", typed.Message())
}

func TestConfirmExpiredRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	env.setNow(t0)
	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)

	env.setNow(t0.Add(16 * time.Minute))
	_, err = env.svc.Confirm(ctx, ConfirmInput{ActorID: buyer, RequestID: req.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
	require.Equal(t, "Purchase request is invalid, expired, or already processed", typed.Message())
}

func TestTerminalImmutability(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 1})
	require.NoError(t, err)
	require.NoError(t, env.svc.Cancel(ctx, CancelInput{ActorID: buyer, RequestID: req.ID}))

	err = env.svc.Cancel(ctx, CancelInput{ActorID: buyer, RequestID: req.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = env.svc.Confirm(ctx, ConfirmInput{ActorID: buyer, RequestID: req.ID})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestExpireRequestReleasesHolds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	env.setNow(t0)
	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 4})
	require.NoError(t, err)

	env.setNow(t0.Add(16 * time.Minute))
	require.NoError(t, env.svc.ExpireRequest(ctx, req.ID))

	expired, err := env.repo.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseRequestStatusExpired, expired.Status)
	require.True(t, expired.TotalAmount.IsZero())
	require.Equal(t, 0, env.loadInventory(t, inv.ID).ReservedStock)

	var release models.StoreInventoryTransaction
	err = env.db.Where("store_inventory_id = ? AND change < 0", inv.ID).First(&release).Error
	require.NoError(t, err)
	require.Equal(t, enums.StockReasonReservationExpired, release.Reason)
}

func TestExpireRequestSkipsSettledRequest(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	buyer := uuid.New()
	inv := env.seedInventory(t, seedParams{stock: 10, price: 100})

	req, err := env.svc.AddItem(ctx, AddItemInput{ActorID: buyer, InventoryID: inv.ID, Qty: 2})
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, ConfirmInput{ActorID: buyer, RequestID: req.ID})
	require.NoError(t, err)

	// Already confirmed: the re-check must skip silently.
	require.NoError(t, env.svc.ExpireRequest(ctx, req.ID))

	reloaded, err := env.repo.FindRequestByID(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PurchaseRequestStatusConfirmed, reloaded.Status)
	require.Equal(t, 8, env.loadInventory(t, inv.ID).Stock)
}

func TestCanUpdatePurchaseRequest(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	require.True(t, CanUpdatePurchaseRequest(owner, owner))
	require.False(t, CanUpdatePurchaseRequest(owner, uuid.New()))
	require.False(t, CanUpdatePurchaseRequest(uuid.Nil, uuid.Nil))
}

type testEnv struct {
	db   *gorm.DB
	repo Repository
	svc  *service
}

func (e *testEnv) now() time.Time {
	return e.svc.now()
}

func (e *testEnv) setNow(now time.Time) {
	e.svc.now = func() time.Time { return now }
}

type seedParams struct {
	storeID uuid.UUID
	stock   int
	price   int64
	maxQty  *int
}

func (e *testEnv) seedInventory(t *testing.T, params seedParams) *models.StoreInventory {
	t.Helper()
	storeID := params.storeID
	if storeID == uuid.Nil {
		storeID = uuid.New()
	}
	inv := &models.StoreInventory{
		StoreID:     storeID,
		ProductID:   uuid.New(),
		Price:       decimal.NewFromInt(params.price),
		Stock:       params.stock,
		MinOrderQty: 1,
		MaxOrderQty: params.maxQty,
		IsActive:    true,
		Visible:     true,
		CreatedBy:   uuid.New(),
	}
	if err := e.db.Create(inv).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return inv
}

func (e *testEnv) loadInventory(t *testing.T, id uuid.UUID) *models.StoreInventory {
	t.Helper()
	var inv models.StoreInventory
	if err := e.db.First(&inv, "id = ?", id).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return &inv
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:purchaserequest_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&models.Store{},
		&models.Product{},
		&models.StoreInventory{},
		&models.StoreInventoryTransaction{},
		&models.PurchaseRequest{},
		&models.PurchaseRequestItem{},
		&models.Invoice{},
		&models.InvoiceItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	invRepo := inventory.NewRepository(db)
	invSvc, err := inventory.NewService(invRepo, catalog.NewRepository(db), gormTxRunner{db: db})
	if err != nil {
		t.Fatalf("inventory.NewService: %v", err)
	}

	repo := NewRepository(db)
	svcIface, err := NewService(repo, invRepo, invSvc, gormTxRunner{db: db})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	svc, ok := svcIface.(*service)
	if !ok {
		t.Fatal("unexpected service implementation")
	}

	return &testEnv{db: db, repo: repo, svc: svc}
}
