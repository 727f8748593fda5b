package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrEmptyItems         = errors.New("items are required")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrInvalidPrice       = errors.New("invalid sale price")
	ErrClientNameRequired = errors.New("client name is required")
	ErrAreaRequired       = errors.New("table is required for dine in orders")
	ErrAddressRequired    = errors.New("delivery address is required for home delivery orders")
	ErrEmptyOrderIDs      = errors.New("order ids are required")
	ErrNotFound           = errors.New("order not found")
	ErrAreaOccupied       = errors.New("table already has an open order")
	ErrOrderClosed        = errors.New("order is closed")
	ErrForbidden          = errors.New("not allowed")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to mutate orders.
// Satisfied by *database.Queries.
type OrderStore interface {
	GetSetting(ctx context.Context) (database.Setting, error)
	CreateSale(ctx context.Context, arg database.CreateSaleParams) (int64, error)
	UpdateSale(ctx context.Context, arg database.UpdateSaleParams) error
	GetSaleGuard(ctx context.Context, id int64) (database.SaleGuardRow, error)
	CreateSaleItem(ctx context.Context, arg database.CreateSaleItemParams) error
	DeleteSaleItems(ctx context.Context, saleID int64) error
	SetAreaActive(ctx context.Context, id int64, active bool) error
	CloseSale(ctx context.Context, id int64) error
	CloseSales(ctx context.Context, ids []int64) ([]int64, error)
	CloseOpenSales(ctx context.Context) (int64, error)
	ReleaseAreasForSales(ctx context.Context, ids []int64) error
	ReleaseAreasForOpenSales(ctx context.Context) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID  int64
	Name    string
	IsAdmin bool
}

// OrderItemRequest is a single line of the order.
type OrderItemRequest struct {
	ItemCode  string
	Qty       int32
	SalePrice string
}

// OrderRequest is the validated input for creating or replacing an order.
type OrderRequest struct {
	ClientName      string
	OrderType       string
	AreaID          int64
	PhoneNo         string
	DeliveryAddress string
	Items           []OrderItemRequest
}

// OrderResult carries the fields downstream consumers (events, responses)
// need after a write.
type OrderResult struct {
	SaleID      int64
	TotalAmount decimal.Decimal
	OrderType   string
	AreaID      int64
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// preparedOrder is a validated request with its computed total and the
// charges snapshotted from settings.
type preparedOrder struct {
	total           decimal.Decimal
	dispatchAmount  decimal.Decimal
	deliveryCharges decimal.Decimal
	items           []database.CreateSaleItemParams
}

// CreateOrder validates, snapshots service charges, and creates a sale with
// its items atomically. Dine in orders also mark the chosen table occupied.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req OrderRequest) (*OrderResult, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	prep, err := prepareOrder(ctx, store, req)
	if err != nil {
		return nil, err
	}

	areaID := pgtype.Int8{}
	if req.OrderType == enum.OrderTypeDineIn {
		areaID = pgtype.Int8{Int64: req.AreaID, Valid: true}
	}

	saleID, err := store.CreateSale(ctx, database.CreateSaleParams{
		ClientName:      req.ClientName,
		SaleDate:        time.Now(),
		TotalAmount:     decimalToNumeric(prep.total),
		AreaID:          areaID,
		OrderType:       req.OrderType,
		PhoneNo:         textOrNull(req.PhoneNo),
		DeliveryAddress: textOrNull(req.DeliveryAddress),
		UserID:          pgtype.Int8{Int64: actor.UserID, Valid: true},
		DispatchAmount:  decimalToNumeric(prep.dispatchAmount),
		DeliveryCharges: decimalToNumeric(prep.deliveryCharges),
	})
	if err != nil {
		if isAreaConflict(err) {
			return nil, ErrAreaOccupied
		}
		return nil, fmt.Errorf("create sale: %w", err)
	}

	for _, item := range prep.items {
		item.SaleID = saleID
		if err := store.CreateSaleItem(ctx, item); err != nil {
			return nil, fmt.Errorf("create sale item: %w", err)
		}
	}

	if req.OrderType == enum.OrderTypeDineIn {
		if err := store.SetAreaActive(ctx, req.AreaID, true); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{
		SaleID:      saleID,
		TotalAmount: prep.total,
		OrderType:   req.OrderType,
		AreaID:      req.AreaID,
	}, nil
}

// UpdateOrder replaces the header and full item list of an open sale.
// Only the creator or an admin may edit; closed sales reject edits.
func (s *OrderService) UpdateOrder(ctx context.Context, actor Actor, saleID int64, req OrderRequest) (*OrderResult, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Guard before any write: existence, closed state, ownership.
	guard, err := store.GetSaleGuard(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if guard.Closed {
		return nil, ErrOrderClosed
	}
	if !actor.IsAdmin && (!guard.UserID.Valid || guard.UserID.Int64 != actor.UserID) {
		return nil, ErrForbidden
	}

	prep, err := prepareOrder(ctx, store, req)
	if err != nil {
		return nil, err
	}

	areaID := pgtype.Int8{}
	if req.OrderType == enum.OrderTypeDineIn {
		areaID = pgtype.Int8{Int64: req.AreaID, Valid: true}
	}

	err = store.UpdateSale(ctx, database.UpdateSaleParams{
		ID:              saleID,
		ClientName:      req.ClientName,
		SaleDate:        time.Now(),
		TotalAmount:     decimalToNumeric(prep.total),
		AreaID:          areaID,
		OrderType:       req.OrderType,
		PhoneNo:         textOrNull(req.PhoneNo),
		DeliveryAddress: textOrNull(req.DeliveryAddress),
		DispatchAmount:  decimalToNumeric(prep.dispatchAmount),
		DeliveryCharges: decimalToNumeric(prep.deliveryCharges),
	})
	if err != nil {
		if isAreaConflict(err) {
			return nil, ErrAreaOccupied
		}
		return nil, fmt.Errorf("update sale: %w", err)
	}

	// Replace semantics: the request's item list is the new truth.
	if err := store.DeleteSaleItems(ctx, saleID); err != nil {
		return nil, fmt.Errorf("delete sale items: %w", err)
	}
	for _, item := range prep.items {
		item.SaleID = saleID
		if err := store.CreateSaleItem(ctx, item); err != nil {
			return nil, fmt.Errorf("create sale item: %w", err)
		}
	}

	// The old table is freed when the order moves to another table or
	// stops being dine in altogether.
	if guard.AreaID.Valid && (req.OrderType != enum.OrderTypeDineIn || guard.AreaID.Int64 != req.AreaID) {
		if err := store.SetAreaActive(ctx, guard.AreaID.Int64, false); err != nil {
			return nil, fmt.Errorf("release table: %w", err)
		}
	}
	if req.OrderType == enum.OrderTypeDineIn {
		if err := store.SetAreaActive(ctx, req.AreaID, true); err != nil {
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &OrderResult{
		SaleID:      saleID,
		TotalAmount: prep.total,
		OrderType:   req.OrderType,
		AreaID:      req.AreaID,
	}, nil
}

// CloseOrder settles a sale and frees its table. Admin only. Closing an
// already closed sale is a no-op; the bool reports whether the state flipped.
func (s *OrderService) CloseOrder(ctx context.Context, actor Actor, saleID int64) (bool, error) {
	if !actor.IsAdmin {
		return false, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	guard, err := store.GetSaleGuard(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("get sale: %w", err)
	}
	if guard.Closed {
		return false, nil
	}

	if guard.AreaID.Valid {
		if err := store.SetAreaActive(ctx, guard.AreaID.Int64, false); err != nil {
			return false, fmt.Errorf("release table: %w", err)
		}
	}
	if err := store.CloseSale(ctx, saleID); err != nil {
		return false, fmt.Errorf("close sale: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

// CloseManyOrders settles a batch of sales in one transaction, freeing their
// tables first. Already closed ids are skipped; the result holds the ids
// that actually flipped. Admin only.
func (s *OrderService) CloseManyOrders(ctx context.Context, actor Actor, ids []int64) ([]int64, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if len(ids) == 0 {
		return nil, ErrEmptyOrderIDs
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := store.ReleaseAreasForSales(ctx, ids); err != nil {
		return nil, fmt.Errorf("release tables: %w", err)
	}
	closed, err := store.CloseSales(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("close sales: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return closed, nil
}

// CloseAllRunningOrders settles every open sale at once. End-of-day
// operation, admin only.
func (s *OrderService) CloseAllRunningOrders(ctx context.Context, actor Actor) (int64, error) {
	if !actor.IsAdmin {
		return 0, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := store.ReleaseAreasForOpenSales(ctx); err != nil {
		return 0, fmt.Errorf("release tables: %w", err)
	}
	closed, err := store.CloseOpenSales(ctx)
	if err != nil {
		return 0, fmt.Errorf("close sales: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return closed, nil
}

// prepareOrder totals the item lines and snapshots the charge that applies
// to the order type. The snapshot keeps old receipts stable when settings
// change later.
func prepareOrder(ctx context.Context, store OrderStore, req OrderRequest) (*preparedOrder, error) {
	total := decimal.Zero
	items := make([]database.CreateSaleItemParams, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Qty <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		price, err := decimal.NewFromString(item.SalePrice)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidPrice)
		}
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Qty)))
		items = append(items, database.CreateSaleItemParams{
			ItemCode:  item.ItemCode,
			Qty:       item.Qty,
			SalePrice: decimalToNumeric(price),
		})
	}

	setting, err := store.GetSetting(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	prep := &preparedOrder{
		total:           total,
		dispatchAmount:  decimal.Zero,
		deliveryCharges: decimal.Zero,
		items:           items,
	}
	switch req.OrderType {
	case enum.OrderTypeDineIn:
		prep.dispatchAmount = numericToDecimal(setting.PercentageServiceCharges)
	case enum.OrderTypeHomeDelivery:
		prep.deliveryCharges = numericToDecimal(setting.FixDeliveryCharges)
	}
	return prep, nil
}

// --- Helpers ---

// isAreaConflict reports whether err is the partial unique index on open
// sales per area firing, meaning the requested table already hosts one.
func isAreaConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_sales_open_area"
}

func validateOrderRequest(req OrderRequest) error {
	switch req.OrderType {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeAway, enum.OrderTypeHomeDelivery:
	default:
		return ErrInvalidOrderType
	}
	if req.ClientName == "" {
		return ErrClientNameRequired
	}
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	if req.OrderType == enum.OrderTypeDineIn && req.AreaID <= 0 {
		return ErrAreaRequired
	}
	if req.OrderType == enum.OrderTypeHomeDelivery && req.DeliveryAddress == "" {
		return ErrAddressRequired
	}
	return nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
