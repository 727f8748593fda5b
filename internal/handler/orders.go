package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/zaiqa-pos/api/internal/auth"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/enum"
	"github.com/zaiqa-pos/api/internal/events"
	"github.com/zaiqa-pos/api/internal/middleware"
	"github.com/zaiqa-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, actor service.Actor, req service.OrderRequest) (*service.OrderResult, error)
	UpdateOrder(ctx context.Context, actor service.Actor, saleID int64, req service.OrderRequest) (*service.OrderResult, error)
	CloseOrder(ctx context.Context, actor service.Actor, saleID int64) (bool, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetSale(ctx context.Context, id int64) (database.Sale, error)
	ListSaleItemDetails(ctx context.Context, saleID int64) ([]database.SaleItemDetailRow, error)
	GetArea(ctx context.Context, id int64) (database.Area, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	bus   *events.Bus
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, bus *events.Bus) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, bus: bus}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Closing is admin only; the service enforces it again for callers that
// bypass the router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Save)
	r.Get("/orders/{orderId}", h.Get)
	r.With(middleware.RequireAdmin).Post("/orders/{orderId}/close", h.Close)
}

// --- Request / Response types ---

// saveOrderRequest is the strict ingestion shape. The client's netTotal is
// deliberately absent; the server recomputes the total from the lines.
type saveOrderRequest struct {
	OrderID   int64                  `json:"orderId"`
	TableName string                 `json:"tableName"`
	OrderType string                 `json:"orderType"`
	AreaID    int64                  `json:"areaId"`
	Phone     string                 `json:"phone"`
	Address   string                 `json:"address"`
	Items     []saveOrderItemRequest `json:"items"`
}

type saveOrderItemRequest struct {
	ItemCode  string `json:"itemCode"`
	Qty       int32  `json:"qty"`
	SalePrice string `json:"salePrice"`
}

type saveOrderResponse struct {
	Success     bool   `json:"success"`
	OrderID     int64  `json:"orderId"`
	TotalAmount string `json:"totalAmount"`
}

type orderDetailResponse struct {
	Sale  saleDetailResponse  `json:"sale"`
	Items []orderItemResponse `json:"items"`
}

type saleDetailResponse struct {
	ID              int64     `json:"id"`
	ClientName      string    `json:"clientName"`
	SaleDate        time.Time `json:"saleDate"`
	TotalAmount     string    `json:"totalAmount"`
	AreaID          *int64    `json:"areaId"`
	OrderType       string    `json:"orderType"`
	PhoneNo         *string   `json:"phoneNo"`
	DeliveryAddress *string   `json:"deliveryAddress"`
	DispatchAmount  string    `json:"dispatchAmount"`
	DeliveryCharges string    `json:"deliveryCharges"`
	Closed          bool      `json:"closed"`
}

type orderItemResponse struct {
	ItemCode  string `json:"itemCode"`
	ItemName  string `json:"itemName"`
	Qty       int32  `json:"qty"`
	SalePrice string `json:"salePrice"`
}

// --- Handlers ---

// Save handles POST /api/orders. A request carrying an orderId edits that
// order; without one it opens a new order.
func (h *OrderHandler) Save(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req saveOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	actor := service.Actor{UserID: claims.UserID, Name: claims.Name, IsAdmin: claims.IsAdmin}
	svcReq := service.OrderRequest{
		ClientName:      req.TableName,
		OrderType:       req.OrderType,
		AreaID:          req.AreaID,
		PhoneNo:         req.Phone,
		DeliveryAddress: req.Address,
		Items:           make([]service.OrderItemRequest, len(req.Items)),
	}
	for i, item := range req.Items {
		svcReq.Items[i] = service.OrderItemRequest{
			ItemCode:  item.ItemCode,
			Qty:       item.Qty,
			SalePrice: item.SalePrice,
		}
	}

	var (
		result *service.OrderResult
		err    error
		kind   string
		status int
	)
	if req.OrderID > 0 {
		result, err = h.svc.UpdateOrder(r.Context(), actor, req.OrderID, svcReq)
		kind = enum.EventOrderUpdated
		status = http.StatusOK
	} else {
		result, err = h.svc.CreateOrder(r.Context(), actor, svcReq)
		kind = enum.EventOrderCreated
		status = http.StatusCreated
	}
	if err != nil {
		h.writeServiceError(w, "save order", err)
		return
	}

	h.publishOrderEvent(r.Context(), kind, claims, result)

	writeJSON(w, status, saveOrderResponse{
		Success:     true,
		OrderID:     result.SaleID,
		TotalAmount: result.TotalAmount.StringFixed(2),
	})
}

// Get handles GET /api/orders/{orderId}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	sale, err := h.store.GetSale(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListSaleItemDetails(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := orderDetailResponse{
		Sale: saleDetailResponse{
			ID:              sale.ID,
			ClientName:      sale.ClientName,
			SaleDate:        sale.SaleDate,
			TotalAmount:     numericToString(sale.TotalAmount),
			OrderType:       sale.OrderType,
			DispatchAmount:  numericToString(sale.DispatchAmount),
			DeliveryCharges: numericToString(sale.DeliveryCharges),
			Closed:          sale.Closed,
		},
		Items: make([]orderItemResponse, len(items)),
	}
	if sale.AreaID.Valid {
		resp.Sale.AreaID = &sale.AreaID.Int64
	}
	if sale.PhoneNo.Valid {
		resp.Sale.PhoneNo = &sale.PhoneNo.String
	}
	if sale.DeliveryAddress.Valid {
		resp.Sale.DeliveryAddress = &sale.DeliveryAddress.String
	}
	for i, item := range items {
		resp.Items[i] = toOrderItemResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Close handles POST /api/orders/{orderId}/close.
func (h *OrderHandler) Close(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	actor := service.Actor{UserID: claims.UserID, Name: claims.Name, IsAdmin: claims.IsAdmin}
	flipped, err := h.svc.CloseOrder(r.Context(), actor, orderID)
	if err != nil {
		h.writeServiceError(w, "close order", err)
		return
	}

	if flipped {
		h.bus.Publish(events.Event{
			Kind: enum.EventOrderClosed,
			Payload: events.OrderPayload{
				OrderID: orderID,
				User:    claims.Name,
				UserID:  claims.UserID,
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orderId": orderID})
}

// --- Helpers ---

// publishOrderEvent broadcasts a lifecycle event for the table grid and
// notification toasts. The table name lookup is best effort.
func (h *OrderHandler) publishOrderEvent(ctx context.Context, kind string, claims *auth.Claims, result *service.OrderResult) {
	payload := events.OrderPayload{
		OrderID:   result.SaleID,
		User:      claims.Name,
		UserID:    claims.UserID,
		Amount:    result.TotalAmount.StringFixed(2),
		OrderType: result.OrderType,
	}
	if result.OrderType == enum.OrderTypeDineIn && result.AreaID > 0 {
		if area, err := h.store.GetArea(ctx, result.AreaID); err == nil {
			payload.TableName = area.Name
		}
	}
	h.bus.Publish(events.Event{Kind: kind, Payload: payload})
}

// writeServiceError maps known service errors to HTTP status codes.
func (h *OrderHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
	case errors.Is(err, service.ErrOrderClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order is closed"})
	case errors.Is(err, service.ErrAreaOccupied):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table already has an open order"})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidOrderType) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidPrice) ||
		errors.Is(err, service.ErrClientNameRequired) ||
		errors.Is(err, service.ErrAreaRequired) ||
		errors.Is(err, service.ErrAddressRequired) ||
		errors.Is(err, service.ErrEmptyOrderIDs)
}

// toOrderItemResponse falls back to the raw item code when the catalog
// product has been deleted since the sale was taken.
func toOrderItemResponse(item database.SaleItemDetailRow) orderItemResponse {
	name := item.ItemCode
	if item.ItemName.Valid && item.ItemName.String != "" {
		name = item.ItemName.String
	}
	return orderItemResponse{
		ItemCode:  item.ItemCode,
		ItemName:  name,
		Qty:       item.Qty,
		SalePrice: numericToString(item.SalePrice),
	}
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
