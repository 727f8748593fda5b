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
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/enum"
	"github.com/zaiqa-pos/api/internal/events"
	"github.com/zaiqa-pos/api/internal/middleware"
	"github.com/zaiqa-pos/api/internal/service"
)

// Page size bounds of the sales report grid.
const (
	defaultSalesPageSize = 10
	maxSalesPageSize     = 100
)

// A bulk close bigger than this collapses into one "refetch everything"
// event instead of a per-order burst.
const maxPerOrderCloseEvents = 20

// SalesStore defines the database methods needed by the sales report.
// Satisfied by *database.Queries; narrow interface for testability.
type SalesStore interface {
	ListSales(ctx context.Context, arg database.ListSalesParams) ([]database.Sale, error)
	CountSales(ctx context.Context, arg database.CountSalesParams) (int64, error)
}

// SalesServicer defines the service methods needed for bulk settlement.
// Satisfied by *service.OrderService.
type SalesServicer interface {
	CloseManyOrders(ctx context.Context, actor service.Actor, ids []int64) ([]int64, error)
	CloseAllRunningOrders(ctx context.Context, actor service.Actor) (int64, error)
}

// SalesHandler handles the sales report and bulk close endpoints.
type SalesHandler struct {
	store SalesStore
	svc   SalesServicer
	bus   *events.Bus
}

// NewSalesHandler creates a new SalesHandler.
func NewSalesHandler(store SalesStore, svc SalesServicer, bus *events.Bus) *SalesHandler {
	return &SalesHandler{store: store, svc: svc, bus: bus}
}

// RegisterRoutes registers sales endpoints on the given Chi router.
// Bulk settlement is admin only.
func (h *SalesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sales", h.List)
	r.With(middleware.RequireAdmin).Post("/sales/bulk", h.BulkClose)
}

// --- Request / Response types ---

type saleResponse struct {
	ID              int64     `json:"id"`
	ClientName      string    `json:"clientName"`
	SaleDate        time.Time `json:"saleDate"`
	TotalAmount     string    `json:"totalAmount"`
	AreaID          *int64    `json:"areaId"`
	OrderType       string    `json:"orderType"`
	DispatchAmount  string    `json:"dispatchAmount"`
	DeliveryCharges string    `json:"deliveryCharges"`
	Closed          bool      `json:"closed"`
}

type salesListResponse struct {
	Data       []saleResponse `json:"data"`
	Page       int            `json:"page"`
	TotalPages int64          `json:"totalPages"`
	Total      int64          `json:"total"`
}

type bulkCloseRequest struct {
	OrderIDs        []int64 `json:"orderIds"`
	CloseAllRunning bool    `json:"closeAllRunning"`
}

type bulkCloseResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

// --- Handlers ---

// List handles GET /api/sales. The id search, order type and status
// filters all combine; newest sales come first.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}

	limit := defaultSalesPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= maxSalesPageSize {
			limit = v
		}
	}

	var searchID pgtype.Int8
	if s := r.URL.Query().Get("search"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "search must be an order ID"})
			return
		}
		searchID = pgtype.Int8{Int64: v, Valid: true}
	}

	var orderType pgtype.Text
	if s := r.URL.Query().Get("orderType"); s != "" {
		orderType = pgtype.Text{String: s, Valid: true}
	}

	var closed pgtype.Bool
	switch s := r.URL.Query().Get("status"); s {
	case "", enum.StatusFilterAll:
	case enum.StatusFilterClosed:
		closed = pgtype.Bool{Bool: true, Valid: true}
	case enum.StatusFilterRunning:
		closed = pgtype.Bool{Bool: false, Valid: true}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}

	total, err := h.store.CountSales(r.Context(), database.CountSalesParams{
		SearchID:  searchID,
		OrderType: orderType,
		Closed:    closed,
	})
	if err != nil {
		log.Printf("ERROR: count sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sales, err := h.store.ListSales(r.Context(), database.ListSalesParams{
		SearchID:  searchID,
		OrderType: orderType,
		Closed:    closed,
		Limit:     int32(limit),
		Offset:    int32((page - 1) * limit),
	})
	if err != nil {
		log.Printf("ERROR: list sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := salesListResponse{
		Data:       make([]saleResponse, len(sales)),
		Page:       page,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		Total:      total,
	}
	for i, s := range sales {
		resp.Data[i] = toSaleResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// BulkClose handles POST /api/sales/bulk. With closeAllRunning set it
// settles every running order; otherwise it settles the listed ids.
func (h *SalesHandler) BulkClose(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req bulkCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	actor := service.Actor{UserID: claims.UserID, Name: claims.Name, IsAdmin: claims.IsAdmin}

	var (
		count     int64
		closedIDs []int64
		err       error
	)
	if req.CloseAllRunning {
		count, err = h.svc.CloseAllRunningOrders(r.Context(), actor)
	} else {
		closedIDs, err = h.svc.CloseManyOrders(r.Context(), actor, req.OrderIDs)
		count = int64(len(closedIDs))
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "not allowed"})
		case errors.Is(err, service.ErrEmptyOrderIDs):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderIds are required"})
		default:
			log.Printf("ERROR: bulk close: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	h.publishCloseEvents(req.CloseAllRunning, closedIDs, claims.Name, claims.UserID)

	writeJSON(w, http.StatusOK, bulkCloseResponse{Success: true, Count: count})
}

// publishCloseEvents emits one event per sale that actually flipped, so ids
// that were already closed stay silent. Large batches and close-all collapse
// into a single orderId 0 event that tells clients to refetch.
func (h *SalesHandler) publishCloseEvents(closeAll bool, closedIDs []int64, user string, userID int64) {
	if closeAll || len(closedIDs) > maxPerOrderCloseEvents {
		h.bus.Publish(events.Event{
			Kind:    enum.EventOrderClosed,
			Payload: events.OrderPayload{OrderID: 0, User: user, UserID: userID},
		})
		return
	}
	for _, id := range closedIDs {
		h.bus.Publish(events.Event{
			Kind:    enum.EventOrderClosed,
			Payload: events.OrderPayload{OrderID: id, User: user, UserID: userID},
		})
	}
}

func toSaleResponse(s database.Sale) saleResponse {
	resp := saleResponse{
		ID:              s.ID,
		ClientName:      s.ClientName,
		SaleDate:        s.SaleDate,
		TotalAmount:     numericToString(s.TotalAmount),
		OrderType:       s.OrderType,
		DispatchAmount:  numericToString(s.DispatchAmount),
		DeliveryCharges: numericToString(s.DeliveryCharges),
		Closed:          s.Closed,
	}
	if s.AreaID.Valid {
		resp.AreaID = &s.AreaID.Int64
	}
	return resp
}
