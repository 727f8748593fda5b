package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/enum"
)

// TableStore defines the database methods needed by the table grid.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListAreasWithOpenSale(ctx context.Context) ([]database.AreaOpenSaleRow, error)
}

// TableHandler serves the floor view: every table with its running order.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tables", h.List)
}

// --- Response types ---

type tableResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Remarks  *string `json:"remarks"`
	IsActive bool    `json:"isActive"`
	OrderID  *int64  `json:"orderId"`
	Total    *string `json:"total"`
	Waiter   *string `json:"waiter"`
}

// --- Handlers ---

// List handles GET /api/tables. Free tables sort before occupied ones so
// the host screen shows seatable tables first. Occupied tables carry the
// running order's total with its charge applied.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListAreasWithOpenSale(r.Context())
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(rows))
	for i, row := range rows {
		t := tableResponse{
			ID:       row.ID,
			Name:     row.Name,
			IsActive: row.IsActive,
		}
		if row.Remarks.Valid {
			t.Remarks = &row.Remarks.String
		}
		if row.SaleID.Valid {
			t.OrderID = &row.SaleID.Int64
			total := displayedTotal(row)
			t.Total = &total
		}
		if row.CreatedBy.Valid {
			t.Waiter = &row.CreatedBy.String
		}
		resp[i] = t
	}

	writeJSON(w, http.StatusOK, resp)
}

// displayedTotal applies the charge snapshotted on the sale: a percentage
// service charge for dine in, a flat fee for home delivery.
func displayedTotal(row database.AreaOpenSaleRow) string {
	total := numericToDecimal(row.TotalAmount)
	switch {
	case row.OrderType.Valid && row.OrderType.String == enum.OrderTypeDineIn:
		dispatch := numericToDecimal(row.DispatchAmount)
		total = total.Add(total.Mul(dispatch).Div(decimal.NewFromInt(100)))
	case row.OrderType.Valid && row.OrderType.String == enum.OrderTypeHomeDelivery:
		total = total.Add(numericToDecimal(row.DeliveryCharges))
	}
	return total.StringFixed(2)
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
