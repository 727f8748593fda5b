package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zaiqa-pos/api/internal/database"
)

// CatalogStore defines the database methods needed by the menu endpoints.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]database.Product, error)
	ListCategories(ctx context.Context) ([]database.Category, error)
}

// CatalogHandler serves the menu: categories and their products.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

// RegisterRoutes registers catalog endpoints on the given Chi router.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products-by-category", h.ListByCategory)
	r.Get("/categories", h.ListCategories)
}

// --- Response types ---

type productResponse struct {
	ID         int64  `json:"id"`
	ItemCode   string `json:"itemCode"`
	ItemName   string `json:"itemName"`
	SalePrice  string `json:"salePrice"`
	QtyBalance string `json:"qtyBalance"`
	CategoryID *int64 `json:"categoryId"`
	IsActive   bool   `json:"isActive"`
}

type categoryResponse struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// --- Handlers ---

// ListProducts handles GET /api/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// ListByCategory handles GET /api/products-by-category?category=N.
func (h *CatalogHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("category"), 10, 64)
	if err != nil || categoryID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category ID"})
		return
	}

	products, err := h.store.ListProductsByCategory(r.Context(), categoryID)
	if err != nil {
		log.Printf("ERROR: list products by category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name}
		if c.Image.Valid {
			resp[i].Image = &c.Image.String
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func toProductResponses(products []database.Product) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:         p.ID,
			ItemCode:   p.ItemCode,
			ItemName:   p.ItemName,
			SalePrice:  numericToString(p.SalePrice),
			QtyBalance: numericToString(p.QtyBalance),
			IsActive:   p.IsActive,
		}
		if p.CategoryID.Valid {
			resp[i].CategoryID = &p.CategoryID.Int64
		}
	}
	return resp
}
