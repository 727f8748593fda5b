package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/zaiqa-pos/api/internal/database"
)

// SettingsStore defines the database methods needed by the settings endpoint.
// Satisfied by *database.Queries.
type SettingsStore interface {
	GetSetting(ctx context.Context) (database.Setting, error)
}

// SettingsHandler serves the charge configuration the POS screens read.
type SettingsHandler struct {
	store SettingsStore
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
}

type settingsResponse struct {
	PercentageServiceCharges string `json:"percentageServiceCharges"`
	FixDeliveryCharges       string `json:"fixDeliveryCharges"`
}

// Get handles GET /api/settings. A missing row reads as zero charges
// rather than an error so a fresh install still works.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.store.GetSetting(r.Context())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: get settings: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{
		PercentageServiceCharges: numericToString(setting.PercentageServiceCharges),
		FixDeliveryCharges:       numericToString(setting.FixDeliveryCharges),
	})
}
