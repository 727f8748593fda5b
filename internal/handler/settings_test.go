package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/handler"
	"github.com/zaiqa-pos/api/internal/middleware"
)

type mockSettingsStore struct {
	getSettingFn func(ctx context.Context) (database.Setting, error)
}

func (m *mockSettingsStore) GetSetting(ctx context.Context) (database.Setting, error) {
	return m.getSettingFn(ctx)
}

func setupSettingsRouter(store *mockSettingsStore) *chi.Mux {
	h := handler.NewSettingsHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Group(h.RegisterRoutes)
	return r
}

func TestGetSettings(t *testing.T) {
	store := &mockSettingsStore{
		getSettingFn: func(ctx context.Context) (database.Setting, error) {
			return database.Setting{
				ID:                       1,
				PercentageServiceCharges: makeNumeric(t, "5.00"),
				FixDeliveryCharges:       makeNumeric(t, "150.00"),
			}, nil
		},
	}
	router := setupSettingsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/settings", nil, 7, "sana", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	resp := decodeResponse(t, rr)
	if resp["percentageServiceCharges"] != "5.00" {
		t.Errorf("unexpected service charge: %v", resp["percentageServiceCharges"])
	}
	if resp["fixDeliveryCharges"] != "150.00" {
		t.Errorf("unexpected delivery charge: %v", resp["fixDeliveryCharges"])
	}
}

func TestGetSettings_MissingRowReadsAsZero(t *testing.T) {
	store := &mockSettingsStore{
		getSettingFn: func(ctx context.Context) (database.Setting, error) {
			return database.Setting{}, pgx.ErrNoRows
		},
	}
	router := setupSettingsRouter(store)

	rr := doAuthRequest(t, router, "GET", "/settings", nil, 7, "sana", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	resp := decodeResponse(t, rr)
	if resp["percentageServiceCharges"] != "0.00" || resp["fixDeliveryCharges"] != "0.00" {
		t.Errorf("expected zero charges, got %v", resp)
	}
}
