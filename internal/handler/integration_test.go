//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zaiqa-pos/api/internal/config"
	"github.com/zaiqa-pos/api/internal/database"
	"github.com/zaiqa-pos/api/internal/events"
	"github.com/zaiqa-pos/api/internal/middleware"
	"github.com/zaiqa-pos/api/internal/router"
	"github.com/zaiqa-pos/api/internal/ws"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: login, dine-in order with charge snapshot, table
// occupancy, order update, admin close, sales history and bulk close.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:           "8081",
		DatabaseURL:    connStr,
		JWTSecret:      "integration-test-secret",
		AllowedOrigins: []string{"*"},
	}
	queries := database.New(pool)
	bus := events.NewBus()
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, bus, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap data directly (no admin-facing CRUD endpoints) ---
	seedIntegrationData(t, ctx, pool)

	// --- 2. Login as waiter and admin ---
	waiterCookie := loginForCookie(t, server, "sana", "waiter-pass")
	adminCookie := loginForCookie(t, server, "boss", "admin-pass")

	// --- 3. Settings are readable with the session cookie ---
	settings := httpGetJSON(t, server, "/api/settings", waiterCookie)
	if settings["percentageServiceCharges"] != "5.00" {
		t.Fatalf("service charge: got %v, want 5.00", settings["percentageServiceCharges"])
	}

	// --- 4. Create a dine-in order on table 1 ---
	// Items: 2 x 450.00 + 1 x 100.00 = 1000.00
	createResp := httpPostJSON(t, server, "/api/orders", map[string]interface{}{
		"tableName": "Walk In",
		"orderType": "Dine In",
		"areaId":    1,
		"items": []map[string]interface{}{
			{"itemCode": "BRG-01", "qty": 2, "salePrice": "450.00"},
			{"itemCode": "DRK-01", "qty": 1, "salePrice": "100.00"},
		},
	}, waiterCookie, http.StatusCreated)
	orderID := int64(createResp["orderId"].(float64))
	if createResp["totalAmount"] != "1000.00" {
		t.Fatalf("order total: got %v, want 1000.00", createResp["totalAmount"])
	}

	// --- 5. Charge snapshot was taken from settings at create time ---
	order := httpGetJSON(t, server, fmt.Sprintf("/api/orders/%d", orderID), waiterCookie)
	saleHeader, ok := order["sale"].(map[string]interface{})
	if !ok {
		t.Fatalf("order detail missing sale header: %v", order)
	}
	if saleHeader["dispatchAmount"] != "5.00" {
		t.Fatalf("dispatch snapshot: got %v, want 5.00", saleHeader["dispatchAmount"])
	}
	items, ok := order["items"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 order items, got %v", order["items"])
	}

	// --- 6. Table view shows the occupied table with the charged total ---
	// 1000.00 + 5% service charge = 1050.00
	tables := httpGetJSONList(t, server, "/api/tables", waiterCookie)
	occupied := findTable(t, tables, 1)
	if occupied["isActive"] != true {
		t.Fatalf("table 1 should be occupied: %v", occupied)
	}
	if occupied["total"] != "1050.00" {
		t.Fatalf("table total: got %v, want 1050.00", occupied["total"])
	}

	// --- 7. Update the order: replace items, totals re-derive ---
	updateResp := httpPostJSON(t, server, "/api/orders", map[string]interface{}{
		"orderId":   orderID,
		"tableName": "Walk In",
		"orderType": "Dine In",
		"areaId":    1,
		"items": []map[string]interface{}{
			{"itemCode": "BRG-01", "qty": 1, "salePrice": "450.00"},
		},
	}, waiterCookie, http.StatusOK)
	if updateResp["totalAmount"] != "450.00" {
		t.Fatalf("updated total: got %v, want 450.00", updateResp["totalAmount"])
	}

	// --- 8. Waiters cannot close; admins can, and the table frees up ---
	closeURL := fmt.Sprintf("/api/orders/%d/close", orderID)
	httpPostJSON(t, server, closeURL, nil, waiterCookie, http.StatusForbidden)
	httpPostJSON(t, server, closeURL, nil, adminCookie, http.StatusOK)

	tables = httpGetJSONList(t, server, "/api/tables", adminCookie)
	if freed := findTable(t, tables, 1); freed["isActive"] != false {
		t.Fatalf("table 1 should be free after close: %v", freed)
	}

	// --- 9. Create delivery orders for the history/bulk checks ---
	var deliveryIDs []int64
	for i := 0; i < 3; i++ {
		resp := httpPostJSON(t, server, "/api/orders", map[string]interface{}{
			"tableName": fmt.Sprintf("Customer %d", i+1),
			"orderType": "Home Delivery",
			"phone":     "0300-1234567",
			"address":   "House 12, Street 4",
			"items": []map[string]interface{}{
				{"itemCode": "BBQ-01", "qty": 1, "salePrice": "520.00"},
			},
		}, waiterCookie, http.StatusCreated)
		deliveryIDs = append(deliveryIDs, int64(resp["orderId"].(float64)))
	}

	// --- 10. Sales history: filters and pagination ---
	history := httpGetJSON(t, server, "/api/sales?page=1&status=Running", waiterCookie)
	if history["total"].(float64) != 3 {
		t.Fatalf("running sales: got %v, want 3", history["total"])
	}
	closedHistory := httpGetJSON(t, server, "/api/sales?page=1&status=Closed", waiterCookie)
	if closedHistory["total"].(float64) != 1 {
		t.Fatalf("closed sales: got %v, want 1", closedHistory["total"])
	}

	// --- 11. Bulk close the delivery orders as admin ---
	httpPostJSON(t, server, "/api/sales/bulk", map[string]interface{}{
		"orderIds": deliveryIDs,
	}, adminCookie, http.StatusOK)

	remaining := httpGetJSON(t, server, "/api/sales?page=1&status=Running", adminCookie)
	if remaining["total"].(float64) != 0 {
		t.Fatalf("running sales after bulk close: got %v, want 0", remaining["total"])
	}

	t.Logf("Integration test passed: container=%s, order=%d, deliveries=%v",
		pgContainer.GetContainerID(), orderID, deliveryIDs)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this test file's package directory.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func seedIntegrationData(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	insertUser := func(name, password string, isAdmin bool) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO users (name, hashed_password, is_admin) VALUES ($1, $2, $3)`,
			name, string(hashed), isAdmin)
		if err != nil {
			t.Fatalf("insert user %s: %v", name, err)
		}
	}
	insertUser("sana", "waiter-pass", false)
	insertUser("boss", "admin-pass", true)

	_, err := pool.Exec(ctx, `
		INSERT INTO settings (id, percentage_service_charges, fix_delivery_charges)
		VALUES (1, 5.00, 150.00)`)
	if err != nil {
		t.Fatalf("insert settings: %v", err)
	}

	for i := 1; i <= 3; i++ {
		_, err := pool.Exec(ctx,
			`INSERT INTO areas (name) VALUES ($1)`, fmt.Sprintf("T-%d", i))
		if err != nil {
			t.Fatalf("insert area: %v", err)
		}
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO categories (name) VALUES ('Burgers'), ('Drinks'), ('BBQ')`)
	if err != nil {
		t.Fatalf("insert categories: %v", err)
	}
	_, err = pool.Exec(ctx, `
		INSERT INTO products (item_code, item_name, sale_price, category_id) VALUES
		('BRG-01', 'Beef Burger', 450.00, 1),
		('DRK-01', 'Soft Drink', 100.00, 2),
		('BBQ-01', 'Chicken Tikka', 520.00, 3)`)
	if err != nil {
		t.Fatalf("insert products: %v", err)
	}
}

func loginForCookie(t *testing.T, server *httptest.Server, name, password string) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"name": name, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login as %s: status %d", name, resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatalf("login as %s: no session cookie", name)
	return nil
}

// --- HTTP helpers ---

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, cookie *http.Cookie, wantStatus int) map[string]interface{} {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest("POST", server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("POST %s: status %d, want %d, body: %v", path, resp.StatusCode, wantStatus, errResp)
	}

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, cookie *http.Cookie) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	httpGetInto(t, server, path, cookie, &result)
	return result
}

func httpGetJSONList(t *testing.T, server *httptest.Server, path string, cookie *http.Cookie) []map[string]interface{} {
	t.Helper()

	var result []map[string]interface{}
	httpGetInto(t, server, path, cookie, &result)
	return result
}

func httpGetInto(t *testing.T, server *httptest.Server, path string, cookie *http.Cookie, out interface{}) {
	t.Helper()

	req, err := http.NewRequest("GET", server.URL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.AddCookie(cookie)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func findTable(t *testing.T, tables []map[string]interface{}, id int64) map[string]interface{} {
	t.Helper()
	for _, tbl := range tables {
		if int64(tbl["id"].(float64)) == id {
			return tbl
		}
	}
	t.Fatalf("table %d not found in %v", id, tables)
	return nil
}
