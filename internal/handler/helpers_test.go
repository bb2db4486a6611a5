package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/surtidora/api/internal/access"
	"github.com/surtidora/api/internal/apperr"
	"github.com/surtidora/api/internal/auth"
	"github.com/surtidora/api/internal/cart"
	"github.com/surtidora/api/internal/catalog"
	"github.com/surtidora/api/internal/config"
	"github.com/surtidora/api/internal/handler"
	"github.com/surtidora/api/internal/pricing"
	"github.com/surtidora/api/internal/router"
	"github.com/surtidora/api/internal/ws"
)

const testSecret = "test-secret"

const (
	retailEmail    = "ana@example.com"
	wholesaleEmail = "bodega.mayorista@example.com"
	adminEmail     = "admin@surtidora.pe"
)

// --- Mock catalog ---

type mockCatalog struct {
	products []catalog.Product
	listErr  error
}

func (m *mockCatalog) List(_ context.Context) ([]catalog.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.products, nil
}

func (m *mockCatalog) Get(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

// --- In-memory cart storage ---

type memCartStorage struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
}

func newMemCartStorage() *memCartStorage {
	return &memCartStorage{data: make(map[string][]byte)}
}

func (m *memCartStorage) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("cart %s: %w", key, apperr.ErrNotFound)
	}
	return data, nil
}

func (m *memCartStorage) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[key] = data
	return nil
}

func (m *memCartStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	delete(m.data, key)
	return nil
}

// --- Fixtures ---

var (
	riceID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	oilID   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	sodaID  = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	soldOut = uuid.MustParse("44444444-4444-4444-4444-444444444444")
)

func testProducts() []catalog.Product {
	wholesaleRice := decimal.RequireFromString("8.50")
	return []catalog.Product{
		{ID: riceID, Name: "Arroz Costeño 5kg", Category: "abarrotes", Price: decimal.RequireFromString("10.00"), WholesalePrice: &wholesaleRice, CasePack: 6, Available: true, Keywords: "arroz,costeño,5kg"},
		{ID: oilID, Name: "Aceite Primor 1L", Category: "abarrotes", Price: decimal.RequireFromString("10.50"), Available: true, Keywords: "aceite,primor,1l"},
		{ID: sodaID, Name: "Inca Kola 500ml", Category: "bebidas", Price: decimal.RequireFromString("2.50"), Available: true, Keywords: "gaseosa,inca,kola,500ml"},
		{ID: soldOut, Name: "Leche Gloria 400g", Category: "abarrotes", Price: decimal.RequireFromString("4.20"), Available: false, Keywords: "leche,gloria,400g"},
	}
}

func testCartPolicy() cart.Policy {
	return cart.Policy{
		Tiers: []pricing.Tier{
			{MinQuantity: 6, Rate: decimal.RequireFromString("0.05")},
			{MinQuantity: 12, Rate: decimal.RequireFromString("0.10")},
		},
		Minimum: decimal.NewFromInt(50),
		Codes:   map[string]decimal.Decimal{"BIENVENIDA": decimal.RequireFromString("0.15")},
	}
}

type testEnv struct {
	router   chi.Router
	catalog  *mockCatalog
	carts    *memCartStorage
	checkout *mockCheckouter
	records  map[string]*mockRecordService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog:  &mockCatalog{products: testProducts()},
		carts:    newMemCartStorage(),
		checkout: &mockCheckouter{},
		records: map[string]*mockRecordService{
			"orders":     {},
			"deliveries": {},
			"production": {},
		},
	}

	services := make(map[string]handler.RecordService, len(env.records))
	for kind, svc := range env.records {
		services[kind] = svc
	}

	env.router = router.New(router.Deps{
		Config:     &config.Config{JWTSecret: testSecret, AllowedOrigins: []string{"http://localhost:5173"}},
		Policy:     access.DefaultPolicy(),
		Products:   env.catalog,
		Carts:      env.carts,
		CartPolicy: testCartPolicy(),
		Checkout:   env.checkout,
		Records:    services,
		Hub:        ws.NewHub(),
	})
	return env
}

// --- Helpers ---

func tokenFor(t *testing.T, email string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, email, "Test User", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, email string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, email))
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}
