package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	authpkg "github.com/DavidGarciaCosta/portal-productos/internal/auth"
	productservice "github.com/DavidGarciaCosta/portal-productos/internal/service/product"
	"github.com/DavidGarciaCosta/portal-productos/internal/store"
)

func newTestRouter(t *testing.T) (*chi.Mux, string, string) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := store.Open(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := authpkg.NewTokens("test-secret", time.Hour)
	adminToken, err := tokens.Generate("admin-id", "root", "admin")
	require.NoError(t, err)
	userToken, err := tokens.Generate("user-id", "alice", "user")
	require.NoError(t, err)

	catalog := productservice.NewService(store.NewProducts(db))
	r := chi.NewRouter()
	r.Route("/api/products", New(catalog, tokens).RegisterRoutes)
	return r, adminToken, userToken
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func productInput(name string) map[string]any {
	return map[string]any{
		"name":        name,
		"description": "desc de " + name,
		"price":       19.99,
		"category":    "perifericos",
		"stock":       3,
	}
}

func createProduct(t *testing.T, router http.Handler, adminToken, name string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/products", productInput(name), adminToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody(t, rec)["product"].(map[string]any)
	return created["id"].(string)
}

func TestMutationsRequireAdminToken(t *testing.T) {
	req := require.New(t)
	router, _, userToken := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/products", productInput("Teclado"), "")
	req.Equal(http.StatusUnauthorized, rec.Code)
	req.Equal("MISSING_TOKEN", decodeBody(t, rec)["code"])

	rec = doJSON(t, router, http.MethodPost, "/api/products", productInput("Teclado"), userToken)
	req.Equal(http.StatusForbidden, rec.Code)
	req.Equal("ADMIN_REQUIRED", decodeBody(t, rec)["code"])

	rec = doJSON(t, router, http.MethodDelete, "/api/products/some-id", nil, userToken)
	req.Equal(http.StatusForbidden, rec.Code)
}

func TestCreateAndGetProduct(t *testing.T) {
	req := require.New(t)
	router, adminToken, _ := newTestRouter(t)

	id := createProduct(t, router, adminToken, "Teclado")

	// Reads are public.
	rec := doJSON(t, router, http.MethodGet, "/api/products/"+id, nil, "")
	req.Equal(http.StatusOK, rec.Code)
	got := decodeBody(t, rec)["product"].(map[string]any)
	req.Equal("Teclado", got["name"])
	req.Equal("root", got["createdByName"])

	rec = doJSON(t, router, http.MethodGet, "/api/products/missing", nil, "")
	req.Equal(http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/products", map[string]any{"name": "solo nombre"}, adminToken)
	req.Equal(http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	req := require.New(t)
	router, adminToken, _ := newTestRouter(t)

	id := createProduct(t, router, adminToken, "Teclado")

	rec := doJSON(t, router, http.MethodPut, "/api/products/"+id, productInput("Teclado TKL"), adminToken)
	req.Equal(http.StatusOK, rec.Code)
	updated := decodeBody(t, rec)["product"].(map[string]any)
	req.Equal("Teclado TKL", updated["name"])

	rec = doJSON(t, router, http.MethodPut, "/api/products/missing", productInput("x"), adminToken)
	req.Equal(http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/products/"+id, nil, adminToken)
	req.Equal(http.StatusOK, rec.Code)

	// Soft delete: direct fetch still works, listing omits it.
	rec = doJSON(t, router, http.MethodGet, "/api/products/"+id, nil, "")
	req.Equal(http.StatusOK, rec.Code)
	rec = doJSON(t, router, http.MethodGet, "/api/products", nil, "")
	req.Equal(http.StatusOK, rec.Code)
	req.Empty(decodeBody(t, rec)["products"])
}

func TestListPaginationAndFilters(t *testing.T) {
	req := require.New(t)
	router, adminToken, _ := newTestRouter(t)

	for i := 1; i <= 12; i++ {
		createProduct(t, router, adminToken, fmt.Sprintf("Producto %02d", i))
	}

	rec := doJSON(t, router, http.MethodGet, "/api/products?page=2&limit=5", nil, "")
	req.Equal(http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	req.Len(body["products"], 5)
	pagination := body["pagination"].(map[string]any)
	req.Equal(float64(12), pagination["total"])
	req.Equal(float64(3), pagination["pages"])

	rec = doJSON(t, router, http.MethodGet, "/api/products?search=producto+07", nil, "")
	req.Equal(http.StatusOK, rec.Code)
	req.Len(decodeBody(t, rec)["products"], 1)

	rec = doJSON(t, router, http.MethodGet, "/api/products?category=nada", nil, "")
	req.Equal(http.StatusOK, rec.Code)
	req.Empty(decodeBody(t, rec)["products"])
}
