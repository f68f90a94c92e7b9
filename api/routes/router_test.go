package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cartservice/cartservicetest"
	"github.com/angelmondragon/storefront/internal/cartstore"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Port: "0"},
		HTTP:    config.HTTPConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		JWT:     config.JWTConfig{Secret: "secret", Issuer: "storefront-auth"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testRouter struct {
	handler  http.Handler
	fake     *cartservicetest.Fake
	registry *cartstore.Registry
}

func newTestRouter(t *testing.T, cfg *config.Config) *testRouter {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})

	fake := cartservicetest.New()
	fake.AddProduct(cartservicetest.Product{ID: "desk", Name: "Desk", Price: decimal.RequireFromString("250")})

	reg := prometheus.NewRegistry()
	registry, err := cartstore.NewRegistry(cartstore.RegistryParams{
		Factory: fake,
		Logger:  logg,
		Metrics: metrics.NewCartMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Shutdown(context.Background()) })

	handler := NewRouter(cfg, logg, nil, registry, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &testRouter{handler: handler, fake: fake, registry: registry}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.MemberRole, sessionID string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{
		AccountID: uuid.New(),
		Role:      role,
		JTI:       sessionID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (tr *testRouter) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	tr.handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := router.do(http.MethodGet, path, "", "")
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestCartRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := router.do(http.MethodGet, "/api/v1/cart", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestCartRequiresShopperRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	resp := router.do(http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.MemberRoleAdmin, "sess-admin"), "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for admin got %d", resp.Code)
	}
}

func TestCartFlowThroughRouter(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	token := buildToken(t, cfg, enums.MemberRoleCustomer, "sess-1")

	resp := router.do(http.MethodPost, "/api/v1/cart/items", token, `{"product_id":"desk","quantity":2}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 adding item got %d: %s", resp.Code, resp.Body.String())
	}

	resp = router.do(http.MethodGet, "/api/v1/cart/count", token, "")
	if strings.TrimSpace(resp.Body.String()) != `{"data":{"item_count":2}}` {
		t.Fatalf("unexpected count body %s", resp.Body.String())
	}

	resp = router.do(http.MethodDelete, "/api/v1/cart/items/desk", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 removing item got %d", resp.Code)
	}
	if router.fake.Quantity("desk") != 0 {
		t.Fatalf("expected desk removed upstream")
	}

	resp = router.do(http.MethodDelete, "/api/v1/session", token, "")
	if resp.Code != http.StatusOK || router.registry.Len() != 0 {
		t.Fatalf("expected logout to end the session, code %d len %d", resp.Code, router.registry.Len())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	router.do(http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.MemberRoleCustomer, "sess-a"), "")
	router.do(http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.MemberRoleStaff, "sess-b"), "")

	if router.registry.Len() != 2 {
		t.Fatalf("expected one store per session, got %d", router.registry.Len())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	router.do(http.MethodGet, "/api/v1/cart", buildToken(t, cfg, enums.MemberRoleCustomer, "sess-1"), "")

	resp := router.do(http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "storefront_cart") {
		t.Fatalf("expected cart metrics in exposition, got %s", resp.Body.String())
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	router := newTestRouter(t, cfg)

	resp := router.do(http.MethodGet, "/metrics", "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled got %d", resp.Code)
	}
}
