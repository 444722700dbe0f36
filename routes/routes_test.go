package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"delivery-marketplace/auth"
	"delivery-marketplace/authz"
	"delivery-marketplace/events"
	"delivery-marketplace/handlers"
	"delivery-marketplace/middleware"
	"delivery-marketplace/repository"
	"delivery-marketplace/repository/repotest"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := repository.NewStore(repotest.NewDB(t), nil, time.Minute)
	tokens := auth.NewTokenService([]byte("routes-test-secret"), time.Hour)
	revoked := auth.NewTokenStore(nil)
	az := authz.NewAuthorizer(auth.NewAuthenticator(tokens, revoked), store.Roles)

	authService := service.NewAuthService(store, tokens, revoked, log)
	h := handlers.New(handlers.Services{
		Auth:        authService,
		Restaurants: service.NewRestaurantService(store, log),
		Carts:       service.NewCartService(store, log),
		Orders:      service.NewOrderService(store, events.Noop{}, decimal.RequireFromString("2.50"), log),
		Roles:       service.NewRoleService(store, log),
	}, log, false)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	SetupRoutes(r, h, az)
	return &testServer{router: r, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) register(t *testing.T, email, role string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": email, "email": email, "password": "secret1", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (s *testServer) admin(t *testing.T) string {
	t.Helper()
	require.NoError(t, s.auth.EnsureAdmin(context.Background(), "root@example.com", "rootpass"))
	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@example.com", "password": "rootpass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// openRestaurant creates a restaurant with one 12.00 item and returns their ids.
func (s *testServer) openRestaurant(t *testing.T, ownerToken string) (uint, uint) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/restaurants", ownerToken, gin.H{"name": "Ramen Bar", "cuisine": "Japanese"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rid := uint(decode(t, w)["restaurant"].(map[string]interface{})["id"].(float64))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/partner/restaurants/%d/menu", rid), ownerToken, gin.H{"name": "Ramen", "price": "12.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := uint(decode(t, w)["item"].(map[string]interface{})["id"].(float64))
	return rid, itemID
}

func (s *testServer) placeOrder(t *testing.T, token string, rid, itemID uint) uint {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/orders", token, gin.H{
		"restaurant_id":    rid,
		"items":            []gin.H{{"menu_item_id": itemID, "quantity": 2}},
		"delivery_address": "1 Main St",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, "PENDING", order["status"])
	return uint(order["id"].(float64))
}

func orderStatus(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["order"].(map[string]interface{})["status"].(string)
}

func TestHealthAndPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = s.do(t, http.MethodGet, "/api/restaurants", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["count"])

	w = s.do(t, http.MethodGet, "/api/state-machine", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "PENDING", body["initial_status"])
	assert.Len(t, body["transitions"], 5)

	w = s.do(t, http.MethodGet, "/api/restaurants/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/restaurants/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, "/api", doc.BasePath)

	param := regexp.MustCompile(`:(\w+)`)
	documented := 0
	for _, route := range s.router.Routes() {
		if !strings.HasPrefix(route.Path, doc.BasePath+"/") {
			continue
		}
		path := param.ReplaceAllString(strings.TrimPrefix(route.Path, doc.BasePath), "{$1}")
		_, ok := doc.Paths[path][strings.ToLower(route.Method)]
		assert.True(t, ok, "%s %s is not documented", route.Method, path)
		documented++
	}
	assert.Equal(t, 38, documented)
}

func TestAuthenticationRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "UNAUTHENTICATED", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "ann@example.com", "")

	w := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, token, cookie.Value)

	w = s.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]interface{})
	assert.Equal(t, "ann@example.com", user["email"])
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Bob", "email": "not-an-email", "password": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": "secret1", "role": "ADMIN"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.register(t, "bob@example.com", "")
	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Bob", "email": "bob@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRoleGates(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cust@example.com", "")
	owner := s.register(t, "owner@example.com", "")
	other := s.register(t, "other@example.com", "")
	rid, _ := s.openRestaurant(t, owner)
	otherRID, _ := s.openRestaurant(t, other)

	w := s.do(t, http.MethodGet, "/api/driver/orders/available", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/admin/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/partner/restaurants/%d/orders", rid), owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/partner/restaurants/%d/orders", otherRID), owner, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/partner/restaurants/%d/orders", rid), customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/partner/restaurants", owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	admin := s.admin(t)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/partner/restaurants/%d/orders", otherRID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartEndpoints(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cust@example.com", "")
	owner := s.register(t, "owner@example.com", "")
	_, itemID := s.openRestaurant(t, owner)

	w := s.do(t, http.MethodGet, "/api/cart", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["items"])

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"items": []gin.H{{"menu_item_id": itemID, "quantity": 3}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cart := decode(t, w)
	assert.Len(t, cart["items"], 1)
	assert.Equal(t, "36", cart["subtotal"])

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"items": []gin.H{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["items"])

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"items": []gin.H{{"menu_item_id": itemID, "quantity": 0}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/cart", customer, gin.H{"items": []gin.H{}, "expected_version": 0})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cust@example.com", "")
	owner := s.register(t, "owner@example.com", "")
	driver := s.register(t, "driver@example.com", "DRIVER")
	rid, itemID := s.openRestaurant(t, owner)
	orderID := s.placeOrder(t, customer, rid, itemID)
	statusPath := fmt.Sprintf("/api/orders/%d/status", orderID)

	w := s.do(t, http.MethodPut, fmt.Sprintf("/api/driver/orders/%d/pickup", orderID), driver, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "pending orders are invisible to drivers")

	w = s.do(t, http.MethodPut, statusPath, customer, gin.H{"status": "ACCEPTED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPut, statusPath, owner, gin.H{"status": "accepted"})
	assert.Equal(t, "ACCEPTED", orderStatus(t, w))

	w = s.do(t, http.MethodGet, "/api/driver/orders/available", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/driver/orders/%d/pickup", orderID), driver, nil)
	assert.Equal(t, "ONGOING", orderStatus(t, w))

	w = s.do(t, http.MethodPut, statusPath, customer, gin.H{"status": "CANCELLED"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "INVALID_TRANSITION", body["code"])
	assert.Equal(t, "ONGOING", body["from"])
	assert.Equal(t, "CANCELLED", body["to"])
	assert.Equal(t, []interface{}{"COMPLETED"}, body["valid_next_states"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), customer, nil)
	assert.Equal(t, "ONGOING", orderStatus(t, w))

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/driver/orders/%d/deliver", orderID), driver, nil)
	assert.Equal(t, "COMPLETED", orderStatus(t, w))

	w = s.do(t, http.MethodGet, "/api/driver/earnings", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	earnings := decode(t, w)
	assert.Equal(t, float64(1), earnings["completed_deliveries"])
	assert.Equal(t, "2.5", earnings["total_earnings"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/partner/restaurants/%d/orders", rid), owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)["summary"].(map[string]interface{})
	assert.Equal(t, "24", summary["revenue"])
}

func TestPartnerOrderStatusScopedToRestaurant(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cust@example.com", "")
	owner := s.register(t, "owner@example.com", "")
	rid, itemID := s.openRestaurant(t, owner)
	otherRID, otherItem := s.openRestaurant(t, owner)
	orderID := s.placeOrder(t, customer, otherRID, otherItem)
	s.placeOrder(t, customer, rid, itemID)

	w := s.do(t, http.MethodPut, fmt.Sprintf("/api/partner/restaurants/%d/orders/%d/status", rid, orderID), owner, gin.H{"status": "ACCEPTED"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/partner/restaurants/%d/orders/%d/status", otherRID, orderID), owner, gin.H{"status": "CANCELLED"})
	assert.Equal(t, "CANCELLED", orderStatus(t, w))
}

func TestOrderInvisibleToStrangers(t *testing.T) {
	s := newTestServer(t)
	customer := s.register(t, "cust@example.com", "")
	stranger := s.register(t, "stranger@example.com", "")
	owner := s.register(t, "owner@example.com", "")
	rid, itemID := s.openRestaurant(t, owner)
	orderID := s.placeOrder(t, customer, rid, itemID)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/orders/%d/status", orderID), stranger, gin.H{"status": "CANCELLED"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoleManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.admin(t)
	s.register(t, "new@example.com", "")

	w := s.do(t, http.MethodGet, "/api/admin/users?role=CUSTOMER", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	users := decode(t, w)["users"].([]interface{})
	require.Len(t, users, 1)
	userID := uint(users[0].(map[string]interface{})["id"].(float64))

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/roles", userID), admin, gin.H{"role": "DRIVER"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/admin/users/%d/roles", userID), admin, gin.H{"role": "DRIVER"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/admin/users/%d/roles", userID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["roles"], 2)

	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d/roles?role=DRIVER", userID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d/roles?role=DRIVER", userID), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
