package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"delivery-marketplace/auth"
	"delivery-marketplace/events"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"
	"delivery-marketplace/repository/repotest"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderStatusEvent
}

func (p *recordingPublisher) PublishOrderStatus(_ context.Context, e events.OrderStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) last() events.OrderStatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type fixture struct {
	store       *repository.Store
	tokens      *auth.TokenService
	auth        *AuthService
	restaurants *RestaurantService
	carts       *CartService
	orders      *OrderService
	roles       *RoleService
	published   *recordingPublisher
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := quietLogger()
	store := repository.NewStore(repotest.NewDB(t), nil, time.Minute)
	tokens := auth.NewTokenService([]byte("service-test-secret"), time.Hour)
	pub := &recordingPublisher{}
	return &fixture{
		store:       store,
		tokens:      tokens,
		auth:        NewAuthService(store, tokens, auth.NewTokenStore(nil), log),
		restaurants: NewRestaurantService(store, log),
		carts:       NewCartService(store, log),
		orders:      NewOrderService(store, pub, decimal.RequireFromString("2.50"), log),
		roles:       NewRoleService(store, log),
		published:   pub,
	}
}

// user creates an account holding the given unscoped roles.
func (f *fixture) user(t *testing.T, email string, roles ...models.Role) auth.Identity {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Name: email, Email: email, PasswordHash: "x"}
	require.NoError(t, f.store.Users.Create(ctx, u))
	for _, r := range roles {
		_, err := f.store.Roles.Grant(ctx, u.ID, r, nil)
		require.NoError(t, err)
	}
	return auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}

// restaurant opens a restaurant owned by owner with three available items priced 5, 7.50 and 12.
func (f *fixture) restaurant(t *testing.T, owner auth.Identity) (*models.Restaurant, []models.MenuItem) {
	t.Helper()
	ctx := context.Background()
	r, err := f.restaurants.Create(ctx, owner, RestaurantInput{Name: "Noodle Bar", Cuisine: "Asian", Address: "2 Side St"})
	require.NoError(t, err)

	var items []models.MenuItem
	for _, in := range []MenuItemInput{
		{Name: "Ramen", Price: decimal.RequireFromString("12")},
		{Name: "Gyoza", Price: decimal.RequireFromString("7.50")},
		{Name: "Tea", Price: decimal.RequireFromString("5")},
	} {
		item, err := f.restaurants.AddMenuItem(ctx, r.ID, in)
		require.NoError(t, err)
		items = append(items, *item)
	}
	return r, items
}

func (f *fixture) placeOrder(t *testing.T, customer auth.Identity, r *models.Restaurant, items []models.MenuItem) *models.Order {
	t.Helper()
	order, err := f.orders.PlaceOrder(context.Background(), customer, PlaceOrderInput{
		RestaurantID:    r.ID,
		Items:           []OrderLine{{MenuItemID: items[0].ID, Quantity: 2}, {MenuItemID: items[1].ID, Quantity: 1}},
		DeliveryAddress: "1 Main St",
		PaymentMethod:   "cash",
	})
	require.NoError(t, err)
	return order
}

func uintPtr(v uint) *uint { return &v }
