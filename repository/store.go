package repository

import (
	"context"
	"time"

	"delivery-marketplace/cache"

	"gorm.io/gorm"
)

// Store groups the repositories over one connection (or one transaction).
type Store struct {
	db    *gorm.DB
	cache *cache.Client
	ttl   time.Duration

	Users       UserRepository
	Roles       RoleStore
	Restaurants RestaurantRepository
	Orders      OrderRepository
	Carts       CartRepository
}

// NewStore builds every repository over db. roleTTL bounds how long cached role sets live.
func NewStore(db *gorm.DB, c *cache.Client, roleTTL time.Duration) *Store {
	return bindStore(db, c, roleTTL, nil)
}

func bindStore(db *gorm.DB, c *cache.Client, roleTTL time.Duration, pending *invalidations) *Store {
	return &Store{
		db:          db,
		cache:       c,
		ttl:         roleTTL,
		Users:       NewUserRepository(db),
		Roles:       &roleStore{db: db, cache: c, ttl: roleTTL, pending: pending},
		Restaurants: NewRestaurantRepository(db),
		Orders:      NewOrderRepository(db),
		Carts:       NewCartRepository(db),
	}
}

// WithTransaction runs fn against a Store bound to a single database transaction.
// Returning an error from fn rolls everything back. Cached role sets touched inside
// fn are dropped only once the transaction has committed.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Store) error) error {
	pending := &invalidations{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bindStore(tx, s.cache, s.ttl, pending))
	})
	if err != nil {
		return err
	}
	// In a nested transaction this hands the ids to the enclosing one.
	s.Roles.Invalidate(context.WithoutCancel(ctx), pending.drain()...)
	return nil
}
