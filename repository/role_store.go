package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/cache"
	"delivery-marketplace/models"

	"gorm.io/gorm"
)

const roleCacheKeyPrefix = "roles:"

// RoleStore persists (user, role, restaurant?) grants.
type RoleStore interface {
	GetRoles(ctx context.Context, userID uint) ([]models.UserRole, error)
	Grant(ctx context.Context, userID uint, role models.Role, restaurantID *uint) (*models.UserRole, error)
	Revoke(ctx context.Context, userID uint, role models.Role, restaurantID *uint) error
	ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.UserRole, error)
	DeleteByRestaurant(ctx context.Context, restaurantID uint) ([]uint, error)
	Invalidate(ctx context.Context, userIDs ...uint)
}

// roleStore reads through a Redis cache of role sets; a nil cache disables it.
type roleStore struct {
	db    *gorm.DB
	cache *cache.Client
	ttl   time.Duration

	// pending is set inside a transaction: invalidations wait for the commit.
	pending *invalidations
}

// invalidations collects user ids whose cached role sets must go once a transaction commits.
type invalidations struct {
	mu  sync.Mutex
	ids map[uint]struct{}
}

func (p *invalidations) add(ids ...uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ids == nil {
		p.ids = make(map[uint]struct{}, len(ids))
	}
	for _, id := range ids {
		p.ids[id] = struct{}{}
	}
}

func (p *invalidations) drain() []uint {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uint, 0, len(p.ids))
	for id := range p.ids {
		out = append(out, id)
	}
	p.ids = nil
	return out
}

func roleCacheKey(userID uint) string {
	return fmt.Sprintf("%s%d", roleCacheKeyPrefix, userID)
}

// GetRoles returns the user's grants; an empty slice when there are none.
// Inside a transaction the cache is bypassed so uncommitted rows are never cached.
func (r *roleStore) GetRoles(ctx context.Context, userID uint) ([]models.UserRole, error) {
	useCache := r.pending == nil
	if useCache {
		if data, _ := r.cache.Get(ctx, roleCacheKey(userID)); data != nil {
			var cached []models.UserRole
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	roles := []models.UserRole{}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	if !useCache {
		return roles, nil
	}
	if payload, err := json.Marshal(roles); err == nil {
		_ = r.cache.Set(ctx, roleCacheKey(userID), payload, r.ttl)
	}
	return roles, nil
}

func validateGrant(role models.Role, restaurantID *uint) error {
	if _, err := models.ParseRole(string(role)); err != nil {
		return apperrors.Validation("unknown role", map[string]string{"role": err.Error()})
	}
	if !role.Storable() {
		return apperrors.Validation("role cannot be granted", map[string]string{"role": string(role) + " is not storable"})
	}
	if role.IsGlobal() && restaurantID != nil {
		return apperrors.Validation("role cannot be scoped", map[string]string{"restaurant_id": string(role) + " is a global role"})
	}
	return nil
}

func scoped(q *gorm.DB, restaurantID *uint) *gorm.DB {
	if restaurantID == nil {
		return q.Where("restaurant_id IS NULL")
	}
	return q.Where("restaurant_id = ?", *restaurantID)
}

// Grant adds a grant; duplicates (including unscoped ones) are a Conflict.
func (r *roleStore) Grant(ctx context.Context, userID uint, role models.Role, restaurantID *uint) (*models.UserRole, error) {
	if err := validateGrant(role, restaurantID); err != nil {
		return nil, err
	}

	grant := &models.UserRole{UserID: userID, Role: role, RestaurantID: restaurantID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		q := tx.Model(&models.UserRole{}).Where("user_id = ? AND role = ?", userID, role)
		if err := scoped(q, restaurantID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.Conflict("role already granted")
		}
		return tx.Create(grant).Error
	})
	if err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, apperrors.Conflict("role already granted")
		}
		return nil, err
	}
	r.Invalidate(ctx, userID)
	return grant, nil
}

// Revoke removes exactly one grant.
func (r *roleStore) Revoke(ctx context.Context, userID uint, role models.Role, restaurantID *uint) error {
	if err := validateGrant(role, restaurantID); err != nil {
		return err
	}
	q := r.db.WithContext(ctx).Where("user_id = ? AND role = ?", userID, role)
	res := scoped(q, restaurantID).Delete(&models.UserRole{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("role grant")
	}
	r.Invalidate(ctx, userID)
	return nil
}

func (r *roleStore) ListByRestaurant(ctx context.Context, restaurantID uint) ([]models.UserRole, error) {
	var roles []models.UserRole
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("id asc").Find(&roles).Error
	return roles, err
}

// DeleteByRestaurant drops every grant scoped to the restaurant and returns the affected users.
func (r *roleStore) DeleteByRestaurant(ctx context.Context, restaurantID uint) ([]uint, error) {
	var userIDs []uint
	if err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("restaurant_id = ?", restaurantID).
		Distinct().Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Delete(&models.UserRole{}).Error; err != nil {
		return nil, err
	}
	r.Invalidate(ctx, userIDs...)
	return userIDs, nil
}

// Invalidate drops cached role sets, or defers that to the commit inside a transaction.
func (r *roleStore) Invalidate(ctx context.Context, userIDs ...uint) {
	if len(userIDs) == 0 {
		return
	}
	if r.pending != nil {
		r.pending.add(userIDs...)
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, roleCacheKey(id))
	}
	_ = r.cache.Delete(ctx, keys...)
}
