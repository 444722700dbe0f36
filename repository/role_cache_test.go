package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery-marketplace/cache"
	"delivery-marketplace/models"
	"delivery-marketplace/repository/repotest"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return NewStore(repotest.NewDB(t), c, time.Minute), mr
}

func TestRoleCacheReadThrough(t *testing.T) {
	s, mr := newCachedStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "cached@example.com")
	key := roleCacheKey(u.ID)

	_, err := s.Roles.Grant(ctx, u.ID, models.RoleDriver, nil)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	roles, err := s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	require.NoError(t, s.Roles.Revoke(ctx, u.ID, models.RoleDriver, nil))
	assert.False(t, mr.Exists(key))

	roles, err = s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestRoleCacheDroppedAfterCommit(t *testing.T) {
	s, mr := newCachedStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "emp@example.com")
	key := roleCacheKey(u.ID)

	_, err := s.Roles.Grant(ctx, u.ID, models.RoleRestaurantEmployee, uintPtr(1))
	require.NoError(t, err)
	_, err = s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	stale, err := mr.Get(key)
	require.NoError(t, err)

	err = s.WithTransaction(ctx, func(tx *Store) error {
		if err := tx.Roles.Revoke(ctx, u.ID, models.RoleRestaurantEmployee, uintPtr(1)); err != nil {
			return err
		}
		assert.True(t, mr.Exists(key), "invalidation waits for the commit")
		// A concurrent reader still sees the committed grant and writes it back.
		return mr.Set(key, stale)
	})
	require.NoError(t, err)

	assert.False(t, mr.Exists(key), "stale role set must not survive the commit")
	roles, err := s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestRoleCacheUntouchedInsideTransaction(t *testing.T) {
	s, mr := newCachedStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "tx@example.com")
	key := roleCacheKey(u.ID)

	_, err := s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(key))
	cached, err := mr.Get(key)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTransaction(ctx, func(tx *Store) error {
		if _, err := tx.Roles.Grant(ctx, u.ID, models.RoleDriver, nil); err != nil {
			return err
		}
		roles, err := tx.Roles.GetRoles(ctx, u.ID)
		if err != nil {
			return err
		}
		assert.Len(t, roles, 1, "the transaction sees its own grant")

		still, _ := mr.Get(key)
		assert.Equal(t, cached, still, "uncommitted grants never reach the cache")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	roles, err := s.Roles.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
