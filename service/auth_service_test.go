package service

import (
	"context"
	"testing"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		wantRoles []models.Role
		wantErr   error
	}{
		{"default customer", "", []models.Role{models.RoleCustomer}, nil},
		{"explicit customer", "customer", []models.Role{models.RoleCustomer}, nil},
		{"driver", "DRIVER", []models.Role{models.RoleCustomer, models.RoleDriver}, nil},
		{"admin not self-service", "ADMIN", nil, apperrors.ErrValidation},
		{"unknown role", "CHEF", nil, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			session, err := f.auth.Register(context.Background(), RegisterInput{
				Name: "Ann", Email: "Ann@Example.com", Password: "secret1", Role: tt.role,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, session.Token)
			assert.Equal(t, "ann@example.com", session.User.Email)
			assert.Equal(t, tt.wantRoles, models.RoleNames(session.User.Roles))

			claims, err := f.tokens.ValidateToken(session.Token)
			require.NoError(t, err)
			assert.Equal(t, session.User.ID, claims.UserID)
			assert.Equal(t, tt.wantRoles, claims.Roles)
		})
	}
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	in := RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"}
	_, err := f.auth.Register(context.Background(), in)
	require.NoError(t, err)

	in.Email = " ANN@example.com"
	_, err = f.auth.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)

	session, err := f.auth.Login(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	_, err = f.auth.Login(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	_, errUnknown := f.auth.Login(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, errUnknown, apperrors.ErrUnauthenticated)
	assert.Equal(t, err.Error(), errUnknown.Error())
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "root@example.com", "rootpass"))
	require.NoError(t, f.auth.EnsureAdmin(ctx, "root@example.com", "rootpass"))

	user, err := f.store.Users.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	grants, err := f.store.Roles.GetRoles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, models.RoleAdmin, grants[0].Role)

	session, err := f.auth.Login(ctx, "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.Contains(t, models.RoleNames(session.User.Roles), models.RoleAdmin)

	require.NoError(t, f.auth.EnsureAdmin(ctx, "", ""))
}

func TestRoleService(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, "admin@example.com", models.RoleAdmin)
	target := f.user(t, "t@example.com", models.RoleCustomer)
	owner := f.user(t, "owner@example.com")
	r, _ := f.restaurant(t, owner)
	ctx := context.Background()

	_, err := f.roles.Grant(ctx, admin.UserID, target.UserID, "restaurant_employee", &r.ID)
	require.NoError(t, err)
	_, err = f.roles.Grant(ctx, admin.UserID, target.UserID, "DRIVER", nil)
	require.NoError(t, err)
	_, err = f.roles.Grant(ctx, admin.UserID, target.UserID, "DRIVER", uintPtr(r.ID))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = f.roles.Grant(ctx, admin.UserID, target.UserID, "RESTAURANT_ADMIN", uintPtr(9999))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.roles.Grant(ctx, admin.UserID, 9999, "DRIVER", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	roles, err := f.roles.ListRoles(ctx, target.UserID)
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	drivers, err := f.roles.ListUsers(ctx, "driver")
	require.NoError(t, err)
	require.Len(t, drivers, 1)
	assert.Equal(t, target.UserID, drivers[0].ID)

	require.NoError(t, f.roles.Revoke(ctx, admin.UserID, target.UserID, "DRIVER", nil))
	assert.ErrorIs(t, f.roles.Revoke(ctx, admin.UserID, target.UserID, "DRIVER", nil), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.roles.Revoke(ctx, admin.UserID, admin.UserID, "ADMIN", nil), apperrors.ErrValidation)
}
