package service

import (
	"context"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"

	"github.com/sirupsen/logrus"
)

// RoleService is the administrative view of the role store.
type RoleService struct {
	store *repository.Store
	log   *logrus.Logger
}

func NewRoleService(store *repository.Store, log *logrus.Logger) *RoleService {
	return &RoleService{store: store, log: log}
}

// ListUsers returns every account, or holders of role when given.
func (s *RoleService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	var filter models.Role
	if role != "" {
		parsed, err := models.ParseRole(role)
		if err != nil {
			return nil, apperrors.Validation("invalid role filter", map[string]string{"role": err.Error()})
		}
		filter = parsed
	}
	users, err := s.store.Users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	return users, nil
}

func (s *RoleService) ListRoles(ctx context.Context, userID uint) ([]models.UserRole, error) {
	if _, err := s.store.Users.FindByID(ctx, userID); err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	roles, err := s.store.Roles.GetRoles(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err, "roles")
	}
	return roles, nil
}

// Grant gives userID the role, optionally scoped to an existing restaurant.
func (s *RoleService) Grant(ctx context.Context, actorID, userID uint, role string, restaurantID *uint) (*models.UserRole, error) {
	parsed, err := models.ParseRole(role)
	if err != nil {
		return nil, apperrors.Validation("invalid role", map[string]string{"role": err.Error()})
	}
	if _, err := s.store.Users.FindByID(ctx, userID); err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	if restaurantID != nil {
		if _, err := s.store.Restaurants.FindByID(ctx, *restaurantID); err != nil {
			return nil, apperrors.FromStore(err, "restaurant")
		}
	}
	grant, err := s.store.Roles.Grant(ctx, userID, parsed, restaurantID)
	if err != nil {
		return nil, apperrors.FromStore(err, "role grant")
	}
	s.log.WithFields(logrus.Fields{"actor_id": actorID, "user_id": userID, "role": parsed, "restaurant_id": restaurantID}).Info("role granted")
	return grant, nil
}

// Revoke removes one grant. Admins cannot revoke their own ADMIN role.
func (s *RoleService) Revoke(ctx context.Context, actorID, userID uint, role string, restaurantID *uint) error {
	parsed, err := models.ParseRole(role)
	if err != nil {
		return apperrors.Validation("invalid role", map[string]string{"role": err.Error()})
	}
	if parsed == models.RoleAdmin && actorID == userID {
		return apperrors.Validation("cannot revoke own admin role", map[string]string{"role": "is your own ADMIN grant"})
	}
	if err := s.store.Roles.Revoke(ctx, userID, parsed, restaurantID); err != nil {
		return apperrors.FromStore(err, "role grant")
	}
	s.log.WithFields(logrus.Fields{"actor_id": actorID, "user_id": userID, "role": parsed, "restaurant_id": restaurantID}).Info("role revoked")
	return nil
}
