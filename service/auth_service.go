// Package service holds the business operations behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/auth"
	"delivery-marketplace/models"
	"delivery-marketplace/repository"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput is what a new account supplies. Role may be empty, CUSTOMER or DRIVER.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     string
}

// Session is a freshly issued credential.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService handles accounts and sessions.
type AuthService struct {
	store   *repository.Store
	tokens  *auth.TokenService
	revoked auth.Revocations
	log     *logrus.Logger
}

func NewAuthService(store *repository.Store, tokens *auth.TokenService, revoked auth.Revocations, log *logrus.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, revoked: revoked, log: log}
}

// Register creates the account with a CUSTOMER grant (plus DRIVER when asked for) and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	extra, err := registrationRole(in.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Users.FindByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.FromStore(err, "user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("hash password", err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: string(hash),
		Phone:        in.Phone,
	}
	err = s.store.WithTransaction(ctx, func(tx *repository.Store) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			if apperrors.IsDuplicateKey(err) {
				return apperrors.Conflict("email already registered")
			}
			return err
		}
		if _, err := tx.Roles.Grant(ctx, user.ID, models.RoleCustomer, nil); err != nil {
			return err
		}
		if extra != "" {
			if _, err := tx.Roles.Grant(ctx, user.ID, extra, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "user")
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")
	return s.issue(ctx, user)
}

func registrationRole(requested string) (models.Role, error) {
	if strings.TrimSpace(requested) == "" {
		return "", nil
	}
	role, err := models.ParseRole(requested)
	if err != nil {
		return "", apperrors.Validation("invalid role", map[string]string{"role": "must be CUSTOMER or DRIVER"})
	}
	switch role {
	case models.RoleCustomer:
		return "", nil
	case models.RoleDriver:
		return models.RoleDriver, nil
	}
	return "", apperrors.Validation("invalid role", map[string]string{"role": "must be CUSTOMER or DRIVER"})
}

// Login checks the password. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalidCredentials()
		}
		return nil, apperrors.FromStore(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}
	return s.issue(ctx, user)
}

func invalidCredentials() error {
	e := apperrors.Unauthenticated()
	e.Message = "invalid email or password"
	return e
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	grants, err := s.store.Roles.GetRoles(ctx, user.ID)
	if err != nil {
		return nil, apperrors.FromStore(err, "roles")
	}
	user.Roles = grants

	token, claims, err := s.tokens.GenerateToken(user, models.RoleNames(grants))
	if err != nil {
		return nil, apperrors.Internal("sign token", err)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Logout revokes the caller's token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, ident auth.Identity) error {
	if s.revoked == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, ident.TokenID, time.Until(ident.ExpiresAt)); err != nil {
		s.log.WithError(err).WithField("user_id", ident.UserID).Warn("token revocation failed")
	}
	return nil
}

// Profile returns the caller's account with its current grants.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.FromStore(err, "user")
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet,
// and grants ADMIN when the account exists without it.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	user, err := s.store.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user = &models.User{Name: "Administrator", Email: email, PasswordHash: string(hash)}
		if err := s.store.Users.Create(ctx, user); err != nil {
			return err
		}
		s.log.WithField("email", user.Email).Info("default admin user created")
	case err != nil:
		return err
	}

	grants, err := s.store.Roles.GetRoles(ctx, user.ID)
	if err != nil {
		return err
	}
	if models.HasRole(grants, models.RoleAdmin, nil) {
		return nil
	}
	_, err = s.store.Roles.Grant(ctx, user.ID, models.RoleAdmin, nil)
	return err
}
