package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"
)

// TokenCookie is the same-site cookie that may carry the credential.
const TokenCookie = "token"

// Identity is the authenticated caller.
type Identity struct {
	UserID    uint          `json:"id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Roles     []models.Role `json:"roles"`
	TokenID   string        `json:"-"`
	IssuedAt  time.Time     `json:"iat"`
	ExpiresAt time.Time     `json:"exp"`
	Public    bool          `json:"public,omitempty"`
}

// PublicIdentity stands in for callers of endpoints that need no authentication.
func PublicIdentity() Identity {
	return Identity{Public: true, Roles: []models.Role{models.RolePublic}}
}

// Authenticator resolves a credential to an Identity. It never mutates state.
type Authenticator struct {
	tokens  *TokenService
	revoked Revocations
}

func NewAuthenticator(tokens *TokenService, revoked Revocations) *Authenticator {
	return &Authenticator{tokens: tokens, revoked: revoked}
}

// Authenticate returns apperrors.Unauthenticated for missing, malformed, expired,
// badly signed or revoked tokens.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (Identity, error) {
	claims, err := a.tokens.ValidateToken(credential)
	if err != nil {
		return Identity{}, apperrors.Unauthenticated()
	}
	if a.revoked != nil && a.revoked.IsRevoked(ctx, claims.ID) {
		return Identity{}, apperrors.Unauthenticated()
	}

	ident := Identity{
		UserID:  claims.UserID,
		Email:   claims.Email,
		Name:    claims.Name,
		Roles:   claims.Roles,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		ident.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

// ExtractCredential reads the bearer header first and falls back to the token cookie.
func ExtractCredential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
