package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevocations map[string]bool

func (f fakeRevocations) Revoke(_ context.Context, id string, _ time.Duration) error {
	f[id] = true
	return nil
}

func (f fakeRevocations) IsRevoked(_ context.Context, id string) bool { return f[id] }

func testUser() *models.User {
	return &models.User{ID: 42, Email: "ana@example.com", Name: "Ana"}
}

func TestGenerateAndAuthenticate(t *testing.T) {
	tokens := NewTokenService([]byte("secret"), time.Hour)
	token, claims, err := tokens.GenerateToken(testUser(), []models.Role{models.RoleCustomer})
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	a := NewAuthenticator(tokens, fakeRevocations{})
	ident, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), ident.UserID)
	assert.Equal(t, "ana@example.com", ident.Email)
	assert.Equal(t, "Ana", ident.Name)
	assert.Equal(t, []models.Role{models.RoleCustomer}, ident.Roles)
	assert.False(t, ident.IssuedAt.IsZero())
	assert.Equal(t, claims.ID, ident.TokenID)
}

func TestAuthenticateRejects(t *testing.T) {
	tokens := NewTokenService([]byte("secret"), time.Hour)
	valid, claims, err := tokens.GenerateToken(testUser(), nil)
	require.NoError(t, err)

	other := NewTokenService([]byte("other-secret"), time.Hour)
	forged, _, err := other.GenerateToken(testUser(), nil)
	require.NoError(t, err)

	expiredSvc := NewTokenService([]byte("secret"), time.Hour)
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := expiredSvc.GenerateToken(testUser(), nil)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"id": 42, "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	revoked := fakeRevocations{claims.ID: true}

	tests := []struct {
		name       string
		credential string
		revoked    Revocations
	}{
		{"empty", "", nil},
		{"malformed", "not-a-token", nil},
		{"wrong secret", forged, nil},
		{"expired", expired, nil},
		{"alg none", unsigned, nil},
		{"revoked", valid, revoked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tokens, tt.revoked)
			_, err := a.Authenticate(context.Background(), tt.credential)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})
	}
}

func TestExtractCredential(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ExtractCredential(req))

	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", ExtractCredential(req))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", ExtractCredential(req))

	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "from-cookie", ExtractCredential(req))
}

func TestTokenStoreWithoutRedis(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Revoke(ctx, "jti", time.Minute))
	assert.False(t, store.IsRevoked(ctx, "jti"))
}
