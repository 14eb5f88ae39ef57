package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/resume-review/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func newTestJWTService(issuer string) *JWTService {
	return NewJWTService(&config.JWTConfig{
		Secret:   testSecret,
		Issuer:   issuer,
		TokenTTL: 24 * time.Hour,
		Leeway:   30 * time.Second,
	})
}

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := newTestJWTService("resume-review")

	token, err := service.GenerateToken("owner-1")
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.GetOwnerID())
	assert.Equal(t, "resume-review", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	other, err := service.GenerateToken("owner-1")
	require.NoError(t, err)
	assert.NotEqual(t, token, other, "token ids make every token unique")

	_, err = service.GenerateToken(" ")
	assert.Error(t, err)
}

func TestJWTService_SubjectFallback(t *testing.T) {
	service := newTestJWTService("")
	now := time.Now()
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "owner-from-sub",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	})

	claims, err := service.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "owner-from-sub", claims.GetOwnerID())
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	now := time.Now()
	valid := func() *Claims {
		return &Claims{
			OwnerID: "owner-1",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "resume-review",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "empty",
			token:   func(*testing.T) string { return "" },
			wantErr: "empty",
		},
		{
			name:    "malformed",
			token:   func(*testing.T) string { return "not-a-jwt" },
			wantErr: "malformed",
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-123"), valid())
			},
			wantErr: "signature",
		},
		{
			name: "expired beyond leeway",
			token: func(t *testing.T) string {
				c := valid()
				c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: "expired",
		},
		{
			name: "no expiry",
			token: func(t *testing.T) string {
				c := valid()
				c.ExpiresAt = nil
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: "failed to parse",
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := valid()
				c.Issuer = "someone-else"
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: "failed to parse",
		},
		{
			name: "other algorithm",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), valid())
			},
			wantErr: "signature",
		},
		{
			name: "no owner",
			token: func(t *testing.T) string {
				c := valid()
				c.OwnerID = ""
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantErr: "no owner",
		},
	}

	service := newTestJWTService("resume-review")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token(t))
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJWTService_LeewayAcceptsRecentExpiry(t *testing.T) {
	service := newTestJWTService("")
	token := signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), &Claims{
		OwnerID:          "owner-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second))},
	})

	claims, err := service.ValidateToken(token)

	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.OwnerID)
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := newTestJWTService("")
	token, err := service.GenerateToken("owner-1")
	require.NoError(t, err)

	claims, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.GetOwnerID())

	_, err = service.AsTokenValidator().ValidateToken("garbage")
	assert.Error(t, err)
}
