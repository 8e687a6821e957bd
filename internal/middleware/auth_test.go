package middleware

import (
	"testing"
	"time"

	"pipal/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestIssueAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := IssueToken(testSecret, userID, models.RoleSeller, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParseToken_Rejects(t *testing.T) {
	userID := uuid.New()
	valid, err := IssueToken(testSecret, userID, models.RoleBuyer, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, userID, models.RoleBuyer, -time.Minute)
	require.NoError(t, err)

	sign := func(claims jwt.Claims, method jwt.SigningMethod) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	base := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	wrongIssuer := base
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base
	wrongAudience.Audience = jwt.ClaimStrings{"other-client"}
	badSubject := base
	badSubject.Subject = "42"
	noExpiry := base
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "another-secret"},
		{"expired", expired, testSecret},
		{"garbage", "not.a.token", testSecret},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256), testSecret},
		{"wrong audience", sign(wrongAudience, jwt.SigningMethodHS256), testSecret},
		{"non uuid subject", sign(badSubject, jwt.SigningMethodHS256), testSecret},
		{"missing expiry", sign(noExpiry, jwt.SigningMethodHS256), testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer abc.def", "abc.def"},
		{"Basic dXNlcjpwYXNz", ""},
		{"", ""},
		{"Bearer", ""},
	}

	for _, tt := range tests {
		c := app.AcquireCtx(&fasthttp.RequestCtx{})
		c.Request().Header.Set(fiber.HeaderAuthorization, tt.header)
		assert.Equal(t, tt.want, BearerToken(c), "header %q", tt.header)
		app.ReleaseCtx(c)
	}
}
