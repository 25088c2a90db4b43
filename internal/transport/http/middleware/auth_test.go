package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricore/internal/config"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTIssuer: "metricore",
		JWTSecret: "test-secret-at-least-32-bytes-long",
	}
}

func signToken(t *testing.T, cfg *config.AuthConfig, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	return signed
}

func newTestContext(authHeader string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest("POST", "/api/v1/metrics/entries", nil)
	if authHeader != "" {
		ctx.Request.Header.Set("Authorization", authHeader)
	}
	return ctx, recorder
}

func TestBearerAuth_ValidTokenSetsSubjectAndCallsNext(t *testing.T) {
	cfg := testAuthConfig()
	token := signToken(t, cfg, jwt.MapClaims{
		"sub": "user-123",
		"iss": cfg.JWTIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	ctx, recorder := newTestContext("Bearer " + token)

	called := false
	handler := BearerAuth(cfg)
	handler(ctx)
	if !ctx.IsAborted() {
		called = true
	}

	assert.True(t, called)
	assert.Equal(t, "user-123", ctx.GetString(SubjectContextKey))
	assert.NotEqual(t, 401, recorder.Code)
}

func TestBearerAuth_MissingHeaderIsUnauthorized(t *testing.T) {
	cfg := testAuthConfig()
	ctx, recorder := newTestContext("")

	BearerAuth(cfg)(ctx)

	assert.True(t, ctx.IsAborted())
	assert.Equal(t, 401, recorder.Code)
}

func TestBearerAuth_ExpiredTokenIsUnauthorized(t *testing.T) {
	cfg := testAuthConfig()
	token := signToken(t, cfg, jwt.MapClaims{
		"sub": "user-123",
		"iss": cfg.JWTIssuer,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	ctx, recorder := newTestContext("Bearer " + token)

	BearerAuth(cfg)(ctx)

	assert.True(t, ctx.IsAborted())
	assert.Equal(t, 401, recorder.Code)
}

func TestBearerAuth_WrongIssuerIsUnauthorized(t *testing.T) {
	cfg := testAuthConfig()
	token := signToken(t, cfg, jwt.MapClaims{
		"sub": "user-123",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	ctx, recorder := newTestContext("Bearer " + token)

	BearerAuth(cfg)(ctx)

	assert.True(t, ctx.IsAborted())
	assert.Equal(t, 401, recorder.Code)
}
