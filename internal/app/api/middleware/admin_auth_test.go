package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func adminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/ping", AdminAuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("admin_subject"))
	})
	return r
}

func adminToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func getAdmin(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuthMiddleware_ValidToken(t *testing.T) {
	r := adminRouter("test-secret")
	w := getAdmin(r, "Bearer "+adminToken(t, "test-secret", "ops@example.com"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ops@example.com", w.Body.String())
}

func TestAdminAuthMiddleware_Rejections(t *testing.T) {
	r := adminRouter("test-secret")

	tests := []struct {
		name          string
		authorization string
		wantCode      int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not a bearer token", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + adminToken(t, "other-secret", "ops"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getAdmin(r, tt.authorization)
			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAdminAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	r := adminRouter("")
	w := getAdmin(r, "Bearer "+adminToken(t, "any", "ops"))
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAuthMiddleware_ExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	r := adminRouter("test-secret")
	w := getAdmin(r, "Bearer "+signed)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
