package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"imposter-game-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newAuthRouter(auth *services.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/sessions/:id/host", HostAuth(auth), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).Role)
	})
	r.GET("/sessions/:id/player", PlayerAuth(auth), func(c *gin.Context) {
		c.String(http.StatusOK, Claims(c).PlayerID)
	})
	return r
}

func TestSessionAuth(t *testing.T) {
	auth := services.NewAuthService("secret", time.Hour)
	r := newAuthRouter(auth)

	host, err := auth.HostToken("s1")
	if err != nil {
		t.Fatalf("HostToken: %v", err)
	}
	player, err := auth.PlayerToken("s1", "p1", "u1")
	if err != nil {
		t.Fatalf("PlayerToken: %v", err)
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, services.Claims{
		SessionID: "s1",
		Role:      services.TokenRoleHost,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	foreign, err := services.NewAuthService("other-secret", time.Hour).HostToken("s1")
	if err != nil {
		t.Fatalf("HostToken: %v", err)
	}

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"host ok", "/sessions/s1/host", "Bearer " + host, http.StatusOK, services.TokenRoleHost},
		{"player ok", "/sessions/s1/player", "Bearer " + player, http.StatusOK, "p1"},
		{"missing header", "/sessions/s1/host", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/sessions/s1/host", "Basic " + host, http.StatusUnauthorized, ""},
		{"expired", "/sessions/s1/host", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"foreign signature", "/sessions/s1/host", "Bearer " + foreign, http.StatusUnauthorized, ""},
		{"player on host route", "/sessions/s1/host", "Bearer " + player, http.StatusForbidden, ""},
		{"host on player route", "/sessions/s1/player", "Bearer " + host, http.StatusForbidden, ""},
		{"other session", "/sessions/s2/host", "Bearer " + host, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Fatalf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}
