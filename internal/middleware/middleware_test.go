package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := authEngine(RequireAuth(testSecret))
	token, err := GenerateToken("u1", "a@b.so", testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := GenerateToken("u1", "a@b.so", "other-secret", time.Hour)

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
		body   string
	}{
		{"bearer", "Bearer " + token, "", http.StatusOK, "u1"},
		{"cookie", "", token, http.StatusOK, "u1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"forged", "Bearer " + forged, "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def", "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestOptionalAuthAnonymous(t *testing.T) {
	r := authEngine(OptionalAuth(testSecret))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("anonymous = %d %q", w.Code, w.Body.String())
	}
}

func TestSlidingRefresh(t *testing.T) {
	r := authEngine(RequireAuth(testSecret))
	issued := time.Now().Add(-2 * time.Hour)
	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(3 * time.Hour)),
		},
	}
	stale, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+stale)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), TokenCookie+"=") {
		t.Error("token past half its lifetime not refreshed")
	}

	fresh, _ := GenerateToken("u1", "", testSecret, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+fresh)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Set-Cookie") != "" {
		t.Error("fresh token refreshed")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	// other clients have their own bucket
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second client = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(Security(), CORS("https://gunvor.tv/"))
	r.GET("/api/home", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/home", nil)
	req.Header.Set("Origin", "https://gunvor.tv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://gunvor.tv" {
		t.Errorf("allowed origin not echoed")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/home", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/home", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d", w.Code)
	}
}
