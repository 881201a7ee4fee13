package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/gunvortv/internal/utils"
)

// TokenCookie name of the auth cookie
const TokenCookie = "token"

// Claims JWT claims
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid token
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		refreshIfStale(c, claims, jwtSecret)
		c.Next()
	}
}

// OptionalAuth identifies the user when a valid token is present
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := extractClaims(c, jwtSecret); err == nil {
			c.Set("user_id", claims.UserID)
			c.Set("email", claims.Email)
			refreshIfStale(c, claims, jwtSecret)
		}
		c.Next()
	}
}

// sliding renewal once half of the lifetime is used
func refreshIfStale(c *gin.Context, claims *Claims, jwtSecret string) {
	if !shouldRefresh(claims) {
		return
	}
	expiry := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if token, err := GenerateToken(claims.UserID, claims.Email, jwtSecret, expiry); err == nil {
		SetTokenCookie(c, token, expiry)
	}
}

// SetTokenCookie writes the auth cookie; a zero expiry clears it
func SetTokenCookie(c *gin.Context, token string, expiry time.Duration) {
	maxAge := int(expiry.Seconds())
	if expiry == 0 {
		maxAge = -1
	}
	secure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
	c.SetCookie(TokenCookie, token, maxAge, "/", "", secure, true)
}

// extractClaims reads the token from the cookie or a Bearer header
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string
	if cookie, err := c.Cookie(TokenCookie); err == nil && cookie != "" {
		tokenString = cookie
	} else if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GetUserID current user id, "" when anonymous
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(string)
	}
	return ""
}

// GenerateToken signs an HS256 token for the user
func GenerateToken(userID, email, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// shouldRefresh true once more than half of the token lifetime has elapsed
func shouldRefresh(claims *Claims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}
	total := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	return time.Since(claims.IssuedAt.Time) > total/2
}
