package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"bookie/settlement-engine/infrastructure"
)

// principalKey is the gin context key holding the authenticated principal
const principalKey = "principal"

// AdminClaims are the JWT claims accepted on admin endpoints
type AdminClaims struct {
	Principal string `json:"principal"`
	Admin     bool   `json:"admin"`
	jwt.RegisteredClaims
}

// GenerateAdminToken issues a signed admin token for the given principal
func GenerateAdminToken(secret, principal string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &AdminClaims{
		Principal: principal,
		Admin:     true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// AuthMiddleware validates the bearer token and requires the admin claim.
// The authenticated principal is stored on the context for downstream
// handlers and the rate limiter.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Websocket clients cannot set headers from a browser
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
				c.Abort()
				return
			}
		}

		claims := &AdminClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		if !claims.Admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Set(principalKey, claims.Principal)
		c.Next()
	}
}

// RateLimitMiddleware enforces the per-principal request limit. It runs after
// AuthMiddleware and passes through unauthenticated requests untouched.
func RateLimitMiddleware(limiter *infrastructure.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := c.Get(principalKey)
		if !exists {
			c.Next()
			return
		}

		allowed, err := limiter.Allow(c.Request.Context(), principal.(string))
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
