package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity the auth service signed into the token.
type Claims struct {
	UserID        string   `json:"user_id"`
	CompanyID     string   `json:"company_id"`
	DepartmentIDs []string `json:"department_ids"`
	jwt.RegisteredClaims
}

// Secret returns the HMAC key tokens are verified with.
func Secret() []byte {
	if secret, ok := os.LookupEnv("JWT_SECRET"); ok {
		return []byte(secret)
	}
	return []byte("dev-secret")
}

// ValidateToken parses and verifies a bearer token.
func ValidateToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return Secret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware validates the Authorization header and stashes the caller's
// identity in the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("companyID", claims.CompanyID)
		c.Set("departmentIDs", claims.DepartmentIDs)
		c.Next()
	}
}
