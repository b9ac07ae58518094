package middleware

import (
	"net/http"
	"strings"

	"github.com/ark-network/giveaway/internal/core/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	callerKey    = "caller"
	bearerSchema = "Bearer "
)

// Auth authenticates requests with an HS256 bearer token whose subject is
// the caller address. Authorization is left to the application services.
func Auth(secret []byte) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerSchema) {
			abort(c, "missing bearer token")
			return
		}

		token, err := parser.Parse(strings.TrimPrefix(header, bearerSchema), keyFunc)
		if err != nil {
			log.WithError(err).Debug("rejected bearer token")
			abort(c, "invalid bearer token")
			return
		}
		subject, err := token.Claims.GetSubject()
		if err != nil {
			abort(c, "invalid token subject")
			return
		}
		caller, err := domain.NormalizeAddress(subject)
		if err != nil {
			abort(c, "invalid token subject")
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

// Caller returns the address authenticated by Auth.
func Caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  "UNAUTHENTICATED",
	})
}
