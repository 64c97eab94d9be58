package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"delguur.mn/app/internal/shared/apperr"
)

const HeaderAPIKey = "X-Api-Key"

// RequireKey guards machine endpoints (SMS gateway webhook, operator
// tooling) with a shared API key. Only the bcrypt hash of the key is
// configured on the server side.
func RequireKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderAPIKey)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			Fail(c, apperr.UnauthorizedErr("Missing or invalid API key."))
			return
		}
		c.Next()
	}
}
