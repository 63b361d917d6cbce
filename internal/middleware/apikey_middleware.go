package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAPIKey защищает системные эндпоинты (callback планировщика
// дедлайнов) статическим ключом в заголовке x-api-key
func RequireAPIKey(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		provided := []byte(c.GetHeader("x-api-key"))
		if len(expected) == 0 || subtle.ConstantTimeCompare(expected, provided) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
