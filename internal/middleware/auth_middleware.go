package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// ContextSubjectKey - ключ контекста Gin с subject'ом аутентифицированного
// пользователя
const ContextSubjectKey = "subject"

// AuthMiddleware проверяет bearer-токены внешнего сервиса идентификации.
// Учетные записи и выпуск токенов живут снаружи; здесь токен только
// верифицируется, а subject кладется в контекст запроса.
type AuthMiddleware struct {
	secret        []byte
	adminSubjects map[string]struct{}
}

// NewAuthMiddleware создает middleware аутентификации
func NewAuthMiddleware(jwtSecret string, adminSubjects []string) *AuthMiddleware {
	admins := make(map[string]struct{}, len(adminSubjects))
	for _, subject := range adminSubjects {
		admins[subject] = struct{}{}
	}
	return &AuthMiddleware{
		secret:        []byte(jwtSecret),
		adminSubjects: admins,
	}
}

// RequireAuth проверяет bearer-токен и извлекает subject пользователя
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			c.Abort()
			return
		}

		subject, err := m.parseSubject(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			c.Abort()
			return
		}

		c.Set(ContextSubjectKey, subject)
		c.Next()
	}
}

// RequireAdmin пускает только subject'ы из списка администраторов.
// Навешивается после RequireAuth.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(ContextSubjectKey)
		if _, ok := m.adminSubjects[subject]; !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// parseSubject верифицирует подпись токена и возвращает claim sub
func (m *AuthMiddleware) parseSubject(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return claims.Subject, nil
}
