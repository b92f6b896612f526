package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrtmm/manila-ui/internal/auth"
)

// TokenCookieName - имя cookie с токеном сессии дашборда.
const TokenCookieName = "token"

// Claims - данные пользователя в JWT токене дашборда.
// ServiceToken передается сервису файловых ресурсов, при его отсутствии передается сам JWT.
type Claims struct {
	UserID       string   `json:"user_id"`
	ProjectID    string   `json:"project_id"`
	Roles        []string `json:"roles"`
	ServiceToken string   `json:"service_token,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator проверяет JWT токен аутентификации из заголовка Authorization или cookie.
func Authenticator(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				log.Printf("[AuthMiddleware] %v", err)
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			// Парсим и валидируем токен
			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				// Убеждаемся, что метод подписи - HS256
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка парсинга/валидации токена: %v", err)
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}
			if !token.Valid || claims.UserID == "" || claims.ProjectID == "" {
				log.Println("[AuthMiddleware] Предоставлен невалидный токен")
				http.Error(w, "Невалидный токен", http.StatusUnauthorized)
				return
			}

			serviceToken := claims.ServiceToken
			if serviceToken == "" {
				serviceToken = tokenString
			}
			ctx := auth.WithCredentials(r.Context(), &auth.Credentials{
				UserID:    claims.UserID,
				ProjectID: claims.ProjectID,
				Roles:     claims.Roles,
				Token:     serviceToken,
			})

			log.Printf("[AuthMiddleware] Пользователь %s (проект %s) аутентифицирован", claims.UserID, claims.ProjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken достает токен из заголовка "Authorization: Bearer <token>" или из cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil || cookie.Value == "" {
			return "", errAuthRequired
		}
		return cookie.Value, nil
	}

	// Проверяем формат "Bearer token"
	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
		return "", errBadTokenFormat
	}
	return headerParts[1], nil
}

// Ошибки извлечения токена.
var (
	errAuthRequired   = errors.New("требуется аутентификация")
	errBadTokenFormat = errors.New("неверный формат токена")
)
