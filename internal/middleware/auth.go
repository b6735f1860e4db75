package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/avtomarket/backend/internal/services"
)

// Тип для ключа контекста.
type contextKey string

// Ключ для хранения личности вызывающего в контексте.
const identityKey contextKey = "identity"

// Authenticator возвращает middleware, проверяющее bearer-токен запроса
// через переданный сервис токенов. При успехе кладет личность вызывающего
// в контекст запроса; иначе отвечает 401 и не передает управление дальше.
func Authenticator(tokens services.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем заголовок Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("[AuthMiddleware] Заголовок Authorization отсутствует")
				writeUnauthorized(w, "Authentication required")
				return
			}

			// Проверяем формат "Bearer token"
			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				log.Printf("[AuthMiddleware] Неверный формат заголовка Authorization: %s", authHeader)
				writeUnauthorized(w, "Invalid authorization header")
				return
			}

			// Проверяем токен через сервис токенов
			identity, err := tokens.Verify(headerParts[1])
			if err != nil {
				log.Printf("[AuthMiddleware] Ошибка проверки токена: %v", err)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			// Добавляем личность вызывающего в контекст запроса
			ctx := context.WithValue(r.Context(), identityKey, identity)

			log.Printf("[AuthMiddleware] Пользователь %d (%s) успешно аутентифицирован",
				identity.UserID, identity.Username)

			// Передаем управление следующему обработчику с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext извлекает личность вызывающего из контекста запроса.
// Возвращает личность и true, если она найдена, иначе nil и false.
func GetIdentityFromContext(ctx context.Context) (*services.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*services.Identity)
	return identity, ok
}

// writeUnauthorized отвечает 401 со структурированным JSON-телом.
func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		log.Printf("[AuthMiddleware] Ошибка кодирования ответа 401: %v", err)
	}
}
