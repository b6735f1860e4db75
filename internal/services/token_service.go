package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avtomarket/backend/internal/models"
)

// Издатель токенов, попадает в claim iss.
const tokenIssuer = "avtomarket-server"

// Identity описывает личность вызывающего, восстановленную из токена.
type Identity struct {
	UserID   int64
	Username string
}

// TokenService определяет интерфейс для выпуска и проверки токенов доступа.
type TokenService interface {
	Issue(user *models.User) (string, error)
	Verify(tokenString string) (*Identity, error)
}

// Структура для пользовательских данных в JWT (claims).
type tokenClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Убедимся, что tokenService удовлетворяет интерфейсу TokenService.
var _ TokenService = (*tokenService)(nil)

type tokenService struct {
	secretKey []byte
	tokenTTL  time.Duration
}

// NewTokenService создает сервис токенов с заданным ключом подписи и временем жизни.
// Ключ и TTL загружаются из конфигурации один раз при старте процесса.
func NewTokenService(secretKey string, tokenTTL time.Duration) TokenService {
	return &tokenService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// Issue создает и подписывает JWT токен для пользователя.
func (s *tokenService) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)), // Время истечения
			IssuedAt:  jwt.NewNumericDate(now),                 // Время выдачи
			NotBefore: jwt.NewNumericDate(now),                 // Время, с которого токен валиден
			Issuer:    tokenIssuer,
		},
	}

	// Создаем токен с нашими claims и методом подписи HS256
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}

	return signedToken, nil
}

// Verify проверяет подпись и срок действия токена.
// Возвращает личность вызывающего, ErrTokenExpired для истекшего токена
// или ErrTokenInvalid для испорченного/неверно подписанного.
func (s *tokenService) Verify(tokenString string) (*Identity, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Убеждаемся, что метод подписи - HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		// Истекший токен отличаем от прочих проблем: клиенту полезно знать,
		// что нужно просто перелогиниться.
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Printf("[TokenService] Предоставлен истекший токен")
			return nil, ErrTokenExpired
		}
		log.Printf("[TokenService] Ошибка парсинга/валидации токена: %v", err)
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		log.Printf("[TokenService] Предоставлен невалидный токен")
		return nil, ErrTokenInvalid
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Кастомные ошибки сервиса токенов.
var (
	ErrTokenInvalid = errors.New("невалидный токен")
	ErrTokenExpired = errors.New("срок действия токена истек")
)
