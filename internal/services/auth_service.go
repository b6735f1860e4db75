package services

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/repository"
)

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository // Зависимость от репозитория пользователей
	tokens   TokenService              // Сервис выпуска токенов
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, tokens TokenService) AuthService {
	return &authService{userRepo: userRepo, tokens: tokens}
}

// Register регистрирует нового пользователя и возвращает созданную запись.
// Пароль хранится только в виде bcrypt-хеша.
func (s *authService) Register(ctx context.Context, username, password string) (*models.User, error) {
	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[AuthService] Ошибка хеширования пароля для '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
	}

	// Создаем пользователя через репозиторий
	userID, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			log.Printf("[AuthService] Попытка регистрации с занятым именем: %s", username)
			return nil, ErrUsernameTaken // Возвращаем ошибку слоя сервиса
		}
		log.Printf("[AuthService] Непредвиденная ошибка репозитория при регистрации '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при создании пользователя")
	}
	user.ID = userID

	log.Printf("[AuthService] Пользователь '%s' успешно зарегистрирован (ID: %d)", username, userID)
	return user, nil
}

// Login аутентифицирует пользователя и возвращает JWT токен вместе с записью пользователя.
// Несуществующее имя и неверный пароль дают одну и ту же ошибку ErrInvalidCredentials,
// чтобы не раскрывать, что именно не совпало.
func (s *authService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	// Получаем пользователя по имени пользователя
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", username)
			return "", nil, ErrInvalidCredentials
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", username, err)
		return "", nil, errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	// Сравниваем предоставленный пароль с хешем из базы данных
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		log.Printf("[AuthService] Неверный пароль для пользователя: %s", username)
		return "", nil, ErrInvalidCredentials
	}

	// Выпускаем JWT токен
	token, err := s.tokens.Issue(user)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", username, err)
		return "", nil, errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно аутентифицирован", username)
	return token, user, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *authService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске пользователя %d: %v", id, err)
		return nil, errors.New("внутренняя ошибка сервера при поиске пользователя")
	}
	return user, nil
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUsernameTaken      = errors.New("имя пользователя уже занято")
	ErrUserNotFound       = errors.New("пользователь не найден")
)
