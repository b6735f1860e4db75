package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/repository"
	"github.com/avtomarket/backend/internal/services"
)

// --- Mock UserRepository --- //

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// --- Tests --- //

func newAuthService(repo repository.UserRepository) services.AuthService {
	tokens := services.NewTokenService(testSecretKey, 30*time.Minute)
	return services.NewAuthService(repo, tokens)
}

func TestAuthService_Register(t *testing.T) {
	t.Run("Успешная регистрация", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		var savedUser *models.User
		mockRepo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			savedUser = u
			return u.Username == "bogdan"
		})).Return(int64(7), nil).Once()

		user, err := s.Register(context.Background(), "bogdan", "bogdan123")
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Equal(t, "bogdan", user.Username)

		// В репозиторий ушел bcrypt-хеш, а не исходный пароль
		require.NotNil(t, savedUser)
		assert.NotEqual(t, "bogdan123", savedUser.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(savedUser.PasswordHash), []byte("bogdan123")))

		mockRepo.AssertExpectations(t)
	})

	t.Run("Имя пользователя занято", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("CreateUser", mock.Anything, mock.Anything).
			Return(int64(0), repository.ErrUsernameTaken).Once()

		_, err := s.Register(context.Background(), "existing", "password123")
		assert.ErrorIs(t, err, services.ErrUsernameTaken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Ошибка репозитория", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("CreateUser", mock.Anything, mock.Anything).
			Return(int64(0), errors.New("db down")).Once()

		_, err := s.Register(context.Background(), "someone", "password123")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, services.ErrUsernameTaken)
	})
}

func TestAuthService_Login(t *testing.T) {
	// Подготавливаем пользователя с настоящим bcrypt-хешем
	hash, err := bcrypt.GenerateFromPassword([]byte("bogdan123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	storedUser := &models.User{ID: 7, Username: "bogdan", PasswordHash: string(hash)}

	t.Run("Успешный вход", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("GetUserByUsername", mock.Anything, "bogdan").Return(storedUser, nil).Once()

		token, user, lerr := s.Login(context.Background(), "bogdan", "bogdan123")
		require.NoError(t, lerr)
		assert.NotEmpty(t, token)
		assert.Equal(t, storedUser.ID, user.ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Выданный токен содержит личность пользователя", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		tokens := services.NewTokenService(testSecretKey, 30*time.Minute)
		s := services.NewAuthService(mockRepo, tokens)

		mockRepo.On("GetUserByUsername", mock.Anything, "bogdan").Return(storedUser, nil).Once()

		token, _, lerr := s.Login(context.Background(), "bogdan", "bogdan123")
		require.NoError(t, lerr)

		identity, verr := tokens.Verify(token)
		require.NoError(t, verr)
		assert.Equal(t, storedUser.ID, identity.UserID)
		assert.Equal(t, storedUser.Username, identity.Username)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("GetUserByUsername", mock.Anything, "bogdan").Return(storedUser, nil).Once()

		_, _, lerr := s.Login(context.Background(), "bogdan", "wrong-password")
		assert.ErrorIs(t, lerr, services.ErrInvalidCredentials)
	})

	t.Run("Несуществующий пользователь", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("GetUserByUsername", mock.Anything, "ghost").
			Return(nil, repository.ErrUserNotFound).Once()

		// Та же ошибка, что и при неверном пароле: не раскрываем,
		// что именно не совпало
		_, _, lerr := s.Login(context.Background(), "ghost", "password123")
		assert.ErrorIs(t, lerr, services.ErrInvalidCredentials)
	})
}

func TestAuthService_GetUserByID(t *testing.T) {
	t.Run("Пользователь найден", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		stored := &models.User{ID: 7, Username: "bogdan"}
		mockRepo.On("GetUserByID", mock.Anything, int64(7)).Return(stored, nil).Once()

		user, err := s.GetUserByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, stored, user)
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		mockRepo := new(MockUserRepository)
		s := newAuthService(mockRepo)

		mockRepo.On("GetUserByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrUserNotFound).Once()

		_, err := s.GetUserByID(context.Background(), 99)
		assert.ErrorIs(t, err, services.ErrUserNotFound)
	})
}
