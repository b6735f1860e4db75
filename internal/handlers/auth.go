package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/avtomarket/backend/internal/middleware"
	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/services"
	"github.com/avtomarket/backend/internal/validation"
)

// AuthHandler обрабатывает HTTP-запросы, связанные с пользователями.
type AuthHandler struct {
	service   services.AuthService
	validator *validation.Validator
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService, v *validation.Validator) *AuthHandler {
	return &AuthHandler{service: s, validator: v}
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	// Декодируем JSON из тела запроса
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса регистрации: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Схемная валидация
	if err := h.validator.Struct(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка валидации запроса регистрации: %v", err)
		writeValidationError(w, validation.Normalize(err))
		return
	}

	log.Printf("[AuthHandler] Попытка регистрации пользователя: %s", req.Username)

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "Username already taken")
			return
		}
		log.Printf("[AuthHandler] Ошибка сервиса при регистрации '%s': %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, user)
	log.Printf("[AuthHandler] Успешная регистрация пользователя: %s", req.Username)
}

// Login обрабатывает запрос на вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	// Декодируем JSON из тела запроса
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса входа: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Схемная валидация
	if err := h.validator.Struct(&req); err != nil {
		log.Printf("[AuthHandler] Ошибка валидации запроса входа: %v", err)
		writeValidationError(w, validation.Normalize(err))
		return
	}

	log.Printf("[AuthHandler] Попытка входа пользователя: %s", req.Username)

	token, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Printf("[AuthHandler] Ошибка сервиса при входе '%s': %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, Username: user.Username})
	log.Printf("[AuthHandler] Успешный вход пользователя: %s", req.Username)
}

// Me возвращает профиль текущего аутентифицированного пользователя.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		log.Printf("[AuthHandler:Me] Не удалось получить личность из контекста")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("[AuthHandler:Me] Ошибка сервиса при поиске пользователя %d: %v", identity.UserID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
