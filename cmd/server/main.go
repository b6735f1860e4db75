package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/avtomarket/backend/internal/handlers"
	appmiddleware "github.com/avtomarket/backend/internal/middleware"
	"github.com/avtomarket/backend/internal/repository"
	"github.com/avtomarket/backend/internal/services"
	"github.com/avtomarket/backend/internal/storage"
	"github.com/avtomarket/backend/internal/validation"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 30 * time.Second
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db           *sqlx.DB
	fileStorage  storage.FileStorage
	tokenService services.TokenService
	authHandler  *handlers.AuthHandler
	carHandler   *handlers.CarHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера Avtomarket...")

	// Разбор конфигурации
	cfg, err := parseFlags()
	if err != nil {
		return fmt.Errorf("ошибка разбора конфигурации: %w", err)
	}

	// Инициализация зависимостей
	deps, err := setupDependencies(cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if deps.db != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
			}
		}
	}()

	// Настройка роутера
	r := setupRouter(deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	// При наличии сертификата и ключа поднимаем HTTPS, иначе обычный HTTP
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		log.Printf("Запуск HTTPS-сервера на порту %s...", cfg.Port)
		err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
	} else {
		log.Printf("Запуск HTTP-сервера на порту %s...", cfg.Port)
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка запуска сервера: %w", err)
	}
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(cfg *config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД (включая миграции схемы)
	deps.db, err = repository.NewPostgresDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	log.Println("Соединение с БД успешно установлено.")

	// 2. Инициализация клиента MinIO
	minioCfg := storage.MinioConfig{
		Endpoint:        cfg.MinioEndpoint,
		AccessKeyID:     cfg.MinioUser,
		SecretAccessKey: cfg.MinioPassword,
		UseSSL:          cfg.MinioUseSSL,
		BucketName:      cfg.MinioBucket,
	}
	deps.fileStorage, err = storage.NewMinioClient(minioCfg)
	if err != nil {
		// Закрываем соединение с БД перед выходом
		if dbCloseErr := deps.db.Close(); dbCloseErr != nil {
			log.Printf("Ошибка закрытия соединения с БД при ошибке MinIO: %v", dbCloseErr)
		}
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	// 3. Создание репозиториев
	userRepo := repository.NewPostgresUserRepository(deps.db)
	carRepo := repository.NewPostgresCarRepository(deps.db)

	// 4. Создание сервисов
	deps.tokenService = services.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := services.NewAuthService(userRepo, deps.tokenService)
	carService := services.NewCarService(carRepo, deps.fileStorage)

	// 5. Создание обработчиков
	validator := validation.New()
	deps.authHandler = handlers.NewAuthHandler(authService, validator)
	deps.carHandler = handlers.NewCarHandler(carService, validator)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS: разрешаем все источники, методы и заголовки
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	authenticator := appmiddleware.Authenticator(deps.tokenService)

	// --- Маршруты --- //
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Message": "Root working"}` + "\n"))
	})

	r.Route("/users", func(r chi.Router) {
		// Публичные маршруты (регистрация, вход)
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)

		// Приватные маршруты (требуют аутентификации)
		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", deps.authHandler.Me)
		})
	})

	r.Route("/cars", func(r chi.Router) {
		// Чтение объявлений доступно без аутентификации
		r.Get("/", deps.carHandler.List)
		r.Get("/{carID}", deps.carHandler.Get)

		// Изменяющие операции требуют аутентификации
		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Post("/", deps.carHandler.Create)
			r.Put("/{carID}", deps.carHandler.Update)
			r.Patch("/{carID}", deps.carHandler.Update)
			r.Delete("/{carID}", deps.carHandler.Delete)
		})
	})

	return r
}
