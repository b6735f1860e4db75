package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Порт по умолчанию (непривилегированный).
	defaultServerPort = "8000"
	// Время жизни токена доступа по умолчанию.
	defaultTokenTTL = 30 * time.Minute

	// Переменные окружения.
	envServerPort  = "SERVER_PORT"
	envTLSCertFile = "TLS_CERT_FILE"
	envTLSKeyFile  = "TLS_KEY_FILE"
	envDatabaseDSN = "DATABASE_DSN"
	envJWTSecret   = "JWT_SECRET_KEY" //nolint:gosec // Это имя переменной окружения, не секрет
	envTokenTTL    = "JWT_TTL"

	// Переменные окружения для MinIO (значения по умолчанию из docker-compose).
	envMinioEndpoint     = "MINIO_ENDPOINT"
	envMinioUser         = "MINIO_USER"
	envMinioPassword     = "MINIO_PASSWORD"
	envMinioBucket       = "MINIO_BUCKET"
	envMinioUseSSL       = "MINIO_USE_SSL"
	defaultMinioEndpoint = "localhost:9000"
	defaultMinioUser     = "minioadmin"
	defaultMinioPassword = "minioadmin"
	defaultMinioBucket   = "avtomarket-pictures"
)

// config хранит конфигурацию сервера.
// Заполняется один раз при старте; после этого только читается.
type config struct {
	Port        string
	CertFile    string
	KeyFile     string
	DatabaseDSN string
	JWTSecret   string
	TokenTTL    time.Duration

	MinioEndpoint string
	MinioUser     string
	MinioPassword string
	MinioBucket   string
	MinioUseSSL   bool
}

// parseFlags разбирает флаги и переменные окружения, возвращает config или ошибку.
// Флаги имеют приоритет над переменными окружения.
func parseFlags() (*config, error) {
	// Подгружаем .env для локальной разработки; отсутствие файла не ошибка
	_ = godotenv.Load()

	cfg := &config{}
	var tokenTTLStr string

	// Определяем флаги
	flag.StringVar(&cfg.Port, "port", "",
		fmt.Sprintf("Порт для запуска сервера (env: %s, default: %s)", envServerPort, defaultServerPort))
	flag.StringVar(&cfg.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата, необязательно (env: %s)", envTLSCertFile))
	flag.StringVar(&cfg.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа, необязательно (env: %s)", envTLSKeyFile))
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	flag.StringVar(&cfg.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Ключ подписи JWT (env: %s)", envJWTSecret))
	flag.StringVar(&tokenTTLStr, "jwt-ttl", "",
		fmt.Sprintf("Время жизни токена, например 30m (env: %s, default: %s)", envTokenTTL, defaultTokenTTL))

	// Парсим флаги
	flag.Parse()

	// Применяем переменные окружения, если флаги не заданы
	if cfg.Port == "" {
		cfg.Port = getEnv(envServerPort, defaultServerPort)
	}
	if cfg.CertFile == "" {
		cfg.CertFile = os.Getenv(envTLSCertFile)
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = os.Getenv(envTLSKeyFile)
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = os.Getenv(envDatabaseDSN)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = os.Getenv(envJWTSecret)
	}
	if tokenTTLStr == "" {
		tokenTTLStr = os.Getenv(envTokenTTL)
	}

	// Разбираем TTL токена
	cfg.TokenTTL = defaultTokenTTL
	if tokenTTLStr != "" {
		ttl, err := time.ParseDuration(tokenTTLStr)
		if err != nil {
			return nil, fmt.Errorf("неразбираемое значение времени жизни токена '%s': %w", tokenTTLStr, err)
		}
		cfg.TokenTTL = ttl
	}

	// Параметры MinIO берутся только из окружения
	cfg.MinioEndpoint = getEnv(envMinioEndpoint, defaultMinioEndpoint)
	cfg.MinioUser = getEnv(envMinioUser, defaultMinioUser)
	cfg.MinioPassword = getEnv(envMinioPassword, defaultMinioPassword)
	cfg.MinioBucket = getEnv(envMinioBucket, defaultMinioBucket)
	cfg.MinioUseSSL = os.Getenv(envMinioUseSSL) == "true"

	// Проверяем обязательные параметры
	if cfg.DatabaseDSN == "" {
		return nil, errors.New("не указана строка подключения к БД (--database-dsn или " + envDatabaseDSN + ")")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("не указан ключ подписи JWT (--jwt-secret или " + envJWTSecret + ")")
	}

	return cfg, nil
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Переменная окружения '%s' не установлена, используется значение по умолчанию: '%s'", key, fallback)
	return fallback
}
