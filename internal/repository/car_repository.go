package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/avtomarket/backend/internal/models"
)

// CarRepository определяет методы для работы с объявлениями в хранилище.
type CarRepository interface {
	CreateCar(ctx context.Context, car *models.Car) (int64, error)
	ListCars(ctx context.Context) ([]models.Car, error)
	GetCarByID(ctx context.Context, id int64) (*models.Car, error)
	UpdateCar(ctx context.Context, car *models.Car) error
	DeleteCar(ctx context.Context, id int64) error
}

// postgresCarRepository реализует CarRepository для PostgreSQL.
type postgresCarRepository struct {
	db *sqlx.DB
}

// NewPostgresCarRepository создает новый экземпляр репозитория объявлений для PostgreSQL.
func NewPostgresCarRepository(db *sqlx.DB) CarRepository {
	return &postgresCarRepository{db: db}
}

// CreateCar создает новое объявление в базе данных.
// Возвращает ID созданного объявления или ошибку.
func (r *postgresCarRepository) CreateCar(ctx context.Context, car *models.Car) (int64, error) {
	query := `INSERT INTO cars (brand, make, year, price, km, cm3, picture_url, user_id)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	var carID int64

	err := r.db.QueryRowxContext(ctx, query,
		car.Brand, car.Make, car.Year, car.Price, car.Km, car.Cm3, car.PictureURL, car.UserID,
	).Scan(&carID)
	if err != nil {
		log.Printf("[CarRepo] Ошибка при создании объявления пользователя %d: %v", car.UserID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание объявления: %w", err)
	}

	log.Printf("[CarRepo] Объявление успешно создано с ID %d (владелец: %d)", carID, car.UserID)
	return carID, nil
}

// ListCars возвращает все объявления в порядке их создания.
func (r *postgresCarRepository) ListCars(ctx context.Context) ([]models.Car, error) {
	query := `SELECT id, brand, make, year, price, km, cm3, picture_url, user_id, created_at, updated_at
	          FROM cars ORDER BY id`
	cars := make([]models.Car, 0)

	err := r.db.SelectContext(ctx, &cars, query)
	if err != nil {
		log.Printf("[CarRepo] Ошибка при получении списка объявлений: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка объявлений: %w", err)
	}

	log.Printf("[CarRepo] Получено объявлений: %d", len(cars))
	return cars, nil
}

// GetCarByID находит объявление по его идентификатору.
// Возвращает объявление или ErrCarNotFound, если оно не найдено.
func (r *postgresCarRepository) GetCarByID(ctx context.Context, id int64) (*models.Car, error) {
	query := `SELECT id, brand, make, year, price, km, cm3, picture_url, user_id, created_at, updated_at
	          FROM cars WHERE id=$1`
	var car models.Car

	err := r.db.GetContext(ctx, &car, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[CarRepo] Объявление с ID %d не найдено", id)
			return nil, ErrCarNotFound
		}
		log.Printf("[CarRepo] Ошибка при поиске объявления с ID %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение объявления: %w", err)
	}

	return &car, nil
}

// UpdateCar сохраняет измененные поля объявления.
// Возвращает ErrCarNotFound, если объявление не найдено.
func (r *postgresCarRepository) UpdateCar(ctx context.Context, car *models.Car) error {
	query := `UPDATE cars SET brand=$1, make=$2, year=$3, price=$4, km=$5, cm3=$6,
	          picture_url=$7, updated_at=NOW() WHERE id=$8`

	result, err := r.db.ExecContext(ctx, query,
		car.Brand, car.Make, car.Year, car.Price, car.Km, car.Cm3, car.PictureURL, car.ID,
	)
	if err != nil {
		log.Printf("[CarRepo] Ошибка при обновлении объявления %d: %v", car.ID, err)
		return fmt.Errorf("ошибка выполнения запроса на обновление объявления: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества обновленных строк: %w", err)
	}
	if affected == 0 {
		log.Printf("[CarRepo] Объявление с ID %d не найдено при обновлении", car.ID)
		return ErrCarNotFound
	}

	log.Printf("[CarRepo] Объявление %d успешно обновлено", car.ID)
	return nil
}

// DeleteCar удаляет объявление по его идентификатору.
// Возвращает ErrCarNotFound, если объявление не найдено.
func (r *postgresCarRepository) DeleteCar(ctx context.Context, id int64) error {
	query := `DELETE FROM cars WHERE id=$1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Printf("[CarRepo] Ошибка при удалении объявления %d: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление объявления: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества удаленных строк: %w", err)
	}
	if affected == 0 {
		log.Printf("[CarRepo] Объявление с ID %d не найдено при удалении", id)
		return ErrCarNotFound
	}

	log.Printf("[CarRepo] Объявление %d успешно удалено", id)
	return nil
}

// Кастомная ошибка репозитория.
var (
	ErrCarNotFound = errors.New("объявление не найдено")
)
