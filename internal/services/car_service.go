package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/repository"
	"github.com/avtomarket/backend/internal/storage"
)

// PictureUpload описывает загружаемое изображение объявления.
type PictureUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// CarService определяет интерфейс для сервиса объявлений.
type CarService interface {
	Create(ctx context.Context, ownerID int64, req *models.CarCreateRequest, picture *PictureUpload) (*models.Car, error)
	List(ctx context.Context) ([]models.Car, error)
	Get(ctx context.Context, id int64) (*models.Car, error)
	Update(ctx context.Context, id, callerID int64, req *models.CarUpdateRequest) (*models.Car, error)
	Delete(ctx context.Context, id, callerID int64) error
}

// Убедимся, что carService удовлетворяет интерфейсу CarService.
var _ CarService = (*carService)(nil)

type carService struct {
	carRepo     repository.CarRepository // Зависимость от репозитория объявлений
	fileStorage storage.FileStorage      // Хранилище изображений
}

// NewCarService создает новый экземпляр сервиса объявлений.
func NewCarService(carRepo repository.CarRepository, fileStorage storage.FileStorage) CarService {
	return &carService{carRepo: carRepo, fileStorage: fileStorage}
}

// Create создает новое объявление от имени ownerID.
// Владелец всегда берется из аутентифицированного вызывающего; поле владельца
// из клиентского запроса не принимается. Если передано изображение, оно
// сначала загружается в хранилище; при ошибке загрузки объявление не создается,
// чтобы не оставлять частичного состояния.
func (s *carService) Create(
	ctx context.Context,
	ownerID int64,
	req *models.CarCreateRequest,
	picture *PictureUpload,
) (*models.Car, error) {
	car := &models.Car{
		Brand:  capitalize(req.Brand),
		Make:   capitalize(req.Make),
		Year:   *req.Year,
		Price:  *req.Price,
		Km:     *req.Km,
		Cm3:    *req.Cm3,
		UserID: ownerID,
	}

	if picture != nil {
		objectKey := fmt.Sprintf("cars/%s%s", uuid.NewString(), filepath.Ext(picture.Filename))
		url, err := s.fileStorage.Upload(ctx, objectKey, picture.Reader, picture.Size, picture.ContentType)
		if err != nil {
			log.Printf("[CarService] Ошибка загрузки изображения для пользователя %d: %v", ownerID, err)
			return nil, ErrUploadFailed
		}
		car.PictureURL = url
	}

	carID, err := s.carRepo.CreateCar(ctx, car)
	if err != nil {
		log.Printf("[CarService] Ошибка репозитория при создании объявления пользователя %d: %v", ownerID, err)
		return nil, errors.New("внутренняя ошибка сервера при создании объявления")
	}
	car.ID = carID

	log.Printf("[CarService] Объявление %d успешно создано пользователем %d", carID, ownerID)
	return car, nil
}

// List возвращает все объявления.
func (s *carService) List(ctx context.Context) ([]models.Car, error) {
	cars, err := s.carRepo.ListCars(ctx)
	if err != nil {
		log.Printf("[CarService] Ошибка репозитория при получении списка объявлений: %v", err)
		return nil, errors.New("внутренняя ошибка сервера при получении списка объявлений")
	}
	return cars, nil
}

// Get возвращает объявление по идентификатору.
func (s *carService) Get(ctx context.Context, id int64) (*models.Car, error) {
	car, err := s.carRepo.GetCarByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return nil, ErrCarNotFound
		}
		log.Printf("[CarService] Ошибка репозитория при поиске объявления %d: %v", id, err)
		return nil, errors.New("внутренняя ошибка сервера при получении объявления")
	}
	return car, nil
}

// Update применяет частичное обновление объявления.
// Отсутствие объявления проверяется раньше владения: на несуществующий ID
// любой вызывающий получает ErrCarNotFound, не ErrForbidden.
func (s *carService) Update(
	ctx context.Context,
	id, callerID int64,
	req *models.CarUpdateRequest,
) (*models.Car, error) {
	car, err := s.carRepo.GetCarByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return nil, ErrCarNotFound
		}
		log.Printf("[CarService] Ошибка репозитория при поиске объявления %d: %v", id, err)
		return nil, errors.New("внутренняя ошибка сервера при обновлении объявления")
	}

	if !car.OwnedBy(callerID) {
		log.Printf("[CarService] Пользователь %d попытался изменить чужое объявление %d (владелец: %d)",
			callerID, id, car.UserID)
		return nil, ErrForbidden
	}

	applyUpdate(car, req)

	if err = s.carRepo.UpdateCar(ctx, car); err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return nil, ErrCarNotFound
		}
		log.Printf("[CarService] Ошибка репозитория при обновлении объявления %d: %v", id, err)
		return nil, errors.New("внутренняя ошибка сервера при обновлении объявления")
	}

	log.Printf("[CarService] Объявление %d успешно обновлено пользователем %d", id, callerID)
	return car, nil
}

// Delete удаляет объявление. Проверка владения идентична Update.
func (s *carService) Delete(ctx context.Context, id, callerID int64) error {
	car, err := s.carRepo.GetCarByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return ErrCarNotFound
		}
		log.Printf("[CarService] Ошибка репозитория при поиске объявления %d: %v", id, err)
		return errors.New("внутренняя ошибка сервера при удалении объявления")
	}

	if !car.OwnedBy(callerID) {
		log.Printf("[CarService] Пользователь %d попытался удалить чужое объявление %d (владелец: %d)",
			callerID, id, car.UserID)
		return ErrForbidden
	}

	if err = s.carRepo.DeleteCar(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCarNotFound) {
			return ErrCarNotFound
		}
		log.Printf("[CarService] Ошибка репозитория при удалении объявления %d: %v", id, err)
		return errors.New("внутренняя ошибка сервера при удалении объявления")
	}

	log.Printf("[CarService] Объявление %d успешно удалено пользователем %d", id, callerID)
	return nil
}

// applyUpdate переносит заполненные поля запроса в объявление.
func applyUpdate(car *models.Car, req *models.CarUpdateRequest) {
	if req.Brand != nil {
		car.Brand = capitalize(*req.Brand)
	}
	if req.Make != nil {
		car.Make = capitalize(*req.Make)
	}
	if req.Year != nil {
		car.Year = *req.Year
	}
	if req.Price != nil {
		car.Price = *req.Price
	}
	if req.Km != nil {
		car.Km = *req.Km
	}
	if req.Cm3 != nil {
		car.Cm3 = *req.Cm3
	}
}

// capitalize нормализует регистр: первая буква заглавная, остальные строчные
// ("KIA" -> "Kia").
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// Кастомные ошибки сервиса.
var (
	ErrCarNotFound  = errors.New("объявление не найдено")
	ErrForbidden    = errors.New("объявление принадлежит другому пользователю")
	ErrUploadFailed = errors.New("ошибка загрузки изображения в хранилище")
)
