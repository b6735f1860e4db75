package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/repository"
	"github.com/avtomarket/backend/internal/services"
)

// --- Mock CarRepository --- //

type MockCarRepository struct {
	mock.Mock
}

func (m *MockCarRepository) CreateCar(ctx context.Context, car *models.Car) (int64, error) {
	args := m.Called(ctx, car)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCarRepository) ListCars(ctx context.Context) ([]models.Car, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Car), args.Error(1)
}

func (m *MockCarRepository) GetCarByID(ctx context.Context, id int64) (*models.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Car), args.Error(1)
}

func (m *MockCarRepository) UpdateCar(ctx context.Context, car *models.Car) error {
	args := m.Called(ctx, car)
	return args.Error(0)
}

func (m *MockCarRepository) DeleteCar(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock FileStorage --- //

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Upload(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) (string, error) {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	return args.String(0), args.Error(1)
}

// --- Tests --- //

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func newCreateRequest() *models.CarCreateRequest {
	return &models.CarCreateRequest{
		Brand: "KIA",
		Make:  "Ceed",
		Year:  intPtr(2015),
		Price: intPtr(2000),
		Km:    intPtr(100000),
		Cm3:   intPtr(1500),
	}
}

func TestCarService_Create(t *testing.T) {
	t.Run("Создание без изображения", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		mockStorage := new(MockFileStorage)
		s := services.NewCarService(mockRepo, mockStorage)

		mockRepo.On("CreateCar", mock.Anything, mock.MatchedBy(func(c *models.Car) bool {
			// Владелец назначен сервером, регистр марки нормализован
			return c.UserID == 7 && c.Brand == "Kia" && c.Make == "Ceed" && c.PictureURL == ""
		})).Return(int64(1), nil).Once()

		car, err := s.Create(context.Background(), 7, newCreateRequest(), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), car.ID)
		assert.Equal(t, int64(7), car.UserID)
		assert.Equal(t, "Kia", car.Brand)
		assert.Equal(t, 2015, car.Year)

		mockRepo.AssertExpectations(t)
		mockStorage.AssertNotCalled(t, "Upload")
	})

	t.Run("Создание с изображением", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		mockStorage := new(MockFileStorage)
		s := services.NewCarService(mockRepo, mockStorage)

		picture := &services.PictureUpload{
			Reader:      strings.NewReader("fake image bytes"),
			Size:        16,
			ContentType: "image/png",
			Filename:    "kia.png",
		}

		mockStorage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			// Ключ объекта уникален, но сохраняет префикс и расширение файла
			return strings.HasPrefix(key, "cars/") && strings.HasSuffix(key, ".png")
		}), picture.Reader, int64(16), "image/png").
			Return("http://localhost:9000/avtomarket-pictures/cars/abc.png", nil).Once()

		mockRepo.On("CreateCar", mock.Anything, mock.MatchedBy(func(c *models.Car) bool {
			return c.PictureURL == "http://localhost:9000/avtomarket-pictures/cars/abc.png"
		})).Return(int64(2), nil).Once()

		car, err := s.Create(context.Background(), 7, newCreateRequest(), picture)
		require.NoError(t, err)
		assert.NotEmpty(t, car.PictureURL)

		mockRepo.AssertExpectations(t)
		mockStorage.AssertExpectations(t)
	})

	t.Run("Ошибка загрузки изображения отменяет создание", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		mockStorage := new(MockFileStorage)
		s := services.NewCarService(mockRepo, mockStorage)

		picture := &services.PictureUpload{
			Reader:      strings.NewReader("fake image bytes"),
			Size:        16,
			ContentType: "image/png",
			Filename:    "kia.png",
		}

		mockStorage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("minio down")).Once()

		_, err := s.Create(context.Background(), 7, newCreateRequest(), picture)
		assert.ErrorIs(t, err, services.ErrUploadFailed)

		// Объявление не должно быть создано без изображения
		mockRepo.AssertNotCalled(t, "CreateCar", mock.Anything, mock.Anything)
	})
}

func TestCarService_Get(t *testing.T) {
	t.Run("Объявление найдено", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		stored := &models.Car{ID: 1, Brand: "Kia", UserID: 7}
		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored, nil).Once()

		car, err := s.Get(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, stored, car)
	})

	t.Run("Объявление не найдено", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrCarNotFound).Once()

		_, err := s.Get(context.Background(), 99)
		assert.ErrorIs(t, err, services.ErrCarNotFound)
	})
}

func TestCarService_Update(t *testing.T) {
	stored := func() *models.Car {
		return &models.Car{ID: 1, Brand: "Kia", Make: "Ceed", Year: 2015, Price: 2000, Km: 100000, Cm3: 1500, UserID: 7}
	}

	t.Run("Частичное обновление владельцем", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored(), nil).Once()
		mockRepo.On("UpdateCar", mock.Anything, mock.MatchedBy(func(c *models.Car) bool {
			// Цена изменилась, остальные поля сохранились
			return c.Price == 1800 && c.Brand == "Kia" && c.Year == 2015
		})).Return(nil).Once()

		car, err := s.Update(context.Background(), 1, 7, &models.CarUpdateRequest{Price: intPtr(1800)})
		require.NoError(t, err)
		assert.Equal(t, 1800, car.Price)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Марка нормализуется при обновлении", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored(), nil).Once()
		mockRepo.On("UpdateCar", mock.Anything, mock.Anything).Return(nil).Once()

		car, err := s.Update(context.Background(), 1, 7, &models.CarUpdateRequest{Brand: strPtr("OPEL")})
		require.NoError(t, err)
		assert.Equal(t, "Opel", car.Brand)
	})

	t.Run("Не владелец получает отказ", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored(), nil).Once()

		_, err := s.Update(context.Background(), 1, 8, &models.CarUpdateRequest{Price: intPtr(1)})
		assert.ErrorIs(t, err, services.ErrForbidden)
		mockRepo.AssertNotCalled(t, "UpdateCar", mock.Anything, mock.Anything)
	})

	t.Run("Несуществующее объявление важнее владения", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrCarNotFound).Once()

		// Даже чужой вызывающий получает NotFound, а не Forbidden
		_, err := s.Update(context.Background(), 99, 8, &models.CarUpdateRequest{})
		assert.ErrorIs(t, err, services.ErrCarNotFound)
	})
}

func TestCarService_Delete(t *testing.T) {
	stored := &models.Car{ID: 1, Brand: "Kia", UserID: 7}

	t.Run("Удаление владельцем", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored, nil).Once()
		mockRepo.On("DeleteCar", mock.Anything, int64(1)).Return(nil).Once()

		assert.NoError(t, s.Delete(context.Background(), 1, 7))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Не владелец получает отказ", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(1)).Return(stored, nil).Once()

		err := s.Delete(context.Background(), 1, 8)
		assert.ErrorIs(t, err, services.ErrForbidden)
		mockRepo.AssertNotCalled(t, "DeleteCar", mock.Anything, mock.Anything)
	})

	t.Run("Несуществующее объявление", func(t *testing.T) {
		mockRepo := new(MockCarRepository)
		s := services.NewCarService(mockRepo, new(MockFileStorage))

		mockRepo.On("GetCarByID", mock.Anything, int64(99)).
			Return(nil, repository.ErrCarNotFound).Once()

		err := s.Delete(context.Background(), 99, 8)
		assert.ErrorIs(t, err, services.ErrCarNotFound)
	})
}

func TestCarService_List(t *testing.T) {
	mockRepo := new(MockCarRepository)
	s := services.NewCarService(mockRepo, new(MockFileStorage))

	stored := []models.Car{{ID: 1, Brand: "Kia"}, {ID: 2, Brand: "Opel"}}
	mockRepo.On("ListCars", mock.Anything).Return(stored, nil).Once()

	cars, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stored, cars)
}
