package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avtomarket/backend/internal/middleware"
	"github.com/avtomarket/backend/internal/models"
	"github.com/avtomarket/backend/internal/services"
	"github.com/avtomarket/backend/internal/validation"
)

// Максимальный размер формы создания объявления, удерживаемый в памяти.
const maxMultipartMemory = 32 << 20 // 32 MiB

// CarHandler обрабатывает HTTP-запросы, связанные с объявлениями.
type CarHandler struct {
	service   services.CarService
	validator *validation.Validator
}

// NewCarHandler создает новый экземпляр CarHandler.
func NewCarHandler(s services.CarService, v *validation.Validator) *CarHandler {
	return &CarHandler{service: s, validator: v}
}

// List обрабатывает GET запрос на получение всех объявлений. Маршрут публичный.
func (h *CarHandler) List(w http.ResponseWriter, r *http.Request) {
	cars, err := h.service.List(r.Context())
	if err != nil {
		log.Printf("[CarHandler:List] Ошибка сервиса при получении списка: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, cars)
}

// Get обрабатывает GET запрос на получение одного объявления. Маршрут публичный.
func (h *CarHandler) Get(w http.ResponseWriter, r *http.Request) {
	carID, ok := parseCarID(w, r)
	if !ok {
		return
	}

	car, err := h.service.Get(r.Context(), carID)
	if err != nil {
		if errors.Is(err, services.ErrCarNotFound) {
			writeError(w, http.StatusNotFound, "Car not found")
			return
		}
		log.Printf("[CarHandler:Get] Ошибка сервиса при получении объявления %d: %v", carID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, car)
}

// Create обрабатывает POST запрос на создание объявления.
// Принимает multipart-форму с полями объявления и необязательным файлом picture.
func (h *CarHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		log.Printf("[CarHandler:Create] Не удалось получить личность из контекста")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		log.Printf("[CarHandler:Create] Ошибка разбора multipart-формы: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Собираем поля формы; ошибки преобразования чисел накапливаются
	// в той же карте, что и ошибки схемной валидации.
	convErrs := make(map[string][]string)
	req := &models.CarCreateRequest{
		Brand: r.FormValue("brand"),
		Make:  r.FormValue("make"),
		Year:  formInt(r, "year", convErrs),
		Price: formInt(r, "price", convErrs),
		Km:    formInt(r, "km", convErrs),
		Cm3:   formInt(r, "cm3", convErrs),
	}

	errs := map[string][]string{}
	if err := h.validator.Struct(req); err != nil {
		errs = validation.Normalize(err)
	}
	// Ошибки преобразования точнее, чем «field required» от валидатора
	for field, msgs := range convErrs {
		errs[field] = msgs
	}
	if len(errs) > 0 {
		log.Printf("[CarHandler:Create] Ошибки валидации формы от пользователя %d: %v", identity.UserID, errs)
		writeValidationError(w, errs)
		return
	}

	// Необязательный файл изображения
	var picture *services.PictureUpload
	file, header, err := r.FormFile("picture")
	switch {
	case err == nil:
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				log.Printf("[CarHandler:Create] Ошибка закрытия файла изображения: %v", closeErr)
			}
		}()
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		picture = &services.PictureUpload{
			Reader:      file,
			Size:        header.Size,
			ContentType: contentType,
			Filename:    header.Filename,
		}
	case errors.Is(err, http.ErrMissingFile):
		// Изображение не передано, объявление создается без него
	default:
		log.Printf("[CarHandler:Create] Ошибка чтения файла изображения: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid picture upload")
		return
	}

	log.Printf("[CarHandler:Create] Создание объявления пользователем %d", identity.UserID)

	car, err := h.service.Create(r.Context(), identity.UserID, req, picture)
	if err != nil {
		if errors.Is(err, services.ErrUploadFailed) {
			writeError(w, http.StatusBadGateway, "Picture upload failed")
			return
		}
		log.Printf("[CarHandler:Create] Ошибка сервиса при создании объявления: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, car)
	log.Printf("[CarHandler:Create] Объявление %d успешно создано", car.ID)
}

// Update обрабатывает PUT/PATCH запрос на частичное обновление объявления.
// Доступно только владельцу.
func (h *CarHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		log.Printf("[CarHandler:Update] Не удалось получить личность из контекста")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	carID, ok := parseCarID(w, r)
	if !ok {
		return
	}

	var req models.CarUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[CarHandler:Update] Ошибка декодирования тела запроса: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		log.Printf("[CarHandler:Update] Ошибки валидации от пользователя %d: %v", identity.UserID, err)
		writeValidationError(w, validation.Normalize(err))
		return
	}

	car, err := h.service.Update(r.Context(), carID, identity.UserID, &req)
	if err != nil {
		h.writeOwnershipError(w, err, carID, identity.UserID, "Update")
		return
	}

	writeJSON(w, http.StatusOK, car)
	log.Printf("[CarHandler:Update] Объявление %d успешно обновлено пользователем %d", carID, identity.UserID)
}

// Delete обрабатывает DELETE запрос на удаление объявления.
// Доступно только владельцу.
func (h *CarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		log.Printf("[CarHandler:Delete] Не удалось получить личность из контекста")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	carID, ok := parseCarID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), carID, identity.UserID); err != nil {
		h.writeOwnershipError(w, err, carID, identity.UserID, "Delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Printf("[CarHandler:Delete] Объявление %d успешно удалено пользователем %d", carID, identity.UserID)
}

// writeOwnershipError маппит ошибки операций над чужим/отсутствующим
// объявлением в HTTP-статусы. Отсутствие ресурса имеет приоритет над
// запретом: сервис уже различил эти случаи.
func (h *CarHandler) writeOwnershipError(w http.ResponseWriter, err error, carID, userID int64, op string) {
	switch {
	case errors.Is(err, services.ErrCarNotFound):
		writeError(w, http.StatusNotFound, "Car not found")
	case errors.Is(err, services.ErrForbidden):
		log.Printf("[CarHandler:%s] Пользователю %d отказано в доступе к объявлению %d", op, userID, carID)
		writeError(w, http.StatusForbidden, "You are not the owner of this car")
	default:
		log.Printf("[CarHandler:%s] Ошибка сервиса для объявления %d: %v", op, carID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// parseCarID извлекает и разбирает идентификатор объявления из пути.
// При неразбираемом значении отвечает 404 и возвращает false.
func parseCarID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "carID")
	carID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		log.Printf("[CarHandler] Неразбираемый идентификатор объявления: %q", idStr)
		writeError(w, http.StatusNotFound, "Car not found")
		return 0, false
	}
	return carID, true
}

// formInt разбирает числовое поле формы. Отсутствующее поле дает nil
// (даст «field required» на схемной валидации), неразбираемое значение
// добавляет сообщение в errs.
func formInt(r *http.Request, name string, errs map[string][]string) *int {
	value := r.FormValue(name)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		errs[name] = append(errs[name], "value is not a valid integer")
		return nil
	}
	return &n
}
