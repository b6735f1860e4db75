package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

// errorResponse — единый конверт ошибок API.
type errorResponse struct {
	Detail string `json:"detail"`
}

// validationErrorResponse — конверт ошибок валидации: общий detail плюс
// карта «поле -> список сообщений».
type validationErrorResponse struct {
	Detail string              `json:"detail"`
	Errors map[string][]string `json:"errors"`
}

// writeJSON сериализует v в тело ответа с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Handlers] Ошибка кодирования JSON-ответа: %v", err)
	}
}

// writeError отвечает структурированной ошибкой без внутренних деталей.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeValidationError отвечает 400 с конвертом ошибок валидации.
func writeValidationError(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Detail: "Invalid request",
		Errors: errs,
	})
}
