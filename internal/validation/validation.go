// Package validation инкапсулирует схемную валидацию запросов и
// нормализацию ошибок в стабильный клиентский контракт:
// карту «поле -> список сообщений».
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator оборачивает validator.Validate с настройкой имен полей по json-тэгам.
type Validator struct {
	validate *validator.Validate
}

// New создает новый валидатор запросов.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Имена полей в ошибках берем из json-тэгов, чтобы клиент видел
	// те же имена, что отправлял.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct проверяет структуру запроса по validate-тэгам.
// Возвращает validator.ValidationErrors при нарушениях схемы.
func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}

// Normalize преобразует ошибку валидации в карту
// «путь-до-поля -> список сообщений». Ведущий сегмент пути (имя структуры
// запроса, аналог категории body/query/path) отбрасывается, вложенные поля
// соединяются точкой. Для не-валидационных ошибок возвращает nil.
func Normalize(err error) map[string][]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	normalized := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := stripLeadingSegment(fe.Namespace())
		normalized[field] = append(normalized[field], message(fe))
	}
	return normalized
}

// stripLeadingSegment отбрасывает первый сегмент пути до поля.
func stripLeadingSegment(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}

// message формирует клиентское сообщение для конкретного нарушения.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
