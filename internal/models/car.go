package models

import "time"

// Ограничения на числовые поля объявления.
const (
	MinCarYear = 1970
	MaxCarYear = 2030
)

// Car представляет объявление о продаже автомобиля.
// Владелец (UserID) назначается сервером по аутентифицированному
// пользователю и никогда не принимается от клиента.
type Car struct {
	ID         int64     `db:"id" json:"_id"`
	Brand      string    `db:"brand" json:"brand"`
	Make       string    `db:"make" json:"make"`
	Year       int       `db:"year" json:"year"`
	Price      int       `db:"price" json:"price"`
	Km         int       `db:"km" json:"km"`
	Cm3        int       `db:"cm3" json:"cm3"`
	PictureURL string    `db:"picture_url" json:"picture_url,omitempty"`
	UserID     int64     `db:"user_id" json:"user_id"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"-"`
}

// OwnedBy сообщает, принадлежит ли объявление указанному пользователю.
// Единственный предикат владения: используется и при обновлении, и при удалении.
func (c *Car) OwnedBy(userID int64) bool {
	return c.UserID == userID
}

// CarCreateRequest представляет поля формы создания объявления.
// Числовые поля объявлены указателями, чтобы отличать «поле отсутствует»
// от нулевого значения при валидации.
type CarCreateRequest struct {
	Brand string `json:"brand" validate:"required,min=2"`
	Make  string `json:"make" validate:"required,min=1"`
	Year  *int   `json:"year" validate:"required,gte=1970,lte=2030"`
	Price *int   `json:"price" validate:"required,gte=0"`
	Km    *int   `json:"km" validate:"required,gte=0"`
	Cm3   *int   `json:"cm3" validate:"required,gte=0"`
}

// CarUpdateRequest представляет частичное обновление объявления.
// Все поля необязательны; непереданные поля не меняются.
type CarUpdateRequest struct {
	Brand *string `json:"brand" validate:"omitempty,min=2"`
	Make  *string `json:"make" validate:"omitempty,min=1"`
	Year  *int    `json:"year" validate:"omitempty,gte=1970,lte=2030"`
	Price *int    `json:"price" validate:"omitempty,gte=0"`
	Km    *int    `json:"km" validate:"omitempty,gte=0"`
	Cm3   *int    `json:"cm3" validate:"omitempty,gte=0"`
}
