package models

import "net/http"

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
	Err        error  `json:"-"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// WrapErrorResponse превращает ошибку в ответ с кодом, сохраняя исходную причину.
func WrapErrorResponse(statusCode int, err error) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// ErrMarcheNotFound возвращается, если marché с указанным id нет.
var ErrMarcheNotFound = NewErrorResponse(http.StatusNotFound, "marche not found")

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

func (e *ErrorResponse) Unwrap() error {
	return e.Err
}
