package services

import (
	"errors"
	"net/http"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/recours"
)

// transitionError переводит ошибку перехода recours в ответ клиенту.
// Недопустимый переход - конфликт с текущим состоянием, неверные данные - 400.
func transitionError(err error) error {
	var inelig *recours.IneligibleError
	switch {
	case errors.As(err, &inelig):
		return models.WrapErrorResponse(http.StatusConflict, err)
	case errors.Is(err, recours.ErrWrongType),
		errors.Is(err, recours.ErrInvalidDate),
		errors.Is(err, recours.ErrInvalidVerdict):
		return models.WrapErrorResponse(http.StatusBadRequest, err)
	case errors.Is(err, recours.ErrAlreadyExists),
		errors.Is(err, recours.ErrNoRecours),
		errors.Is(err, recours.ErrClosed),
		errors.Is(err, recours.ErrNotClosable),
		errors.Is(err, recours.ErrStep),
		errors.Is(err, recours.ErrFieldOrder):
		return models.WrapErrorResponse(http.StatusConflict, err)
	}
	return err
}
