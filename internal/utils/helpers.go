package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/logger"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, models.ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	})
}

// SendJSON отправляет ответ в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Log.WithError(err).Error("failed to encode response")
	}
}

// ParseLimitOffset обрабатывает limit и offset
func ParseLimitOffset(limitStr, offsetStr string) (int, int, error) {
	limit, offset := defaultLimit, 0

	if limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v <= 0 || v > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit parameter, must be a positive integer [1:%d]", maxLimit)
		}
		limit = v
	}

	if offsetStr != "" {
		v, err := strconv.Atoi(offsetStr)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid offset parameter, must be a non-negative integer")
		}
		offset = v
	}

	return limit, offset, nil
}

// Contains проверяет, входит ли значение в список допустимых.
func Contains[T comparable](allowed []T, value T) bool {
	for _, v := range allowed {
		if v == value {
			return true
		}
	}
	return false
}
