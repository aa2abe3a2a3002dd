package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"

	"github.com/sirupsen/logrus"
)

// respondError отправляет клиенту ошибку сервиса. Ошибки без кода скрываются за fallback.
func respondError(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error, fallback string) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"method":    r.Method,
		"path":      r.URL.Path,
		"marche_id": r.PathValue("marcheId"),
	})

	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		if errorResponse.StatusCode >= http.StatusInternalServerError {
			entry.Error(fallback)
		} else {
			entry.Info(errorResponse.Message)
		}
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}

	entry.Error(fallback)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body")
	}
	return nil
}
