package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/services"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"

	"github.com/sirupsen/logrus"
)

// RecoursHandler - структура для обработки HTTP-запросов по recours marché.
type RecoursHandler struct {
	Service *services.RecoursService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewRecoursHandler создаёт новый экземпляр RecoursHandler.
func NewRecoursHandler(service *services.RecoursService, logger *logrus.Logger, timeout time.Duration) *RecoursHandler {
	return &RecoursHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetEligibility проверяет, можно ли подать recours типа из параметра type.
func (h *RecoursHandler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	recoursType := models.RecoursType(r.URL.Query().Get("type"))
	eligibility, err := h.Service.Eligibility(ctx, r.PathValue("marcheId"), recoursType)
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to check eligibility")
		return
	}
	utils.SendJSON(w, http.StatusOK, eligibility)
}

// CreateRecours обрабатывает запросы на регистрацию recours.
func (h *RecoursHandler) CreateRecours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RecoursRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	h.respond(w, r, "failed to create recours", func() (*services.RecoursResult, error) {
		return h.Service.Create(ctx, r.PathValue("marcheId"), req)
	})
}

// UpdateRecours обрабатывает запросы на заполнение этапов recours.
func (h *RecoursHandler) UpdateRecours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RecoursUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	h.respond(w, r, "failed to update recours", func() (*services.RecoursResult, error) {
		return h.Service.Update(ctx, r.PathValue("marcheId"), req)
	})
}

// CloseRecours обрабатывает запросы на закрытие recours.
func (h *RecoursHandler) CloseRecours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.ClotureRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	h.respond(w, r, "failed to close recours", func() (*services.RecoursResult, error) {
		return h.Service.Close(ctx, r.PathValue("marcheId"), req)
	})
}

// RetractRecours обрабатывает запросы на снятие recours.
func (h *RecoursHandler) RetractRecours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	h.respond(w, r, "failed to retract recours", func() (*services.RecoursResult, error) {
		return h.Service.Retract(ctx, r.PathValue("marcheId"))
	})
}

// GetTimer возвращает активный срок по recours. Если срока нет, timer равен null.
func (h *RecoursHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	timer, err := h.Service.Timer(ctx, r.PathValue("marcheId"))
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to compute recours timer")
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{"timer": timer})
}

func (h *RecoursHandler) respond(w http.ResponseWriter, r *http.Request, fallback string, call func() (*services.RecoursResult, error)) {
	result, err := call()
	if err != nil {
		respondError(w, r, h.Logger, err, fallback)
		return
	}
	utils.SendJSON(w, http.StatusOK, result)
}
