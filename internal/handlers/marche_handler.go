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

// MarcheHandler - структура для обработки HTTP-запросов по marchés и их jalons.
type MarcheHandler struct {
	Service *services.MarcheService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewMarcheHandler создаёт новый экземпляр MarcheHandler.
func NewMarcheHandler(service *services.MarcheService, logger *logrus.Logger, timeout time.Duration) *MarcheHandler {
	return &MarcheHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetMarches обрабатывает запросы для получения списка marchés.
func (h *MarcheHandler) GetMarches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	marches, err := h.Service.ListMarches(ctx, limit, offset, r.URL.Query()["statut"])
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to fetch marches")
		return
	}
	if marches == nil {
		marches = []models.Marche{}
	}
	utils.SendJSON(w, http.StatusOK, marches)
}

// CreateMarche обрабатывает запросы для создания marché.
func (h *MarcheHandler) CreateMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.MarcheRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	marche, err := h.Service.CreateMarche(ctx, req)
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to create marche")
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}

// GetMarche обрабатывает запросы для получения marché.
func (h *MarcheHandler) GetMarche(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	marche, err := h.Service.GetMarche(ctx, r.PathValue("marcheId"))
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to fetch marche")
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}

// GetHistory обрабатывает запросы для получения версий marché.
func (h *MarcheHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	versions, err := h.Service.History(ctx, r.PathValue("marcheId"))
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to fetch marche history")
		return
	}
	if versions == nil {
		versions = []models.MarcheVersion{}
	}
	utils.SendJSON(w, http.StatusOK, versions)
}

// GetJalons обрабатывает запросы для получения состояния jalons.
func (h *MarcheHandler) GetJalons(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	phases, err := h.Service.Jalons(ctx, r.PathValue("marcheId"))
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to evaluate jalons")
		return
	}
	utils.SendJSON(w, http.StatusOK, phases)
}

// SetJalonDate обрабатывает запросы на установку даты jalon.
func (h *MarcheHandler) SetJalonDate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.JalonDateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	marche, err := h.Service.SetJalonDate(ctx, r.PathValue("marcheId"), r.PathValue("key"), req)
	if err != nil {
		respondError(w, r, h.Logger, err, "failed to update jalon")
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}

// DeclareInfructueux обрабатывает запросы на признание marché несостоявшимся.
func (h *MarcheHandler) DeclareInfructueux(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, h.Service.DeclareInfructueux, "failed to declare marche infructueux")
}

// Annuler обрабатывает запросы на отмену marché.
func (h *MarcheHandler) Annuler(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, h.Service.Annuler, "failed to cancel marche")
}

func (h *MarcheHandler) terminate(w http.ResponseWriter, r *http.Request,
	action func(context.Context, string, models.MotifRequest) (*models.Marche, error), fallback string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.MotifRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, h.Logger, err, "invalid request body")
		return
	}

	marche, err := action(ctx, r.PathValue("marcheId"), req)
	if err != nil {
		respondError(w, r, h.Logger, err, fallback)
		return
	}
	utils.SendJSON(w, http.StatusOK, marche)
}
