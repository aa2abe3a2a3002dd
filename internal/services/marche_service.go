package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/jalons"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/repository"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/utils"

	"github.com/sirupsen/logrus"
)

var allowedStatuts = []models.StatutGlobal{
	models.Planifie,
	models.EnCours,
	models.Attribue,
	models.Signe,
	models.Cloture,
	models.Annule,
	models.Infructueux,
	models.Suspendu,
}

// frozenStatuts - статусы, которые не пересчитываются по датам jalons.
var frozenStatuts = []models.StatutGlobal{
	models.Suspendu,
	models.Annule,
	models.Infructueux,
	models.Cloture,
}

type MarcheService struct {
	Repo      repository.MarcheRepository
	Gate      *jalons.Gate
	Catalog   jalons.Catalog
	Clock     calendar.Clock
	Publisher events.Publisher
	Logger    *logrus.Logger
}

// NewMarcheService создаёт новый экземпляр MarcheService.
func NewMarcheService(repo repository.MarcheRepository, catalog jalons.Catalog, clock calendar.Clock, publisher events.Publisher, logger *logrus.Logger) *MarcheService {
	return &MarcheService{
		Repo:      repo,
		Gate:      jalons.NewGate(catalog),
		Catalog:   catalog,
		Clock:     clock,
		Publisher: publisher,
		Logger:    logger,
	}
}

// CreateMarche регистрирует новый marché в статусе PLANIFIE.
func (s *MarcheService) CreateMarche(ctx context.Context, req models.MarcheRequest) (*models.Marche, error) {
	if strings.TrimSpace(req.Reference) == "" || strings.TrimSpace(req.Objet) == "" || req.PPMYear <= 0 {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required fields: reference, objet, ppm_year")
	}
	if req.SourceFinancement != models.BudgetInterne && req.SourceFinancement != models.Bailleur {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid source_financement: %s", req.SourceFinancement))
	}
	if req.TypeOuverture != models.UnePhase && req.TypeOuverture != models.DeuxPhases {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid type_ouverture: %s", req.TypeOuverture))
	}

	sequence := jalons.Sequence(s.Catalog, req.TypeOuverture)
	dates := make(map[string]string, len(req.DatesPrevues))
	for key, date := range req.DatesPrevues {
		if !utils.Contains(sequence, key) {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unknown jalon: %s", key))
		}
		if _, err := calendar.ParseDate(date); err != nil {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid date for %s: %s", key, date))
		}
		dates[key] = date
	}

	return s.Repo.CreateMarche(ctx, &models.Marche{
		Reference:         strings.TrimSpace(req.Reference),
		Objet:             req.Objet,
		PPMYear:           req.PPMYear,
		SourceFinancement: req.SourceFinancement,
		TypeOuverture:     req.TypeOuverture,
		StatutGlobal:      models.Planifie,
		DatesPrevues:      dates,
		DatesRealisees:    map[string]string{},
	})
}

// GetMarche возвращает marché по id.
func (s *MarcheService) GetMarche(ctx context.Context, marcheId string) (*models.Marche, error) {
	if marcheId == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing marche id")
	}
	return s.Repo.GetMarche(ctx, marcheId)
}

// ListMarches возвращает список marchés.
func (s *MarcheService) ListMarches(ctx context.Context, limit, offset int, statuts []string) ([]models.Marche, error) {
	for _, statut := range statuts {
		if !utils.Contains(allowedStatuts, models.StatutGlobal(statut)) {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unsupported statut: %s", statut))
		}
	}
	return s.Repo.ListMarches(ctx, limit, offset, statuts)
}

// Jalons возвращает состояние jalons marché по фазам.
func (s *MarcheService) Jalons(ctx context.Context, marcheId string) ([]jalons.PhaseStatus, error) {
	marche, err := s.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}
	return s.Gate.Evaluate(marche, calendar.Today(s.Clock)), nil
}

// SetJalonDate устанавливает плановую или фактическую дату jalon.
// Пустая дата удаляет значение.
func (s *MarcheService) SetJalonDate(ctx context.Context, marcheId, key string, req models.JalonDateRequest) (*models.Marche, error) {
	if req.Kind != models.Prevue && req.Kind != models.Realisee {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid kind: %s", req.Kind))
	}
	if req.Date != "" {
		if _, err := calendar.ParseDate(req.Date); err != nil {
			return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid date: %s", req.Date))
		}
	}

	marche, err := s.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}

	if !utils.Contains(jalons.Sequence(s.Catalog, marche.TypeOuverture), key) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("unknown jalon: %s", key))
	}
	if !s.Gate.IsApplicable(marche, key) {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("jalon %s does not apply to an internally funded marche", key))
	}
	if !s.Gate.IsActive(marche, key) {
		return nil, models.NewErrorResponse(http.StatusConflict, fmt.Sprintf("jalon %s is past the cancellation or fruitlessness cutoff", key))
	}
	if jalons.IsBlockedBySuspendu(marche, key) {
		return nil, models.NewErrorResponse(http.StatusConflict, fmt.Sprintf("jalon %s is blocked while a suspensive recours is pending", key))
	}

	column, source := "dates_prevues", marche.DatesPrevues
	if req.Kind == models.Realisee {
		column, source = "dates_realisees", marche.DatesRealisees
	}
	dates := make(map[string]string, len(source)+1)
	for k, v := range source {
		dates[k] = v
	}
	if req.Date == "" {
		delete(dates, key)
	} else {
		dates[key] = req.Date
	}

	fields := map[string]interface{}{column: dates}
	if req.Kind == models.Realisee {
		marche.DatesRealisees = dates
		if statut := DeriveStatut(marche); statut != marche.StatutGlobal {
			fields["statut_global"] = statut
		}
	}
	return s.Repo.PatchMarche(ctx, marcheId, fields)
}

// DeriveStatut вычисляет общий статус по фактическим датам jalons.
// Приостановленный, отменённый, несостоявшийся или закрытый marché сохраняет свой статус.
func DeriveStatut(m *models.Marche) models.StatutGlobal {
	if utils.Contains(frozenStatuts, m.StatutGlobal) {
		return m.StatutGlobal
	}
	switch {
	case m.DateRealisee(jalons.SignatureMarche) != "":
		return models.Signe
	case m.DateRealisee(jalons.NotificationAttrib) != "":
		return models.Attribue
	}
	for _, date := range m.DatesRealisees {
		if date != "" {
			return models.EnCours
		}
	}
	return models.Planifie
}

// DeclareInfructueux признаёт marché несостоявшимся.
func (s *MarcheService) DeclareInfructueux(ctx context.Context, marcheId string, req models.MotifRequest) (*models.Marche, error) {
	return s.terminate(ctx, marcheId, req, map[string]interface{}{
		"is_infructueux":    true,
		"motif_infructueux": strings.TrimSpace(req.Motif),
		"statut_global":     models.Infructueux,
	}, events.MarcheInfructueux)
}

// Annuler отменяет marché.
func (s *MarcheService) Annuler(ctx context.Context, marcheId string, req models.MotifRequest) (*models.Marche, error) {
	return s.terminate(ctx, marcheId, req, map[string]interface{}{
		"is_annule":        true,
		"motif_annulation": strings.TrimSpace(req.Motif),
		"statut_global":    models.Annule,
	}, events.MarcheAnnule)
}

// terminate переводит marché в отменённое или несостоявшееся состояние.
// Эти состояния взаимоисключающие.
func (s *MarcheService) terminate(ctx context.Context, marcheId string, req models.MotifRequest, fields map[string]interface{}, event events.EventType) (*models.Marche, error) {
	if strings.TrimSpace(req.Motif) == "" {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "missing required field: motif")
	}

	marche, err := s.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}
	if marche.IsAnnule {
		return nil, models.NewErrorResponse(http.StatusConflict, "marche is already cancelled")
	}
	if marche.IsInfructueux {
		return nil, models.NewErrorResponse(http.StatusConflict, "marche is already declared infructueux")
	}

	updated, err := s.Repo.PatchMarche(ctx, marcheId, fields)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:         event,
		MarcheID:     updated.ID,
		Reference:    updated.Reference,
		StatutGlobal: string(updated.StatutGlobal),
		Attributes:   map[string]string{"motif": strings.TrimSpace(req.Motif)},
	})
	return updated, nil
}

// History возвращает сохранённые версии marché.
func (s *MarcheService) History(ctx context.Context, marcheId string) ([]models.MarcheVersion, error) {
	if _, err := s.GetMarche(ctx, marcheId); err != nil {
		return nil, err
	}
	return s.Repo.GetHistory(ctx, marcheId)
}

func (s *MarcheService) publish(ctx context.Context, event events.Event) {
	if err := s.Publisher.Publish(ctx, event); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"marche_id": event.MarcheID,
			"event":     event.Type,
		}).Warn("failed to publish event")
	}
}
