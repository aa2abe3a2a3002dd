package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/metrics"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/recours"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/repository"

	"github.com/sirupsen/logrus"
)

// RecoursResult - marché после перехода и активный срок по recours.
type RecoursResult struct {
	Marche *models.Marche     `json:"marche"`
	Timer  *recours.TimerInfo `json:"timer"`
}

type RecoursService struct {
	Repo      repository.MarcheRepository
	Clock     calendar.Clock
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *logrus.Logger
}

// NewRecoursService создаёт новый экземпляр RecoursService.
func NewRecoursService(repo repository.MarcheRepository, clock calendar.Clock, publisher events.Publisher, recorder metrics.Recorder, logger *logrus.Logger) *RecoursService {
	return &RecoursService{
		Repo:      repo,
		Clock:     clock,
		Publisher: publisher,
		Metrics:   recorder,
		Logger:    logger,
	}
}

// Eligibility проверяет, можно ли сейчас подать recours данного типа.
func (s *RecoursService) Eligibility(ctx context.Context, marcheId string, t models.RecoursType) (*recours.Eligibility, error) {
	if !t.IsValid() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid recours type: %s", t))
	}
	marche, err := s.Repo.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}

	result := recours.CheckEligibility(marche, t, s.Clock.Now())
	s.Metrics.RecordEligibility(string(t), result.Eligible)
	return &result, nil
}

// Create регистрирует recours. Сроки подачи проверяются повторно на момент создания.
func (s *RecoursService) Create(ctx context.Context, marcheId string, req models.RecoursRequest) (*RecoursResult, error) {
	if !req.Type.IsValid() {
		return nil, models.NewErrorResponse(http.StatusBadRequest, fmt.Sprintf("invalid recours type: %s", req.Type))
	}
	return s.apply(ctx, marcheId, events.RecoursCree, "create", func(m *models.Marche) error {
		return recours.Create(m, req.Type, s.Clock.Now())
	})
}

// Update заполняет поля этапов recours в порядке процедуры.
func (s *RecoursService) Update(ctx context.Context, marcheId string, req models.RecoursUpdateRequest) (*RecoursResult, error) {
	if req.DateReponseDG == nil && req.IsSatisfaitDG == nil && req.DateEscalationCA == nil &&
		req.DateAvisComite == nil && req.DateDecisionCA == nil {
		return nil, models.NewErrorResponse(http.StatusBadRequest, "no valid fields to update")
	}
	return s.apply(ctx, marcheId, events.RecoursMisAJour, "update", func(m *models.Marche) error {
		if req.DateReponseDG != nil {
			if err := recours.SetDateReponseDG(m, *req.DateReponseDG); err != nil {
				return err
			}
		}
		if req.IsSatisfaitDG != nil {
			if err := recours.SetSatisfactionDG(m, *req.IsSatisfaitDG); err != nil {
				return err
			}
		}
		if req.DateEscalationCA != nil {
			if err := recours.SetDateEscalationCA(m, *req.DateEscalationCA); err != nil {
				return err
			}
		}
		if req.DateAvisComite != nil {
			if err := recours.SetDateAvisComite(m, *req.DateAvisComite); err != nil {
				return err
			}
		}
		if req.DateDecisionCA != nil {
			if err := recours.SetDateDecisionCA(m, *req.DateDecisionCA); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close закрывает recours с решением.
func (s *RecoursService) Close(ctx context.Context, marcheId string, req models.ClotureRequest) (*RecoursResult, error) {
	return s.apply(ctx, marcheId, events.RecoursClos, "close", func(m *models.Marche) error {
		return recours.Close(m, req.Verdict, req.Commentaire, s.Clock.Now())
	})
}

// Retract снимает recours.
func (s *RecoursService) Retract(ctx context.Context, marcheId string) (*RecoursResult, error) {
	return s.apply(ctx, marcheId, events.RecoursRetire, "retract", func(m *models.Marche) error {
		if m.Recours == nil {
			return recours.ErrNoRecours
		}
		recours.Retract(m)
		return nil
	})
}

// Timer возвращает активный срок по recours или nil.
func (s *RecoursService) Timer(ctx context.Context, marcheId string) (*recours.TimerInfo, error) {
	marche, err := s.Repo.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}
	return recours.ActiveTimer(marche, s.Clock.Now()), nil
}

// apply загружает marché, применяет переход и сохраняет поля, которые переход может изменить.
func (s *RecoursService) apply(ctx context.Context, marcheId string, event events.EventType, action string, transition func(m *models.Marche) error) (*RecoursResult, error) {
	marche, err := s.Repo.GetMarche(ctx, marcheId)
	if err != nil {
		return nil, err
	}

	recoursType := ""
	if marche.Recours != nil {
		recoursType = string(marche.Recours.Type)
	}
	if err := transition(marche); err != nil {
		return nil, transitionError(err)
	}
	if marche.Recours != nil {
		recoursType = string(marche.Recours.Type)
	}

	updated, err := s.Repo.PatchMarche(ctx, marcheId, map[string]interface{}{
		"has_recours":      marche.HasRecours,
		"recours":          marche.Recours,
		"statut_global":    marche.StatutGlobal,
		"is_annule":        marche.IsAnnule,
		"motif_annulation": marche.MotifAnnulation,
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordTransition(recoursType, action)
	if err := s.Publisher.Publish(ctx, events.Event{
		Type:         event,
		MarcheID:     updated.ID,
		Reference:    updated.Reference,
		RecoursType:  recoursType,
		StatutGlobal: string(updated.StatutGlobal),
	}); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{
			"marche_id": updated.ID,
			"event":     event,
		}).Warn("failed to publish event")
	}

	return &RecoursResult{
		Marche: updated,
		Timer:  recours.ActiveTimer(updated, s.Clock.Now()),
	}, nil
}
