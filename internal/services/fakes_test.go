package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

// fakeMarcheRepository хранит marchés в памяти и применяет частичные обновления как база.
type fakeMarcheRepository struct {
	marches map[string]*models.Marche
	history map[string][]models.MarcheVersion
	patches []map[string]interface{}
	nextID  int
}

func newFakeMarcheRepository() *fakeMarcheRepository {
	return &fakeMarcheRepository{
		marches: map[string]*models.Marche{},
		history: map[string][]models.MarcheVersion{},
	}
}

func clone(m *models.Marche) *models.Marche {
	raw, _ := json.Marshal(m)
	var c models.Marche
	_ = json.Unmarshal(raw, &c)
	if c.DatesPrevues == nil {
		c.DatesPrevues = map[string]string{}
	}
	if c.DatesRealisees == nil {
		c.DatesRealisees = map[string]string{}
	}
	return &c
}

func (r *fakeMarcheRepository) put(m *models.Marche) *models.Marche {
	if m.ID == "" {
		r.nextID++
		m.ID = fmt.Sprintf("m-%d", r.nextID)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	r.marches[m.ID] = clone(m)
	return m
}

func (r *fakeMarcheRepository) CreateMarche(_ context.Context, marche *models.Marche) (*models.Marche, error) {
	for _, existing := range r.marches {
		if existing.Reference == marche.Reference {
			return nil, models.NewErrorResponse(409, "duplicate reference")
		}
	}
	return clone(r.put(clone(marche))), nil
}

func (r *fakeMarcheRepository) GetMarche(_ context.Context, marcheId string) (*models.Marche, error) {
	m, ok := r.marches[marcheId]
	if !ok {
		return nil, models.ErrMarcheNotFound
	}
	return clone(m), nil
}

func (r *fakeMarcheRepository) ListMarches(_ context.Context, limit, offset int, statuts []string) ([]models.Marche, error) {
	var out []models.Marche
	for _, m := range r.marches {
		out = append(out, *clone(m))
	}
	return out, nil
}

func (r *fakeMarcheRepository) ListOpenRecours(_ context.Context) ([]models.Marche, error) {
	var out []models.Marche
	for _, m := range r.marches {
		if m.HasRecours && m.Recours != nil && m.Recours.DateCloture == "" {
			out = append(out, *clone(m))
		}
	}
	return out, nil
}

func (r *fakeMarcheRepository) PatchMarche(_ context.Context, marcheId string, fields map[string]interface{}) (*models.Marche, error) {
	m, ok := r.marches[marcheId]
	if !ok {
		return nil, models.ErrMarcheNotFound
	}
	r.patches = append(r.patches, fields)
	r.history[marcheId] = append(r.history[marcheId], models.MarcheVersion{
		Version:   m.Version,
		Snapshot:  *clone(m),
		CreatedAt: time.Now(),
	})

	for k, v := range fields {
		switch k {
		case "statut_global":
			m.StatutGlobal = v.(models.StatutGlobal)
		case "is_annule":
			m.IsAnnule = v.(bool)
		case "motif_annulation":
			m.MotifAnnulation = v.(string)
		case "is_infructueux":
			m.IsInfructueux = v.(bool)
		case "motif_infructueux":
			m.MotifInfructueux = v.(string)
		case "has_recours":
			m.HasRecours = v.(bool)
		case "recours":
			m.Recours = v.(*models.Recours)
		case "dates_prevues":
			m.DatesPrevues = v.(map[string]string)
		case "dates_realisees":
			m.DatesRealisees = v.(map[string]string)
		default:
			return nil, fmt.Errorf("unknown field %s", k)
		}
	}
	m.Version++
	r.marches[marcheId] = clone(m)
	return clone(m), nil
}

func (r *fakeMarcheRepository) GetHistory(_ context.Context, marcheId string) ([]models.MarcheVersion, error) {
	return r.history[marcheId], nil
}

type fakePublisher struct {
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []events.EventType {
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeRecorder struct {
	transitions []string
	eligibility []bool
}

func (f *fakeRecorder) RecordTransition(recoursType, action string) {
	f.transitions = append(f.transitions, recoursType+":"+action)
}

func (f *fakeRecorder) RecordEligibility(_ string, eligible bool) {
	f.eligibility = append(f.eligibility, eligible)
}

func (f *fakeRecorder) SetOpenRecours(int) {}

func (f *fakeRecorder) SetExpiredDeadlines(int) {}

func (f *fakeRecorder) ObserveRequest(string, string, int, time.Duration) {}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// now - вторник 2024-01-02, 10:00.
func fixedClock() calendar.Clock {
	return calendar.FixedClock(time.Date(2024, 1, 2, 10, 0, 0, 0, time.Local))
}
