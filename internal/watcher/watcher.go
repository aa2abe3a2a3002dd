package watcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/metrics"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/recours"

	"github.com/sirupsen/logrus"
)

// OpenRecoursLister - источник marchés с незакрытыми recours.
type OpenRecoursLister interface {
	ListOpenRecours(ctx context.Context) ([]models.Marche, error)
}

// Expired - marché, у которого истёк активный срок по recours.
type Expired struct {
	MarcheID  string             `json:"marche_id"`
	Reference string             `json:"reference"`
	Type      models.RecoursType `json:"type"`
	Timer     recours.TimerInfo  `json:"timer"`
}

// Report - итог одного обхода.
type Report struct {
	Open    int       `json:"open"`
	Expired []Expired `json:"expired"`
}

// Watcher периодически пересчитывает сроки по открытым recours.
// Marchés он только читает. О каждом истёкшем сроке сообщает один раз.
type Watcher struct {
	Repo      OpenRecoursLister
	Clock     calendar.Clock
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Logger    *logrus.Logger
	Interval  time.Duration

	mu       sync.Mutex
	notified map[string]struct{}
}

const defaultInterval = time.Minute

// NewWatcher создаёт новый экземпляр Watcher.
func NewWatcher(repo OpenRecoursLister, clock calendar.Clock, publisher events.Publisher, recorder metrics.Recorder, logger *logrus.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{
		Repo:      repo,
		Clock:     clock,
		Publisher: publisher,
		Metrics:   recorder,
		Logger:    logger,
		Interval:  interval,
		notified:  map[string]struct{}{},
	}
}

// Run выполняет обход сразу и затем каждые Interval, пока ctx не отменён.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Sweep(ctx); err != nil && ctx.Err() == nil {
			w.Logger.WithError(err).Error("deadline sweep failed")
		}
		select {
		case <-ctx.Done():
			w.Logger.Info("deadline watcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep пересчитывает активные сроки всех открытых recours.
func (w *Watcher) Sweep(ctx context.Context) (*Report, error) {
	marches, err := w.Repo.ListOpenRecours(ctx)
	if err != nil {
		return nil, err
	}

	now := w.Clock.Now()
	report := &Report{Open: len(marches), Expired: []Expired{}}
	current := make(map[string]struct{})
	for i := range marches {
		m := &marches[i]
		timer := recours.ActiveTimer(m, now)
		if timer == nil || !timer.IsExpired {
			continue
		}
		report.Expired = append(report.Expired, Expired{
			MarcheID:  m.ID,
			Reference: m.Reference,
			Type:      m.Recours.Type,
			Timer:     *timer,
		})
		key := notifyKey(m, timer)
		current[key] = struct{}{}
		if w.markNotified(key) {
			w.notify(ctx, m, timer)
		}
	}
	w.forgetExcept(current)

	w.Metrics.SetOpenRecours(report.Open)
	w.Metrics.SetExpiredDeadlines(len(report.Expired))
	return report, nil
}

// notifyKey различает повторно поданный recours того же типа по дате подачи и сроку.
func notifyKey(m *models.Marche, timer *recours.TimerInfo) string {
	return m.ID + "|" + m.Recours.DateIntroduction + "|" + timer.Label + "|" + timer.DeadlineDate
}

func (w *Watcher) markNotified(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.notified[key]; ok {
		return false
	}
	w.notified[key] = struct{}{}
	return true
}

// forgetExcept удаляет ключи сроков, которых нет среди истёкших в текущем обходе.
func (w *Watcher) forgetExcept(current map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key := range w.notified {
		if _, ok := current[key]; !ok {
			delete(w.notified, key)
		}
	}
}

func (w *Watcher) notify(ctx context.Context, m *models.Marche, timer *recours.TimerInfo) {
	fields := logrus.Fields{
		"marche_id": m.ID,
		"reference": m.Reference,
		"recours":   m.Recours.Type,
		"deadline":  timer.DeadlineDate,
		"label":     timer.Label,
	}
	w.Logger.WithFields(fields).Warn("recours deadline expired")

	err := w.Publisher.Publish(ctx, events.Event{
		Type:         events.DelaiExpire,
		MarcheID:     m.ID,
		Reference:    m.Reference,
		RecoursType:  string(m.Recours.Type),
		StatutGlobal: string(m.StatutGlobal),
		Attributes: map[string]string{
			"label":    timer.Label,
			"deadline": timer.DeadlineDate,
			"total":    strconv.Itoa(timer.Total),
			"unit":     timer.Unit,
		},
		OccurredAt: w.Clock.Now(),
	})
	if err != nil {
		w.Logger.WithError(err).WithFields(fields).Warn("failed to publish event")
	}
}
