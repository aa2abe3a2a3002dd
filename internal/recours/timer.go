package recours

import (
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

// Сроки рассмотрения recours, считаются от даты подачи.
const (
	DelaiReponseDG  = 3  // календарных дней на ответ генерального директора
	DelaiAvisComite = 7  // рабочих дней на заключение арбитражного комитета
	DelaiDecisionCA = 15 // календарных дней на решение совета
)

const (
	UnitCalendar = "jours calendaires"
	UnitBusiness = "jours ouvrables"

	LabelReponseDG  = "Réponse du Directeur Général"
	LabelAvisComite = "Avis du Comité d'Arbitrage"
	LabelDecisionCA = "Décision finale du Conseil d'Administration"
)

// TimerInfo - активный отсчёт срока по recours.
type TimerInfo struct {
	Label        string `json:"label"`
	Remaining    int    `json:"remaining"`
	Total        int    `json:"total"`
	IsExpired    bool   `json:"is_expired"`
	DeadlineDate string `json:"deadline_date"`
	Unit         string `json:"unit"`
}

// ActiveTimer вычисляет единственный активный срок по recours marché или nil.
// Пересчитывается при каждом чтении и ничего не сохраняет.
func ActiveTimer(m *models.Marche, now time.Time) *TimerInfo {
	r := m.Recours
	if r == nil || r.IsClosed() {
		return nil
	}
	intro, err := calendar.ParseDate(r.DateIntroduction)
	if err != nil {
		return nil
	}

	if r.Type == models.AvantOuverture {
		if r.CurrentStep == 1 && (r.Reclamation == nil || r.Reclamation.DateReponseDG == "") {
			return calendarTimer(LabelReponseDG, intro, DelaiReponseDG, now)
		}
		return nil
	}

	arb := r.Arbitrage
	if arb == nil {
		arb = &models.ArbitrageCA{}
	}
	switch {
	case r.CurrentStep == 1 && arb.DateAvisComite == "":
		rem := calendar.BusinessDaysRemaining(intro, DelaiAvisComite, now)
		return newTimer(LabelAvisComite, rem, DelaiAvisComite, UnitBusiness)
	case r.CurrentStep == 2 && arb.DateDecisionCA == "":
		return calendarTimer(LabelDecisionCA, intro, DelaiDecisionCA, now)
	}
	return nil
}

func calendarTimer(label string, from time.Time, total int, now time.Time) *TimerInfo {
	return newTimer(label, calendar.CalendarDaysRemaining(from, total, now), total, UnitCalendar)
}

func newTimer(label string, rem calendar.Remaining, total int, unit string) *TimerInfo {
	return &TimerInfo{
		Label:        label,
		Remaining:    rem.Remaining,
		Total:        total,
		IsExpired:    rem.IsExpired,
		DeadlineDate: calendar.FormatDate(rem.Deadline),
		Unit:         unit,
	}
}
