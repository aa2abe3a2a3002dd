package recours

import (
	"fmt"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/jalons"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

// Сроки подачи recours.
const (
	MinDaysBeforeOuverture       = 7 // календарных дней до плановой даты вскрытия
	MaxBusinessDaysAfterOpening  = 3 // рабочих дней после фактического вскрытия
	MaxBusinessDaysAfterResultat = 5 // рабочих дней после публикации результатов
)

// Eligibility - результат проверки возможности подать recours.
type Eligibility struct {
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
	DaysRemaining int    `json:"days_remaining"`
}

// CheckEligibility проверяет, можно ли ещё подать recours данного типа по marché.
// Функция без побочных эффектов: вызывается при выборе типа и повторно при создании.
func CheckEligibility(m *models.Marche, t models.RecoursType, today time.Time) Eligibility {
	switch t {
	case models.AvantOuverture:
		return checkAvantOuverture(m, today)
	case models.PendantOuverture:
		return checkAfter(
			models.FirstDate(m.DatesRealisees, jalons.OuvertureKeys...),
			"actual bid opening date not set",
			"bid opening", MaxBusinessDaysAfterOpening, today)
	case models.ApresAttribution:
		return checkAfter(
			m.DateRealisee(jalons.PublicationResultats),
			"results publication date not set",
			"results publication", MaxBusinessDaysAfterResultat, today)
	}
	return Eligibility{Reason: fmt.Sprintf("unknown recours type: %s", t)}
}

func checkAvantOuverture(m *models.Marche, today time.Time) Eligibility {
	planned := models.FirstDate(m.DatesPrevues, jalons.OuvertureKeys...)
	if planned == "" {
		return Eligibility{Reason: "planned bid opening date not set"}
	}
	opening, err := calendar.ParseDate(planned)
	if err != nil {
		return Eligibility{Reason: "planned bid opening date is invalid"}
	}

	// Считаются только полные сутки до вскрытия: в причине отказа указан целый остаток.
	daysUntil := calendar.DaysUntil(today, opening)
	if daysUntil <= MinDaysBeforeOuverture {
		return Eligibility{
			Reason: fmt.Sprintf("%d day(s) left before bid opening, a minimum of %d is required",
				daysUntil, MinDaysBeforeOuverture),
		}
	}
	return Eligibility{Eligible: true, DaysRemaining: daysUntil - MinDaysBeforeOuverture}
}

func checkAfter(anchor, missing, event string, maxBusinessDays int, today time.Time) Eligibility {
	if anchor == "" {
		return Eligibility{Reason: missing}
	}
	from, err := calendar.ParseDate(anchor)
	if err != nil {
		return Eligibility{Reason: fmt.Sprintf("%s date is invalid", event)}
	}

	elapsed := calendar.BusinessDaysBetween(from, today)
	if elapsed > maxBusinessDays {
		return Eligibility{
			Reason: fmt.Sprintf("%d business day(s) elapsed since %s, a maximum of %d is allowed",
				elapsed, event, maxBusinessDays),
		}
	}
	return Eligibility{Eligible: true, DaysRemaining: maxBusinessDays - elapsed}
}
