package recours

import (
	"errors"
	"fmt"
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/jalons"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

var (
	ErrIneligible     = errors.New("recours not eligible")
	ErrAlreadyExists  = errors.New("a recours is already registered for this marche")
	ErrNoRecours      = errors.New("no recours registered for this marche")
	ErrClosed         = errors.New("recours is closed")
	ErrNotClosable    = errors.New("recours cannot be closed at this stage")
	ErrWrongType      = errors.New("field does not apply to this recours type")
	ErrStep           = errors.New("field is not available at the current step")
	ErrFieldOrder     = errors.New("director-general response date must be set first")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidVerdict = errors.New("invalid verdict")
)

// IneligibleError - recours не может быть подан, Reason объясняет почему.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string {
	return ErrIneligible.Error() + ": " + e.Reason
}

func (e *IneligibleError) Unwrap() error { return ErrIneligible }

// Create регистрирует recours по marché после повторной проверки сроков.
func Create(m *models.Marche, t models.RecoursType, today time.Time) error {
	if m.Recours != nil {
		return ErrAlreadyExists
	}
	if e := CheckEligibility(m, t, today); !e.Eligible {
		return &IneligibleError{Reason: e.Reason}
	}

	r := &models.Recours{
		Type:             t,
		Statut:           models.RecoursEnExamen,
		DateIntroduction: calendar.FormatDate(today),
		CurrentStep:      1,
	}
	if t == models.AvantOuverture {
		r.Reclamation = &models.ReclamationDG{}
	} else {
		r.Arbitrage = &models.ArbitrageCA{}
	}

	m.Recours = r
	m.HasRecours = true
	if t.IsSuspensif() {
		r.Statut = models.RecoursSuspendu
		m.StatutGlobal = models.Suspendu
	}
	return nil
}

// Retract снимает recours. Общий статус marché при этом не восстанавливается.
func Retract(m *models.Marche) {
	m.HasRecours = false
	m.Recours = nil
}

// SetDateReponseDG фиксирует дату ответа генерального директора.
func SetDateReponseDG(m *models.Marche, date string) error {
	r, err := reclamation(m)
	if err != nil {
		return err
	}
	if r.CurrentStep != 1 {
		return ErrStep
	}
	if err := checkDate(date); err != nil {
		return err
	}
	r.Reclamation.DateReponseDG = date
	return nil
}

// SetSatisfactionDG фиксирует, удовлетворён ли заявитель ответом. Отказ переводит recours на этап эскалации.
func SetSatisfactionDG(m *models.Marche, satisfait bool) error {
	r, err := reclamation(m)
	if err != nil {
		return err
	}
	if r.Reclamation.DateReponseDG == "" {
		return ErrFieldOrder
	}
	if r.CurrentStep != 1 {
		return ErrStep
	}
	r.Reclamation.IsSatisfaitDG = &satisfait
	if !satisfait {
		r.CurrentStep = 2
	}
	return nil
}

// SetDateEscalationCA фиксирует дату обращения к председателю совета.
func SetDateEscalationCA(m *models.Marche, date string) error {
	r, err := reclamation(m)
	if err != nil {
		return err
	}
	if r.CurrentStep != 2 {
		return ErrStep
	}
	if err := checkDate(date); err != nil {
		return err
	}
	r.Reclamation.DateEscalationCA = date
	return nil
}

// SetDateAvisComite фиксирует дату заключения арбитражного комитета и переводит recours на второй этап.
func SetDateAvisComite(m *models.Marche, date string) error {
	r, err := arbitrage(m)
	if err != nil {
		return err
	}
	if err := checkDate(date); err != nil {
		return err
	}
	r.Arbitrage.DateAvisComite = date
	if r.CurrentStep == 1 {
		r.CurrentStep = 2
	}
	return nil
}

// SetDateDecisionCA фиксирует дату окончательного решения совета.
func SetDateDecisionCA(m *models.Marche, date string) error {
	r, err := arbitrage(m)
	if err != nil {
		return err
	}
	if r.CurrentStep != 2 {
		return ErrStep
	}
	if err := checkDate(date); err != nil {
		return err
	}
	r.Arbitrage.DateDecisionCA = date
	return nil
}

// CanClose сообщает, можно ли закрыть recours.
func CanClose(r *models.Recours) bool {
	if r == nil || r.IsClosed() {
		return false
	}
	if r.Type == models.AvantOuverture {
		rec := r.Reclamation
		if rec == nil || rec.IsSatisfaitDG == nil {
			return false
		}
		return *rec.IsSatisfaitDG || rec.DateEscalationCA != ""
	}
	arb := r.Arbitrage
	return arb != nil && arb.DateAvisComite != "" && arb.DateDecisionCA != ""
}

// Close закрывает recours с решением и применяет последствия к marché.
func Close(m *models.Marche, verdict models.Verdict, commentaire string, today time.Time) error {
	r, err := editable(m)
	if err != nil {
		return err
	}
	if verdict != models.VerdictRejete && verdict != models.VerdictAccepte {
		return ErrInvalidVerdict
	}
	if !CanClose(r) {
		return ErrNotClosable
	}

	dateCloture := calendar.FormatDate(today)
	r.Verdict = verdictText(verdict, commentaire)
	r.DateCloture = dateCloture
	if verdict == models.VerdictAccepte {
		r.Statut = models.RecoursAccepte
	} else {
		r.Statut = models.RecoursRejete
	}

	if !r.Type.IsSuspensif() {
		return nil
	}
	if verdict == models.VerdictAccepte {
		m.StatutGlobal = models.Annule
		m.IsAnnule = true
		m.MotifAnnulation = fmt.Sprintf("Annulé suite au recours introduit le %s et accepté le %s : %s",
			r.DateIntroduction, dateCloture, r.Verdict)
		return nil
	}
	if m.DateRealisee(jalons.SignatureMarche) != "" {
		m.StatutGlobal = models.Signe
	} else {
		m.StatutGlobal = models.EnCours
	}
	return nil
}

func verdictText(v models.Verdict, commentaire string) string {
	text := "Recours rejeté"
	if v == models.VerdictAccepte {
		text = "Recours accepté"
	}
	if commentaire != "" {
		text += " - " + commentaire
	}
	return text
}

func editable(m *models.Marche) (*models.Recours, error) {
	if m.Recours == nil {
		return nil, ErrNoRecours
	}
	if m.Recours.IsClosed() {
		return nil, ErrClosed
	}
	return m.Recours, nil
}

func reclamation(m *models.Marche) (*models.Recours, error) {
	r, err := editable(m)
	if err != nil {
		return nil, err
	}
	if r.Type != models.AvantOuverture {
		return nil, ErrWrongType
	}
	if r.Reclamation == nil {
		r.Reclamation = &models.ReclamationDG{}
	}
	return r, nil
}

func arbitrage(m *models.Marche) (*models.Recours, error) {
	r, err := editable(m)
	if err != nil {
		return nil, err
	}
	if r.Type == models.AvantOuverture {
		return nil, ErrWrongType
	}
	if r.Arbitrage == nil {
		r.Arbitrage = &models.ArbitrageCA{}
	}
	return r, nil
}

func checkDate(date string) error {
	if _, err := calendar.ParseDate(date); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, date)
	}
	return nil
}
