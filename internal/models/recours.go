package models

type (
	RecoursType   string // Тип recours (по этапу процедуры)
	RecoursStatut string // Статус recours
	Verdict       string // Итоговое решение по recours
)

const (
	AvantOuverture   RecoursType = "AVANT_OUVERTURE"   // До вскрытия предложений
	PendantOuverture RecoursType = "PENDANT_OUVERTURE" // При вскрытии предложений
	ApresAttribution RecoursType = "APRES_ATTRIBUTION" // После определения победителя, приостанавливает marché

	RecoursEnExamen RecoursStatut = "EN_EXAMEN"    // На рассмотрении
	RecoursSuspendu RecoursStatut = "SUSPENDU"     // На рассмотрении, marché приостановлен
	RecoursRejete   RecoursStatut = "CLOS_REJETE"  // Закрыт, отклонён
	RecoursAccepte  RecoursStatut = "CLOS_ACCEPTE" // Закрыт, удовлетворён

	VerdictRejete  Verdict = "REJETE"  // Recours отклонён
	VerdictAccepte Verdict = "ACCEPTE" // Recours удовлетворён
)

// Recours представляет модель recours, привязанного к marché.
// Ровно одно из полей Reclamation и Arbitrage заполнено, в зависимости от Type.
type Recours struct {
	Type             RecoursType    `json:"type"`
	Statut           RecoursStatut  `json:"statut"`
	DateIntroduction string         `json:"date_introduction"`
	CurrentStep      int            `json:"current_step"`
	Reclamation      *ReclamationDG `json:"reclamation,omitempty"`
	Arbitrage        *ArbitrageCA   `json:"arbitrage,omitempty"`
	Verdict          string         `json:"verdict,omitempty"`
	DateCloture      string         `json:"date_cloture,omitempty"`
}

// ReclamationDG - этапы recours до вскрытия: ответ генерального директора и эскалация в совет.
type ReclamationDG struct {
	DateReponseDG    string `json:"date_reponse_dg,omitempty"`
	IsSatisfaitDG    *bool  `json:"is_satisfait_dg,omitempty"`
	DateEscalationCA string `json:"date_escalation_ca,omitempty"`
}

// ArbitrageCA - этапы остальных recours: заключение арбитражного комитета и решение совета.
type ArbitrageCA struct {
	DateAvisComite string `json:"date_avis_comite,omitempty"`
	DateDecisionCA string `json:"date_decision_ca,omitempty"`
}

// RecoursRequest - запрос на регистрацию recours.
type RecoursRequest struct {
	Type RecoursType `json:"type"`
}

// RecoursUpdateRequest - запрос на заполнение одного из полей этапа recours.
type RecoursUpdateRequest struct {
	DateReponseDG    *string `json:"date_reponse_dg,omitempty"`
	IsSatisfaitDG    *bool   `json:"is_satisfait_dg,omitempty"`
	DateEscalationCA *string `json:"date_escalation_ca,omitempty"`
	DateAvisComite   *string `json:"date_avis_comite,omitempty"`
	DateDecisionCA   *string `json:"date_decision_ca,omitempty"`
}

// ClotureRequest - запрос на закрытие recours.
type ClotureRequest struct {
	Verdict     Verdict `json:"verdict"`
	Commentaire string  `json:"commentaire"`
}

// IsValid проверяет, что тип recours известен.
func (t RecoursType) IsValid() bool {
	switch t {
	case AvantOuverture, PendantOuverture, ApresAttribution:
		return true
	}
	return false
}

// IsSuspensif сообщает, приостанавливает ли recours этого типа marché.
func (t RecoursType) IsSuspensif() bool {
	return t == ApresAttribution
}

// IsClosed сообщает, закрыт ли recours.
func (r *Recours) IsClosed() bool {
	return r != nil && r.DateCloture != ""
}
