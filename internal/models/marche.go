package models

import "time"

type (
	SourceFinancement string // Источник финансирования marché
	TypeOuverture     string // Порядок вскрытия предложений
	StatutGlobal      string // Общий статус marché
	DateKind          string // Вид даты jalon
)

const (
	BudgetInterne SourceFinancement = "BUDGET_INTERNE" // Собственный бюджет
	Bailleur      SourceFinancement = "BAILLEUR"       // Финансирование донора

	UnePhase   TypeOuverture = "UNE_PHASE"   // Вскрытие в один этап
	DeuxPhases TypeOuverture = "DEUX_PHASES" // Техническое и финансовое вскрытие раздельно

	Planifie    StatutGlobal = "PLANIFIE"    // Запланирован
	EnCours     StatutGlobal = "EN_COURS"    // В работе
	Attribue    StatutGlobal = "ATTRIBUE"    // Победитель определён
	Signe       StatutGlobal = "SIGNE"       // Контракт подписан
	Cloture     StatutGlobal = "CLOTURE"     // Закрыт
	Annule      StatutGlobal = "ANNULE"      // Отменён
	Infructueux StatutGlobal = "INFRUCTUEUX" // Признан несостоявшимся
	Suspendu    StatutGlobal = "SUSPENDU"    // Приостановлен recours

	Prevue   DateKind = "prevue"   // Плановая дата
	Realisee DateKind = "realisee" // Фактическая дата
)

// Marche представляет модель marché (закупочного дела).
type Marche struct {
	ID                string            `json:"id"`
	Reference         string            `json:"reference"`
	Objet             string            `json:"objet"`
	PPMYear           int               `json:"ppm_year"`
	SourceFinancement SourceFinancement `json:"source_financement"`
	TypeOuverture     TypeOuverture     `json:"type_ouverture"`
	IsAnnule          bool              `json:"is_annule"`
	MotifAnnulation   string            `json:"motif_annulation,omitempty"`
	IsInfructueux     bool              `json:"is_infructueux"`
	MotifInfructueux  string            `json:"motif_infructueux,omitempty"`
	StatutGlobal      StatutGlobal      `json:"statut_global"`
	HasRecours        bool              `json:"has_recours"`
	Recours           *Recours          `json:"recours,omitempty"`
	DatesPrevues      map[string]string `json:"dates_prevues"`
	DatesRealisees    map[string]string `json:"dates_realisees"`
	Version           int32             `json:"version"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// MarcheRequest представляет структуру запроса для создания marché.
type MarcheRequest struct {
	Reference         string            `json:"reference"`
	Objet             string            `json:"objet"`
	PPMYear           int               `json:"ppm_year"`
	SourceFinancement SourceFinancement `json:"source_financement"`
	TypeOuverture     TypeOuverture     `json:"type_ouverture"`
	DatesPrevues      map[string]string `json:"dates_prevues"`
}

// JalonDateRequest - запрос на установку даты jalon.
type JalonDateRequest struct {
	Kind DateKind `json:"kind"`
	Date string   `json:"date"`
}

// MotifRequest - запрос с указанием причины (отмена, признание несостоявшимся).
type MotifRequest struct {
	Motif string `json:"motif"`
}

// MarcheVersion - снимок marché на момент изменения.
type MarcheVersion struct {
	Version   int32     `json:"version"`
	Snapshot  Marche    `json:"snapshot"`
	CreatedAt time.Time `json:"created_at"`
}

// DatePrevue возвращает плановую дату jalon или пустую строку.
func (m *Marche) DatePrevue(key string) string {
	if m.DatesPrevues == nil {
		return ""
	}
	return m.DatesPrevues[key]
}

// DateRealisee возвращает фактическую дату jalon или пустую строку.
func (m *Marche) DateRealisee(key string) string {
	if m.DatesRealisees == nil {
		return ""
	}
	return m.DatesRealisees[key]
}

// FirstDate возвращает первую непустую дату из dates по списку ключей.
func FirstDate(dates map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := dates[key]; v != "" {
			return v
		}
	}
	return ""
}
