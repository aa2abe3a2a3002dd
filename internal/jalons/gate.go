package jalons

import (
	"time"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

// SuspendedKeys - jalons, недоступные пока действует приостанавливающий recours.
var SuspendedKeys = []string{
	NotificationAttrib,
	SouscriptionProjet,
	SaisineCIPMProjet,
	ValidationProjet,
	ANOBailleurProjet,
	SignatureMarche,
	NotificationFinale,
}

// JalonStatus - состояние jalon для отображения.
type JalonStatus struct {
	Key        string             `json:"key"`
	Label      string             `json:"label"`
	Phase      string             `json:"phase"`
	Applicable bool               `json:"applicable"`
	Active     bool               `json:"active"`
	Blocked    bool               `json:"blocked"`
	Prevue     string             `json:"prevue,omitempty"`
	Realisee   string             `json:"realisee,omitempty"`
	Late       calendar.LateState `json:"late"`
}

// PhaseStatus - доступность фазы.
type PhaseStatus struct {
	ID         string        `json:"id"`
	Label      string        `json:"label"`
	Accessible bool          `json:"accessible"`
	Jalons     []JalonStatus `json:"jalons"`
}

// Gate вычисляет доступность jalons по снимку marché. Состояния не хранит.
type Gate struct {
	catalog Catalog
}

// NewGate создаёт новый экземпляр Gate.
func NewGate(catalog Catalog) *Gate {
	return &Gate{catalog: catalog}
}

// IsApplicable возвращает false для jalons ANO bailleur у marchés на собственном бюджете.
func (g *Gate) IsApplicable(m *models.Marche, key string) bool {
	if m.SourceFinancement != models.BudgetInterne {
		return true
	}
	def, ok := g.catalog.Lookup(key)
	return !ok || !def.BailleurANO
}

// IsActive сообщает, не находится ли jalon после точки отсечения (отмена или infructuosité).
// Публикация результатов остаётся активной после признания marché несостоявшимся.
func (g *Gate) IsActive(m *models.Marche, key string) bool {
	cutoff := cutoffKey(m)
	if cutoff == "" {
		return true
	}

	seq := Sequence(g.catalog, m.TypeOuverture)
	keyIdx, cutIdx := indexOf(seq, key), indexOf(seq, cutoff)
	if keyIdx < 0 || cutIdx < 0 || keyIdx <= cutIdx {
		return true
	}
	return cutoff == DeclarationInfructueux && key == PublicationResultats
}

// IsPhaseAccessible применяет те же точки отсечения на уровне фаз.
func (g *Gate) IsPhaseAccessible(m *models.Marche, phaseID string) bool {
	cutoff := cutoffKey(m)
	if cutoff == "" {
		return true
	}

	phaseIdx, cutIdx := -1, -1
	for i, grp := range g.catalog.Groups(m.TypeOuverture) {
		if grp.ID == phaseID {
			phaseIdx = i
		}
		if indexOf(grp.Keys, cutoff) >= 0 {
			cutIdx = i
		}
	}
	if phaseIdx < 0 || cutIdx < 0 {
		return true
	}
	return phaseIdx <= cutIdx
}

// IsBlockedBySuspendu сообщает, заблокирован ли jalon приостанавливающим recours.
// Не зависит от IsActive и IsApplicable, потребитель проверяет все три.
func IsBlockedBySuspendu(m *models.Marche, key string) bool {
	if m.Recours == nil || m.Recours.Statut != models.RecoursSuspendu {
		return false
	}
	return indexOf(SuspendedKeys, key) >= 0
}

// CanEnter - jalon применим, активен и не заблокирован.
func (g *Gate) CanEnter(m *models.Marche, key string) bool {
	return g.IsApplicable(m, key) && g.IsActive(m, key) && !IsBlockedBySuspendu(m, key)
}

// Evaluate возвращает состояние всех фаз и jalons marché.
func (g *Gate) Evaluate(m *models.Marche, today time.Time) []PhaseStatus {
	groups := g.catalog.Groups(m.TypeOuverture)
	phases := make([]PhaseStatus, 0, len(groups))
	for _, grp := range groups {
		ps := PhaseStatus{
			ID:         grp.ID,
			Label:      grp.Label,
			Accessible: g.IsPhaseAccessible(m, grp.ID),
			Jalons:     make([]JalonStatus, 0, len(grp.Keys)),
		}
		for _, key := range grp.Keys {
			def, _ := g.catalog.Lookup(key)
			prevue, realisee := m.DatePrevue(key), m.DateRealisee(key)
			ps.Jalons = append(ps.Jalons, JalonStatus{
				Key:        key,
				Label:      def.Label,
				Phase:      grp.ID,
				Applicable: g.IsApplicable(m, key),
				Active:     g.IsActive(m, key),
				Blocked:    IsBlockedBySuspendu(m, key),
				Prevue:     prevue,
				Realisee:   realisee,
				Late:       calendar.LateStatus(prevue, realisee, today),
			})
		}
		phases = append(phases, ps)
	}
	return phases
}

// cutoffKey возвращает ключ точки отсечения. При одновременной отмене и infructuosité приоритет у отмены.
func cutoffKey(m *models.Marche) string {
	switch {
	case m.IsAnnule:
		return Annulation
	case m.IsInfructueux:
		return DeclarationInfructueux
	}
	return ""
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
