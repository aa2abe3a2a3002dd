package jalons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/calendar"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

func newMarche(typeOuverture models.TypeOuverture, source models.SourceFinancement) *models.Marche {
	return &models.Marche{
		ID:                "m-1",
		TypeOuverture:     typeOuverture,
		SourceFinancement: source,
		StatutGlobal:      models.EnCours,
		DatesPrevues:      map[string]string{},
		DatesRealisees:    map[string]string{},
	}
}

func TestGate_IsApplicable(t *testing.T) {
	g := NewGate(DefaultCatalog)

	interne := newMarche(models.UnePhase, models.BudgetInterne)
	assert.False(t, g.IsApplicable(interne, ANOBailleurDAO))
	assert.False(t, g.IsApplicable(interne, ANOBailleurProjet))
	assert.True(t, g.IsApplicable(interne, SignatureMarche))

	bailleur := newMarche(models.UnePhase, models.Bailleur)
	assert.True(t, g.IsApplicable(bailleur, ANOBailleurDAO))
	assert.True(t, g.IsApplicable(bailleur, ANOBailleurEvaluation))
}

func TestGate_IsActive_NoCutoff(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.UnePhase, models.Bailleur)

	for _, key := range Sequence(DefaultCatalog, m.TypeOuverture) {
		assert.True(t, g.IsActive(m, key), key)
	}
}

func TestGate_IsActive_Infructueux(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.UnePhase, models.Bailleur)
	m.IsInfructueux = true

	assert.True(t, g.IsActive(m, OuvertureOffres))
	assert.True(t, g.IsActive(m, DeclarationInfructueux))
	assert.False(t, g.IsActive(m, Annulation))
	assert.True(t, g.IsActive(m, PublicationResultats), "publication stays active past the fruitless cutoff")
	assert.False(t, g.IsActive(m, NotificationAttrib))
	assert.False(t, g.IsActive(m, SignatureMarche))
}

func TestGate_IsActive_Annule(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.DeuxPhases, models.Bailleur)
	m.IsAnnule = true

	assert.True(t, g.IsActive(m, OuvertureFinanciere))
	assert.True(t, g.IsActive(m, Annulation))
	assert.False(t, g.IsActive(m, PublicationResultats))
	assert.False(t, g.IsActive(m, NotificationFinale))
}

func TestGate_IsActive_BothFlagsCancellationWins(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.UnePhase, models.Bailleur)
	m.IsAnnule = true
	m.IsInfructueux = true

	assert.True(t, g.IsActive(m, Annulation))
	assert.False(t, g.IsActive(m, PublicationResultats))
}

func TestGate_IsPhaseAccessible(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.DeuxPhases, models.Bailleur)

	assert.True(t, g.IsPhaseAccessible(m, PhaseContractualisation))

	m.IsInfructueux = true
	assert.True(t, g.IsPhaseAccessible(m, PhasePreparation))
	assert.True(t, g.IsPhaseAccessible(m, PhaseOffresFinancieres))
	assert.True(t, g.IsPhaseAccessible(m, PhaseAttribution))
	assert.False(t, g.IsPhaseAccessible(m, PhaseContractualisation))
}

func TestIsBlockedBySuspendu(t *testing.T) {
	m := newMarche(models.UnePhase, models.Bailleur)
	assert.False(t, IsBlockedBySuspendu(m, SignatureMarche), "no recours")

	m.Recours = &models.Recours{Type: models.ApresAttribution, Statut: models.RecoursSuspendu}
	for _, key := range SuspendedKeys {
		assert.True(t, IsBlockedBySuspendu(m, key), key)
	}
	assert.False(t, IsBlockedBySuspendu(m, PublicationResultats))
	assert.False(t, IsBlockedBySuspendu(m, OuvertureOffres))

	m.Recours.Statut = models.RecoursRejete
	assert.False(t, IsBlockedBySuspendu(m, SignatureMarche))
}

func TestGate_ChecksAreIndependent(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.UnePhase, models.BudgetInterne)
	m.IsAnnule = true
	m.Recours = &models.Recours{Type: models.ApresAttribution, Statut: models.RecoursSuspendu}

	// jalon одновременно неприменим, неактивен и заблокирован
	assert.False(t, g.IsApplicable(m, ANOBailleurProjet))
	assert.False(t, g.IsActive(m, ANOBailleurProjet))
	assert.True(t, IsBlockedBySuspendu(m, ANOBailleurProjet))
	assert.False(t, g.CanEnter(m, ANOBailleurProjet))

	// блокировка не зависит от активности
	m.IsAnnule = false
	assert.True(t, g.IsActive(m, SignatureMarche))
	assert.True(t, IsBlockedBySuspendu(m, SignatureMarche))
	assert.False(t, g.CanEnter(m, SignatureMarche))
}

func TestGate_Evaluate(t *testing.T) {
	g := NewGate(DefaultCatalog)
	m := newMarche(models.UnePhase, models.BudgetInterne)
	m.DatesPrevues[LancementAO] = "2024-01-10"
	m.DatesRealisees[LancementAO] = "2024-01-12"
	m.DatesPrevues[OuvertureOffres] = "2024-02-01"

	today, err := calendar.ParseDate("2024-02-05")
	require.NoError(t, err)

	phases := g.Evaluate(m, today)
	require.Len(t, phases, 4)
	assert.Equal(t, PhasePreparation, phases[0].ID)

	byKey := map[string]JalonStatus{}
	for _, p := range phases {
		assert.True(t, p.Accessible)
		for _, j := range p.Jalons {
			byKey[j.Key] = j
		}
	}
	assert.Equal(t, calendar.DelayedCompletion, byKey[LancementAO].Late)
	assert.Equal(t, calendar.Late, byKey[OuvertureOffres].Late)
	assert.Equal(t, calendar.NoPlannedDate, byKey[SignatureMarche].Late)
	assert.False(t, byKey[ANOBailleurDAO].Applicable)
	assert.Equal(t, "Signature du marché", byKey[SignatureMarche].Label)
}
