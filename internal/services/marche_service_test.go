package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/events"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/jalons"
	"github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"
)

func newMarcheService() (*MarcheService, *fakeMarcheRepository, *fakePublisher) {
	repo := newFakeMarcheRepository()
	pub := &fakePublisher{}
	return NewMarcheService(repo, jalons.DefaultCatalog, fixedClock(), pub, quietLogger()), repo, pub
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var resp *models.ErrorResponse
	require.True(t, errors.As(err, &resp), "expected ErrorResponse, got %v", err)
	assert.Equal(t, status, resp.StatusCode)
}

func validRequest() models.MarcheRequest {
	return models.MarcheRequest{
		Reference:         "AO-2024-017",
		Objet:             "Réhabilitation du poste de Logbaba",
		PPMYear:           2024,
		SourceFinancement: models.Bailleur,
		TypeOuverture:     models.UnePhase,
		DatesPrevues:      map[string]string{jalons.OuvertureOffres: "2024-02-15"},
	}
}

func TestMarcheService_CreateMarche(t *testing.T) {
	svc, _, _ := newMarcheService()

	m, err := svc.CreateMarche(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, models.Planifie, m.StatutGlobal)
	assert.Equal(t, "2024-02-15", m.DatePrevue(jalons.OuvertureOffres))
	assert.Empty(t, m.DatesRealisees)
	assert.False(t, m.HasRecours)
}

func TestMarcheService_CreateMarche_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.MarcheRequest)
	}{
		{"missing reference", func(r *models.MarcheRequest) { r.Reference = " " }},
		{"missing year", func(r *models.MarcheRequest) { r.PPMYear = 0 }},
		{"bad source", func(r *models.MarcheRequest) { r.SourceFinancement = "ETAT" }},
		{"bad ouverture", func(r *models.MarcheRequest) { r.TypeOuverture = "TROIS_PHASES" }},
		{"unknown jalon", func(r *models.MarcheRequest) { r.DatesPrevues["visite_site"] = "2024-02-01" }},
		{"jalon of other ouverture", func(r *models.MarcheRequest) { r.DatesPrevues[jalons.OuvertureTechnique] = "2024-02-01" }},
		{"bad date", func(r *models.MarcheRequest) { r.DatesPrevues[jalons.LancementAO] = "15/01/2024" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newMarcheService()
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateMarche(context.Background(), req)
			assertStatus(t, err, http.StatusBadRequest)
			assert.Empty(t, repo.marches)
		})
	}
}

func TestMarcheService_ListMarches_InvalidStatut(t *testing.T) {
	svc, _, _ := newMarcheService()
	_, err := svc.ListMarches(context.Background(), 10, 0, []string{"EN_COURS", "PERDU"})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.ListMarches(context.Background(), 10, 0, []string{"EN_COURS", "SUSPENDU"})
	assert.NoError(t, err)
}

func TestMarcheService_GetMarche_NotFound(t *testing.T) {
	svc, _, _ := newMarcheService()
	_, err := svc.GetMarche(context.Background(), "absent")
	assert.ErrorIs(t, err, models.ErrMarcheNotFound)
	assertStatus(t, err, http.StatusNotFound)
}

func TestMarcheService_SetJalonDate_DerivesStatut(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMarcheService()
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	m, err = svc.SetJalonDate(ctx, m.ID, jalons.LancementAO, models.JalonDateRequest{Kind: models.Prevue, Date: "2024-01-20"})
	require.NoError(t, err)
	assert.Equal(t, models.Planifie, m.StatutGlobal)
	assert.Equal(t, "2024-01-20", m.DatePrevue(jalons.LancementAO))

	m, err = svc.SetJalonDate(ctx, m.ID, jalons.LancementAO, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-20"})
	require.NoError(t, err)
	assert.Equal(t, models.EnCours, m.StatutGlobal)

	m, err = svc.SetJalonDate(ctx, m.ID, jalons.NotificationAttrib, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, models.Attribue, m.StatutGlobal)

	m, err = svc.SetJalonDate(ctx, m.ID, jalons.SignatureMarche, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-03-20"})
	require.NoError(t, err)
	assert.Equal(t, models.Signe, m.StatutGlobal)

	m, err = svc.SetJalonDate(ctx, m.ID, jalons.SignatureMarche, models.JalonDateRequest{Kind: models.Realisee})
	require.NoError(t, err)
	assert.Equal(t, models.Attribue, m.StatutGlobal)
	assert.Empty(t, m.DateRealisee(jalons.SignatureMarche))
}

func TestMarcheService_SetJalonDate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newMarcheService()

	interne := repo.put(storedMarche("BI-1", models.BudgetInterne, models.EnCours))

	annule := storedMarche("AN-1", models.Bailleur, models.Annule)
	annule.IsAnnule = true
	repo.put(annule)

	suspendu := storedMarche("SU-1", models.Bailleur, models.Suspendu)
	suspendu.HasRecours = true
	suspendu.Recours = &models.Recours{
		Type:        models.ApresAttribution,
		Statut:      models.RecoursSuspendu,
		CurrentStep: 1,
		Arbitrage:   &models.ArbitrageCA{},
	}
	repo.put(suspendu)

	tests := []struct {
		name   string
		id     string
		key    string
		req    models.JalonDateRequest
		status int
	}{
		{"bad kind", interne.ID, jalons.LancementAO, models.JalonDateRequest{Kind: "estimee", Date: "2024-01-01"}, http.StatusBadRequest},
		{"bad date", interne.ID, jalons.LancementAO, models.JalonDateRequest{Kind: models.Prevue, Date: "demain"}, http.StatusBadRequest},
		{"unknown key", interne.ID, "visite_site", models.JalonDateRequest{Kind: models.Prevue, Date: "2024-01-01"}, http.StatusBadRequest},
		{"ano on internal budget", interne.ID, jalons.ANOBailleurDAO, models.JalonDateRequest{Kind: models.Prevue, Date: "2024-01-01"}, http.StatusBadRequest},
		{"past cancellation", annule.ID, jalons.PublicationResultats, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-01"}, http.StatusConflict},
		{"suspended", suspendu.ID, jalons.SignatureMarche, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-01"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SetJalonDate(ctx, tt.id, tt.key, tt.req)
			assertStatus(t, err, tt.status)
		})
	}
	assert.Empty(t, repo.patches)

	// jalons до точки отсечения и вне списка приостановки остаются доступны
	_, err := svc.SetJalonDate(ctx, annule.ID, jalons.LancementAO, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-01"})
	require.NoError(t, err)
	m, err := svc.SetJalonDate(ctx, suspendu.ID, jalons.PublicationResultats, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, models.Suspendu, m.StatutGlobal)
}

func storedMarche(reference string, source models.SourceFinancement, statut models.StatutGlobal) *models.Marche {
	return &models.Marche{
		Reference:         reference,
		SourceFinancement: source,
		TypeOuverture:     models.UnePhase,
		StatutGlobal:      statut,
		DatesPrevues:      map[string]string{},
		DatesRealisees:    map[string]string{},
	}
}

func TestDeriveStatut(t *testing.T) {
	tests := []struct {
		name     string
		statut   models.StatutGlobal
		realises map[string]string
		want     models.StatutGlobal
	}{
		{"nothing done", models.Planifie, map[string]string{}, models.Planifie},
		{"started", models.Planifie, map[string]string{jalons.SaisineCIPM: "2024-01-02"}, models.EnCours},
		{"awarded", models.EnCours, map[string]string{jalons.NotificationAttrib: "2024-01-02"}, models.Attribue},
		{"signed", models.Attribue, map[string]string{jalons.NotificationAttrib: "2024-01-02", jalons.SignatureMarche: "2024-01-09"}, models.Signe},
		{"suspended stays", models.Suspendu, map[string]string{jalons.SignatureMarche: "2024-01-09"}, models.Suspendu},
		{"cancelled stays", models.Annule, map[string]string{jalons.SaisineCIPM: "2024-01-02"}, models.Annule},
		{"fruitless stays", models.Infructueux, map[string]string{}, models.Infructueux},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &models.Marche{StatutGlobal: tt.statut, DatesRealisees: tt.realises}
			assert.Equal(t, tt.want, DeriveStatut(m))
		})
	}
}

func TestMarcheService_DeclareInfructueux(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newMarcheService()
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.DeclareInfructueux(ctx, m.ID, models.MotifRequest{})
	assertStatus(t, err, http.StatusBadRequest)

	m, err = svc.DeclareInfructueux(ctx, m.ID, models.MotifRequest{Motif: "aucune offre conforme"})
	require.NoError(t, err)
	assert.True(t, m.IsInfructueux)
	assert.Equal(t, "aucune offre conforme", m.MotifInfructueux)
	assert.Equal(t, models.Infructueux, m.StatutGlobal)
	assert.Equal(t, []events.EventType{events.MarcheInfructueux}, pub.types())

	_, err = svc.Annuler(ctx, m.ID, models.MotifRequest{Motif: "budget retiré"})
	assertStatus(t, err, http.StatusConflict)
	_, err = svc.DeclareInfructueux(ctx, m.ID, models.MotifRequest{Motif: "encore"})
	assertStatus(t, err, http.StatusConflict)
}

func TestMarcheService_Annuler(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newMarcheService()
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	m, err = svc.Annuler(ctx, m.ID, models.MotifRequest{Motif: "budget retiré"})
	require.NoError(t, err)
	assert.True(t, m.IsAnnule)
	assert.Equal(t, models.Annule, m.StatutGlobal)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "budget retiré", pub.events[0].Attributes["motif"])

	_, err = svc.DeclareInfructueux(ctx, m.ID, models.MotifRequest{Motif: "aucune offre"})
	assertStatus(t, err, http.StatusConflict)
}

func TestMarcheService_PublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newMarcheService()
	pub.err = errors.New("broker down")
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	m, err = svc.Annuler(ctx, m.ID, models.MotifRequest{Motif: "budget retiré"})
	require.NoError(t, err)
	assert.True(t, m.IsAnnule)
}

func TestMarcheService_History(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMarcheService()
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.SetJalonDate(ctx, m.ID, jalons.SaisineCIPM, models.JalonDateRequest{Kind: models.Realisee, Date: "2024-01-02"})
	require.NoError(t, err)

	versions, err := svc.History(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.EqualValues(t, 1, versions[0].Version)
	assert.Equal(t, models.Planifie, versions[0].Snapshot.StatutGlobal)

	_, err = svc.History(ctx, "absent")
	assert.ErrorIs(t, err, models.ErrMarcheNotFound)
}

func TestMarcheService_Jalons(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newMarcheService()
	m, err := svc.CreateMarche(ctx, validRequest())
	require.NoError(t, err)

	phases, err := svc.Jalons(ctx, m.ID)
	require.NoError(t, err)
	require.NotEmpty(t, phases)
	assert.Equal(t, jalons.PhasePreparation, phases[0].ID)
	for _, p := range phases {
		assert.True(t, p.Accessible)
	}
}
