package jalons

import "github.com/kenzojrlab-max/edc-marches360-v2-sub000/internal/models"

// Ключи jalons.
const (
	SaisineCIPM            = "saisine_cipm"
	ExamenDAOCIPM          = "examen_dao_cipm"
	ANOBailleurDAO         = "ano_bailleur_dao"
	LancementAO            = "lancement_ao"
	OuvertureOffres        = "ouverture_offres"
	OuvertureTechnique     = "ouverture_technique"
	AnalyseTechnique       = "analyse_technique"
	ExamenCIPMTechnique    = "examen_cipm_technique"
	ANOBailleurTechnique   = "ano_bailleur_technique"
	OuvertureFinanciere    = "ouverture_financiere"
	AnalyseOffres          = "analyse_offres"
	ExamenCIPMEvaluation   = "examen_cipm_evaluation"
	ANOBailleurEvaluation  = "ano_bailleur_evaluation"
	DeclarationInfructueux = "infructueux"
	Annulation             = "annulation"
	PublicationResultats   = "publication_resultats"
	NotificationAttrib     = "notification_attribution"
	SouscriptionProjet     = "souscription_projet"
	SaisineCIPMProjet      = "saisine_cipm_projet"
	ValidationProjet       = "validation_projet"
	ANOBailleurProjet      = "ano_bailleur_projet"
	SignatureMarche        = "signature_marche"
	NotificationFinale     = "notification_finale"
)

// Идентификаторы фаз.
const (
	PhasePreparation        = "preparation"
	PhaseConsultation       = "consultation"
	PhaseOffresTechniques   = "offres_techniques"
	PhaseOffresFinancieres  = "offres_financieres"
	PhaseAttribution        = "attribution"
	PhaseContractualisation = "contractualisation"
)

// OuvertureKeys - ключи вскрытия предложений, по порядку приоритета.
var OuvertureKeys = []string{OuvertureOffres, OuvertureTechnique}

// Definition описывает jalon в каталоге.
type Definition struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	BailleurANO bool   `json:"bailleur_ano"`
}

// Group - упорядоченная группа jalons (фаза).
type Group struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Keys  []string `json:"keys"`
}

// Catalog - каталог jalons, упорядоченный по фазам для каждого порядка вскрытия.
type Catalog interface {
	Groups(t models.TypeOuverture) []Group
	Lookup(key string) (Definition, bool)
}

// StaticCatalog - каталог, заданный в коде.
type StaticCatalog struct {
	definitions map[string]Definition
	groups      map[models.TypeOuverture][]Group
}

// NewStaticCatalog создаёт каталог из определений и групп.
func NewStaticCatalog(defs []Definition, groups map[models.TypeOuverture][]Group) *StaticCatalog {
	byKey := make(map[string]Definition, len(defs))
	for _, d := range defs {
		byKey[d.Key] = d
	}
	return &StaticCatalog{definitions: byKey, groups: groups}
}

// Groups возвращает фазы для порядка вскрытия. Неизвестный порядок трактуется как вскрытие в один этап.
func (c *StaticCatalog) Groups(t models.TypeOuverture) []Group {
	if g, ok := c.groups[t]; ok {
		return g
	}
	return c.groups[models.UnePhase]
}

// Lookup возвращает определение jalon по ключу.
func (c *StaticCatalog) Lookup(key string) (Definition, bool) {
	d, ok := c.definitions[key]
	return d, ok
}

// Sequence возвращает все ключи jalons по порядку.
func Sequence(c Catalog, t models.TypeOuverture) []string {
	var keys []string
	for _, g := range c.Groups(t) {
		keys = append(keys, g.Keys...)
	}
	return keys
}

var defaultDefinitions = []Definition{
	{Key: SaisineCIPM, Label: "Saisine de la CIPM"},
	{Key: ExamenDAOCIPM, Label: "Examen du DAO par la CIPM"},
	{Key: ANOBailleurDAO, Label: "ANO du bailleur sur le DAO", BailleurANO: true},
	{Key: LancementAO, Label: "Lancement de l'appel d'offres"},
	{Key: OuvertureOffres, Label: "Ouverture des offres"},
	{Key: OuvertureTechnique, Label: "Ouverture des offres techniques"},
	{Key: AnalyseTechnique, Label: "Analyse des offres techniques"},
	{Key: ExamenCIPMTechnique, Label: "Examen CIPM de l'évaluation technique"},
	{Key: ANOBailleurTechnique, Label: "ANO du bailleur sur l'évaluation technique", BailleurANO: true},
	{Key: OuvertureFinanciere, Label: "Ouverture des offres financières"},
	{Key: AnalyseOffres, Label: "Analyse des offres"},
	{Key: ExamenCIPMEvaluation, Label: "Examen CIPM du rapport d'évaluation"},
	{Key: ANOBailleurEvaluation, Label: "ANO du bailleur sur l'évaluation", BailleurANO: true},
	{Key: DeclarationInfructueux, Label: "Déclaration d'infructuosité"},
	{Key: Annulation, Label: "Annulation de la procédure"},
	{Key: PublicationResultats, Label: "Publication des résultats"},
	{Key: NotificationAttrib, Label: "Notification de l'attribution"},
	{Key: SouscriptionProjet, Label: "Souscription du projet de marché"},
	{Key: SaisineCIPMProjet, Label: "Saisine de la CIPM sur le projet de marché"},
	{Key: ValidationProjet, Label: "Validation du projet de marché"},
	{Key: ANOBailleurProjet, Label: "ANO du bailleur sur le projet de marché", BailleurANO: true},
	{Key: SignatureMarche, Label: "Signature du marché"},
	{Key: NotificationFinale, Label: "Notification du marché signé"},
}

var (
	preparation = Group{
		ID:    PhasePreparation,
		Label: "Préparation",
		Keys:  []string{SaisineCIPM, ExamenDAOCIPM, ANOBailleurDAO, LancementAO},
	}
	attribution = Group{
		ID:    PhaseAttribution,
		Label: "Attribution",
		Keys:  []string{DeclarationInfructueux, Annulation, PublicationResultats, NotificationAttrib},
	}
	contractualisation = Group{
		ID:    PhaseContractualisation,
		Label: "Contractualisation",
		Keys: []string{
			SouscriptionProjet, SaisineCIPMProjet, ValidationProjet,
			ANOBailleurProjet, SignatureMarche, NotificationFinale,
		},
	}
)

// DefaultCatalog - каталог jalons процедуры appel d'offres.
var DefaultCatalog Catalog = NewStaticCatalog(defaultDefinitions, map[models.TypeOuverture][]Group{
	models.UnePhase: {
		preparation,
		{
			ID:    PhaseConsultation,
			Label: "Consultation",
			Keys:  []string{OuvertureOffres, AnalyseOffres, ExamenCIPMEvaluation, ANOBailleurEvaluation},
		},
		attribution,
		contractualisation,
	},
	models.DeuxPhases: {
		preparation,
		{
			ID:    PhaseOffresTechniques,
			Label: "Offres techniques",
			Keys:  []string{OuvertureTechnique, AnalyseTechnique, ExamenCIPMTechnique, ANOBailleurTechnique},
		},
		{
			ID:    PhaseOffresFinancieres,
			Label: "Offres financières",
			Keys:  []string{OuvertureFinanciere, AnalyseOffres, ExamenCIPMEvaluation, ANOBailleurEvaluation},
		},
		attribution,
		contractualisation,
	},
})
