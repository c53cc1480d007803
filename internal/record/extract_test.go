package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeField(t *testing.T) {
	env := Envelope{Source: SourceERP, Data: map[string]any{
		"nom":     "  Dubois ",
		"age":     float64(44), // JSON numbers decode as float64
		"empty":   "",
		"nothing": nil,
	}}
	assert.Equal(t, "Dubois", env.Field("nom"))
	assert.Equal(t, "44", env.Field("age"))
	assert.Equal(t, "", env.Field("empty"))
	assert.Equal(t, "", env.Field("nothing"))
	assert.Equal(t, "", env.Field("absent"))
}

func TestExtractPatient(t *testing.T) {
	t.Run("scheduling columns", func(t *testing.T) {
		env := Envelope{Source: SourceScheduling, Data: map[string]any{
			"nom":       "Émile",
			"prenom":    "Marie",
			"sexe":      "F",
			"telephone": "01 02 03 04 05",
			"adresse":   "1 rue A",
		}}
		p, ok := ExtractPatient(env)
		require.True(t, ok)
		assert.Equal(t, SourceScheduling, p.Source)
		assert.Equal(t, "EMILE", p.FamilyName)
		assert.Equal(t, "Marie", p.GivenName)
		assert.Equal(t, "Feminine", p.Sex)
		assert.Equal(t, "0102030405", p.Phone)
		assert.Equal(t, "1 rue A", p.Address)
		assert.Empty(t, p.BirthDate, "scheduling does not know birth dates")
	})

	t.Run("erp columns", func(t *testing.T) {
		env := Envelope{Source: SourceERP, Data: map[string]any{
			"nom":            "DUBOIS",
			"prenom":         "Marie",
			"date_naissance": "01/01/1980",
			"email":          "m.d@x.fr",
			"num_dossier":    "DOSS-1",
		}}
		p, ok := ExtractPatient(env)
		require.True(t, ok)
		assert.Equal(t, "1980-01-01", p.BirthDate)
		assert.Equal(t, "m.d@x.fr", p.Email)
		assert.Equal(t, "DOSS-1", p.DossierNumber)
	})

	t.Run("billing columns", func(t *testing.T) {
		env := Envelope{Source: SourceBilling, Data: map[string]any{
			"nom_famille":         "Dubois",
			"prenoms":             "Marie",
			"tel_contact":         "0102030405",
			"email_contact":       "m.d@x.fr",
			"adresse_facturation": "1 rue A",
		}}
		p, ok := ExtractPatient(env)
		require.True(t, ok)
		assert.Equal(t, "DUBOIS", p.FamilyName)
		assert.Equal(t, "Marie", p.GivenName)
		assert.Equal(t, "0102030405", p.Phone)
		assert.Equal(t, "m.d@x.fr", p.Email)
	})

	t.Run("unknown source rejected", func(t *testing.T) {
		_, ok := ExtractPatient(Envelope{Source: "CRM"})
		assert.False(t, ok)
	})
}

func TestExtractClinician(t *testing.T) {
	t.Run("erp columns", func(t *testing.T) {
		env := Envelope{Source: SourceERP, Data: map[string]any{
			"nom":                 "Dubois",
			"prenom":              "Marie",
			"specialite":          "Cardiologie",
			"num_licence":         "101",
			"email_pro":           "marie.dubois@clinique.fr",
			"telephone_pro":       "01 02 03 04 05",
			"service_affecte":     "Cardiologie",
			"disponibilite_lundi": "8:00-18:00",
		}}
		c, ok := ExtractClinician(env)
		require.True(t, ok)
		assert.Equal(t, "DUBOIS", c.FamilyName)
		assert.Equal(t, "Marie", c.GivenName)
		assert.Equal(t, "101", c.LicenseNumber)
		assert.Equal(t, "Cardiologie", c.ServiceName)
		assert.Equal(t, "0102030405", c.Phone)
	})

	t.Run("scheduling display name parsed", func(t *testing.T) {
		env := Envelope{Source: SourceScheduling, Data: map[string]any{
			"nom_complet": "Dr. Marie Dubois",
			"specialite":  "Cardiologie",
			"email":       "marie.dubois@clinique-rdv.fr",
		}}
		c, ok := ExtractClinician(env)
		require.True(t, ok)
		assert.Equal(t, "DUBOIS", c.FamilyName)
		assert.Equal(t, "Marie", c.GivenName)
		assert.Empty(t, c.ServiceName, "scheduling has no service assignment")
	})

	t.Run("billing is not a clinician source", func(t *testing.T) {
		_, ok := ExtractClinician(Envelope{Source: SourceBilling})
		assert.False(t, ok)
	})
}

func TestExtractService(t *testing.T) {
	env := Envelope{Source: SourceERP, Data: map[string]any{
		"nom_service":              " Cardiologie ",
		"description":              "Soins du coeur",
		"responsable_nom":          "Dr. Marie Dubois",
		"localisation":             "Bâtiment A, Étage 2",
		"horaires_ouverture_lundi": "08:00-18:00",
	}}
	svc := ExtractService(env)
	assert.Equal(t, "Cardiologie", svc.Name, "name is trimmed, it is the grouping key")
	assert.Equal(t, "Dr. Marie Dubois", svc.ResponsibleName)
	assert.Equal(t, "08:00-18:00", svc.Hours)
}

func TestClinicianDisplayKey(t *testing.T) {
	// Both sides of the responsible lookup go through the same
	// canonicalization, so source formatting drift cannot break it.
	c := Clinician{GivenName: "marie", FamilyName: "Dubois"}
	assert.Equal(t, "Dr. Marie DUBOIS", c.DisplayKey())
	assert.Equal(t, c.DisplayKey(), ClinicianDisplayKey("MARIE", "dubois"))
}
