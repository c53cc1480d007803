package pipeline

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdm/internal/master"
	"mdm/internal/record"
	"mdm/internal/staging"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func publish(t *testing.T, ch staging.Channel, topic string, src record.Source, data map[string]any) {
	t.Helper()
	require.NoError(t, ch.Publish(context.Background(), topic, record.Envelope{Source: src, Data: data}))
}

func TestNewValidation(t *testing.T) {
	ch := staging.NewMemory()
	store := master.NewMemory()

	_, err := New(nil, store, testLogger())
	assert.Error(t, err)
	_, err = New(ch, nil, testLogger())
	assert.Error(t, err)
	_, err = New(ch, store, nil)
	assert.Error(t, err)
	_, err = New(ch, store, testLogger())
	assert.NoError(t, err)
}

func TestRunConsolidatesAllEntities(t *testing.T) {
	ctx := context.Background()
	ch := staging.NewMemory()
	store := master.NewMemory()

	publish(t, ch, "services", record.SourceERP, map[string]any{
		"nom_service":     "Cardiologie",
		"description":     "Soins du coeur",
		"responsable_nom": "Dr. Marie Dubois",
	})
	publish(t, ch, "services", record.SourceERP, map[string]any{
		"nom_service": "Cardiologie", // duplicate name, merged away
		"localisation": "Bâtiment A",
	})

	publish(t, ch, "clinicians", record.SourceERP, map[string]any{
		"nom":             "Dubois",
		"prenom":          "Marie",
		"num_licence":     "101",
		"specialite":      "Cardiologie",
		"service_affecte": "Cardiologie",
	})
	publish(t, ch, "clinicians", record.SourceERP, map[string]any{
		"nom":         "Dubois",
		"prenom":      "Marie",
		"num_licence": "101", // same license, merged
		"email_pro":   "marie.dubois@clinique.fr",
	})

	// Three raw patient rows for one person. The ERP row arrives first and
	// anchors the group; the billing row joins through the shared email and
	// contributes the phone. The scheduling row shares no present identifier
	// with the anchor, groups alone, and is dropped for lacking a birth date.
	publish(t, ch, "patients", record.SourceERP, map[string]any{
		"nom":            "DUBOIS",
		"prenom":         "Marie",
		"date_naissance": "01/01/1980",
		"email":          "m.d@x.fr",
		"num_dossier":    "DOSS-1",
	})
	publish(t, ch, "patients", record.SourceScheduling, map[string]any{
		"nom":       "Dubois",
		"prenom":    "Marie",
		"sexe":      "F",
		"telephone": "01 02 03 04 05",
	})
	publish(t, ch, "patients", record.SourceBilling, map[string]any{
		"nom_famille":   "Dubois",
		"prenoms":       "Marie",
		"tel_contact":   "0102030405",
		"email_contact": "M.D@x.fr",
	})
	publish(t, ch, "patients", "CRM", map[string]any{"nom": "ignored"})

	coord, err := New(ch, store, testLogger(),
		WithDossierLookup(map[string]string{"DOSS-1": "Hypertension"}))
	require.NoError(t, err)
	require.NoError(t, coord.Run(ctx))

	require.Len(t, store.Services, 1)
	svc := store.Services[0]
	assert.Equal(t, "Cardiologie", svc.Service.Name)
	assert.Equal(t, "Soins du coeur", svc.Service.Description)
	assert.Equal(t, "Bâtiment A", svc.Service.Location, "duplicate row fills missing fields")

	require.Len(t, store.Clinicians, 1)
	cli := store.Clinicians[0]
	assert.Equal(t, "DUBOIS", cli.Clinician.FamilyName)
	assert.Equal(t, "marie.dubois@clinique.fr", cli.Clinician.Email)
	require.NotNil(t, store.ClinicianRows[0].ServiceID)
	assert.Equal(t, svc.ID, *store.ClinicianRows[0].ServiceID)

	assert.Equal(t, cli.ID, store.Responsibles["Cardiologie"],
		"responsible display name resolves to the inserted clinician")

	require.Len(t, store.Patients, 1, "unidentifiable and incomplete rows are dropped")
	p := store.Patients[0]
	assert.Equal(t, "DUBOIS", p.FamilyName)
	assert.Equal(t, "Marie", p.GivenName)
	assert.Equal(t, "1980-01-01", p.BirthDate)
	assert.Equal(t, "0102030405", p.Phone)
	assert.Equal(t, "m.d@x.fr", p.Email)
	assert.Equal(t, "Hypertension", p.MedicalHistory, "dossier join attaches the medical history")
}

func TestRunResponsibleNullWithoutClinicians(t *testing.T) {
	ctx := context.Background()
	ch := staging.NewMemory()
	store := master.NewMemory()

	publish(t, ch, "services", record.SourceERP, map[string]any{
		"nom_service":     "Cardiologie",
		"responsable_nom": "Dr. Marie Dubois",
	})

	coord, err := New(ch, store, testLogger())
	require.NoError(t, err)
	require.NoError(t, coord.Run(ctx))

	require.Len(t, store.Services, 1)
	assert.Empty(t, store.Responsibles, "unresolved responsible stays null, run still succeeds")
}

func TestRunClinicianServiceUnresolved(t *testing.T) {
	ctx := context.Background()
	ch := staging.NewMemory()
	store := master.NewMemory()

	publish(t, ch, "clinicians", record.SourceERP, map[string]any{
		"nom":             "Martin",
		"prenom":          "Paul",
		"num_licence":     "102",
		"service_affecte": "Radiologie",
	})

	coord, err := New(ch, store, testLogger())
	require.NoError(t, err)
	require.NoError(t, coord.Run(ctx))

	require.Len(t, store.ClinicianRows, 1)
	assert.Nil(t, store.ClinicianRows[0].ServiceID, "unknown service leaves the reference null")
}

func TestRunMergeSuppliesMandatoryFields(t *testing.T) {
	ctx := context.Background()
	ch := staging.NewMemory()
	store := master.NewMemory()

	// The anchor row has no birth date; its group member does. The mandatory
	// field check runs on the merged record, so the group survives.
	publish(t, ch, "patients", record.SourceBilling, map[string]any{
		"nom_famille":   "Petit",
		"prenoms":       "Luc",
		"email_contact": "l.p@x.fr",
	})
	publish(t, ch, "patients", record.SourceERP, map[string]any{
		"nom":            "PETIT",
		"prenom":         "Luc",
		"date_naissance": "1990-05-02",
		"email":          "l.p@x.fr",
	})

	coord, err := New(ch, store, testLogger())
	require.NoError(t, err)
	require.NoError(t, coord.Run(ctx))

	require.Len(t, store.Patients, 1)
	assert.Equal(t, "1990-05-02", store.Patients[0].BirthDate)
	assert.Equal(t, record.SourceBilling, store.Patients[0].Source, "anchor stays the merge base")
}

func TestRunEmptyChannel(t *testing.T) {
	store := master.NewMemory()
	coord, err := New(staging.NewMemory(), store, testLogger())
	require.NoError(t, err)

	require.NoError(t, coord.Run(context.Background()))
	assert.Empty(t, store.Services)
	assert.Empty(t, store.Clinicians)
	assert.Empty(t, store.Patients)
}
