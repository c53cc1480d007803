// Command extractgen writes synthetic source extracts for the three clinic
// systems, with the data-quality problems the consolidation pipeline exists
// to fix: duplicate patients with accent and phone variations, per-source
// identifier schemes, three different date formats, and divergent column
// names for the same facts.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"mdm/internal/platform/logger"
)

type clinician struct {
	family    string
	given     string
	specialty string
}

var clinicians = []clinician{
	{"Dubois", "Marie", "Cardiologie"},
	{"Martin", "Jean", "Pédiatrie"},
	{"Bernard", "Sophie", "Radiologie"},
	{"Petit", "Pierre", "Chirurgie"},
	{"Leroy", "Émilie", "Gynécologie"},
	{"Moreau", "Laurent", "Urgences"},
}

var familyNames = []string{
	"Lefebvre", "Roux", "Fournier", "Girard", "Lambert", "Mercier", "Blanc",
	"Guérin", "Muller", "Faure", "André", "Renard", "Chevalier", "Barbier",
	"Noël", "Perrot", "Rémy", "Collet", "Prévost", "Tessier",
}

var givenNamesM = []string{"Luc", "Paul", "Hugo", "Léo", "Nicolas", "Julien", "Thomas", "Antoine"}
var givenNamesF = []string{"Claire", "Julie", "Camille", "Léa", "Chloé", "Manon", "Inès", "Sarah"}

var histories = []string{
	"Hypertension artérielle",
	"Diabète type 2",
	"Asthme",
	"Allergies (pénicilline)",
	"Cholestérol élevé",
	"Insuffisance rénale",
	"Aucun antécédent particulier",
}

type patient struct {
	family string
	given  string
	sex    string
	phone  string
	email  string
	addr   string
	birth  string // DD/MM/YYYY, ERP's format
}

func main() {
	var (
		dir      = flag.String("dir", ".", "directory to write the extract files into")
		seed     = flag.Int64("seed", 42, "random seed, fixed for reproducible extracts")
		patients = flag.Int("patients", 80, "number of distinct patients to simulate")
	)
	flag.Parse()

	log := logger.New(slog.LevelInfo)
	rng := rand.New(rand.NewSource(*seed))

	base := generatePatients(rng, *patients)

	writeSchedulingPatients(*dir, rng, base, log)
	writeERPPatients(*dir, rng, base, log)
	writeBillingPatients(*dir, rng, base, log)
	writeClinicians(*dir, rng, log)
	writeServices(*dir, log)
}

func generatePatients(rng *rand.Rand, n int) []patient {
	out := make([]patient, 0, n)
	for i := 0; i < n; i++ {
		sex := "Masculin"
		given := pick(rng, givenNamesM)
		if rng.Intn(2) == 0 {
			sex = "Féminin"
			given = pick(rng, givenNamesF)
		}
		family := strings.ToUpper(pick(rng, familyNames))
		out = append(out, patient{
			family: family,
			given:  given,
			sex:    sex,
			phone:  fmt.Sprintf("0%d %02d %02d %02d %02d", 1+rng.Intn(6), rng.Intn(100), rng.Intn(100), rng.Intn(100), rng.Intn(100)),
			email:  strings.ToLower(given) + "." + strings.ToLower(family) + fmt.Sprintf("%d@mail.fr", i),
			addr:   fmt.Sprintf("%d rue %s, %05d Paris", 1+rng.Intn(120), pick(rng, familyNames), 75000+rng.Intn(20)),
			birth:  fmt.Sprintf("%02d/%02d/%d", 1+rng.Intn(28), 1+rng.Intn(12), 1935+rng.Intn(70)),
		})
	}
	return out
}

// writeSchedulingPatients emits the scheduling extract plus a tail of
// intentional duplicates: same person, new identifier, accent variations in
// the family name, sometimes a different phone.
func writeSchedulingPatients(dir string, rng *rand.Rand, base []patient, log *slog.Logger) {
	rows := [][]string{{"patient_id", "nom", "prenom", "sexe", "telephone", "adresse"}}
	for i, p := range base {
		rows = append(rows, []string{
			fmt.Sprintf("RDV-P-%04d", i+1), p.family, p.given, p.sex, p.phone, p.addr,
		})
	}
	for i := 0; i < len(base)/4; i++ {
		p := base[rng.Intn(len(base))]
		family := p.family
		if rng.Intn(2) == 0 {
			family = strings.Replace(family, "E", "É", 1)
		}
		rows = append(rows, []string{
			fmt.Sprintf("RDV-P-%04d", len(base)+i+1), family, p.given, p.sex, p.phone, p.addr,
		})
	}
	writeCSV(dir, "source_rdv_patients.csv", rows, log)
}

// writeERPPatients reuses a sample of the same people under ERP identifiers,
// adding the birth date (DD/MM/YYYY), email, and dossier number only the ERP
// knows. The dossier extract is written alongside.
func writeERPPatients(dir string, rng *rand.Rand, base []patient, log *slog.Logger) {
	rows := [][]string{{"patient_id", "nom", "prenom", "date_naissance", "email", "adresse", "num_dossier"}}
	dossiers := [][]string{{"num_dossier", "historique_medical"}}
	for i, p := range sample(rng, base, len(base)*3/4) {
		dossier := fmt.Sprintf("DOSS-%06d", 100000+rng.Intn(900000))
		rows = append(rows, []string{
			fmt.Sprintf("ERP-P-%05d", i+1), p.family, p.given, p.birth, p.email, p.addr, dossier,
		})
		dossiers = append(dossiers, []string{dossier, pick(rng, histories)})
	}
	writeCSV(dir, "source_erp_patients.csv", rows, log)
	writeCSV(dir, "source_erp_dossiers_medicaux.csv", dossiers, log)
}

// writeBillingPatients reuses another sample under billing identifiers and
// billing column names.
func writeBillingPatients(dir string, rng *rand.Rand, base []patient, log *slog.Logger) {
	rows := [][]string{{"id_patient_fact", "nom_famille", "prenoms", "tel_contact", "email_contact", "adresse_facturation"}}
	for i, p := range sample(rng, base, len(base)*7/8) {
		rows = append(rows, []string{
			fmt.Sprintf("FACT-P-%06d", i+1), p.family, p.given, p.phone, p.email, p.addr,
		})
	}
	writeCSV(dir, "source_fact_patients.csv", rows, log)
}

// writeClinicians emits the same clinicians through both systems in their
// conflicting formats: full ERP rows versus scheduling display names.
func writeClinicians(dir string, rng *rand.Rand, log *slog.Logger) {
	erp := [][]string{{"nom", "prenom", "specialite", "num_licence", "email_pro", "telephone_pro", "service_affecte", "disponibilite_lundi"}}
	rdv := [][]string{{"medecin_id", "nom_complet", "specialite", "telephone", "email"}}
	for i, c := range clinicians {
		email := strings.ToLower(c.given) + "." + strings.ToLower(c.family) + "@clinique.fr"
		erp = append(erp, []string{
			strings.ToUpper(c.family), c.given, c.specialty,
			fmt.Sprintf("%02d%07d", 1+rng.Intn(99), 1000000+rng.Intn(9000000)),
			email,
			fmt.Sprintf("01 %02d %02d %02d %02d", rng.Intn(100), rng.Intn(100), rng.Intn(100), rng.Intn(100)),
			c.specialty,
			fmt.Sprintf("%d:00-%d:00", 8+rng.Intn(2), 17+rng.Intn(3)),
		})
		rdv = append(rdv, []string{
			fmt.Sprintf("MED-RDV-%03d", i+1),
			"Dr. " + c.given + " " + c.family,
			c.specialty,
			fmt.Sprintf("06 %02d %02d %02d %02d", rng.Intn(100), rng.Intn(100), rng.Intn(100), rng.Intn(100)),
			email,
		})
	}
	writeCSV(dir, "source_erp_medecins.csv", erp, log)
	writeCSV(dir, "source_rdv_medecins.csv", rdv, log)
}

// writeServices emits one service per specialty, each with a responsible
// display name pointing at a clinician the clinician extracts also carry.
func writeServices(dir string, log *slog.Logger) {
	rows := [][]string{{"service_id", "nom_service", "description", "responsable_nom", "localisation", "horaires_ouverture_lundi"}}
	for i, c := range clinicians {
		rows = append(rows, []string{
			fmt.Sprintf("SRV-%03d", i+1),
			c.specialty,
			fmt.Sprintf("Service de %s - consultations et soins spécialisés", strings.ToLower(c.specialty)),
			"Dr. " + c.given + " " + c.family,
			fmt.Sprintf("Bâtiment %c, Étage %d", 'A'+rune(i%3), 1+i%5),
			"08:00-18:00",
		})
	}
	writeCSV(dir, "source_erp_services.csv", rows, log)
}

func writeCSV(dir, name string, rows [][]string, log *slog.Logger) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		log.Error("extract write failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		log.Error("extract write failed", "path", path, "error", err)
		os.Exit(1)
	}
	log.Info("extract written", "path", path, "rows", len(rows)-1)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func sample(rng *rand.Rand, base []patient, n int) []patient {
	perm := rng.Perm(len(base))
	out := make([]patient, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, base[idx])
	}
	return out
}
