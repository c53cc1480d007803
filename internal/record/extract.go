package record

import "mdm/internal/normalize"

// Extraction rules: one small function per source and entity type, selected
// through a dispatch table on the origin tag. Each source names its columns
// differently, so the rules stay together here instead of branching inside
// the pipeline stages.

var patientExtractors = map[Source]func(Envelope) Patient{
	SourceScheduling: func(e Envelope) Patient {
		return Patient{
			Source:     SourceScheduling,
			FamilyName: normalize.Name(e.Field("nom")),
			GivenName:  e.Field("prenom"),
			Sex:        normalize.Sex(e.Field("sexe")),
			Phone:      normalize.Phone(e.Field("telephone")),
			Address:    e.Field("adresse"),
		}
	},
	SourceERP: func(e Envelope) Patient {
		return Patient{
			Source:         SourceERP,
			FamilyName:     normalize.Name(e.Field("nom")),
			GivenName:      e.Field("prenom"),
			BirthDate:      normalize.Date(e.Field("date_naissance")),
			Email:          e.Field("email"),
			Address:        e.Field("adresse"),
			DossierNumber:  e.Field("num_dossier"),
			MedicalHistory: e.Field("historique_medical"),
		}
	},
	SourceBilling: func(e Envelope) Patient {
		return Patient{
			Source:     SourceBilling,
			FamilyName: normalize.Name(e.Field("nom_famille")),
			GivenName:  e.Field("prenoms"),
			Phone:      normalize.Phone(e.Field("tel_contact")),
			Email:      e.Field("email_contact"),
			Address:    e.Field("adresse_facturation"),
		}
	},
}

// ExtractPatient maps a staging envelope to a normalized patient. The second
// return is false when the origin tag is not a known patient source.
func ExtractPatient(e Envelope) (Patient, bool) {
	extract, ok := patientExtractors[e.Source]
	if !ok {
		return Patient{}, false
	}
	return extract(e), true
}

var clinicianExtractors = map[Source]func(Envelope) Clinician{
	// ERP is the system of record for clinicians: full identity plus the
	// service assignment and availability.
	SourceERP: func(e Envelope) Clinician {
		return Clinician{
			Source:        SourceERP,
			FamilyName:    normalize.Name(e.Field("nom")),
			GivenName:     e.Field("prenom"),
			Specialty:     e.Field("specialite"),
			LicenseNumber: e.Field("num_licence"),
			Email:         e.Field("email_pro"),
			Phone:         normalize.Phone(e.Field("telephone_pro")),
			ServiceName:   e.Field("service_affecte"),
			Availability:  e.Field("disponibilite_lundi"),
		}
	},
	// Scheduling only knows a display name ("Dr. Marie Dubois") and contact
	// details; it carries no service assignment.
	SourceScheduling: func(e Envelope) Clinician {
		given, family := normalize.DisplayName(e.Field("nom_complet"))
		return Clinician{
			Source:     SourceScheduling,
			FamilyName: family,
			GivenName:  given,
			Specialty:  e.Field("specialite"),
			Email:      e.Field("email"),
			Phone:      normalize.Phone(e.Field("telephone")),
		}
	},
}

// ExtractClinician maps a staging envelope to a normalized clinician.
func ExtractClinician(e Envelope) (Clinician, bool) {
	extract, ok := clinicianExtractors[e.Source]
	if !ok {
		return Clinician{}, false
	}
	return extract(e), true
}

// ExtractService maps a staging envelope to a normalized service. Services
// come only from the ERP extract; the name is the grouping key and keeps its
// display casing, trimmed.
func ExtractService(e Envelope) Service {
	return Service{
		Name:            e.Field("nom_service"),
		Description:     e.Field("description"),
		Location:        e.Field("localisation"),
		Hours:           e.Field("horaires_ouverture_lundi"),
		ResponsibleName: e.Field("responsable_nom"),
	}
}
