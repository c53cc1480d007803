// Package record defines the shapes that flow through the pipeline: the
// staging envelope carrying raw per-source fields, the normalized entity
// records, and the per-source field-extraction rules that turn one into the
// other.
//
// An absent or unparseable field is the empty string. Matching and merging
// treat it as unknown, never as a value.
package record

import (
	"strings"

	"github.com/spf13/cast"

	"mdm/internal/match"
	"mdm/internal/normalize"
)

// Source identifies the system a raw record came from. Origin is never
// discarded: the clinician merge gives ERP values authority.
type Source string

const (
	SourceScheduling Source = "RDV"
	SourceERP        Source = "ERP"
	SourceBilling    Source = "FACT"
)

// EntityType selects a staging topic and a persistence stage.
type EntityType string

const (
	EntityPatient   EntityType = "patient"
	EntityClinician EntityType = "clinician"
	EntityService   EntityType = "service"
)

// Topic returns the staging channel topic for the entity type.
func (e EntityType) Topic() string {
	return string(e) + "s"
}

// Topics lists all staging topics in persistence order.
func Topics() []string {
	return []string{
		EntityService.Topic(),
		EntityClinician.Topic(),
		EntityPatient.Topic(),
	}
}

// Envelope is the staging channel message: the origin tag plus the raw
// column values as published by the source adapter. Immutable once published.
type Envelope struct {
	Source Source         `json:"source"`
	Data   map[string]any `json:"data"`
}

// Field returns the trimmed string form of a raw column value, or "" when
// the column is absent. Values arrive as CSV strings or decoded JSON
// scalars, so coercion is loose by design.
func (e Envelope) Field(name string) string {
	v, ok := e.Data[name]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// Patient is the normalized patient record.
type Patient struct {
	Source         Source
	FamilyName     string
	GivenName      string
	BirthDate      string
	Sex            string
	Phone          string
	Email          string
	Address        string
	DossierNumber  string
	MedicalHistory string
}

// Identity projects the fields the matcher looks at.
func (p Patient) Identity() match.Identity {
	return match.Identity{
		FamilyName:   p.FamilyName,
		GivenName:    p.GivenName,
		BirthDate:    p.BirthDate,
		Phone:        p.Phone,
		Email:        p.Email,
		RecordNumber: p.DossierNumber,
	}
}

// HasMandatoryFields reports whether the patient can be persisted. Checked
// after merging so a group member can supply what the anchor lacks.
func (p Patient) HasMandatoryFields() bool {
	return p.FamilyName != "" && p.GivenName != "" && p.BirthDate != ""
}

// Clinician is the normalized clinician record.
type Clinician struct {
	Source        Source
	FamilyName    string
	GivenName     string
	Specialty     string
	LicenseNumber string
	Email         string
	Phone         string
	ServiceName   string
	Availability  string
}

// IdentityKey is the clinician grouping key: license number when present,
// else email. Empty means the record cannot be identified and is dropped.
func (c Clinician) IdentityKey() string {
	if c.LicenseNumber != "" {
		return c.LicenseNumber
	}
	return c.Email
}

// DisplayKey is the canonical lookup key used to resolve a service's
// responsible clinician by name. Both sides of that lookup go through
// ClinicianDisplayKey so formatting drift in the sources cannot break it.
func (c Clinician) DisplayKey() string {
	return ClinicianDisplayKey(c.GivenName, c.FamilyName)
}

// ClinicianDisplayKey canonicalizes a clinician name pair into the
// "Dr. Given FAMILY" form the identifier cache is keyed by.
func ClinicianDisplayKey(given, family string) string {
	return "Dr. " + normalize.Capitalize(given) + " " + normalize.Name(family)
}

// Service is the normalized service record.
type Service struct {
	Name            string
	Description     string
	Location        string
	Hours           string
	ResponsibleName string
}
