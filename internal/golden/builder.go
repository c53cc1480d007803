// Package golden builds one merged record per real-world entity out of the
// normalized records drained from the staging channel.
//
// Grouping is a single left-to-right sweep over the arrival-ordered slice
// with a parallel claimed flag: the first unclaimed record seeds a group as
// its anchor, and every later unclaimed record matching that anchor joins the
// group. The anchor never changes as members are added, so the non-transitive
// pairwise relation resolves deterministically: first seen wins as the
// canonical matcher. Same input order, same groups.
package golden

import (
	"mdm/internal/match"
	"mdm/internal/record"
)

// GroupPatients partitions arrival-ordered patients into match groups using
// the general pairwise matcher against each group's fixed anchor.
func GroupPatients(patients []record.Patient) [][]record.Patient {
	claimed := make([]bool, len(patients))
	var groups [][]record.Patient

	for i := range patients {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		group := []record.Patient{patients[i]}
		anchor := patients[i].Identity()

		for j := i + 1; j < len(patients); j++ {
			if claimed[j] {
				continue
			}
			if match.SameEntity(anchor, patients[j].Identity()) {
				claimed[j] = true
				group = append(group, patients[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// MergePatients folds a match group into its golden record. The anchor is
// the merge base; each later member fills fields still unknown in the
// running record. A present field is never overwritten, so the merge is a
// monotonic union over the group in arrival order.
func MergePatients(group []record.Patient) record.Patient {
	merged := group[0]
	for _, p := range group[1:] {
		fillString(&merged.FamilyName, p.FamilyName)
		fillString(&merged.GivenName, p.GivenName)
		fillString(&merged.BirthDate, p.BirthDate)
		fillString(&merged.Sex, p.Sex)
		fillString(&merged.Phone, p.Phone)
		fillString(&merged.Email, p.Email)
		fillString(&merged.Address, p.Address)
		fillString(&merged.DossierNumber, p.DossierNumber)
		fillString(&merged.MedicalHistory, p.MedicalHistory)
	}
	return merged
}

// GroupClinicians groups clinicians by identity key (license number when
// present, else email), preserving first-seen order. Records with neither
// are unidentifiable and come back separately for the caller to warn about.
func GroupClinicians(clinicians []record.Clinician) (groups [][]record.Clinician, dropped []record.Clinician) {
	byKey := make(map[string]int)
	for _, c := range clinicians {
		key := c.IdentityKey()
		if key == "" {
			dropped = append(dropped, c)
			continue
		}
		idx, ok := byKey[key]
		if !ok {
			byKey[key] = len(groups)
			groups = append(groups, []record.Clinician{c})
			continue
		}
		groups[idx] = append(groups[idx], c)
	}
	return groups, dropped
}

// MergeClinicians folds a clinician group with first-present-wins semantics,
// except that ERP-origin values take authority: a present ERP field replaces
// an already-filled scheduling value. This is the only merge in the pipeline
// where a present field can change.
func MergeClinicians(group []record.Clinician) record.Clinician {
	merged := group[0]
	for _, c := range group[1:] {
		if c.Source == record.SourceERP {
			overrideString(&merged.FamilyName, c.FamilyName)
			overrideString(&merged.GivenName, c.GivenName)
			overrideString(&merged.Specialty, c.Specialty)
			overrideString(&merged.LicenseNumber, c.LicenseNumber)
			overrideString(&merged.Email, c.Email)
			overrideString(&merged.Phone, c.Phone)
			overrideString(&merged.ServiceName, c.ServiceName)
			overrideString(&merged.Availability, c.Availability)
			merged.Source = record.SourceERP
			continue
		}
		fillString(&merged.FamilyName, c.FamilyName)
		fillString(&merged.GivenName, c.GivenName)
		fillString(&merged.Specialty, c.Specialty)
		fillString(&merged.LicenseNumber, c.LicenseNumber)
		fillString(&merged.Email, c.Email)
		fillString(&merged.Phone, c.Phone)
		fillString(&merged.ServiceName, c.ServiceName)
		fillString(&merged.Availability, c.Availability)
	}
	return merged
}

// MergeServices deduplicates services on exact post-trim name equality,
// first-present-wins on the remaining fields. Nameless records cannot be
// keyed and come back separately. Order of first appearance is preserved.
func MergeServices(services []record.Service) (merged []record.Service, dropped int) {
	byName := make(map[string]int)
	for _, s := range services {
		if s.Name == "" {
			dropped++
			continue
		}
		idx, ok := byName[s.Name]
		if !ok {
			byName[s.Name] = len(merged)
			merged = append(merged, s)
			continue
		}
		fillString(&merged[idx].Description, s.Description)
		fillString(&merged[idx].Location, s.Location)
		fillString(&merged[idx].Hours, s.Hours)
		fillString(&merged[idx].ResponsibleName, s.ResponsibleName)
	}
	return merged, dropped
}

// fillString copies src into dst only when dst is still unknown.
func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

// overrideString copies src into dst whenever src is present.
func overrideString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
