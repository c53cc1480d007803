// Package master persists golden records into the master store in
// entity-dependency order. The write pattern is insert-only; the single
// update is the responsible-clinician back-reference patch on services.
package master

import (
	"context"

	"mdm/internal/record"
)

// ClinicianRow is a golden clinician with its service reference already
// resolved. A nil ServiceID means the service name did not resolve; the
// foreign key stays null rather than failing the row.
type ClinicianRow struct {
	Clinician record.Clinician
	ServiceID *int64
}

// InsertedService reports one persisted service and its assigned identifier.
type InsertedService struct {
	ID      int64
	Service record.Service
}

// InsertedClinician reports one persisted clinician and its assigned
// identifier.
type InsertedClinician struct {
	ID        int64
	Clinician record.Clinician
}

// Store is the master store as the coordinator sees it. Batch inserts return
// only the rows that made it in: a row failure is handled inside the batch
// (logged, rolled back to the row's savepoint) and never fails the call.
// The returned error covers batch-level failures only.
type Store interface {
	InsertServices(ctx context.Context, services []record.Service) ([]InsertedService, error)
	InsertClinicians(ctx context.Context, rows []ClinicianRow) ([]InsertedClinician, error)
	InsertPatients(ctx context.Context, patients []record.Patient) (int, error)

	// SetServiceResponsible patches the responsible-clinician back-reference
	// on an already-inserted service row, addressed by name.
	SetServiceResponsible(ctx context.Context, serviceName string, clinicianID int64) error
}
