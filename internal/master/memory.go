package master

import (
	"context"
	"sync"

	"mdm/internal/record"
	"mdm/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests. It assigns sequential
// identifiers per entity and enforces the service name uniqueness the
// relational schema would, so duplicate-row handling is exercisable without
// a database.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64

	Services      []InsertedService
	Clinicians    []InsertedClinician
	ClinicianRows []ClinicianRow
	Patients      []record.Patient
	Responsibles  map[string]int64 // service name -> clinician id
}

func NewMemory() *MemoryStore {
	return &MemoryStore{Responsibles: make(map[string]int64)}
}

func (m *MemoryStore) InsertServices(_ context.Context, services []record.Service) ([]InsertedService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []InsertedService
	for _, svc := range services {
		if m.serviceID(svc.Name) != 0 {
			continue // unique violation, row skipped like a failed savepoint
		}
		m.nextID++
		row := InsertedService{ID: m.nextID, Service: svc}
		m.Services = append(m.Services, row)
		inserted = append(inserted, row)
	}
	return inserted, nil
}

func (m *MemoryStore) InsertClinicians(_ context.Context, rows []ClinicianRow) ([]InsertedClinician, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var inserted []InsertedClinician
	for _, row := range rows {
		m.nextID++
		ins := InsertedClinician{ID: m.nextID, Clinician: row.Clinician}
		m.Clinicians = append(m.Clinicians, ins)
		m.ClinicianRows = append(m.ClinicianRows, row)
		inserted = append(inserted, ins)
	}
	return inserted, nil
}

func (m *MemoryStore) InsertPatients(_ context.Context, patients []record.Patient) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Patients = append(m.Patients, patients...)
	return len(patients), nil
}

func (m *MemoryStore) SetServiceResponsible(_ context.Context, serviceName string, clinicianID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serviceID(serviceName) == 0 {
		return sentinel.ErrNotFound
	}
	m.Responsibles[serviceName] = clinicianID
	return nil
}

// serviceID returns 0 when no service with the name exists. Callers hold mu.
func (m *MemoryStore) serviceID(name string) int64 {
	for _, svc := range m.Services {
		if svc.Service.Name == name {
			return svc.ID
		}
	}
	return 0
}
