package master

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"mdm/internal/record"
)

// PostgresStore persists golden records in PostgreSQL through database/sql.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres constructs a PostgreSQL-backed master store.
func NewPostgres(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// schema is the master data model: services first, clinicians referencing
// them, patients standalone. The responsible back-reference is added as a
// separate constraint because service rows exist before any clinician does.
const schema = `
CREATE TABLE IF NOT EXISTS service (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL UNIQUE,
	description     TEXT,
	location        TEXT,
	hours           TEXT,
	responsible_id  BIGINT
);

CREATE TABLE IF NOT EXISTS clinician (
	id              BIGSERIAL PRIMARY KEY,
	family_name     TEXT NOT NULL,
	given_name      TEXT,
	specialty       TEXT,
	service_id      BIGINT REFERENCES service(id),
	license_number  TEXT,
	availability    TEXT,
	email           TEXT,
	phone           TEXT
);

CREATE TABLE IF NOT EXISTS patient (
	id              BIGSERIAL PRIMARY KEY,
	family_name     TEXT NOT NULL,
	given_name      TEXT NOT NULL,
	birth_date      DATE NOT NULL,
	sex             TEXT,
	address         TEXT,
	phone           TEXT,
	email           TEXT,
	dossier_number  TEXT,
	medical_history TEXT
);

ALTER TABLE service DROP CONSTRAINT IF EXISTS service_responsible_fk;
ALTER TABLE service ADD CONSTRAINT service_responsible_fk
	FOREIGN KEY (responsible_id) REFERENCES clinician(id);
`

// EnsureSchema creates the master tables if they do not exist. Migration
// tooling is out of scope; a reset store plus this bootstrap is the
// supported starting state for a run.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure master schema: %w", err)
	}
	return nil
}

// InsertServices inserts one batch of golden services, committing once at
// the end. Each row gets its own savepoint: a failed row is logged, rolled
// back to its savepoint, and the batch proceeds.
func (s *PostgresStore) InsertServices(ctx context.Context, services []record.Service) ([]InsertedService, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin service batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const insert = `
		INSERT INTO service (name, description, location, hours)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var inserted []InsertedService
	for i, svc := range services {
		sp := fmt.Sprintf("svc_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return inserted, fmt.Errorf("savepoint service batch: %w", err)
		}

		var id int64
		err := tx.QueryRowContext(ctx, insert,
			svc.Name,
			nullable(svc.Description),
			nullable(svc.Location),
			nullable(svc.Hours),
		).Scan(&id)
		if err != nil {
			s.logger.Error("service insert failed",
				"name", svc.Name,
				"error", err,
			)
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
				return inserted, fmt.Errorf("rollback service row: %w", err)
			}
			continue
		}
		inserted = append(inserted, InsertedService{ID: id, Service: svc})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit service batch: %w", err)
	}
	return inserted, nil
}

// InsertClinicians inserts one batch of golden clinicians with the same
// savepoint-per-row, commit-at-end protocol as services.
func (s *PostgresStore) InsertClinicians(ctx context.Context, rows []ClinicianRow) ([]InsertedClinician, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin clinician batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `
		INSERT INTO clinician (family_name, given_name, specialty, service_id,
		                       license_number, availability, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var inserted []InsertedClinician
	for i, row := range rows {
		sp := fmt.Sprintf("cli_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return inserted, fmt.Errorf("savepoint clinician batch: %w", err)
		}

		c := row.Clinician
		var id int64
		err := tx.QueryRowContext(ctx, insert,
			c.FamilyName,
			nullable(c.GivenName),
			nullable(c.Specialty),
			row.ServiceID,
			nullable(c.LicenseNumber),
			nullable(c.Availability),
			nullable(c.Email),
			nullable(c.Phone),
		).Scan(&id)
		if err != nil {
			s.logger.Error("clinician insert failed",
				"family_name", c.FamilyName,
				"given_name", c.GivenName,
				"license_number", c.LicenseNumber,
				"error", err,
			)
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
				return inserted, fmt.Errorf("rollback clinician row: %w", err)
			}
			continue
		}
		inserted = append(inserted, InsertedClinician{ID: id, Clinician: c})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit clinician batch: %w", err)
	}
	return inserted, nil
}

// InsertPatients inserts one batch of golden patients and returns how many
// made it in. Callers filter for mandatory fields before calling.
func (s *PostgresStore) InsertPatients(ctx context.Context, patients []record.Patient) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin patient batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `
		INSERT INTO patient (family_name, given_name, birth_date, sex, address,
		                     phone, email, dossier_number, medical_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	count := 0
	for i, p := range patients {
		sp := fmt.Sprintf("pat_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return count, fmt.Errorf("savepoint patient batch: %w", err)
		}

		_, err := tx.ExecContext(ctx, insert,
			p.FamilyName,
			p.GivenName,
			p.BirthDate,
			nullable(p.Sex),
			nullable(p.Address),
			nullable(p.Phone),
			nullable(p.Email),
			nullable(p.DossierNumber),
			nullable(p.MedicalHistory),
		)
		if err != nil {
			s.logger.Error("patient insert failed",
				"family_name", p.FamilyName,
				"given_name", p.GivenName,
				"birth_date", p.BirthDate,
				"error", err,
			)
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); err != nil {
				return count, fmt.Errorf("rollback patient row: %w", err)
			}
			continue
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit patient batch: %w", err)
	}
	return count, nil
}

// SetServiceResponsible patches the responsible back-reference on a service
// row by name.
func (s *PostgresStore) SetServiceResponsible(ctx context.Context, serviceName string, clinicianID int64) error {
	const update = `UPDATE service SET responsible_id = $1 WHERE name = $2`
	if _, err := s.db.ExecContext(ctx, update, clinicianID, serviceName); err != nil {
		return fmt.Errorf("set responsible for service %s: %w", serviceName, err)
	}
	return nil
}

// nullable maps unknown (empty) strings to SQL NULL so the master store
// distinguishes absent facts from empty text.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
