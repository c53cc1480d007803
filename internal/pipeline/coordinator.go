// Package pipeline drives one consolidation run: drain a full snapshot per
// entity type from the staging channel, normalize, group, merge, and persist
// golden records in entity-dependency order.
//
// The four states run strictly in order because later states need the
// identifier caches built by earlier ones: services first, then clinicians
// (resolving their service by name), then the service responsible
// back-reference, then patients. This ordering is a correctness requirement,
// not a performance choice.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mdm/internal/golden"
	"mdm/internal/master"
	"mdm/internal/normalize"
	"mdm/internal/platform/metrics"
	"mdm/internal/record"
	"mdm/internal/staging"
)

// Caches holds the run-scoped identifier caches used to resolve cross-entity
// foreign keys. It is owned by one run and passed between states; nothing is
// global, so runs cannot observe each other.
type Caches struct {
	ServiceIDs   map[string]int64 // service name -> master store id
	ClinicianIDs map[string]int64 // canonical display key -> master store id
}

func newCaches() *Caches {
	return &Caches{
		ServiceIDs:   make(map[string]int64),
		ClinicianIDs: make(map[string]int64),
	}
}

// Coordinator is the persistence coordinator for one pipeline process.
type Coordinator struct {
	channel  staging.Channel
	store    master.Store
	logger   *slog.Logger
	dossiers map[string]string
	metrics  *metrics.Metrics
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithDossierLookup supplies the dossier-number to medical-history snapshot
// joined against ERP patient records.
func WithDossierLookup(lookup map[string]string) Option {
	return func(c *Coordinator) {
		c.dossiers = lookup
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New constructs a coordinator. Channel, store, and logger are required.
func New(channel staging.Channel, store master.Store, logger *slog.Logger, opts ...Option) (*Coordinator, error) {
	if channel == nil {
		return nil, fmt.Errorf("staging channel is required")
	}
	if store == nil {
		return nil, fmt.Errorf("master store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := &Coordinator{
		channel:  channel,
		store:    store,
		logger:   logger,
		dossiers: map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes the four persistence states in order. Per-record failures are
// recovered locally; only batch-level store failures propagate and end the
// run with the earlier states left as persisted (no rollback across states).
func (c *Coordinator) Run(ctx context.Context) error {
	runID := uuid.NewString()
	log := c.logger.With("run_id", runID)

	caches := newCaches()

	responsibles, err := c.drainServices(ctx, log, caches)
	if err != nil {
		return fmt.Errorf("drain services: %w", err)
	}

	if err := c.drainClinicians(ctx, log, caches); err != nil {
		return fmt.Errorf("drain clinicians: %w", err)
	}

	c.resolveResponsibles(ctx, log, caches, responsibles)

	if err := c.drainPatients(ctx, log, caches); err != nil {
		return fmt.Errorf("drain patients: %w", err)
	}

	log.Info("consolidation run complete")
	return nil
}

// drainServices reads the full service snapshot, merges on exact post-trim
// name equality, inserts golden rows without their responsible reference,
// and caches name -> id. It returns the responsible display name recorded
// per service for the back-reference pass.
func (c *Coordinator) drainServices(ctx context.Context, log *slog.Logger, caches *Caches) (map[string]string, error) {
	envelopes := c.snapshot(ctx, log, record.EntityService)

	services := make([]record.Service, 0, len(envelopes))
	for _, env := range envelopes {
		services = append(services, record.ExtractService(env))
	}

	merged, nameless := golden.MergeServices(services)
	c.countDropped(record.EntityService, "missing_name", nameless)
	c.countMerged(record.EntityService, len(services)-nameless-len(merged))

	inserted, err := c.store.InsertServices(ctx, merged)
	if err != nil {
		return nil, err
	}
	c.countInserted(record.EntityService, len(inserted))
	c.countInsertFailures(record.EntityService, len(merged)-len(inserted))

	responsibles := make(map[string]string, len(merged))
	for _, svc := range merged {
		if svc.ResponsibleName != "" {
			responsibles[svc.Name] = svc.ResponsibleName
		}
	}
	for _, ins := range inserted {
		caches.ServiceIDs[ins.Service.Name] = ins.ID
	}

	log.Info("services persisted",
		"snapshot", len(envelopes),
		"golden", len(merged),
		"inserted", len(inserted),
	)
	return responsibles, nil
}

// drainClinicians reads the full clinician snapshot, groups by identity key,
// merges with ERP precedence, resolves each service reference through the
// service cache, inserts, and caches the canonical display key -> id.
func (c *Coordinator) drainClinicians(ctx context.Context, log *slog.Logger, caches *Caches) error {
	envelopes := c.snapshot(ctx, log, record.EntityClinician)

	clinicians := make([]record.Clinician, 0, len(envelopes))
	for _, env := range envelopes {
		cl, ok := record.ExtractClinician(env)
		if !ok {
			log.Warn("unknown clinician source, record skipped", "source", env.Source)
			c.countDropped(record.EntityClinician, "unknown_source", 1)
			continue
		}
		clinicians = append(clinicians, cl)
	}

	groups, unidentified := golden.GroupClinicians(clinicians)
	for _, cl := range unidentified {
		log.Warn("clinician has neither license number nor email, dropped",
			"family_name", cl.FamilyName,
			"given_name", cl.GivenName,
			"source", cl.Source,
		)
	}
	c.countDropped(record.EntityClinician, "missing_identity_key", len(unidentified))

	rows := make([]master.ClinicianRow, 0, len(groups))
	for _, group := range groups {
		mergedClinician := golden.MergeClinicians(group)
		c.countMerged(record.EntityClinician, len(group)-1)

		var serviceID *int64
		if mergedClinician.ServiceName != "" {
			if id, ok := caches.ServiceIDs[mergedClinician.ServiceName]; ok {
				serviceID = &id
			} else {
				log.Warn("clinician service not resolved, reference left null",
					"family_name", mergedClinician.FamilyName,
					"service_name", mergedClinician.ServiceName,
				)
				c.countUnresolved()
			}
		}
		rows = append(rows, master.ClinicianRow{Clinician: mergedClinician, ServiceID: serviceID})
	}

	inserted, err := c.store.InsertClinicians(ctx, rows)
	if err != nil {
		return err
	}
	c.countInserted(record.EntityClinician, len(inserted))
	c.countInsertFailures(record.EntityClinician, len(rows)-len(inserted))

	for _, ins := range inserted {
		caches.ClinicianIDs[ins.Clinician.DisplayKey()] = ins.ID
	}

	log.Info("clinicians persisted",
		"snapshot", len(envelopes),
		"golden", len(rows),
		"inserted", len(inserted),
	)
	return nil
}

// resolveResponsibles is the back-reference pass: for every service that
// recorded a responsible display name, look the name up in the clinician
// cache and patch the service row. Unresolved names stay null; nothing here
// is fatal.
func (c *Coordinator) resolveResponsibles(ctx context.Context, log *slog.Logger, caches *Caches, responsibles map[string]string) {
	linked := 0
	for serviceName, displayName := range responsibles {
		given, family := normalize.DisplayName(displayName)
		id, ok := caches.ClinicianIDs[record.ClinicianDisplayKey(given, family)]
		if !ok {
			log.Warn("responsible clinician not resolved, reference left null",
				"service", serviceName,
				"responsible", displayName,
			)
			c.countUnresolved()
			continue
		}
		if err := c.store.SetServiceResponsible(ctx, serviceName, id); err != nil {
			log.Error("responsible back-reference update failed",
				"service", serviceName,
				"clinician_id", id,
				"error", err,
			)
			continue
		}
		linked++
	}
	log.Info("service responsibles resolved", "linked", linked, "recorded", len(responsibles))
}

// drainPatients reads the full cross-source patient snapshot, joins the
// dossier lookup, runs matcher-based grouping, merges, filters the mandatory
// fields after the merge, and inserts.
func (c *Coordinator) drainPatients(ctx context.Context, log *slog.Logger, _ *Caches) error {
	envelopes := c.snapshot(ctx, log, record.EntityPatient)

	patients := make([]record.Patient, 0, len(envelopes))
	for _, env := range envelopes {
		p, ok := record.ExtractPatient(env)
		if !ok {
			log.Warn("unknown patient source, record skipped", "source", env.Source)
			c.countDropped(record.EntityPatient, "unknown_source", 1)
			continue
		}
		if p.DossierNumber != "" && p.MedicalHistory == "" {
			p.MedicalHistory = c.dossiers[p.DossierNumber]
		}
		patients = append(patients, p)
	}

	groups := golden.GroupPatients(patients)

	goldenPatients := make([]record.Patient, 0, len(groups))
	incomplete := 0
	for _, group := range groups {
		mergedPatient := golden.MergePatients(group)
		c.countMerged(record.EntityPatient, len(group)-1)

		// Mandatory fields are checked after the merge so any group member
		// can supply what the anchor lacks.
		if !mergedPatient.HasMandatoryFields() {
			incomplete++
			continue
		}
		goldenPatients = append(goldenPatients, mergedPatient)
	}
	c.countDropped(record.EntityPatient, "missing_mandatory_fields", incomplete)

	inserted, err := c.store.InsertPatients(ctx, goldenPatients)
	if err != nil {
		return err
	}
	c.countInserted(record.EntityPatient, inserted)
	c.countInsertFailures(record.EntityPatient, len(goldenPatients)-inserted)

	log.Info("patients persisted",
		"snapshot", len(envelopes),
		"groups", len(groups),
		"incomplete", incomplete,
		"inserted", inserted,
	)
	return nil
}

// snapshot drains one topic. Read failures and empty snapshots are warnings;
// the calling stage runs on whatever came back.
func (c *Coordinator) snapshot(ctx context.Context, log *slog.Logger, entity record.EntityType) []record.Envelope {
	topic := entity.Topic()
	envelopes, err := c.channel.Snapshot(ctx, topic)
	if err != nil {
		log.Warn("staging snapshot failed, stage runs on empty set", "topic", topic, "error", err)
		return nil
	}
	if len(envelopes) == 0 {
		log.Warn("staging snapshot empty", "topic", topic)
	}
	if c.metrics != nil {
		c.metrics.MessagesConsumed.WithLabelValues(topic).Add(float64(len(envelopes)))
	}
	return envelopes
}

func (c *Coordinator) countInserted(entity record.EntityType, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.GoldenInserted.WithLabelValues(string(entity)).Add(float64(n))
	}
}

func (c *Coordinator) countMerged(entity record.EntityType, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.DuplicatesMerged.WithLabelValues(string(entity)).Add(float64(n))
	}
}

func (c *Coordinator) countDropped(entity record.EntityType, reason string, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.RecordsDropped.WithLabelValues(string(entity), reason).Add(float64(n))
	}
}

func (c *Coordinator) countInsertFailures(entity record.EntityType, n int) {
	if c.metrics != nil && n > 0 {
		c.metrics.InsertFailures.WithLabelValues(string(entity)).Add(float64(n))
	}
}

func (c *Coordinator) countUnresolved() {
	if c.metrics != nil {
		c.metrics.UnresolvedRefs.Inc()
	}
}
