// Package source reads the per-source tabular extracts, tags every record
// with its origin system, and publishes them to the staging channel keyed by
// entity type.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"mdm/internal/record"
	"mdm/internal/staging"
)

// extractFile names one source extract and the system it came from.
type extractFile struct {
	source record.Source
	name   string
}

// extracts lists every extract per entity type, in the publish order the
// original systems deliver them.
var extracts = map[record.EntityType][]extractFile{
	record.EntityService: {
		{record.SourceERP, "source_erp_services.csv"},
	},
	record.EntityClinician: {
		{record.SourceERP, "source_erp_medecins.csv"},
		{record.SourceScheduling, "source_rdv_medecins.csv"},
	},
	record.EntityPatient: {
		{record.SourceScheduling, "source_rdv_patients.csv"},
		{record.SourceERP, "source_erp_patients.csv"},
		{record.SourceBilling, "source_fact_patients.csv"},
	},
}

// dossierFile is the ERP medical-dossier extract joined against patients
// during consolidation, keyed by dossier number.
const dossierFile = "source_erp_dossiers_medicaux.csv"

// Adapter publishes source extracts into the staging channel.
type Adapter struct {
	channel staging.Channel
	dir     string
	logger  *slog.Logger
}

func NewAdapter(channel staging.Channel, dir string, logger *slog.Logger) *Adapter {
	return &Adapter{channel: channel, dir: dir, logger: logger}
}

// PublishAll publishes every extract, the three entity types concurrently,
// and returns the per-topic publish counts. A missing extract file is a
// warning (the stage downstream runs on whatever arrived); a failing channel
// is an error.
func (a *Adapter) PublishAll(ctx context.Context) (map[string]int, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	counts := make(map[string]int)

	for entity, files := range extracts {
		g.Go(func() error {
			topic := entity.Topic()
			total := 0
			for _, f := range files {
				n, err := a.publishFile(ctx, topic, f.source, filepath.Join(a.dir, f.name))
				if err != nil {
					return err
				}
				total += n
			}
			if total == 0 {
				a.logger.Warn("no records published for entity type", "topic", topic)
			}
			mu.Lock()
			counts[topic] = total
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, nil
}

// publishFile reads one CSV extract and publishes each row tagged with its
// origin. Missing files are logged and skipped.
func (a *Adapter) publishFile(ctx context.Context, topic string, src record.Source, path string) (int, error) {
	rows, err := ReadExtract(path)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.Warn("extract file missing, skipping", "path", path, "source", src)
			return 0, nil
		}
		return 0, err
	}

	for _, row := range rows {
		env := record.Envelope{Source: src, Data: row}
		if err := a.channel.Publish(ctx, topic, env); err != nil {
			return 0, fmt.Errorf("publish %s record from %s: %w", topic, path, err)
		}
	}

	a.logger.Info("extract published", "topic", topic, "source", src, "records", len(rows))
	return len(rows), nil
}

// ReadExtract parses a CSV extract into one loose field map per row, header
// row as keys. The sources export with a UTF-8 BOM, which is stripped.
func ReadExtract(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []map[string]any
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row of %s: %w", path, err)
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadDossiers reads the ERP medical-dossier extract and returns the
// dossier-number to medical-history lookup used during the patient stage.
// A missing file yields an empty lookup and a warning, not an error.
func LoadDossiers(dir string, logger *slog.Logger) map[string]string {
	path := filepath.Join(dir, dossierFile)
	rows, err := ReadExtract(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("dossier extract unreadable", "path", path, "error", err)
		} else {
			logger.Warn("dossier extract missing", "path", path)
		}
		return map[string]string{}
	}

	lookup := make(map[string]string, len(rows))
	for _, row := range rows {
		env := record.Envelope{Source: record.SourceERP, Data: row}
		num := env.Field("num_dossier")
		if num == "" {
			continue
		}
		lookup[num] = env.Field("historique_medical")
	}
	return lookup
}
