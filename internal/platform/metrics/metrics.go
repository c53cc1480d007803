package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for one pipeline process.
type Metrics struct {
	MessagesPublished *prometheus.CounterVec
	MessagesConsumed  *prometheus.CounterVec
	GoldenInserted    *prometheus.CounterVec
	DuplicatesMerged  *prometheus.CounterVec
	RecordsDropped    *prometheus.CounterVec
	InsertFailures    *prometheus.CounterVec
	UnresolvedRefs    prometheus.Counter
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		MessagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_messages_published_total",
			Help: "Source records published to the staging channel, by topic.",
		}, []string{"topic"}),
		MessagesConsumed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_messages_consumed_total",
			Help: "Staging messages read during snapshot drains, by topic.",
		}, []string{"topic"}),
		GoldenInserted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_golden_records_inserted_total",
			Help: "Golden records persisted to the master store, by entity.",
		}, []string{"entity"}),
		DuplicatesMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_duplicates_merged_total",
			Help: "Raw records folded into an existing match group, by entity.",
		}, []string{"entity"}),
		RecordsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_records_dropped_total",
			Help: "Records excluded from persistence, by entity and reason.",
		}, []string{"entity", "reason"}),
		InsertFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mdm_insert_failures_total",
			Help: "Per-row master store insert failures, by entity.",
		}, []string{"entity"}),
		UnresolvedRefs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mdm_unresolved_references_total",
			Help: "Cross-entity references that could not be resolved by name.",
		}),
	}
}
